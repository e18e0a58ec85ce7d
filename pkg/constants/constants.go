// Package constants provides shared defaults used throughout maestro:
// workbook layout conventions, file permissions and spreadsheet epochs.
package constants

import "time"

// Workbook layout defaults
const (
	// DefaultMasterPath is used when no master workbook location is given
	DefaultMasterPath = "maestro.xlsx"

	// DefaultSourceSheet holds the primary rows of a source extract
	DefaultSourceSheet = "Valo"

	// DefaultReferenceSheet holds the secondary rows joined into the primary ones
	DefaultReferenceSheet = "Base"

	// DefaultMasterSheet is the sheet created for a new master workbook
	DefaultMasterSheet = "Sheet1"

	// DefaultMasterHeaderRow is the 1-based row holding master headers.
	// The first row is left free for a title.
	DefaultMasterHeaderRow = 2

	// DefaultSourceHeaderRow is the 1-based header row of source sheets
	DefaultSourceHeaderRow = 1
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Spreadsheet conventions
var (
	// ExcelEpoch is day zero of spreadsheet date serials (1900 date system,
	// including the fictitious 1900-02-29).
	ExcelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)
)

// Date layouts
const (
	// DateKeyLayout renders normalized dates for comparison
	DateKeyLayout = "2006-01-02"

	// DisplayDateNumFmt is the cell number format used for date hints
	DisplayDateNumFmt = "dd/mm/yyyy"

	// PercentNumFmt is the builtin excel number format id for 0.00%
	PercentNumFmt = 10
)

// MissingIdentifier is the sentinel an absent identifier normalizes to.
// It never equals an empty string, so a blank cell never matches a present id.
const MissingIdentifier = "nan"
