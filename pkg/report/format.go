package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Format is an output format.
type Format string

const (
	// FormatTable renders human-readable tables.
	FormatTable Format = "table"
	// FormatJSON renders indented JSON.
	FormatJSON Format = "json"
	// FormatYAML renders YAML.
	FormatYAML Format = "yaml"
)

// Formatter writes a report.
type Formatter interface {
	Format(w io.Writer, r *Report) error
}

// FormatterFunc allows functions to implement Formatter.
type FormatterFunc func(io.Writer, *Report) error

// Format implements the Formatter interface.
func (f FormatterFunc) Format(w io.Writer, r *Report) error {
	return f(w, r)
}

// NewFormatter creates the formatter for a format; unknown formats get tables.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: "  "}
	case FormatYAML:
		return &YAMLFormatter{}
	default:
		return &TableFormatter{}
	}
}

// DetectFormat returns the explicit format if given, tables on a terminal
// and JSON otherwise.
func DetectFormat(explicit string) Format {
	if explicit != "" {
		return Format(strings.ToLower(explicit))
	}
	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return FormatTable
	}
	return FormatJSON
}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	format := Format(strings.ToLower(s))
	switch format {
	case FormatTable, FormatJSON, FormatYAML, "":
		return format, nil
	default:
		return "", fmt.Errorf("invalid format %q: must be one of: table, json, yaml", s)
	}
}

// JSONFormatter outputs JSON.
type JSONFormatter struct {
	Indent string
}

// Format implements the Formatter interface for JSON output.
func (f *JSONFormatter) Format(w io.Writer, r *Report) error {
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	if f.Indent != "" {
		encoder.SetIndent("", f.Indent)
	}
	return encoder.Encode(r)
}

// YAMLFormatter outputs YAML.
type YAMLFormatter struct{}

// Format implements the Formatter interface for YAML output.
func (f *YAMLFormatter) Format(w io.Writer, r *Report) error {
	data, err := yaml.MarshalWithOptions(r,
		yaml.Indent(2),
		yaml.IndentSequence(false),
	)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// TableFormatter outputs one table per report section.
type TableFormatter struct{}

type section struct {
	title string
	data  Data
}

// Format implements the Formatter interface for table output.
func (f *TableFormatter) Format(w io.Writer, r *Report) error {
	sections := []section{
		{"Canonical fields", fieldsData(r.Fields)},
		{"Unused source headers", unusedData(r.Unused)},
	}
	if r.Enrichment != nil {
		sections = append(sections, section{"Reference enrichment", enrichmentData(r.Enrichment)})
	}
	if r.Counts != nil {
		sections = append(sections, section{"Counts", countsData(r)})
	}

	for i, s := range sections {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w, s.title); err != nil {
			return err
		}
		if err := RenderTable(w, s.data); err != nil {
			return err
		}
	}
	return nil
}

// Align is a column alignment.
type Align int

const (
	// AlignDefault leaves alignment to the renderer.
	AlignDefault Align = iota
	// AlignLeft aligns left.
	AlignLeft
	// AlignCenter centers.
	AlignCenter
	// AlignRight aligns right.
	AlignRight
)

// Data is one rendered table.
type Data struct {
	Headers         []string
	Rows            [][]string
	ColumnAlignment []Align
}

// RenderTable writes data as a text table.
func RenderTable(w io.Writer, data Data) error {
	config := tablewriter.Config{}
	if len(data.ColumnAlignment) > 0 {
		twAlign := make([]tw.Align, len(data.ColumnAlignment))
		for i, align := range data.ColumnAlignment {
			switch align {
			case AlignLeft:
				twAlign[i] = tw.AlignLeft
			case AlignCenter:
				twAlign[i] = tw.AlignCenter
			case AlignRight:
				twAlign[i] = tw.AlignRight
			default:
				twAlign[i] = tw.Skip
			}
		}
		config.Header.Alignment = tw.CellAlignment{PerColumn: twAlign}
		config.Row.Alignment = tw.CellAlignment{PerColumn: twAlign}
	}

	t := tablewriter.NewTable(w, tablewriter.WithConfig(config))
	if len(data.Headers) > 0 {
		headers := make([]any, len(data.Headers))
		for i, h := range data.Headers {
			headers[i] = h
		}
		t.Header(headers...)
	}
	for _, row := range data.Rows {
		cells := make([]any, len(row))
		for i, c := range row {
			cells[i] = c
		}
		if err := t.Append(cells...); err != nil {
			return err
		}
	}
	return t.Render()
}

var title = cases.Title(language.English)

// label turns a snake_case key into a column title: rows_before -> Rows Before.
func label(key string) string {
	return title.String(strings.ReplaceAll(key, "_", " "))
}

func fieldsData(fields []Field) Data {
	d := Data{
		Headers:         []string{"Field", "Status", "Rule", "Source Header", "Col", "Note"},
		ColumnAlignment: []Align{AlignLeft, AlignLeft, AlignLeft, AlignLeft, AlignRight, AlignLeft},
	}
	for _, f := range fields {
		col := ""
		if f.Column != nil {
			col = strconv.Itoa(*f.Column)
		}
		d.Rows = append(d.Rows, []string{f.Field, label(f.Status), f.Rule, f.Header, col, f.Note})
	}
	return d
}

func unusedData(headers []Header) Data {
	d := Data{
		Headers:         []string{"Col", "Header"},
		ColumnAlignment: []Align{AlignRight, AlignLeft},
	}
	if len(headers) == 0 {
		d.Rows = [][]string{{"-", "(none; every source header was used)"}}
		return d
	}
	for _, h := range headers {
		name := h.Name
		if strings.TrimSpace(name) == "" {
			name = "(blank)"
		}
		d.Rows = append(d.Rows, []string{strconv.Itoa(h.Index), name})
	}
	return d
}

func enrichmentData(e *Enrichment) Data {
	d := Data{Headers: []string{"Property", "Value"}}
	if e.Skipped != "" {
		d.Rows = append(d.Rows, []string{label("skipped"), e.Skipped})
		return d
	}
	d.Rows = append(d.Rows,
		[]string{label("key_column"), e.KeyColumn},
		[]string{label("columns"), strings.Join(e.Columns, ", ")},
		[]string{label("matched"), strconv.Itoa(e.Matched)},
		[]string{label("unmatched"), strconv.Itoa(e.Unmatched)},
		[]string{label("duplicate_keys"), strconv.Itoa(e.DuplicateKeys)},
	)
	return d
}

func countsData(r *Report) Data {
	c := r.Counts
	d := Data{
		Headers:         []string{"Property", "Value"},
		ColumnAlignment: []Align{AlignLeft, AlignRight},
	}
	if r.Mode != "" {
		d.Rows = append(d.Rows, []string{label("mode"), r.Mode})
	}
	d.Rows = append(d.Rows,
		[]string{label("rows_before"), strconv.Itoa(c.RowsBefore)},
		[]string{label("rows_read"), strconv.Itoa(c.RowsRead)},
		[]string{label("duplicates"), strconv.Itoa(c.Duplicates)},
		[]string{label("admitted"), strconv.Itoa(c.Admitted)},
		[]string{label("rows_after"), strconv.Itoa(c.RowsAfter)},
	)
	return d
}
