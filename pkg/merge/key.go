package merge

import (
	"github.com/agentstation/maestro/pkg/normalize"
	"github.com/agentstation/maestro/pkg/table"
)

// Key identifies a master row: normalized person key and reference date.
type Key struct {
	ID   string
	Date string
}

// KeyOf builds the dedup key from an identifier, an optional separate check
// digit and the reference date.
func KeyOf(id, dv, date table.Value) Key {
	return Key{ID: normalize.PersonKey(id, dv), Date: normalize.DateKey(date)}
}

// Valid reports whether both components are present. Keys with an empty
// component never match anything.
func (k Key) Valid() bool {
	return k.ID != "" && k.Date != ""
}

// String renders the key for logs.
func (k Key) String() string {
	return k.ID + "|" + k.Date
}

// keySet holds the valid keys seen so far. A key with a check digit and the
// same key without it identify the same person.
type keySet struct {
	keys map[Key]struct{}
	// bare-digit forms of keys that carry a check digit
	bare map[Key]struct{}
}

func newKeySet() *keySet {
	return &keySet{keys: map[Key]struct{}{}, bare: map[Key]struct{}{}}
}

func (ks *keySet) has(k Key) bool {
	if !k.Valid() {
		return false
	}
	if _, ok := ks.keys[k]; ok {
		return true
	}
	if base, ok := normalize.KeyBase(k.ID); ok {
		_, ok := ks.keys[Key{ID: base, Date: k.Date}]
		return ok
	}
	_, ok := ks.bare[k]
	return ok
}

func (ks *keySet) add(k Key) {
	if !k.Valid() {
		return
	}
	ks.keys[k] = struct{}{}
	if base, ok := normalize.KeyBase(k.ID); ok {
		ks.bare[Key{ID: base, Date: k.Date}] = struct{}{}
	}
}
