package domain

import "strings"

// ExportList is an ordered, duplicate-free selection of bib_keys to export together.
// It is a value the caller builds and passes in; the server keeps no scratch list.
type ExportList struct {
	keys []string
}

// NewExportList builds a list from keys, dropping blanks and repeats.
func NewExportList(keys ...string) ExportList {
	var l ExportList
	for _, k := range keys {
		l = l.Add(k)
	}
	return l
}

// Add returns a list with key appended unless already present.
func (l ExportList) Add(key string) ExportList {
	key = strings.TrimSpace(key)
	if key == "" || l.Contains(key) {
		return l
	}
	keys := make([]string, len(l.keys), len(l.keys)+1)
	copy(keys, l.keys)
	return ExportList{keys: append(keys, key)}
}

// Remove returns a list without key.
func (l ExportList) Remove(key string) ExportList {
	keys := make([]string, 0, len(l.keys))
	for _, k := range l.keys {
		if k != key {
			keys = append(keys, k)
		}
	}
	return ExportList{keys: keys}
}

// Contains reports whether key is selected.
func (l ExportList) Contains(key string) bool {
	for _, k := range l.keys {
		if k == key {
			return true
		}
	}
	return false
}

// Keys returns a copy of the selected keys in insertion order.
func (l ExportList) Keys() []string {
	out := make([]string, len(l.keys))
	copy(out, l.keys)
	return out
}

// Len returns the number of selected keys.
func (l ExportList) Len() int {
	return len(l.keys)
}
