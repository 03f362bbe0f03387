// Package nametable interns asset names to dense integer ids.
package nametable

import "sync"

// ID is a dense asset id. Zero is the empty name.
type ID uint32

// Table maps names to ids and back. Ids are handed out in call order and
// never reused. The zero value is not usable; call New.
type Table struct {
	mu    sync.Mutex
	ids   map[string]ID
	names []string // names[id]
}

// New returns a table that already holds the empty name under id 0.
func New() *Table {
	return &Table{
		ids:   map[string]ID{"": 0},
		names: []string{""},
	}
}

// GetOrInsert returns the id of name, assigning the next id on first sight.
func (t *Table) GetOrInsert(name string) ID {
	t.mu.Lock()
	defer t.mu.Unlock()

	if id, ok := t.ids[name]; ok {
		return id
	}
	id := ID(len(t.names))
	t.names = append(t.names, name)
	t.ids[name] = id
	return id
}

// Find returns the id of name, or 0 if it was never inserted.
func (t *Table) Find(name string) ID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ids[name]
}

// Name returns the name for id, or "" for 0 and unknown ids.
func (t *Table) Name(id ID) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if int(id) >= len(t.names) {
		return ""
	}
	return t.names[id]
}

// Len returns the number of ids handed out, including the null id.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.names)
}
