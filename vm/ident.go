package vm

import "sync"

// IdentID is an interned identifier: method, constant, instance variable
// and string-literal names all share one table.
type IdentID uint32

// IdentTable interns identifier names to numeric IDs.
//
// Bytecode refers to names only by ID, so the table is append-only: an ID,
// once handed out, names the same string for the lifetime of the runtime.
type IdentTable struct {
	mu     sync.RWMutex
	byName map[string]IdentID
	byID   []string
}

// NewIdentTable creates a new empty identifier table.
func NewIdentTable() *IdentTable {
	return &IdentTable{
		byName: make(map[string]IdentID),
		byID:   make([]string, 0, 256),
	}
}

// Intern returns the ID for name, creating a new ID if needed.
func (t *IdentTable) Intern(name string) IdentID {
	t.mu.RLock()
	if id, ok := t.byName[name]; ok {
		t.mu.RUnlock()
		return id
	}
	t.mu.RUnlock()

	t.mu.Lock()
	defer t.mu.Unlock()

	// Double-check after acquiring write lock
	if id, ok := t.byName[name]; ok {
		return id
	}

	id := IdentID(len(t.byID))
	t.byName[name] = id
	t.byID = append(t.byID, name)
	return id
}

// Lookup returns the ID for name without interning it.
func (t *IdentTable) Lookup(name string) (IdentID, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	id, ok := t.byName[name]
	return id, ok
}

// Name returns the name for id, or "" if id was never handed out.
func (t *IdentTable) Name(id IdentID) string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if int(id) >= len(t.byID) {
		return ""
	}
	return t.byID[id]
}

// Len returns the number of interned identifiers.
func (t *IdentTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byID)
}

// All returns all names in ID order.
func (t *IdentTable) All() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make([]string, len(t.byID))
	copy(result, t.byID)
	return result
}
