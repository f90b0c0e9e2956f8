package persona

import (
	"errors"
	"strings"
)

// ErrNotFound is returned when a persona id is unknown.
var ErrNotFound = errors.New("persona not found")

// Store exposes persona lookup for handlers and the chat service.
type Store interface {
	List() []Persona
	FindByID(id string) (Persona, bool)
}

// MemoryStore implements Store over a fixed slice.
type MemoryStore struct {
	items []Persona
	index map[string]int
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied personas.
func NewMemoryStore(items []Persona) *MemoryStore {
	s := &MemoryStore{
		items: append([]Persona(nil), items...),
		index: make(map[string]int, len(items)),
	}
	for i, item := range s.items {
		s.index[item.ID] = i
	}
	return s
}

// List returns the persona list in seed order.
func (s *MemoryStore) List() []Persona {
	return append([]Persona(nil), s.items...)
}

// FindByID looks up a persona by identifier.
func (s *MemoryStore) FindByID(id string) (Persona, bool) {
	i, ok := s.index[id]
	if !ok {
		return Persona{}, false
	}
	return s.items[i], true
}

// Resolve returns the persona for id, using DefaultID when id is blank.
func Resolve(store Store, id string) (Persona, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		id = DefaultID
	}
	p, ok := store.FindByID(id)
	if !ok {
		return Persona{}, ErrNotFound
	}
	return p, nil
}
