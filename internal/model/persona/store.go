package persona

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Store exposes persona retrieval for HTTP handlers and the AI service.
type Store interface {
	List() []Persona
	FindByID(id string) (Persona, bool)
	Default() Persona
}

// MemoryStore implements Store with an in-memory slice loaded at startup.
type MemoryStore struct {
	items []Persona
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied personas.
func NewMemoryStore(items []Persona) *MemoryStore {
	return &MemoryStore{items: append([]Persona(nil), items...)}
}

// List returns the configured persona list.
func (s *MemoryStore) List() []Persona {
	return append([]Persona(nil), s.items...)
}

// FindByID looks up a persona by identifier.
func (s *MemoryStore) FindByID(id string) (Persona, bool) {
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return Persona{}, false
}

// Default returns the first configured persona.
func (s *MemoryStore) Default() Persona {
	if len(s.items) == 0 {
		return Persona{}
	}
	return s.items[0]
}

type personaFile struct {
	Personas []Persona `toml:"personas"`
}

// LoadFile parses persona definitions from a TOML file. The file uses
// repeated [[personas]] tables mirroring the Persona fields.
func LoadFile(path string) ([]Persona, error) {
	var parsed personaFile
	if _, err := toml.DecodeFile(path, &parsed); err != nil {
		return nil, fmt.Errorf("decode persona file %s: %w", path, err)
	}

	if len(parsed.Personas) == 0 {
		return nil, fmt.Errorf("persona file %s defines no personas", path)
	}

	for i, p := range parsed.Personas {
		if p.ID == "" || p.Name == "" {
			return nil, fmt.Errorf("persona entry %d is missing id or name", i)
		}
	}

	return parsed.Personas, nil
}
