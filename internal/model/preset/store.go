package preset

// Store exposes genre presets for the setup form and the prompt assembler.
type Store interface {
	List() []Genre
	FindByName(name string) (Genre, bool)
	Options() Options
}

// MemoryStore implements Store with an in-memory slice.
type MemoryStore struct {
	items []Genre
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied genres.
func NewMemoryStore(items []Genre) *MemoryStore {
	return &MemoryStore{items: append([]Genre(nil), items...)}
}

// List returns the predefined genres.
func (s *MemoryStore) List() []Genre {
	return append([]Genre(nil), s.items...)
}

// FindByName matches either the display name or the id. Genre is free text on
// the form, so a miss is normal.
func (s *MemoryStore) FindByName(name string) (Genre, bool) {
	for _, item := range s.items {
		if item.Name == name || item.ID == name {
			return item, true
		}
	}
	return Genre{}, false
}

// Options assembles the setup form defaults.
func (s *MemoryStore) Options() Options {
	opts := Options{
		Genders:        Genders(),
		Genres:         s.List(),
		DefaultGender:  Genders()[0],
		DefaultAge:     "15",
		DefaultSetting: DefaultSetting,
	}
	if len(s.items) > 0 {
		opts.DefaultGenre = s.items[0].Name
	}
	return opts
}
