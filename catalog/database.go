package catalog

// Database is the durable record behind a Store. Load returns an empty map (not an error) when nothing has been
// persisted yet. Save must replace the whole record atomically.
type Database interface {
	Load() (map[string]*Entry, error)
	Save(entries map[string]*Entry) error
}

// NilDatabase never persists anything; Store.Persist against it is a no-op.
type NilDatabase struct{}

func (d NilDatabase) Load() (map[string]*Entry, error) {
	return nil, nil
}

func (d NilDatabase) Save(_ map[string]*Entry) error {
	return nil
}
