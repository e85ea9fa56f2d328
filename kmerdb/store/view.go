package store

// View provides read-only access to a persisted database file.
type View interface {
	// Bytes returns the full mapped file. The slice is valid until Close is called.
	// Caller must not modify it.
	Bytes() []byte
	// Close releases resources (e.g. unmaps the file).
	Close() error
}

var _ View = (*MmapView)(nil)
