package chunkstream

// CursorReader is the read-head contract shared by every repeatable form
// of a chunk sequence, whatever buffering strategy produced it.
//
// [*Cursor] implements it for the sliding window; spool packages implement
// it for fully-buffered forms.
type CursorReader interface {
	// HasNext reports whether a chunk exists at the current position.
	HasNext() bool

	// Next returns the chunk at the current position and advances.
	Next() (*Chunk, error)

	// Position returns the position of the next chunk to read.
	Position() int64

	// Seek moves the read head. Implementations may reject targets
	// outside their retained range.
	Seek(position int64) error

	// Release gives up the read head. Idempotent.
	Release()
}

// Consumable is a repeatable form of a chunk sequence: a producer's output
// turned into something consumers can open independent read heads against.
//
// The sliding-window [Provider] is one implementation; unbounded in-memory
// and disk-spill spools are peers, not wrappers, and live outside this
// package.
type Consumable interface {
	// OpenCursor opens an independent read head at position 0.
	OpenCursor() (CursorReader, error)

	// Close marks the consumable closed and releases retained storage
	// once no read heads remain.
	Close() error
}

// AsConsumable adapts the provider to the [Consumable] interface for
// callers that select a buffering strategy at runtime.
func (p *Provider) AsConsumable() Consumable {
	return providerConsumable{p}
}

type providerConsumable struct {
	p *Provider
}

func (pc providerConsumable) OpenCursor() (CursorReader, error) {
	return pc.p.OpenCursor()
}

func (pc providerConsumable) Close() error {
	return pc.p.Close()
}
