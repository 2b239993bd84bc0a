package chunkstream

// Stats is a point-in-time snapshot of a [Provider]'s window state.
type Stats struct {
	// CachedChunks is the number of chunks currently retained.
	CachedChunks int

	// MinRetained is the lowest position still reachable.
	MinRetained int64

	// NextFetch is the position the next produced chunk will receive.
	NextFetch int64

	// SourceExhausted reports whether the producer has ended or failed.
	SourceExhausted bool

	// OpenCursors is the number of cursors currently registered.
	OpenCursors int
}

// Stats returns a consistent snapshot of the window state.
func (p *Provider) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return Stats{
		CachedChunks:    len(p.cache),
		MinRetained:     p.minRetainedLocked(),
		NextFetch:       p.nextFetch,
		SourceExhausted: p.exhausted,
		OpenCursors:     len(p.cursors),
	}
}
