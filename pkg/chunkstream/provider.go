package chunkstream

import (
	"errors"
	"fmt"
	"sync"
)

// Provider is a bounded sliding-window cache over one [Producer], shared
// by any number of cursors.
//
// Chunks are pulled from the producer on demand and cached by position.
// A chunk stays cached until every eviction-eligible cursor has advanced
// past it; the cache never grows beyond MaxCachedChunks. When the window
// cannot shrink enough to admit the next chunk, the pulling operation
// fails with an [*OverflowError].
//
// All methods are safe for concurrent use. The producer is not reentrant,
// so every pull happens under the provider's lock together with the cache
// insertion it records.
type Provider struct {
	_ [0]func() // prevent external construction

	mu sync.Mutex

	producer  *Producer
	maxCached int

	// cache keys are contiguous in [lowest, nextFetch) except when the
	// window has been fully drained; lowest is only meaningful while
	// len(cache) > 0.
	cache     map[int64]*Chunk
	lowest    int64
	nextFetch int64

	exhausted bool
	fetchErr  error // first producer failure, surfaced on later reads

	closed  bool
	cursors map[*Cursor]struct{}

	nextCursorID int
}

// NewProvider creates a sliding-window Provider fed by producer.
//
// Possible errors:
//   - [ErrInvalidInput]: nil producer, negative MaxCachedChunks, or a
//     reuse-mode producer (cached chunks must own their storage)
func NewProvider(producer *Producer, opts ProviderOptions) (*Provider, error) {
	if producer == nil {
		return nil, fmt.Errorf("producer is required: %w", ErrInvalidInput)
	}

	if producer.ReusesBuffer() {
		return nil, fmt.Errorf("reuse-mode producer cannot feed a sliding window, its chunks are invalidated on every pull: %w", ErrInvalidInput)
	}

	if opts.MaxCachedChunks < 0 {
		return nil, fmt.Errorf("max_cached_chunks must be positive, got %d: %w", opts.MaxCachedChunks, ErrInvalidInput)
	}

	maxCached := opts.MaxCachedChunks
	if maxCached == 0 {
		maxCached = DefaultMaxCachedChunks
	}

	return &Provider{
		producer:  producer,
		maxCached: maxCached,
		cache:     make(map[int64]*Chunk),
		cursors:   make(map[*Cursor]struct{}),
	}, nil
}

// OpenCursor opens a new cursor at position 0.
//
// The cursor participates in eviction-frontier computation: chunks it has
// not consumed are never evicted.
//
// Possible errors: [ErrClosed].
func (p *Provider) OpenCursor() (*Cursor, error) {
	return p.openCursor(false)
}

// OpenCursorExcluded opens a cursor that never holds back eviction.
//
// Use this for consumers that are known not to advance, such as a
// validation pass that inspects the stream shape and abandons its cursor.
// An excluded cursor can read and seek like any other, but chunks it has
// not consumed may be evicted underneath it, after which its reads fail
// with [ErrNoChunk] or [ErrEvicted].
//
// Possible errors: [ErrClosed].
func (p *Provider) OpenCursorExcluded() (*Cursor, error) {
	return p.openCursor(true)
}

func (p *Provider) openCursor(excluded bool) (*Cursor, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, fmt.Errorf("cannot open cursor: %w", ErrClosed)
	}

	c := &Cursor{
		provider: p,
		id:       p.nextCursorID,
		excluded: excluded,
	}
	p.nextCursorID++
	p.cursors[c] = struct{}{}

	return c, nil
}

// Close marks the provider closed. No new cursors can be opened.
//
// Cursors that are already open keep working; the cache and the producer
// are released once the last of them releases. If no cursors are open,
// resources are released immediately.
//
// Close is idempotent.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}

	p.closed = true

	if len(p.cursors) == 0 {
		return p.releaseResourcesLocked()
	}

	return nil
}

// chunkAt returns the chunk at position, pulling forward from the
// producer as needed.
func (p *Provider) chunkAt(position int64) (*Chunk, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.chunkAtLocked(position)
}

func (p *Provider) chunkAtLocked(position int64) (*Chunk, error) {
	if c, ok := p.cache[position]; ok {
		return c, nil
	}

	if p.fetchErr != nil && position >= p.nextFetch {
		return nil, p.fetchErr
	}

	pulled := false

	for p.nextFetch <= position && !p.exhausted {
		// Make room before pulling, never after: a pull that cannot be
		// cached within capacity must not happen.
		if len(p.cache) >= p.maxCached {
			p.evictLocked()

			if len(p.cache) >= p.maxCached {
				return nil, p.overflowLocked()
			}
		}

		chunk, err := p.producer.Next()
		if errors.Is(err, ErrExhausted) {
			p.exhausted = true

			break
		}

		if err != nil {
			p.exhausted = true
			p.fetchErr = err

			return nil, err
		}

		if len(p.cache) == 0 {
			p.lowest = p.nextFetch
		}

		p.cache[p.nextFetch] = chunk
		p.nextFetch++
		pulled = true
	}

	if pulled {
		p.evictLocked()
	}

	if c, ok := p.cache[position]; ok {
		return c, nil
	}

	return nil, fmt.Errorf("chunkstream: position %d is beyond end of stream: %w", position, ErrNoChunk)
}

// has reports whether a chunk exists at position, pulling forward like
// chunkAt if needed.
//
// A pull refused by overflow or failed by I/O reports true so the
// subsequent Next surfaces the structured error instead of it being
// swallowed behind a bare false.
func (p *Provider) has(position int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.cache[position]; ok {
		return true
	}

	if p.exhausted && position >= p.nextFetch {
		return p.fetchErr != nil
	}

	_, err := p.chunkAtLocked(position)
	if err == nil {
		return true
	}

	return !errors.Is(err, ErrNoChunk)
}

// minRetained returns the lowest position still reachable: the lowest
// cached key, or the next fetch position when the window is empty.
func (p *Provider) minRetained() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.minRetainedLocked()
}

// seek validates and applies a cursor seek. Check and store happen under
// the provider lock so a concurrent eviction cannot slip between them.
func (p *Provider) seek(c *Cursor, target int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if minRetained := p.minRetainedLocked(); target < minRetained {
		return &SeekError{Target: target, MinRetained: minRetained}
	}

	c.position.Store(target)

	return nil
}

func (p *Provider) minRetainedLocked() int64 {
	if len(p.cache) == 0 {
		return p.nextFetch
	}

	return p.lowest
}

// cursorAdvanced is called by a cursor after a successful Next.
func (p *Provider) cursorAdvanced() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.evictLocked()
}

// cursorReleased removes c from the registry and re-evaluates eviction.
// If it was the last cursor and the provider is closed, all retained
// storage is released.
func (p *Provider) cursorReleased(c *Cursor) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.cursors, c)
	p.evictLocked()

	if len(p.cursors) == 0 && p.closed {
		_ = p.releaseResourcesLocked()
	}
}

// evictLocked removes every cached chunk below the eviction frontier.
//
// The frontier is the minimum position over eviction-eligible cursors,
// read here, under the lock, as the last step before any removal. With no
// eligible cursors nothing can be proven unreachable, so nothing is
// evicted.
func (p *Provider) evictLocked() {
	frontier, ok := p.frontierLocked()
	if !ok {
		return
	}

	for pos := p.lowest; pos < frontier && len(p.cache) > 0; pos++ {
		delete(p.cache, pos)
	}

	if frontier > p.lowest {
		p.lowest = min(frontier, p.nextFetch)
	}
}

// frontierLocked computes the minimum position across eligible cursors.
// ok is false when no eligible cursors exist.
func (p *Provider) frontierLocked() (frontier int64, ok bool) {
	for c := range p.cursors {
		if c.excluded {
			continue
		}

		pos := c.position.Load()
		if !ok || pos < frontier {
			frontier = pos
			ok = true
		}
	}

	return frontier, ok
}

// overflowLocked builds the diagnostic overflow error, including every
// open cursor's position (excluded cursors too, they are part of the
// picture even though they do not block eviction).
func (p *Provider) overflowLocked() *OverflowError {
	positions := make([]int64, 0, len(p.cursors))
	for c := range p.cursors {
		positions = append(positions, c.position.Load())
	}

	return &OverflowError{
		CacheSize:       len(p.cache),
		MaxCachedChunks: p.maxCached,
		Cursors:         len(p.cursors),
		Positions:       positions,
	}
}

func (p *Provider) releaseResourcesLocked() error {
	p.cache = make(map[int64]*Chunk)
	p.lowest = p.nextFetch

	return p.producer.Close()
}
