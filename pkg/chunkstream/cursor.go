package chunkstream

import (
	"fmt"
	"sync/atomic"
)

// Cursor is an independent read head over a [Provider]'s chunk sequence.
//
// Each cursor owns its position and advances at its own pace. Cursors are
// cheap: they hold no chunk data, only a position and a reference back to
// the provider.
//
// A cursor must be driven by one goroutine at a time. Different cursors of
// the same provider may be driven concurrently. Release a cursor when done
// with it; an abandoned eligible cursor pins the eviction frontier and
// eventually forces the window into overflow.
type Cursor struct {
	_ [0]func() // prevent external construction

	provider *Provider
	id       int
	excluded bool

	// position is read by other goroutines computing the eviction
	// frontier, hence atomic. Only the owning goroutine writes it.
	position atomic.Int64

	released bool
}

// ID returns a provider-unique identifier for diagnostics.
func (c *Cursor) ID() int {
	return c.id
}

// Position returns the position of the next chunk this cursor will read.
func (c *Cursor) Position() int64 {
	return c.position.Load()
}

// Excluded reports whether the cursor was opened with
// [Provider.OpenCursorExcluded].
func (c *Cursor) Excluded() bool {
	return c.excluded
}

// Released reports whether the cursor has been released.
func (c *Cursor) Released() bool {
	return c.released
}

// HasNext reports whether a chunk exists at the current position, pulling
// forward from the source if needed.
//
// Returns false once the cursor is released or the stream is exhausted
// before the current position. When the pull fails (window overflow, I/O
// error) HasNext reports true and the following [Cursor.Next] returns the
// structured error.
func (c *Cursor) HasNext() bool {
	if c.released {
		return false
	}

	return c.provider.has(c.position.Load())
}

// Next returns the chunk at the current position and advances past it.
//
// Possible errors:
//   - [ErrReleased]: the cursor has been released
//   - [ErrNoChunk]: the source ended before the current position
//   - [ErrOverflow] (as [*OverflowError]): the window could not admit the
//     required pull
//   - I/O errors from the underlying source
func (c *Cursor) Next() (*Chunk, error) {
	if c.released {
		return nil, ErrReleased
	}

	pos := c.position.Load()

	chunk, err := c.provider.chunkAt(pos)
	if err != nil {
		return nil, err
	}

	c.position.Store(pos + 1)
	c.provider.cursorAdvanced()

	return chunk, nil
}

// Seek moves the cursor to target without touching the cache.
//
// Seeking forward past the highest fetched position is allowed; the gap is
// fetched on the next read. Seeking below the retained window fails with a
// [*SeekError] and is permanent: evicted chunks are never re-fetched.
//
// Possible errors:
//   - [ErrReleased]: the cursor has been released
//   - [ErrInvalidInput]: negative target
//   - [ErrEvicted] (as [*SeekError]): target below the retained window
func (c *Cursor) Seek(target int64) error {
	if c.released {
		return fmt.Errorf("cannot seek: %w", ErrReleased)
	}

	if target < 0 {
		return fmt.Errorf("cannot seek to negative position %d: %w", target, ErrInvalidInput)
	}

	return c.provider.seek(c, target)
}

// Release marks the cursor released and removes it from the provider's
// registry, letting eviction advance past it.
//
// Release is idempotent. A released cursor can never read or seek again.
func (c *Cursor) Release() {
	if c.released {
		return
	}

	c.released = true
	c.provider.cursorReleased(c)
}
