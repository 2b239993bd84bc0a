package spool

import (
	"errors"
	"fmt"
	"sync"

	"github.com/mulesoftforge/chunkstream/pkg/chunkstream"
)

// MemorySpool holds every chunk of a drained producer in memory.
//
// Memory use is O(total chunks x chunk size). All methods are safe for
// concurrent use; each cursor must be driven by one goroutine at a time.
type MemorySpool struct {
	_ [0]func() // prevent external construction

	mu      sync.Mutex
	chunks  []*chunkstream.Chunk
	cursors int
	closed  bool
}

// Memory drains producer to exhaustion and returns the buffered result.
//
// The producer must be in copy mode; its chunks are retained. An I/O
// failure during the drain is returned as-is and nothing is buffered.
//
// Possible errors:
//   - [chunkstream.ErrInvalidInput]: nil or reuse-mode producer
//   - I/O errors from the underlying source
func Memory(producer *chunkstream.Producer) (*MemorySpool, error) {
	if producer == nil {
		return nil, fmt.Errorf("producer is required: %w", chunkstream.ErrInvalidInput)
	}

	if producer.ReusesBuffer() {
		return nil, fmt.Errorf("reuse-mode producer cannot be spooled, its chunks are invalidated on every pull: %w", chunkstream.ErrInvalidInput)
	}

	var chunks []*chunkstream.Chunk

	for {
		chunk, err := producer.Next()
		if errors.Is(err, chunkstream.ErrExhausted) {
			break
		}

		if err != nil {
			return nil, err
		}

		chunks = append(chunks, chunk)
	}

	return &MemorySpool{chunks: chunks}, nil
}

// Len returns the number of buffered chunks.
func (s *MemorySpool) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.chunks)
}

// OpenCursor opens an independent, fully random-access read head.
//
// Possible errors: [chunkstream.ErrClosed].
func (s *MemorySpool) OpenCursor() (chunkstream.CursorReader, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("cannot open cursor: %w", chunkstream.ErrClosed)
	}

	s.cursors++

	return &memoryCursor{spool: s}, nil
}

// Close marks the spool closed. The buffer is dropped once the last
// cursor releases, or immediately if none are open. Idempotent.
func (s *MemorySpool) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true

	if s.cursors == 0 {
		s.chunks = nil
	}

	return nil
}

func (s *MemorySpool) chunkAt(position int64) (*chunkstream.Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if position >= int64(len(s.chunks)) {
		return nil, fmt.Errorf("spool: position %d is beyond end of stream: %w", position, chunkstream.ErrNoChunk)
	}

	return s.chunks[position], nil
}

func (s *MemorySpool) has(position int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return position < int64(len(s.chunks))
}

func (s *MemorySpool) cursorReleased() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cursors--

	if s.cursors == 0 && s.closed {
		s.chunks = nil
	}
}

// memoryCursor is a read head over a MemorySpool. Nothing evicts, so any
// non-negative position is seekable.
type memoryCursor struct {
	spool    *MemorySpool
	position int64
	released bool
}

func (c *memoryCursor) HasNext() bool {
	if c.released {
		return false
	}

	return c.spool.has(c.position)
}

func (c *memoryCursor) Next() (*chunkstream.Chunk, error) {
	if c.released {
		return nil, chunkstream.ErrReleased
	}

	chunk, err := c.spool.chunkAt(c.position)
	if err != nil {
		return nil, err
	}

	c.position++

	return chunk, nil
}

func (c *memoryCursor) Position() int64 {
	return c.position
}

func (c *memoryCursor) Seek(position int64) error {
	if c.released {
		return fmt.Errorf("cannot seek: %w", chunkstream.ErrReleased)
	}

	if position < 0 {
		return fmt.Errorf("cannot seek to negative position %d: %w", position, chunkstream.ErrInvalidInput)
	}

	c.position = position

	return nil
}

func (c *memoryCursor) Release() {
	if c.released {
		return
	}

	c.released = true
	c.spool.cursorReleased()
}

var _ chunkstream.Consumable = (*MemorySpool)(nil)
