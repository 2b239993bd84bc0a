package chunkstream

import (
	"errors"
	"io"
)

// Pager is the strictly simpler, single-consumer variant of chunked
// reading: no cache, no cursors, one chunk per page, pulled on demand.
//
// Use it when exactly one consumer walks the stream once and a paging
// shape is wanted; use a [Producer] directly for a plain iterator, or a
// [Provider] when multiple consumers need the sequence.
//
// A Pager is not safe for concurrent use.
type Pager struct {
	_ [0]func() // prevent external construction

	producer *Producer
}

// NewPager creates a Pager reading from src in copy mode.
//
// Possible errors:
//   - [ErrInvalidInput]: nil src or negative chunkSize
func NewPager(src io.Reader, chunkSize int) (*Pager, error) {
	producer, err := NewProducer(src, ProducerOptions{ChunkSize: chunkSize})
	if err != nil {
		return nil, err
	}

	return &Pager{producer: producer}, nil
}

// NextPage returns the next page of chunks, one chunk per page.
//
// An empty page with a nil error signals exhaustion; subsequent calls
// keep returning empty pages. I/O failures are returned as errors and
// permanently end paging.
func (pg *Pager) NextPage() ([]*Chunk, error) {
	chunk, err := pg.producer.Next()
	if errors.Is(err, ErrExhausted) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return []*Chunk{chunk}, nil
}

// Close closes the underlying source if it implements [io.Closer].
// Idempotent.
func (pg *Pager) Close() error {
	return pg.producer.Close()
}
