package chunkstream

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// Producer reads a forward-only byte source and yields chunks lazily.
//
// End of stream is detected without over-reading: after a full-sized read
// the producer probes the source for exactly one more byte and pushes it
// back if present, so the final chunk is always marked [Chunk.Last] and no
// trailing empty chunk is ever produced.
//
// A Producer is single-use and not safe for concurrent calls. The
// [Provider] serializes access when one feeds many cursors.
type Producer struct {
	_ [0]func() // prevent external construction

	src    *bufio.Reader
	closer io.Closer // non-nil if the source is an io.Closer

	chunkSize int
	reuse     bool

	buf     []byte // read buffer, recycled across calls
	scratch Chunk  // reuse mode: the single chunk value handed out

	index     int
	offset    int64
	exhausted bool
	closed    bool
}

// NewProducer creates a Producer reading from src.
//
// Possible errors:
//   - [ErrInvalidInput]: nil src or negative ChunkSize
func NewProducer(src io.Reader, opts ProducerOptions) (*Producer, error) {
	if src == nil {
		return nil, fmt.Errorf("source reader is required: %w", ErrInvalidInput)
	}

	if opts.ChunkSize < 0 {
		return nil, fmt.Errorf("chunk_size must be positive, got %d: %w", opts.ChunkSize, ErrInvalidInput)
	}

	chunkSize := opts.ChunkSize
	if chunkSize == 0 {
		chunkSize = DefaultChunkSize
	}

	closer, _ := src.(io.Closer)

	return &Producer{
		src:       bufio.NewReader(src),
		closer:    closer,
		chunkSize: chunkSize,
		reuse:     opts.ReuseBuffer,
		buf:       make([]byte, chunkSize),
	}, nil
}

// ChunkSize returns the configured chunk size in bytes.
func (p *Producer) ChunkSize() int {
	return p.chunkSize
}

// ReusesBuffer reports whether the producer runs in reuse mode.
func (p *Producer) ReusesBuffer() bool {
	return p.reuse
}

// Exhausted reports whether the source has ended or failed.
//
// Once true, [Producer.Next] only ever returns [ErrExhausted] (or
// [ErrClosed] after Close).
func (p *Producer) Exhausted() bool {
	return p.exhausted
}

// Next produces the next chunk.
//
// Returns [ErrExhausted] when the source has no more bytes. An I/O failure
// is returned wrapped and permanently marks the producer exhausted;
// partial reads already performed cannot be undone, so nothing is retried.
//
// In reuse mode the returned chunk and its Data are only valid until the
// next call.
func (p *Producer) Next() (*Chunk, error) {
	if p.closed {
		return nil, ErrClosed
	}

	if p.exhausted {
		return nil, ErrExhausted
	}

	n, err := io.ReadFull(p.src, p.buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		p.exhausted = true

		return nil, fmt.Errorf("chunkstream: reading chunk %d at offset %d: %w", p.index, p.offset, err)
	}

	if n == 0 {
		p.exhausted = true

		return nil, ErrExhausted
	}

	var last bool

	if n < p.chunkSize {
		// Short read: the source ended inside this chunk.
		last = true
		p.exhausted = true
	} else {
		last, err = p.probeEOF()
		if err != nil {
			p.exhausted = true

			return nil, fmt.Errorf("chunkstream: probing for end of stream after chunk %d: %w", p.index, err)
		}

		if last {
			p.exhausted = true
		}
	}

	var chunk *Chunk

	if p.reuse {
		p.scratch = Chunk{
			Data:   p.buf,
			Index:  p.index,
			Offset: p.offset,
			Length: n,
			First:  p.index == 0,
			Last:   last,
		}
		chunk = &p.scratch
	} else {
		data := make([]byte, n)
		copy(data, p.buf[:n])

		chunk = &Chunk{
			Data:   data,
			Index:  p.index,
			Offset: p.offset,
			Length: n,
			First:  p.index == 0,
			Last:   last,
		}
	}

	p.index++
	p.offset += int64(n)

	return chunk, nil
}

// probeEOF reads one byte to decide whether the stream has ended. If a
// byte is present it is pushed back so the next chunk re-delivers it.
func (p *Producer) probeEOF() (bool, error) {
	_, err := p.src.ReadByte()
	if errors.Is(err, io.EOF) {
		return true, nil
	}

	if err != nil {
		return false, err
	}

	if err := p.src.UnreadByte(); err != nil {
		return false, err
	}

	return false, nil
}

// Close closes the underlying source if it implements [io.Closer].
//
// Close is idempotent. After Close, [Producer.Next] returns [ErrClosed].
func (p *Producer) Close() error {
	if p.closed {
		return nil
	}

	p.closed = true
	p.exhausted = true

	if p.closer != nil {
		if err := p.closer.Close(); err != nil {
			return fmt.Errorf("chunkstream: closing source: %w", err)
		}
	}

	return nil
}
