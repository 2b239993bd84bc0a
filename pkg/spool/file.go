package spool

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/natefinch/atomic"
	"golang.org/x/sys/unix"

	"github.com/mulesoftforge/chunkstream/pkg/chunkstream"
)

// FileOptions configures a [FileSpool].
type FileOptions struct {
	// Dir is the directory for the spill file. Empty means the system
	// temp directory. It must exist and be writable.
	Dir string
}

// FileSpool holds a drained producer's payload in a spill file and serves
// reads from a memory-mapped view of it.
//
// Memory stays at O(chunk size) per read; disk holds the full payload
// until [FileSpool.Close] removes the spill file. All methods are safe
// for concurrent use; each cursor must be driven by one goroutine at a
// time.
type FileSpool struct {
	_ [0]func() // prevent external construction

	mu      sync.Mutex
	path    string
	data    []byte // mmap'd spill file, nil when the source was empty
	index   []chunkSpan
	cursors int
	closed  bool
}

// chunkSpan locates one chunk's payload inside the spill file and keeps
// its stream metadata.
type chunkSpan struct {
	fileOff int64
	length  int
	offset  int64
	first   bool
	last    bool
}

// File drains producer into a spill file and returns a spool serving
// reads from it.
//
// The spill file is written to a temporary name and moved into place
// atomically, so a crash mid-drain never leaves a partial spool behind
// under its final name.
//
// Possible errors:
//   - [chunkstream.ErrInvalidInput]: nil or reuse-mode producer
//   - I/O errors from the source or the spill file
func File(producer *chunkstream.Producer, opts FileOptions) (*FileSpool, error) {
	if producer == nil {
		return nil, fmt.Errorf("producer is required: %w", chunkstream.ErrInvalidInput)
	}

	if producer.ReusesBuffer() {
		return nil, fmt.Errorf("reuse-mode producer cannot be spooled, its chunks are invalidated on every pull: %w", chunkstream.ErrInvalidInput)
	}

	dir := opts.Dir
	if dir == "" {
		dir = os.TempDir()
	}

	tmp, err := os.CreateTemp(dir, "chunkspool-*.tmp")
	if err != nil {
		return nil, fmt.Errorf("spool: creating spill file: %w", err)
	}

	index, writeErr := drainToFile(producer, tmp)

	closeErr := tmp.Close()

	if writeErr != nil || closeErr != nil {
		_ = os.Remove(tmp.Name())

		if writeErr != nil {
			return nil, writeErr
		}

		return nil, fmt.Errorf("spool: closing spill file: %w", closeErr)
	}

	path := strings.TrimSuffix(tmp.Name(), ".tmp") + ".spool"

	if err := atomic.ReplaceFile(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())

		return nil, fmt.Errorf("spool: finalizing spill file: %w", err)
	}

	data, err := mapSpill(path)
	if err != nil {
		_ = os.Remove(path)

		return nil, err
	}

	return &FileSpool{path: path, data: data, index: index}, nil
}

// drainToFile writes every chunk payload to w and returns the index.
func drainToFile(producer *chunkstream.Producer, w *os.File) ([]chunkSpan, error) {
	bw := bufio.NewWriter(w)

	var (
		index   []chunkSpan
		fileOff int64
	)

	for {
		chunk, err := producer.Next()
		if errors.Is(err, chunkstream.ErrExhausted) {
			break
		}

		if err != nil {
			return nil, err
		}

		if _, err := bw.Write(chunk.Data[:chunk.Length]); err != nil {
			return nil, fmt.Errorf("spool: writing spill file: %w", err)
		}

		index = append(index, chunkSpan{
			fileOff: fileOff,
			length:  chunk.Length,
			offset:  chunk.Offset,
			first:   chunk.First,
			last:    chunk.Last,
		})

		fileOff += int64(chunk.Length)
	}

	if err := bw.Flush(); err != nil {
		return nil, fmt.Errorf("spool: flushing spill file: %w", err)
	}

	return index, nil
}

// mapSpill memory-maps the finalized spill file read-only. An empty file
// maps to nil; mmap of zero bytes is not portable.
func mapSpill(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("spool: opening spill file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("spool: stat spill file: %w", err)
	}

	if info.Size() == 0 {
		return nil, nil
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(info.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("spool: mmap spill file: %w", err)
	}

	return data, nil
}

// Len returns the number of spooled chunks.
func (s *FileSpool) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.index)
}

// Path returns the spill file location, for diagnostics.
func (s *FileSpool) Path() string {
	return s.path
}

// OpenCursor opens an independent, fully random-access read head.
//
// Possible errors: [chunkstream.ErrClosed].
func (s *FileSpool) OpenCursor() (chunkstream.CursorReader, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("cannot open cursor: %w", chunkstream.ErrClosed)
	}

	s.cursors++

	return &fileCursor{spool: s}, nil
}

// Close marks the spool closed. The mapping and the spill file are
// released once the last cursor releases, or immediately if none are
// open. Idempotent.
func (s *FileSpool) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true

	if s.cursors == 0 {
		return s.releaseLocked()
	}

	return nil
}

func (s *FileSpool) releaseLocked() error {
	var errs []error

	if s.data != nil {
		if err := unix.Munmap(s.data); err != nil {
			errs = append(errs, fmt.Errorf("spool: munmap spill file: %w", err))
		}

		s.data = nil
	}

	if err := os.Remove(s.path); err != nil {
		errs = append(errs, fmt.Errorf("spool: removing spill file: %w", err))
	}

	s.index = nil

	return errors.Join(errs...)
}

func (s *FileSpool) chunkAt(position int64) (*chunkstream.Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed && s.cursors == 0 {
		return nil, chunkstream.ErrClosed
	}

	if position >= int64(len(s.index)) {
		return nil, fmt.Errorf("spool: position %d is beyond end of stream: %w", position, chunkstream.ErrNoChunk)
	}

	span := s.index[position]

	// Copy out of the mapping so the chunk stays valid after Close.
	data := make([]byte, span.length)
	copy(data, s.data[span.fileOff:span.fileOff+int64(span.length)])

	return &chunkstream.Chunk{
		Data:   data,
		Index:  int(position),
		Offset: span.offset,
		Length: span.length,
		First:  span.first,
		Last:   span.last,
	}, nil
}

func (s *FileSpool) has(position int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return position < int64(len(s.index))
}

func (s *FileSpool) cursorReleased() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cursors--

	if s.cursors == 0 && s.closed {
		_ = s.releaseLocked()
	}
}

// fileCursor is a read head over a FileSpool. Nothing evicts, so any
// non-negative position is seekable.
type fileCursor struct {
	spool    *FileSpool
	position int64
	released bool
}

func (c *fileCursor) HasNext() bool {
	if c.released {
		return false
	}

	return c.spool.has(c.position)
}

func (c *fileCursor) Next() (*chunkstream.Chunk, error) {
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

func (c *fileCursor) Position() int64 {
	return c.position
}

func (c *fileCursor) Seek(position int64) error {
	if c.released {
		return fmt.Errorf("cannot seek: %w", chunkstream.ErrReleased)
	}

	if position < 0 {
		return fmt.Errorf("cannot seek to negative position %d: %w", position, chunkstream.ErrInvalidInput)
	}

	c.position = position

	return nil
}

func (c *fileCursor) Release() {
	if c.released {
		return
	}

	c.released = true
	c.spool.cursorReleased()
}

var _ chunkstream.Consumable = (*FileSpool)(nil)
