package chunkstream

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Sentinel errors returned by chunkstream operations.
//
// Callers should use [errors.Is] to check error types:
//
//	if errors.Is(err, chunkstream.ErrOverflow) {
//	    // raise MaxCachedChunks or re-balance cursor pacing
//	}
var (
	// ErrInvalidInput indicates invalid arguments were provided.
	//
	// Common causes: non-positive chunk size or window capacity, nil
	// source reader, a reuse-mode producer passed to [NewProvider],
	// or a negative seek target.
	//
	// This is a programming error.
	ErrInvalidInput = errors.New("chunkstream: invalid input")

	// ErrExhausted indicates the underlying source has no more bytes.
	//
	// Returned by [Producer.Next] once the stream ends. Not a failure;
	// it is the normal termination signal for a drain loop.
	ErrExhausted = errors.New("chunkstream: source exhausted")

	// ErrClosed indicates the [Producer] or [Provider] has been closed.
	ErrClosed = errors.New("chunkstream: closed")

	// ErrReleased indicates an operation on a released [Cursor].
	//
	// A released cursor can never be used again. This is a programming
	// error.
	ErrReleased = errors.New("chunkstream: cursor released")

	// ErrNoChunk indicates no chunk exists at the requested position.
	//
	// Returned when the source was exhausted before the position could
	// be reached.
	ErrNoChunk = errors.New("chunkstream: no chunk at position")

	// ErrOverflow indicates the sliding window is full and cannot shrink.
	//
	// The error in flight is an [*OverflowError] carrying cache size,
	// capacity, and every active cursor's position.
	//
	// Recovery requires caller action: raise MaxCachedChunks, balance
	// cursor pacing, or switch to an unbounded strategy. The window
	// never drops data to relieve pressure.
	ErrOverflow = errors.New("chunkstream: sliding window capacity exceeded")

	// ErrEvicted indicates a seek below the retained window.
	//
	// Evicted chunks are never re-fetched; this failure is permanent
	// for the seeking cursor. The error in flight is a [*SeekError].
	ErrEvicted = errors.New("chunkstream: position evicted from window")
)

// OverflowError is returned when the sliding window cannot admit a new
// chunk within its configured capacity.
//
// It satisfies errors.Is(err, [ErrOverflow]) and carries enough detail for
// a caller to decide whether to raise capacity or re-balance consumers:
//
//	var ovf *chunkstream.OverflowError
//	if errors.As(err, &ovf) {
//	    log.Printf("window full: %d cursors at %v", ovf.Cursors, ovf.Positions)
//	}
type OverflowError struct {
	// CacheSize is the number of chunks held when the pull was refused.
	CacheSize int

	// MaxCachedChunks is the configured window capacity.
	MaxCachedChunks int

	// Cursors is the number of cursors open at the time of failure.
	Cursors int

	// Positions holds each open cursor's position, eviction-ineligible
	// cursors included, in no particular order.
	Positions []int64
}

func (e *OverflowError) Error() string {
	positions := make([]string, len(e.Positions))
	for i, p := range e.Positions {
		positions[i] = strconv.FormatInt(p, 10)
	}

	return fmt.Sprintf(
		"%v: cache size %d, max cached chunks %d, %d active cursors at positions [%s]",
		ErrOverflow, e.CacheSize, e.MaxCachedChunks, e.Cursors, strings.Join(positions, ", "),
	)
}

// Unwrap returns [ErrOverflow] for use with [errors.Is].
func (e *OverflowError) Unwrap() error {
	return ErrOverflow
}

// SeekError is returned when a cursor seeks below the retained window.
//
// It satisfies errors.Is(err, [ErrEvicted]). The failure is permanent:
// chunks below MinRetained have been discarded and are never re-fetched.
type SeekError struct {
	// Target is the position the cursor tried to seek to.
	Target int64

	// MinRetained is the lowest position still held in the window.
	MinRetained int64
}

func (e *SeekError) Error() string {
	return fmt.Sprintf(
		"%v: cannot seek to position %d, minimum retained position is %d",
		ErrEvicted, e.Target, e.MinRetained,
	)
}

// Unwrap returns [ErrEvicted] for use with [errors.Is].
func (e *SeekError) Unwrap() error {
	return ErrEvicted
}
