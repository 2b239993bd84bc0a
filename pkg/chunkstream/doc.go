// Package chunkstream turns a single-pass byte source into a sequence of
// fixed-size chunks that multiple independent cursors can read concurrently
// with bounded memory.
//
// The package has two layers:
//
// A [Producer] wraps an [io.Reader] and yields [Chunk] values lazily. End of
// stream is detected with a one-byte probe after every full-sized read, so a
// source whose length is an exact multiple of the chunk size still marks its
// final chunk as last without producing a trailing empty chunk.
//
// A [Provider] buffers produced chunks in a sliding window keyed by position.
// Any number of [Cursor] read heads can be opened against it, each advancing
// at its own pace. A chunk is evicted once every eviction-eligible cursor has
// moved past it; the window never holds more than the configured number of
// chunks. If the window cannot shrink enough to admit the next chunk, reads
// fail with an [*OverflowError] carrying every cursor's position.
//
// # Basic Usage
//
//	producer, err := chunkstream.NewProducer(src, chunkstream.ProducerOptions{
//	    ChunkSize: 1 << 20,
//	})
//	if err != nil { ... }
//
//	provider, err := chunkstream.NewProvider(producer, chunkstream.ProviderOptions{
//	    MaxCachedChunks: 5,
//	})
//	if err != nil { ... }
//	defer provider.Close()
//
//	cur, err := provider.OpenCursor()
//	if err != nil { ... }
//	defer cur.Release()
//
//	for cur.HasNext() {
//	    chunk, err := cur.Next()
//	    if err != nil { ... }
//	    // process chunk.Data[:chunk.Length]
//	}
//
// # Memory Model
//
// A Producer runs in one of two modes, fixed at construction:
//
// Reuse mode (ProducerOptions.ReuseBuffer true) recycles a single buffer and
// a single Chunk value across calls. Memory stays at O(ChunkSize) regardless
// of source size, but a chunk is only valid until the next call to
// [Producer.Next]. Suitable for strict single-pass consumption.
//
// Copy mode allocates an exactly-sized buffer per chunk. Chunks remain valid
// indefinitely and may be retained, which is what a [Provider] requires; it
// refuses a reuse-mode producer at construction.
//
// # Concurrency
//
// A Producer is not safe for concurrent use. A Provider serializes all
// producer pulls and cache mutations behind one mutex and is safe for any
// number of goroutines, each driving its own Cursor. A single Cursor must
// only be driven by one goroutine at a time.
//
// # Error Handling
//
// All failures are synchronous and none are retried internally. Sentinel
// errors ([ErrExhausted], [ErrOverflow], [ErrEvicted], [ErrReleased],
// [ErrClosed], [ErrNoChunk], [ErrInvalidInput]) are checked with
// [errors.Is]; the structured [*OverflowError] and [*SeekError] types carry
// diagnostic fields and are extracted with [errors.As].
package chunkstream
