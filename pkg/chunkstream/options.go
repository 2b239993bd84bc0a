package chunkstream

const (
	// DefaultChunkSize is used when ProducerOptions.ChunkSize is zero.
	DefaultChunkSize = 1 << 20 // 1 MiB

	// DefaultMaxCachedChunks is used when ProviderOptions.MaxCachedChunks
	// is zero. Small on purpose: the window exists to bound memory, and
	// well-paced cursors rarely diverge by more than a couple of chunks.
	DefaultMaxCachedChunks = 3
)

// ProducerOptions configures a [Producer].
type ProducerOptions struct {
	// ChunkSize is the size of each chunk in bytes.
	//
	// Every chunk except possibly the last has exactly this many bytes.
	// Zero means [DefaultChunkSize]; negative values are rejected with
	// [ErrInvalidInput].
	ChunkSize int

	// ReuseBuffer selects reuse mode: one buffer and one [Chunk] value
	// are recycled across calls, keeping memory at O(ChunkSize).
	//
	// A chunk from a reuse-mode producer is only valid until the next
	// call to [Producer.Next]. Reuse-mode producers cannot feed a
	// [Provider].
	ReuseBuffer bool
}

// ProviderOptions configures a [Provider].
type ProviderOptions struct {
	// MaxCachedChunks is the maximum number of chunks retained in the
	// sliding window.
	//
	// Zero means [DefaultMaxCachedChunks]; negative values are rejected
	// with [ErrInvalidInput]. Peak memory is roughly
	// MaxCachedChunks x ChunkSize.
	MaxCachedChunks int
}
