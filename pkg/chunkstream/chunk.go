package chunkstream

import "fmt"

// Chunk is one slice of the source stream with position metadata.
//
// Index and Offset are strictly increasing across successive chunks from
// the same producer. First holds iff Index == 0; Last holds iff the
// producer proved no further bytes remain.
//
// Ownership of Data depends on the producer mode. In copy mode the buffer
// is exactly Length bytes and owned by the chunk; it remains valid
// indefinitely. In reuse mode the buffer is shared with the producer and
// only valid until the next call to [Producer.Next]; consume or copy it
// first.
type Chunk struct {
	// Data holds the chunk payload. Only Data[:Length] is valid.
	Data []byte

	// Index is the 0-based chunk number in the stream.
	Index int

	// Offset is the byte offset of Data[0] in the original source.
	Offset int64

	// Length is the number of valid bytes in Data.
	//
	// Equal to the configured chunk size for every chunk except
	// possibly the last.
	Length int

	// First reports whether this is the first chunk (Index == 0).
	First bool

	// Last reports whether this is provably the final chunk.
	Last bool
}

// String implements fmt.Stringer for diagnostics.
func (c *Chunk) String() string {
	return fmt.Sprintf("Chunk[index=%d, offset=%d, length=%d, first=%v, last=%v]",
		c.Index, c.Offset, c.Length, c.First, c.Last)
}
