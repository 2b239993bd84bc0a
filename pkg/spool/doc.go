// Package spool provides fully-buffered, repeatable forms of a chunk
// sequence: peers of the sliding-window provider for callers that need
// unrestricted re-reading and can pay for it.
//
// [Memory] drains a producer into memory. Every chunk stays resident, so
// memory grows with the source; use it only when the source comfortably
// fits in the heap.
//
// [File] drains a producer into a spill file and serves reads from a
// memory-mapped view. Memory stays bounded by the chunk size while disk
// holds the full payload until [FileSpool.Close].
//
// Both implement [chunkstream.Consumable]. Their cursors are fully
// random-access: nothing is ever evicted, so any position from 0 to the
// end of the stream is seekable for the life of the spool.
package spool
