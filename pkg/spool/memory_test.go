package spool_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/mulesoftforge/chunkstream/pkg/chunkstream"
	"github.com/mulesoftforge/chunkstream/pkg/spool"
)

func sourceBytes(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i % 251)
	}

	return data
}

func newTestProducer(t *testing.T, source []byte, chunkSize int) *chunkstream.Producer {
	t.Helper()

	producer, err := chunkstream.NewProducer(bytes.NewReader(source), chunkstream.ProducerOptions{ChunkSize: chunkSize})
	if err != nil {
		t.Fatalf("NewProducer() error = %v", err)
	}

	return producer
}

// reassemble drains a cursor and concatenates the payloads.
func reassemble(t *testing.T, cursor chunkstream.CursorReader) []byte {
	t.Helper()

	var out []byte

	for cursor.HasNext() {
		chunk, err := cursor.Next()
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}

		out = append(out, chunk.Data[:chunk.Length]...)
	}

	return out
}

func Test_MemorySpool_Reassembles_Source_Exactly(t *testing.T) {
	t.Parallel()

	source := sourceBytes(150)

	s, err := spool.Memory(newTestProducer(t, source, 64))
	if err != nil {
		t.Fatalf("Memory() error = %v", err)
	}
	defer s.Close()

	if got, want := s.Len(), 3; got != want {
		t.Fatalf("Len() = %d, want %d", got, want)
	}

	cursor, err := s.OpenCursor()
	if err != nil {
		t.Fatalf("OpenCursor() error = %v", err)
	}
	defer cursor.Release()

	if got := reassemble(t, cursor); !bytes.Equal(got, source) {
		t.Fatalf("reassembled %d bytes differ from source", len(got))
	}
}

func Test_MemorySpool_Cursors_Are_Independent_And_Repeatable(t *testing.T) {
	t.Parallel()

	source := sourceBytes(300)

	s, err := spool.Memory(newTestProducer(t, source, 100))
	if err != nil {
		t.Fatalf("Memory() error = %v", err)
	}
	defer s.Close()

	first, err := s.OpenCursor()
	if err != nil {
		t.Fatalf("OpenCursor() error = %v", err)
	}
	defer first.Release()

	second, err := s.OpenCursor()
	if err != nil {
		t.Fatalf("OpenCursor() error = %v", err)
	}
	defer second.Release()

	if got := reassemble(t, first); !bytes.Equal(got, source) {
		t.Fatal("first cursor saw a different payload than the source")
	}

	// The second cursor starts from the beginning regardless of how far
	// the first one has read.
	if got := reassemble(t, second); !bytes.Equal(got, source) {
		t.Fatal("second cursor saw a different payload than the source")
	}
}

func Test_MemorySpool_Seek_Backward_Succeeds_Anywhere(t *testing.T) {
	t.Parallel()

	s, err := spool.Memory(newTestProducer(t, sourceBytes(500), 100))
	if err != nil {
		t.Fatalf("Memory() error = %v", err)
	}
	defer s.Close()

	cursor, err := s.OpenCursor()
	if err != nil {
		t.Fatalf("OpenCursor() error = %v", err)
	}
	defer cursor.Release()

	reassemble(t, cursor)

	if err := cursor.Seek(0); err != nil {
		t.Fatalf("Seek(0) error = %v", err)
	}

	chunk, err := cursor.Next()
	if err != nil {
		t.Fatalf("Next() after Seek(0) error = %v", err)
	}

	if chunk.Index != 0 || !chunk.First {
		t.Fatalf("got chunk index %d (first=%v), want the first chunk", chunk.Index, chunk.First)
	}
}

func Test_MemorySpool_Empty_Source_Has_No_Chunks(t *testing.T) {
	t.Parallel()

	s, err := spool.Memory(newTestProducer(t, nil, 64))
	if err != nil {
		t.Fatalf("Memory() error = %v", err)
	}
	defer s.Close()

	if got := s.Len(); got != 0 {
		t.Fatalf("Len() = %d, want 0", got)
	}

	cursor, err := s.OpenCursor()
	if err != nil {
		t.Fatalf("OpenCursor() error = %v", err)
	}
	defer cursor.Release()

	if cursor.HasNext() {
		t.Fatal("HasNext() = true on an empty spool")
	}

	if _, err := cursor.Next(); !errors.Is(err, chunkstream.ErrNoChunk) {
		t.Fatalf("Next() error = %v, want ErrNoChunk", err)
	}
}

func Test_Memory_Rejects_Reuse_Mode_Producer(t *testing.T) {
	t.Parallel()

	producer, err := chunkstream.NewProducer(bytes.NewReader(sourceBytes(10)), chunkstream.ProducerOptions{ChunkSize: 4, ReuseBuffer: true})
	if err != nil {
		t.Fatalf("NewProducer() error = %v", err)
	}

	if _, err := spool.Memory(producer); !errors.Is(err, chunkstream.ErrInvalidInput) {
		t.Fatalf("Memory() error = %v, want ErrInvalidInput", err)
	}
}

func Test_MemorySpool_Close_Rejects_New_Cursors_But_Existing_Keep_Reading(t *testing.T) {
	t.Parallel()

	source := sourceBytes(200)

	s, err := spool.Memory(newTestProducer(t, source, 64))
	if err != nil {
		t.Fatalf("Memory() error = %v", err)
	}

	cursor, err := s.OpenCursor()
	if err != nil {
		t.Fatalf("OpenCursor() error = %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if _, err := s.OpenCursor(); !errors.Is(err, chunkstream.ErrClosed) {
		t.Fatalf("OpenCursor() after Close error = %v, want ErrClosed", err)
	}

	if got := reassemble(t, cursor); !bytes.Equal(got, source) {
		t.Fatal("open cursor could not finish reading after Close")
	}

	cursor.Release()
}
