package spool_test

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/mulesoftforge/chunkstream/pkg/chunkstream"
	"github.com/mulesoftforge/chunkstream/pkg/spool"
)

func newFileSpool(t *testing.T, source []byte, chunkSize int) *spool.FileSpool {
	t.Helper()

	s, err := spool.File(newTestProducer(t, source, chunkSize), spool.FileOptions{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("File() error = %v", err)
	}

	return s
}

func Test_FileSpool_Reassembles_Source_Exactly(t *testing.T) {
	t.Parallel()

	source := sourceBytes(150)

	s := newFileSpool(t, source, 64)
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

func Test_FileSpool_Preserves_Chunk_Metadata(t *testing.T) {
	t.Parallel()

	s := newFileSpool(t, sourceBytes(150), 64)
	defer s.Close()

	cursor, err := s.OpenCursor()
	if err != nil {
		t.Fatalf("OpenCursor() error = %v", err)
	}
	defer cursor.Release()

	type meta struct {
		Index       int
		Offset      int64
		Length      int
		First, Last bool
	}

	var got []meta

	for cursor.HasNext() {
		chunk, err := cursor.Next()
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}

		got = append(got, meta{chunk.Index, chunk.Offset, chunk.Length, chunk.First, chunk.Last})
	}

	want := []meta{
		{Index: 0, Offset: 0, Length: 64, First: true},
		{Index: 1, Offset: 64, Length: 64},
		{Index: 2, Offset: 128, Length: 22, Last: true},
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("chunk metadata mismatch (-want +got):\n%s", diff)
	}
}

func Test_FileSpool_Random_Seeks_Return_Correct_Payloads(t *testing.T) {
	t.Parallel()

	source := sourceBytes(1000)

	s := newFileSpool(t, source, 100)
	defer s.Close()

	cursor, err := s.OpenCursor()
	if err != nil {
		t.Fatalf("OpenCursor() error = %v", err)
	}
	defer cursor.Release()

	for _, position := range []int64{7, 0, 9, 3, 3, 5} {
		if err := cursor.Seek(position); err != nil {
			t.Fatalf("Seek(%d) error = %v", position, err)
		}

		chunk, err := cursor.Next()
		if err != nil {
			t.Fatalf("Next() at position %d error = %v", position, err)
		}

		want := source[position*100 : position*100+100]
		if !bytes.Equal(chunk.Data, want) {
			t.Fatalf("chunk %d payload differs from source slice", position)
		}
	}
}

func Test_FileSpool_Empty_Source_Has_No_Chunks(t *testing.T) {
	t.Parallel()

	s := newFileSpool(t, nil, 64)
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

func Test_FileSpool_Close_Removes_Spill_File(t *testing.T) {
	t.Parallel()

	s := newFileSpool(t, sourceBytes(200), 64)

	path := s.Path()

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("spill file %q missing before Close: %v", path, err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("spill file %q still present after Close (stat err = %v)", path, err)
	}
}

func Test_FileSpool_Spill_File_Survives_Until_Last_Cursor_Releases(t *testing.T) {
	t.Parallel()

	source := sourceBytes(200)

	s := newFileSpool(t, source, 64)

	cursor, err := s.OpenCursor()
	if err != nil {
		t.Fatalf("OpenCursor() error = %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// The open cursor keeps the mapping and the file alive.
	if got := reassemble(t, cursor); !bytes.Equal(got, source) {
		t.Fatal("open cursor could not finish reading after Close")
	}

	cursor.Release()

	if _, err := os.Stat(s.Path()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("spill file still present after last release (stat err = %v)", err)
	}
}

func Test_File_Rejects_Reuse_Mode_Producer(t *testing.T) {
	t.Parallel()

	producer, err := chunkstream.NewProducer(bytes.NewReader(sourceBytes(10)), chunkstream.ProducerOptions{ChunkSize: 4, ReuseBuffer: true})
	if err != nil {
		t.Fatalf("NewProducer() error = %v", err)
	}

	if _, err := spool.File(producer, spool.FileOptions{Dir: t.TempDir()}); !errors.Is(err, chunkstream.ErrInvalidInput) {
		t.Fatalf("File() error = %v, want ErrInvalidInput", err)
	}
}
