package cli_test

import (
	"strings"
	"testing"

	"github.com/mulesoftforge/chunkstream/internal/cli"
)

// The cursors session runs scripted when stdin is not a terminal, one
// command per line. These tests drive it that way.

func runSession(t *testing.T, c *cli.CLI, input string, script ...string) string {
	t.Helper()

	args := append([]string{"cursors", "-s", "64", "--max-cached", "3"}, input)

	stdout, stderr, code := c.RunWithInput(strings.NewReader(strings.Join(script, "\n")), args...)
	if code != 0 {
		t.Fatalf("session failed: %s", stderr)
	}

	return stdout
}

func Test_Cursors_Session_Reads_Chunks_In_Order(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	input := writeInput(t, c, sourceBytes(150))

	stdout := runSession(t, c, input,
		"open",
		"next 0",
		"next 0",
		"next 0",
		"next 0",
		"exit",
	)

	cli.AssertContains(t, stdout, "opened cursor 0")
	cli.AssertContains(t, stdout, "cursor 0 -> Chunk[index=0, offset=0, length=64, first=true, last=false]")
	cli.AssertContains(t, stdout, "cursor 0 -> Chunk[index=2, offset=128, length=22, first=false, last=true]")
	// Fourth read runs past the end.
	cli.AssertContains(t, stdout, "no chunk at position")
}

func Test_Cursors_Session_Tracks_Window_State(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	input := writeInput(t, c, sourceBytes(320))

	stdout := runSession(t, c, input,
		"open",
		"open",
		"next 0",
		"next 0",
		"next 1",
		"ls",
		"window",
		"exit",
	)

	cli.AssertContains(t, stdout, "cursor 0: position=2")
	cli.AssertContains(t, stdout, "cursor 1: position=1")
	cli.AssertContains(t, stdout, "open cursors:    2")
	// Cursor 1 still needs chunk 1, so only chunk 0 is evictable.
	cli.AssertContains(t, stdout, "min retained:    1")
}

func Test_Cursors_Session_Seek_And_Release(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	input := writeInput(t, c, sourceBytes(320))

	// A second cursor anchored at 0 keeps the first chunk in the window,
	// otherwise the frontier would evict it as soon as cursor 0 advances.
	stdout := runSession(t, c, input,
		"open",
		"open",
		"next 0",
		"seek 0 0",
		"next 0",
		"release 0",
		"next 0",
		"exit",
	)

	cli.AssertContains(t, stdout, "cursor 0 at position 0")
	cli.AssertContains(t, stdout, "released cursor 0")
	cli.AssertContains(t, stdout, "no open cursor with id 0")
}

func Test_Cursors_Session_Excluded_Cursor_Is_Marked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	input := writeInput(t, c, sourceBytes(320))

	stdout := runSession(t, c, input,
		"open -x",
		"ls",
		"exit",
	)

	cli.AssertContains(t, stdout, "opened cursor 0 (excluded from eviction accounting)")
	cli.AssertContains(t, stdout, "cursor 0: position=0 hasNext=true (excluded)")
}

func Test_Cursors_Session_Rejects_Unknown_Command(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	input := writeInput(t, c, sourceBytes(64))

	stdout := runSession(t, c, input,
		"frobnicate",
		"exit",
	)

	cli.AssertContains(t, stdout, "Unknown command: frobnicate")
}
