package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"

	"github.com/mulesoftforge/chunkstream/pkg/chunkstream"
)

func cmdCursors(in io.Reader, o *IO, cfg Config, args []string) error {
	if hasHelpFlag(args) {
		printCursorsHelp(o)

		return nil
	}

	flagSet := flag.NewFlagSet("cursors", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	chunkSize := flagSet.IntP("chunk-size", "s", cfg.ChunkSize, "Chunk size in bytes")
	maxCached := flagSet.Int("max-cached", cfg.MaxCachedChunks, "Sliding window capacity in chunks")

	if err := flagSet.Parse(args); err != nil {
		return err
	}

	if *chunkSize <= 0 {
		return errChunkSizeInvalid
	}

	if *maxCached <= 0 {
		return errMaxCachedInvalid
	}

	if flagSet.NArg() < 1 {
		return errMissingInput
	}

	src, name, cleanup, err := openInput(flagSet.Arg(0))
	if err != nil {
		return err
	}
	defer cleanup()

	producer, err := chunkstream.NewProducer(src, chunkstream.ProducerOptions{ChunkSize: *chunkSize})
	if err != nil {
		return err
	}

	provider, err := chunkstream.NewProvider(producer, chunkstream.ProviderOptions{MaxCachedChunks: *maxCached})
	if err != nil {
		_ = producer.Close()

		return err
	}
	defer provider.Close()

	session := &cursorSession{
		provider: provider,
		cursors:  make(map[int]*chunkstream.Cursor),
		o:        o,
	}

	o.Printf("chunkcat cursors - %s (chunk_size=%d, max_cached=%d)\n", name, *chunkSize, *maxCached)
	o.Println("Type 'help' for available commands.")
	o.Println("")

	// Readline only on a real terminal; piped input runs line by line.
	if f, ok := in.(*os.File); ok && f == os.Stdin {
		return session.runInteractive()
	}

	return session.runScripted(in)
}

// cursorSession holds the state of one interactive multi-cursor session.
type cursorSession struct {
	provider *chunkstream.Provider
	cursors  map[int]*chunkstream.Cursor
	o        *IO
}

// runInteractive drives the session with readline-style input.
func (s *cursorSession) runInteractive() error {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(sessionCompleter)

	if f, err := os.Open(historyFile()); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}

	defer s.saveHistory(line)

	for {
		input, err := line.Prompt("chunkcat> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				s.o.Println("\nBye!")

				return nil
			}

			return fmt.Errorf("reading input: %w", err)
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		line.AppendHistory(input)

		if exit := s.execute(input); exit {
			return nil
		}
	}
}

// runScripted drives the session from a plain reader, one command per line.
func (s *cursorSession) runScripted(in io.Reader) error {
	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	for _, input := range strings.Split(string(data), "\n") {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if exit := s.execute(input); exit {
			return nil
		}
	}

	return nil
}

// execute runs one session command. Returns true when the session should end.
func (s *cursorSession) execute(input string) bool {
	parts := strings.Fields(input)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "exit", "quit", "q":
		s.o.Println("Bye!")

		return true

	case "help", "?":
		s.printHelp()

	case "open":
		s.cmdOpen(args)

	case "next", "n":
		s.cmdNext(args)

	case "seek":
		s.cmdSeek(args)

	case "release", "rel":
		s.cmdRelease(args)

	case "ls", "list":
		s.cmdList()

	case "window", "stats":
		s.cmdWindow()

	default:
		s.o.Printf("Unknown command: %s (type 'help' for commands)\n", cmd)
	}

	return false
}

func (s *cursorSession) cmdOpen(args []string) {
	excluded := len(args) > 0 && (args[0] == "-x" || args[0] == "--excluded")

	var (
		cursor *chunkstream.Cursor
		err    error
	)

	if excluded {
		cursor, err = s.provider.OpenCursorExcluded()
	} else {
		cursor, err = s.provider.OpenCursor()
	}

	if err != nil {
		s.o.Println("error:", err)

		return
	}

	s.cursors[cursor.ID()] = cursor

	if excluded {
		s.o.Printf("opened cursor %d (excluded from eviction accounting)\n", cursor.ID())
	} else {
		s.o.Printf("opened cursor %d\n", cursor.ID())
	}
}

func (s *cursorSession) cmdNext(args []string) {
	cursor, ok := s.lookupCursor(args)
	if !ok {
		return
	}

	chunk, err := cursor.Next()
	if err != nil {
		s.o.Println("error:", err)

		return
	}

	s.o.Printf("cursor %d -> %s\n", cursor.ID(), chunk)
}

func (s *cursorSession) cmdSeek(args []string) {
	if len(args) < 2 {
		s.o.Println("usage: seek <id> <position>")

		return
	}

	cursor, ok := s.lookupCursor(args[:1])
	if !ok {
		return
	}

	target, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		s.o.Println("error: invalid position:", args[1])

		return
	}

	if err := cursor.Seek(target); err != nil {
		s.o.Println("error:", err)

		return
	}

	s.o.Printf("cursor %d at position %d\n", cursor.ID(), target)
}

func (s *cursorSession) cmdRelease(args []string) {
	cursor, ok := s.lookupCursor(args)
	if !ok {
		return
	}

	cursor.Release()
	delete(s.cursors, cursor.ID())
	s.o.Printf("released cursor %d\n", cursor.ID())
}

func (s *cursorSession) cmdList() {
	if len(s.cursors) == 0 {
		s.o.Println("no open cursors")

		return
	}

	ids := make([]int, 0, len(s.cursors))
	for id := range s.cursors {
		ids = append(ids, id)
	}

	sort.Ints(ids)

	for _, id := range ids {
		cursor := s.cursors[id]

		marker := ""
		if cursor.Excluded() {
			marker = " (excluded)"
		}

		s.o.Printf("cursor %d: position=%d hasNext=%v%s\n", id, cursor.Position(), cursor.HasNext(), marker)
	}
}

func (s *cursorSession) cmdWindow() {
	stats := s.provider.Stats()

	s.o.Printf("cached chunks:   %d\n", stats.CachedChunks)
	s.o.Printf("min retained:    %d\n", stats.MinRetained)
	s.o.Printf("next fetch:      %d\n", stats.NextFetch)
	s.o.Printf("source drained:  %v\n", stats.SourceExhausted)
	s.o.Printf("open cursors:    %d\n", stats.OpenCursors)
}

func (s *cursorSession) lookupCursor(args []string) (*chunkstream.Cursor, bool) {
	if len(args) < 1 {
		s.o.Println("usage: <command> <cursor-id>")

		return nil, false
	}

	id, err := strconv.Atoi(args[0])
	if err != nil {
		s.o.Println("error: invalid cursor id:", args[0])

		return nil, false
	}

	cursor, ok := s.cursors[id]
	if !ok {
		s.o.Printf("no open cursor with id %d (see 'ls')\n", id)

		return nil, false
	}

	return cursor, true
}

func (s *cursorSession) printHelp() {
	s.o.Println("Commands:")
	s.o.Println("  open [-x]            Open a cursor (-x excludes it from eviction accounting)")
	s.o.Println("  next <id>            Read the next chunk through cursor <id>")
	s.o.Println("  seek <id> <pos>      Move cursor <id> to chunk position <pos>")
	s.o.Println("  release <id>         Release cursor <id>")
	s.o.Println("  ls                   List open cursors and positions")
	s.o.Println("  window               Show sliding window state")
	s.o.Println("  help                 Show this help")
	s.o.Println("  exit / quit / q      Exit")
}

func (s *cursorSession) saveHistory(line *liner.State) {
	if path := historyFile(); path != "" {
		if f, err := os.Create(path); err == nil {
			_, _ = line.WriteHistory(f)
			f.Close()
		}
	}
}

// historyFile returns the path to the history file.
func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".chunkcat_history")
}

// sessionCompleter provides tab completion for session commands.
func sessionCompleter(line string) []string {
	commands := []string{
		"open", "next", "seek", "release", "rel",
		"ls", "list", "window", "stats",
		"help", "exit", "quit", "q",
	}

	var completions []string

	lower := strings.ToLower(line)
	for _, cmd := range commands {
		if strings.HasPrefix(cmd, lower) {
			completions = append(completions, cmd)
		}
	}

	return completions
}

func printCursorsHelp(o *IO) {
	o.Println("Usage: chunkcat cursors [options] <file|->")
	o.Println("")
	o.Println("Interactive session over a sliding window of chunks. Open several")
	o.Println("cursors, advance and seek them independently, and watch the window")
	o.Println("move as the slowest cursor advances.")
	o.Println("")
	o.Println("Options:")
	o.Println("  -s, --chunk-size=N     Chunk size in bytes")
	o.Println("  --max-cached=N         Sliding window capacity in chunks")
}
