package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	flag "github.com/spf13/pflag"

	"github.com/mulesoftforge/chunkstream/internal/fsutil"
	"github.com/mulesoftforge/chunkstream/pkg/chunkstream"
	"github.com/mulesoftforge/chunkstream/pkg/spool"
)

// splitOptions holds parsed split command options.
type splitOptions struct {
	chunkSize int
	maxCached int
	strategy  string
	outDir    string
	prefix    string
}

func cmdSplit(o *IO, cfg Config, workDir string, args []string) error {
	if hasHelpFlag(args) {
		printSplitHelp(o)

		return nil
	}

	opts, inputPath, err := parseSplitFlags(cfg, args)
	if err != nil {
		return err
	}

	if opts.outDir != "" {
		if !filepath.IsAbs(opts.outDir) {
			opts.outDir = filepath.Join(workDir, opts.outDir)
		}

		if err := fsutil.MkdirAll(opts.outDir); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}

	src, name, cleanup, err := openInput(inputPath)
	if err != nil {
		return err
	}
	defer cleanup()

	next, release, err := chunkSource(src, opts)
	if err != nil {
		return err
	}
	defer release()

	var (
		count int
		bytes int64
	)

	for {
		chunk, err := next()
		if errors.Is(err, chunkstream.ErrExhausted) || errors.Is(err, chunkstream.ErrNoChunk) {
			break
		}

		if err != nil {
			return err
		}

		if err := emitChunk(o, opts, chunk); err != nil {
			return err
		}

		count++
		bytes += int64(chunk.Length)
	}

	o.Printf("%s: %d chunks, %d bytes (chunk size %d, strategy %s)\n",
		name, count, bytes, opts.chunkSize, opts.strategy)

	return nil
}

func parseSplitFlags(cfg Config, args []string) (splitOptions, string, error) {
	flagSet := flag.NewFlagSet("split", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	chunkSize := flagSet.IntP("chunk-size", "s", cfg.ChunkSize, "Chunk size in bytes")
	maxCached := flagSet.Int("max-cached", cfg.MaxCachedChunks, "Sliding window capacity in chunks")
	strategy := flagSet.String("strategy", cfg.Strategy, "Repeatable-stream strategy")
	outDir := flagSet.StringP("out", "o", "", "Write chunk payloads into this directory")
	prefix := flagSet.String("prefix", "chunk", "Output file name prefix")

	if err := flagSet.Parse(args); err != nil {
		return splitOptions{}, "", err
	}

	if *chunkSize <= 0 {
		return splitOptions{}, "", errChunkSizeInvalid
	}

	if *maxCached <= 0 {
		return splitOptions{}, "", errMaxCachedInvalid
	}

	if err := validateStrategy(*strategy); err != nil {
		return splitOptions{}, "", err
	}

	if flagSet.NArg() < 1 {
		return splitOptions{}, "", errMissingInput
	}

	opts := splitOptions{
		chunkSize: *chunkSize,
		maxCached: *maxCached,
		strategy:  *strategy,
		outDir:    *outDir,
		prefix:    *prefix,
	}

	return opts, flagSet.Arg(0), nil
}

// openInput opens path for reading. "-" means stdin.
func openInput(path string) (io.Reader, string, func(), error) {
	if path == "-" {
		return os.Stdin, "stdin", func() {}, nil
	}

	f, err := os.Open(path) //nolint:gosec // path is intentionally user-controlled
	if err != nil {
		return nil, "", nil, fmt.Errorf("opening input: %w", err)
	}

	return f, path, func() { _ = f.Close() }, nil
}

// chunkSource wires the input through the selected strategy and returns a
// pull function plus a cleanup function.
func chunkSource(src io.Reader, opts splitOptions) (func() (*chunkstream.Chunk, error), func(), error) {
	if opts.strategy == StrategyNonRepeatable {
		// One pass, one recycled buffer. Each chunk is consumed before
		// the next pull, so reuse mode is safe here.
		producer, err := chunkstream.NewProducer(src, chunkstream.ProducerOptions{
			ChunkSize:   opts.chunkSize,
			ReuseBuffer: true,
		})
		if err != nil {
			return nil, nil, err
		}

		return producer.Next, func() { _ = producer.Close() }, nil
	}

	producer, err := chunkstream.NewProducer(src, chunkstream.ProducerOptions{ChunkSize: opts.chunkSize})
	if err != nil {
		return nil, nil, err
	}

	var consumable chunkstream.Consumable

	switch opts.strategy {
	case StrategySlidingWindow:
		provider, err := chunkstream.NewProvider(producer, chunkstream.ProviderOptions{
			MaxCachedChunks: opts.maxCached,
		})
		if err != nil {
			return nil, nil, err
		}

		consumable = provider.AsConsumable()

	case StrategyInMemory:
		s, err := spool.Memory(producer)
		if err != nil {
			return nil, nil, err
		}

		consumable = s

	case StrategyFileStore:
		s, err := spool.File(producer, spool.FileOptions{})
		if err != nil {
			return nil, nil, err
		}

		consumable = s

	default:
		return nil, nil, fmt.Errorf("%w: %s", errStrategyInvalid, opts.strategy)
	}

	cursor, err := consumable.OpenCursor()
	if err != nil {
		_ = consumable.Close()

		return nil, nil, err
	}

	cleanup := func() {
		cursor.Release()
		_ = consumable.Close()
	}

	return cursor.Next, cleanup, nil
}

func emitChunk(o *IO, opts splitOptions, chunk *chunkstream.Chunk) error {
	if opts.outDir != "" {
		name := fmt.Sprintf("%s-%05d", opts.prefix, chunk.Index)

		if err := fsutil.WriteFileAtomic(filepath.Join(opts.outDir, name), chunk.Data[:chunk.Length]); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
	}

	o.Println(chunk.String())

	return nil
}

func printSplitHelp(o *IO) {
	o.Println("Usage: chunkcat split [options] <file|->")
	o.Println("")
	o.Println("Split input into fixed-size chunks. With --out, each chunk payload is")
	o.Println("written to its own file; otherwise chunk metadata is printed.")
	o.Println("")
	o.Println("Options:")
	o.Println("  -s, --chunk-size=N     Chunk size in bytes")
	o.Println("  --max-cached=N         Sliding window capacity in chunks")
	o.Println("  --strategy=<name>      non-repeatable|sliding-window|in-memory|file-store")
	o.Println("  -o, --out=<dir>        Write chunk payloads into <dir>")
	o.Println("  --prefix=<name>        Output file name prefix [default: chunk]")
}
