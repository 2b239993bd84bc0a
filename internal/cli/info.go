package cli

import (
	"errors"
	"io"

	flag "github.com/spf13/pflag"

	"github.com/mulesoftforge/chunkstream/pkg/chunkstream"
)

func cmdInfo(o *IO, cfg Config, args []string) error {
	if hasHelpFlag(args) {
		printInfoHelp(o)

		return nil
	}

	flagSet := flag.NewFlagSet("info", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	chunkSize := flagSet.IntP("chunk-size", "s", cfg.ChunkSize, "Chunk size in bytes")

	if err := flagSet.Parse(args); err != nil {
		return err
	}

	if *chunkSize <= 0 {
		return errChunkSizeInvalid
	}

	if flagSet.NArg() < 1 {
		return errMissingInput
	}

	src, name, cleanup, err := openInput(flagSet.Arg(0))
	if err != nil {
		return err
	}
	defer cleanup()

	// Reuse mode: one recycled buffer is enough to walk the geometry.
	producer, err := chunkstream.NewProducer(src, chunkstream.ProducerOptions{
		ChunkSize:   *chunkSize,
		ReuseBuffer: true,
	})
	if err != nil {
		return err
	}
	defer producer.Close()

	var (
		count      int
		totalBytes int64
		lastLength int
	)

	for {
		chunk, err := producer.Next()
		if errors.Is(err, chunkstream.ErrExhausted) {
			break
		}

		if err != nil {
			return err
		}

		count++
		totalBytes += int64(chunk.Length)
		lastLength = chunk.Length
	}

	o.Printf("input:        %s\n", name)
	o.Printf("chunk size:   %d bytes\n", *chunkSize)
	o.Printf("chunks:       %d\n", count)
	o.Printf("total bytes:  %d\n", totalBytes)

	if count > 0 {
		o.Printf("last chunk:   %d bytes\n", lastLength)
	}

	return nil
}

func printInfoHelp(o *IO) {
	o.Println("Usage: chunkcat info [options] <file|->")
	o.Println("")
	o.Println("Read the input once and report its chunk geometry.")
	o.Println("")
	o.Println("Options:")
	o.Println("  -s, --chunk-size=N     Chunk size in bytes")
}
