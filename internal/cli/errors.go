package cli

import "errors"

var (
	errUnknownFlag        = errors.New("unknown flag")
	errFlagRequiresArg    = errors.New("flag requires an argument")
	errConfigFileNotFound = errors.New("config file not found")
	errConfigInvalid      = errors.New("invalid config file")
	errChunkSizeInvalid   = errors.New("chunk_size must be positive")
	errMaxCachedInvalid   = errors.New("max_cached_chunks must be positive")
	errStrategyInvalid    = errors.New("unknown strategy")
	errMissingInput       = errors.New("missing input file (use '-' for stdin)")
)
