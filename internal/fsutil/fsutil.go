// Package fsutil has small filesystem helpers shared by the CLI commands.
package fsutil

import (
	"bytes"
	"os"

	"github.com/natefinch/atomic"
)

const DirPerms = 0o755

// WriteFileAtomic writes data to path via a temp file and rename, so a
// crash never leaves a partially written file behind.
func WriteFileAtomic(path string, data []byte) error {
	return atomic.WriteFile(path, bytes.NewReader(data))
}

// MkdirAll is a passthrough wrapper for [os.MkdirAll] with the default
// directory permissions.
func MkdirAll(path string) error {
	return os.MkdirAll(path, DirPerms)
}

// Exists checks if a file exists using [os.Stat].
// Returns (true, nil) if the file exists, (false, nil) if it does not,
// or (false, err) for other errors.
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}

	if os.IsNotExist(err) {
		return false, nil
	}

	return false, err
}
