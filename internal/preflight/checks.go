// Package preflight verifies filesystem preconditions before an export
// configuration is accepted.
package preflight

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// CheckOutputPath verifies that the destination's parent directory exists,
// is a directory, and is writable by the current process.
func CheckOutputPath(path string) error {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return errors.New("output path is empty")
	}
	dir := filepath.Dir(trimmed)

	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("output directory %q does not exist", dir)
		}
		return fmt.Errorf("stat output directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("output directory %q is not a directory", dir)
	}
	if err := unix.Access(dir, unix.W_OK|unix.X_OK); err != nil {
		return fmt.Errorf("output directory %q is not writable: %w", dir, err)
	}
	if existing, err := os.Stat(trimmed); err == nil && existing.IsDir() {
		return fmt.Errorf("output path %q is a directory", trimmed)
	}
	return nil
}

// FreeSpace returns the bytes available to unprivileged callers on the
// filesystem holding dir.
func FreeSpace(dir string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(dir, &stat); err != nil {
		return 0, fmt.Errorf("statfs %q: %w", dir, err)
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}

// CheckCapacity verifies that the filesystem holding the output path has at
// least need bytes available. need <= 0 skips the check.
func CheckCapacity(path string, need int64) error {
	if need <= 0 {
		return nil
	}
	available, err := FreeSpace(filepath.Dir(path))
	if err != nil {
		return err
	}
	if available < uint64(need) {
		return fmt.Errorf("insufficient space for %q: need %d bytes, %d available", path, need, available)
	}
	return nil
}
