// Package delivery implements the batch orchestration of kindlepost: it
// enumerates pending e-books, authenticates once, drives per-file sends
// through the mail gateway, relocates successes, and aggregates partial
// failure across the batch.
package delivery

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Filer abstracts the two filesystem primitives the orchestrator needs.
// The OS implementation is the default; tests substitute fakes to provoke
// relocation failures without filesystem gymnastics.
type Filer interface {
	// List returns the paths of all regular files directly in dir
	// (non-recursive), in sorted order.
	List(dir string) ([]string, error)
	// Move relocates src into dstDir, creating dstDir if absent and
	// preserving the file name.
	Move(src, dstDir string) error
}

// OSFiler is the real-filesystem Filer.
type OSFiler struct{}

func (OSFiler) List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("delivery: reading directory %s: %w", dir, err)
	}

	var files []string

	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}

		files = append(files, filepath.Join(dir, entry.Name()))
	}

	// ReadDir already sorts by name, but the contract is explicit:
	// processing order matches enumeration order.
	sort.Strings(files)

	return files, nil
}

func (OSFiler) Move(src, dstDir string) error {
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("delivery: creating destination directory %s: %w", dstDir, err)
	}

	name := filepath.Base(src)

	dst := filepath.Join(dstDir, name)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("delivery: moving %s to %s: %w", src, dst, err)
	}

	return nil
}
