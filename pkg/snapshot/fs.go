package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FilesystemSink writes snapshots into a local directory.
type FilesystemSink struct {
	dir string
}

// NewFilesystemSink creates dir if needed and returns a sink writing into it.
func NewFilesystemSink(dir string) (*FilesystemSink, error) {
	if dir == "" {
		return nil, fmt.Errorf("snapshot directory is required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	return &FilesystemSink{dir: dir}, nil
}

// Write stores data atomically: readers never observe a partial file.
func (s *FilesystemSink) Write(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, ".snapshot-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close snapshot: %w", err)
	}

	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to rename snapshot: %w", err)
	}
	return nil
}

func (s *FilesystemSink) Location(name string) string {
	return filepath.Join(s.dir, name)
}
