package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// FileArchive writes each envelope to its own JSON file in a directory.
type FileArchive struct {
	dir string
	log *slog.Logger
}

// NewFileArchive creates the directory if it does not exist.
func NewFileArchive(dir string, log *slog.Logger) (*FileArchive, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	return &FileArchive{dir: dir, log: log}, nil
}

func (a *FileArchive) Deliver(ctx context.Context, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	// Written under a temporary name so readers never see a partial file.
	// Linking into place fails if the sequence number is already taken.
	filePath := a.path(env.Seq)
	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	defer os.Remove(tmp)

	if err := os.Link(tmp, filePath); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrAlreadyArchived, filePath)
		}
		return fmt.Errorf("failed to link file: %w", err)
	}

	a.log.Debug("Archived event to file",
		slog.String("path", filePath),
		slog.Int("size", len(data)))
	return nil
}

func (a *FileArchive) Fetch(ctx context.Context, seq uint64) (Envelope, error) {
	filePath := a.path(seq)
	data, err := os.ReadFile(filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return Envelope{}, fmt.Errorf("%w: %s", ErrNotArchived, filePath)
	}
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to read file: %w", err)
	}

	var raw RawEnvelope
	if err := json.Unmarshal(data, &raw); err != nil {
		return Envelope{}, fmt.Errorf("decode %s: %w", filePath, err)
	}
	return raw.Decode()
}

// Available checks that the archive directory exists.
func (a *FileArchive) Available(ctx context.Context) bool {
	_, err := os.Stat(a.dir)
	if err != nil {
		a.log.Debug("File archive unavailable", "err", err)
		return false
	}
	return true
}

// LastArchivedSeq scans the directory for the highest archived sequence number.
func (a *FileArchive) LastArchivedSeq(ctx context.Context) (uint64, error) {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to list archive directory: %w", err)
	}

	var last uint64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if seq, ok := seqFromName(entry.Name()); ok {
			last = max(last, seq)
		}
	}
	return last, nil
}

func (a *FileArchive) Name() string {
	return fmt.Sprintf("file-%s", filepath.Base(a.dir))
}

func (a *FileArchive) path(seq uint64) string {
	return filepath.Join(a.dir, fmt.Sprintf("%020d.json", seq))
}
