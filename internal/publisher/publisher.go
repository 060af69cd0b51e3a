package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Publisher writes the document to every configured path.
type Publisher struct {
	Paths  []string
	Logger zerolog.Logger
}

// New creates a Publisher for the given output paths.
func New(paths []string, logger zerolog.Logger) *Publisher {
	return &Publisher{Paths: paths, Logger: logger}
}

// Publish stages doc next to every path before renaming any of them, so a
// failed write leaves all previous snapshots in place.
func (p *Publisher) Publish(ctx context.Context, doc Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	staged := make([]string, 0, len(p.Paths))
	defer func() {
		for _, tmp := range staged {
			os.Remove(tmp)
		}
	}()
	for _, path := range p.Paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		tmp, err := stage(path, data)
		if err != nil {
			return fmt.Errorf("publish %s: %w", path, err)
		}
		staged = append(staged, tmp)
	}

	for i, path := range p.Paths {
		if err := os.Rename(staged[i], path); err != nil {
			return fmt.Errorf("publish %s: %w", path, err)
		}
		p.Logger.Debug().Str("path", path).Int("bytes", len(data)).Msg("snapshot written")
	}
	return nil
}

// Load reads a previously published document.
func Load(path string) (Document, error) {
	var doc Document
	data, err := os.ReadFile(path)
	if err != nil {
		return doc, err
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	return doc, nil
}

// stage writes data to a temp file in path's directory and returns its name.
func stage(path string, data []byte) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(dir, ".snapshot-*.json")
	if err != nil {
		return "", err
	}
	name := tmp.Name()
	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if err := errors.Join(werr, cerr, os.Chmod(name, 0o644)); err != nil {
		os.Remove(name)
		return "", err
	}
	return name, nil
}
