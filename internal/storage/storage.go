// Package storage reads and writes the small JSON files the dashboard keeps
// next to the binary: benchmark fallback snapshots, order date corrections
// and externally reconstructed trades. Nothing fetched at runtime is
// persisted here; the files are supplied by an operator.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"alpha_dashboard/internal/config"
	"alpha_dashboard/internal/models"
)

// ErrNotFound means the optional file does not exist.
var ErrNotFound = errors.New("data file not found")

type Store struct {
	dir             string
	snapshotPattern string
	dateMappings    string
	injectedTrades  string
}

func New(cfg config.DataConfig) *Store {
	pattern := cfg.SnapshotPattern
	if pattern == "" {
		pattern = "%s_fallback.json"
	}
	return &Store{
		dir:             cfg.Dir,
		snapshotPattern: pattern,
		dateMappings:    cfg.DateMappings,
		injectedTrades:  cfg.InjectedTrades,
	}
}

// snapshotFile is the on-disk shape of a benchmark snapshot.
type snapshotFile struct {
	Bars []models.Bar `json:"bars"`
}

func (s *Store) snapshotPath(symbol string) string {
	return filepath.Join(s.dir, fmt.Sprintf(s.snapshotPattern, strings.ToLower(symbol)))
}

// LoadSnapshot reads the fallback bars for symbol.
func (s *Store) LoadSnapshot(symbol string) ([]models.Bar, error) {
	var f snapshotFile
	if err := s.readJSON(s.snapshotPath(symbol), &f); err != nil {
		return nil, err
	}
	return f.Bars, nil
}

// SaveSnapshot writes the fallback bars for symbol atomically.
func (s *Store) SaveSnapshot(symbol string, bars []models.Bar) error {
	return writeAtomic(s.snapshotPath(symbol), snapshotFile{Bars: bars})
}

func (s *Store) readJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// writeAtomic writes to a temporary file, syncs it and renames it over the
// destination so readers never see a half-written file.
func writeAtomic(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	tmpFile := path + ".tmp"
	f, err := os.Create(tmpFile)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(b); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	// close before rename, required on Windows
	f.Close()

	if err := os.Rename(tmpFile, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
