package board

import (
	"fmt"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"
)

// Load reads a board file. A missing file yields Default().
func Load(path string) (Board, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return Board{}, fmt.Errorf("reading board %s: %w", path, err)
	}
	var b Board
	if err := json.Unmarshal(data, &b); err != nil {
		return Board{}, fmt.Errorf("decoding board %s: %w", path, err)
	}
	if b.Cards == nil {
		b.Cards = map[string]Card{}
	}
	if b.Columns == nil {
		b.Columns = map[string]Column{}
	}
	if err := b.Validate(); err != nil {
		return Board{}, fmt.Errorf("board %s: %w", path, err)
	}
	return b, nil
}

// Save writes b to path atomically.
func Save(path string, b Board) error {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding board: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".board-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing board: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing board: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing board: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming board: %w", err)
	}
	return nil
}
