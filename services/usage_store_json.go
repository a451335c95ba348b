package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// JSONFileStore keeps usage in a single JSON document, overwritten on every save.
type JSONFileStore struct {
	Path string
	log  *logrus.Logger
}

func NewJSONFileStore(path string, log *logrus.Logger) *JSONFileStore {
	return &JSONFileStore{Path: path, log: log}
}

// Load never fails: a missing or unreadable file is an empty mapping.
func (s *JSONFileStore) Load(ctx context.Context) (map[string]float64, error) {
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.log.WithError(err).WithField("path", s.Path).Warn("Usage file unreadable, treating as empty")
		}
		return map[string]float64{}, nil
	}

	usage := map[string]float64{}
	if err := json.Unmarshal(raw, &usage); err != nil {
		s.log.WithError(err).WithField("path", s.Path).Warn("Usage file corrupt, treating as empty")
		return map[string]float64{}, nil
	}
	if usage == nil {
		usage = map[string]float64{}
	}
	return usage, nil
}

// Save replaces the file contents. The temp file + rename keeps a crash from leaving half a document.
func (s *JSONFileStore) Save(ctx context.Context, usage map[string]float64) error {
	raw, err := json.Marshal(usage)
	if err != nil {
		return fmt.Errorf("failed to encode usage: %w", err)
	}

	dir := filepath.Dir(s.Path)
	tmp, err := os.CreateTemp(dir, ".usage-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp usage file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write usage file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close usage file: %w", err)
	}
	if err := os.Rename(tmpName, s.Path); err != nil {
		return fmt.Errorf("failed to replace usage file: %w", err)
	}
	return nil
}
