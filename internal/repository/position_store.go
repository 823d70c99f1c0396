package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"golang-autotrade/internal/contract"
	"golang-autotrade/internal/model"
	"os"
	"path/filepath"
	"sync"
)

type filePositionStore struct {
	path string
	mu   sync.Mutex
}

// NewFilePositionStore keeps the position map in a single JSON file that is
// rewritten atomically on every Save.
func NewFilePositionStore(path string) contract.PositionStore {
	return &filePositionStore{path: path}
}

func (s *filePositionStore) Load(_ context.Context) (map[string]*model.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	positions := make(map[string]*model.Position)
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return positions, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read position file %s: %w", s.path, err)
	}
	if len(data) == 0 {
		return positions, nil
	}
	if err := json.Unmarshal(data, &positions); err != nil {
		return nil, fmt.Errorf("failed to decode position file %s: %w", s.path, err)
	}
	for symbol, p := range positions {
		if p == nil {
			delete(positions, symbol)
			continue
		}
		p.Symbol = symbol
	}
	return positions, nil
}

func (s *filePositionStore) Save(_ context.Context, positions map[string]*model.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if positions == nil {
		positions = map[string]*model.Position{}
	}
	data, err := json.MarshalIndent(positions, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode positions: %w", err)
	}
	return writeFileAtomic(s.path, data, 0o644)
}

// Sync fsyncs the parent directory so the last rename is durable.
func (s *filePositionStore) Sync(_ context.Context) error {
	dir, err := os.Open(filepath.Dir(s.path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	defer dir.Close()
	if err := dir.Sync(); err != nil {
		return fmt.Errorf("failed to sync %s: %w", filepath.Dir(s.path), err)
	}
	return nil
}

func (s *filePositionStore) Close() error {
	return nil
}
