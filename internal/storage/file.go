package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"tttevo/internal/model"
)

const recordExt = ".json"

// FileStore keeps one JSON record per id inside a directory.
type FileStore struct {
	dir string

	mu          sync.RWMutex
	initialized bool
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dir == "" {
		return errors.New("file store directory is required")
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create record directory: %w", err)
	}
	s.initialized = true
	return nil
}

func (s *FileStore) SaveParameters(_ context.Context, record model.ParameterRecord) error {
	path, err := s.recordPath(record.ID)
	if err != nil {
		return err
	}
	payload, err := EncodeParameters(record)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	// Write then rename so a reader never sees a half-written record.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return fmt.Errorf("write record %s: %w", record.ID, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("commit record %s: %w", record.ID, err)
	}
	return nil
}

func (s *FileStore) GetParameters(_ context.Context, id string) (model.ParameterRecord, bool, error) {
	path, err := s.recordPath(id)
	if err != nil {
		return model.ParameterRecord{}, false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return model.ParameterRecord{}, false, ErrNotInitialized
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return model.ParameterRecord{}, false, nil
		}
		return model.ParameterRecord{}, false, err
	}
	record, err := DecodeParameters(data)
	if err != nil {
		return model.ParameterRecord{}, false, fmt.Errorf("decode parameters %s: %w", id, err)
	}
	return record, true, nil
}

func (s *FileStore) ListParameters(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, ErrNotInitialized
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read record directory: %w", err)
	}
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), recordExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(entry.Name(), recordExt))
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *FileStore) DeleteParameters(_ context.Context, id string) error {
	path, err := s.recordPath(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *FileStore) recordPath(id string) (string, error) {
	if id == "" || id != filepath.Base(id) || strings.HasPrefix(id, ".") {
		return "", fmt.Errorf("%w: invalid record id %q", ErrMalformedRecord, id)
	}
	return filepath.Join(s.dir, id+recordExt), nil
}
