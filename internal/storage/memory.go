package storage

import (
	"context"
	"sort"
	"sync"

	"tttevo/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	records     map[string]model.ParameterRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.records = make(map[string]model.ParameterRecord)
	return nil
}

func (s *MemoryStore) SaveParameters(_ context.Context, record model.ParameterRecord) error {
	if err := validateRecord(record); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	s.records[record.ID] = record.Clone()
	return nil
}

func (s *MemoryStore) GetParameters(_ context.Context, id string) (model.ParameterRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return model.ParameterRecord{}, false, ErrNotInitialized
	}
	record, ok := s.records[id]
	if !ok {
		return model.ParameterRecord{}, false, nil
	}
	return record.Clone(), true, nil
}

func (s *MemoryStore) ListParameters(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, ErrNotInitialized
	}
	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *MemoryStore) DeleteParameters(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	delete(s.records, id)
	return nil
}
