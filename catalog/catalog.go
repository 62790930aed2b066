// Package catalog records one entry per transcription run.
package catalog

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jsphweid/drumdex/model"
)

var ErrNotFound = errors.New("run not found")

type Record struct {
	PK        string
	Input     string
	Output    string
	BPM       float64
	Onsets    int
	Emitted   int
	Skipped   int
	CreatedAt time.Time
}

func NewRecord(input, output string, report model.Report) Record {
	return Record{
		PK:        uuid.NewString(),
		Input:     input,
		Output:    output,
		BPM:       report.BPM,
		Onsets:    report.Onsets,
		Emitted:   report.Emitted,
		Skipped:   report.Skipped,
		CreatedAt: time.Now().UTC(),
	}
}

type Store interface {
	Put(ctx context.Context, r Record) error
	// Get returns the records found among ids, keyed by id.
	Get(ctx context.Context, ids []string) (map[string]Record, error)
}

// NopStore drops everything.
type NopStore struct{}

func (NopStore) Put(ctx context.Context, r Record) error {
	return nil
}

func (NopStore) Get(ctx context.Context, ids []string) (map[string]Record, error) {
	return map[string]Record{}, nil
}

// MemoryStore keeps records for the life of the process.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string]Record{}}
}

func (m *MemoryStore) Put(ctx context.Context, r Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[r.PK] = r
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, ids []string) (map[string]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := map[string]Record{}
	for _, id := range ids {
		if r, ok := m.records[id]; ok {
			res[id] = r
		}
	}
	return res, nil
}

// All returns every record, oldest first.
func (m *MemoryStore) All() []Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]Record, 0, len(m.records))
	for _, r := range m.records {
		res = append(res, r)
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].CreatedAt.Before(res[j].CreatedAt)
	})
	return res
}

// Lookup fetches a single record.
func Lookup(ctx context.Context, s Store, id string) (Record, error) {
	found, err := s.Get(ctx, []string{id})
	if err != nil {
		return Record{}, err
	}
	r, ok := found[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return r, nil
}
