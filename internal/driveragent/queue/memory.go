package queue

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

var _ Backend = (*MemoryBackend)(nil)

// MemoryBackend keeps records in process memory. Nothing survives a restart;
// the agent only uses it when the durable store cannot be opened.
type MemoryBackend struct {
	mu     sync.Mutex
	seq    int64
	tables map[string]map[string]memRecord
	closed bool
}

type memRecord struct {
	rec Record
	seq int64
}

func NewMemoryBackend() *MemoryBackend {
	m := &MemoryBackend{tables: map[string]map[string]memRecord{}}
	for t := range tables {
		m.tables[t] = map[string]memRecord{}
	}
	return m
}

func (m *MemoryBackend) table(name string) (map[string]memRecord, error) {
	if m.closed {
		return nil, ErrClosed
	}
	t, ok := m.tables[name]
	if !ok {
		return nil, fmt.Errorf("unknown table %q", name)
	}
	return t, nil
}

func (m *MemoryBackend) Put(_ context.Context, table string, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.table(table)
	if err != nil {
		return err
	}
	seq := m.seq
	if old, ok := t[rec.ID]; ok {
		seq = old.seq
	} else {
		m.seq++
	}
	t[rec.ID] = memRecord{rec: cloneRecord(rec), seq: seq}
	return nil
}

func (m *MemoryBackend) GetAll(_ context.Context, table string) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.table(table)
	if err != nil {
		return nil, err
	}
	rows := make([]memRecord, 0, len(t))
	for _, r := range t {
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].rec.CreatedAt.Equal(rows[j].rec.CreatedAt) {
			return rows[i].rec.CreatedAt.Before(rows[j].rec.CreatedAt)
		}
		return rows[i].seq < rows[j].seq
	})

	out := make([]Record, len(rows))
	for i, r := range rows {
		out[i] = cloneRecord(r.rec)
	}
	return out, nil
}

func (m *MemoryBackend) Delete(_ context.Context, table string, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.table(table)
	if err != nil {
		return err
	}
	delete(t, id)
	return nil
}

func (m *MemoryBackend) Count(_ context.Context, table string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.table(table)
	if err != nil {
		return 0, err
	}
	return len(t), nil
}

func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

func cloneRecord(r Record) Record {
	r.Meta = append([]byte(nil), r.Meta...)
	if r.Blob != nil {
		r.Blob = append([]byte(nil), r.Blob...)
	}
	return r
}
