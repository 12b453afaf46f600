package storage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/ruteri/reputation-registry/interfaces"
)

type memoryEntry struct {
	key  interfaces.RecordKey
	data []byte
}

// MemoryStore keeps records in process memory. Batches are applied under a
// single lock, so a commit is never partially visible.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[interfaces.Slot]memoryEntry
	log     *slog.Logger
}

// NewMemoryStore creates an empty in-memory record store.
func NewMemoryStore(log *slog.Logger) *MemoryStore {
	if log == nil {
		log = slog.Default()
	}
	return &MemoryStore{
		records: make(map[interfaces.Slot]memoryEntry),
		log:     log,
	}
}

// Load returns a copy of the record at key.
func (m *MemoryStore) Load(ctx context.Context, key interfaces.RecordKey) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.records[key.Slot()]
	if !ok {
		return nil, interfaces.ErrRecordNotFound
	}
	return bytes.Clone(entry.data), nil
}

// List returns all records of a namespace ordered by slot.
func (m *MemoryStore) List(ctx context.Context, namespace interfaces.Namespace) ([]interfaces.StoredRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	slots := make([]interfaces.Slot, 0)
	for slot, entry := range m.records {
		if entry.key.Namespace == namespace {
			slots = append(slots, slot)
		}
	}
	sort.Slice(slots, func(i, j int) bool {
		return bytes.Compare(slots[i][:], slots[j][:]) < 0
	})

	result := make([]interfaces.StoredRecord, 0, len(slots))
	for _, slot := range slots {
		entry := m.records[slot]
		result = append(result, interfaces.StoredRecord{
			Key:  cloneKey(entry.key),
			Data: bytes.Clone(entry.data),
		})
	}
	return result, nil
}

// Commit validates every CreateOnly write before applying any of them.
func (m *MemoryStore) Commit(ctx context.Context, writes []interfaces.RecordWrite) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	pending := make(map[interfaces.Slot]bool, len(writes))
	for _, w := range writes {
		slot := w.Key.Slot()
		if w.Mode == interfaces.CreateOnly {
			if _, exists := m.records[slot]; exists || pending[slot] {
				return fmt.Errorf("%w: %s", interfaces.ErrSlotOccupied, w.Key)
			}
		}
		pending[slot] = true
	}

	for _, w := range writes {
		m.records[w.Key.Slot()] = memoryEntry{
			key:  cloneKey(w.Key),
			data: bytes.Clone(w.Data),
		}
	}

	m.log.Debug("Committed records to memory", slog.Int("writes", len(writes)))
	return nil
}

// Name returns a unique identifier for this store.
func (m *MemoryStore) Name() string {
	return "memory"
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}

func cloneKey(k interfaces.RecordKey) interfaces.RecordKey {
	return interfaces.RecordKey{Namespace: k.Namespace, Key: bytes.Clone(k.Key)}
}
