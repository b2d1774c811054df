package ledgerstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"timeledger-backend/models"
	dbmodels "timeledger-backend/models/db"
)

// MemoryStore - реализация Provider в памяти с той же семантикой compare-and-swap хвоста
type MemoryStore struct {
	mu      sync.RWMutex
	tails   map[string]dbmodels.ChainTail
	entries map[string][]dbmodels.LedgerEntry
	byID    map[string]dbmodels.LedgerEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tails:   map[string]dbmodels.ChainTail{},
		entries: map[string][]dbmodels.LedgerEntry{},
		byID:    map[string]dbmodels.LedgerEntry{},
	}
}

func (m *MemoryStore) GetTail(_ context.Context, employeeID string) (*dbmodels.ChainTail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tail, ok := m.tails[employeeID]
	if !ok {
		return nil, nil
	}
	return &tail, nil
}

func (m *MemoryStore) Append(ctx context.Context, rec dbmodels.LedgerEntry, expected *dbmodels.ChainTail) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.tails[rec.EmployeeID]
	if expected == nil && ok {
		return ErrTailMismatch
	}
	if expected != nil && (!ok || current.TailHash != expected.TailHash) {
		return ErrTailMismatch
	}
	m.tails[rec.EmployeeID] = dbmodels.ChainTail{
		EmployeeID:    rec.EmployeeID,
		TailHash:      rec.IntegrityHash,
		TailEntryID:   rec.ID,
		TailCreatedAt: rec.CreatedAt,
		Length:        rec.Sequence,
	}
	m.entries[rec.EmployeeID] = append(m.entries[rec.EmployeeID], rec)
	m.byID[rec.ID] = rec
	return nil
}

func (m *MemoryStore) GetByID(_ context.Context, id string) (*dbmodels.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *MemoryStore) ListByIDs(_ context.Context, ids []string) ([]dbmodels.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := []dbmodels.LedgerEntry{}
	for _, id := range ids {
		if rec, ok := m.byID[id]; ok {
			list = append(list, rec)
		}
	}
	sort.SliceStable(list, func(a, b int) bool {
		if list[a].EmployeeID != list[b].EmployeeID {
			return list[a].EmployeeID < list[b].EmployeeID
		}
		return list[a].Sequence < list[b].Sequence
	})
	return list, nil
}

func (m *MemoryStore) Snapshot(_ context.Context, employeeID string, from, to time.Time) (dbmodels.ChainSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := dbmodels.ChainSnapshot{EmployeeID: employeeID, Entries: []dbmodels.LedgerEntry{}}
	for _, rec := range m.entries[employeeID] {
		if !from.IsZero() && rec.CreatedAt.Before(from) {
			anchor := rec
			result.Anchor = &anchor
			continue
		}
		if !to.IsZero() && !rec.CreatedAt.Before(to) {
			continue
		}
		result.Entries = append(result.Entries, rec)
	}
	return result, nil
}

func (m *MemoryStore) ListPlacedIn(_ context.Context, employeeID string, from, to time.Time) ([]dbmodels.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rng := models.Range{From: from, To: to}
	list := []dbmodels.LedgerEntry{}
	for _, rec := range m.entries[employeeID] {
		if rng.Contains(rec.PlacedAt()) {
			list = append(list, rec)
		}
	}
	return list, nil
}

// Mutate изменяет сохранённую запись в обход журнала; используется для моделирования подделки
func (m *MemoryStore) Mutate(id string, mutate func(rec *dbmodels.LedgerEntry)) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.byID[id]
	if !ok {
		return false
	}
	mutate(&rec)
	m.byID[id] = rec
	list := m.entries[rec.EmployeeID]
	for idx := range list {
		if list[idx].ID == id {
			list[idx] = rec
		}
	}
	return true
}
