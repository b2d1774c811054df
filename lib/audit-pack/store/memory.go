package auditpackstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"timeledger-backend/models"
	dbmodels "timeledger-backend/models/db"
)

// MemoryStore - реализация Provider в памяти, повторяет ограничение уникальности активной области
type MemoryStore struct {
	mu   sync.Mutex
	recs map[string]dbmodels.AuditPackRequest
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		recs: map[string]dbmodels.AuditPackRequest{},
		now:  time.Now,
	}
}

func (m *MemoryStore) Create(_ context.Context, rec dbmodels.AuditPackRequest) (id string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.Status.IsActive() {
		for _, existing := range m.recs {
			if existing.OrganizationID == rec.OrganizationID && existing.ScopeHash == rec.ScopeHash && existing.Status.IsActive() {
				return "", ErrActiveScopeExists
			}
		}
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	now := m.now()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	m.recs[rec.ID] = rec
	return rec.ID, nil
}

func (m *MemoryStore) GetByID(_ context.Context, id string) (*dbmodels.AuditPackRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[id]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *MemoryStore) FindActiveByScope(_ context.Context, organizationID, scopeHash string) (*dbmodels.AuditPackRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.sorted() {
		if rec.OrganizationID == organizationID && rec.ScopeHash == scopeHash && rec.Status.IsActive() {
			return &rec, nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) Transition(_ context.Context, id string, from models.AuditPackStatus, mutate func(rec *dbmodels.AuditPackRequest)) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[id]
	if !ok || rec.Status != from {
		return false, nil
	}
	mutate(&rec)
	rec.UpdatedAt = m.now()
	m.recs[id] = rec
	return true, nil
}

func (m *MemoryStore) ListByStatus(_ context.Context, status models.AuditPackStatus, limit int) ([]dbmodels.AuditPackRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filter(limit, func(rec dbmodels.AuditPackRequest) bool {
		return rec.Status == status
	}), nil
}

func (m *MemoryStore) ListRetryable(_ context.Context, maxAttempts, limit int) ([]dbmodels.AuditPackRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filter(limit, func(rec dbmodels.AuditPackRequest) bool {
		return rec.Status == models.AuditPackStatusFailed && rec.Retryable && rec.Attempt < maxAttempts
	}), nil
}

func (m *MemoryStore) ListStale(_ context.Context, startedBefore time.Time, limit int) ([]dbmodels.AuditPackRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filter(limit, func(rec dbmodels.AuditPackRequest) bool {
		return rec.Status == models.AuditPackStatusProcessing && rec.StartedAt != nil && rec.StartedAt.Before(startedBefore)
	}), nil
}

// Count - количество запросов в статусе
func (m *MemoryStore) Count(status models.AuditPackStatus) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.filter(0, func(rec dbmodels.AuditPackRequest) bool {
		return rec.Status == status
	}))
}

func (m *MemoryStore) Total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.recs)
}

func (m *MemoryStore) filter(limit int, match func(rec dbmodels.AuditPackRequest) bool) []dbmodels.AuditPackRequest {
	list := []dbmodels.AuditPackRequest{}
	for _, rec := range m.sorted() {
		if !match(rec) {
			continue
		}
		list = append(list, rec)
		if limit > 0 && len(list) == limit {
			break
		}
	}
	return list
}

func (m *MemoryStore) sorted() []dbmodels.AuditPackRequest {
	list := make([]dbmodels.AuditPackRequest, 0, len(m.recs))
	for _, rec := range m.recs {
		list = append(list, rec)
	}
	sort.Slice(list, func(a, b int) bool {
		if !list[a].CreatedAt.Equal(list[b].CreatedAt) {
			return list[a].CreatedAt.Before(list[b].CreatedAt)
		}
		return list[a].ID < list[b].ID
	})
	return list
}
