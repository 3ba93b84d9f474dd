package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"fowl-traceability/internal/domain/fowls"
)

type fowlsRepo struct {
	mu   sync.RWMutex
	byID map[string]fowls.Fowl
}

func NewFowlsRepo() fowls.Repository {
	return &fowlsRepo{
		byID: make(map[string]fowls.Fowl),
	}
}

func (r *fowlsRepo) Create(ctx context.Context, f fowls.Fowl) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(f.ID) == "" {
		return errors.New("fowl id required")
	}
	if _, exists := r.byID[f.ID]; exists {
		return errors.New("fowl already exists")
	}
	r.byID[f.ID] = f
	return nil
}

func (r *fowlsRepo) GetByID(ctx context.Context, id string) (fowls.Fowl, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.byID[id]
	if !ok {
		return fowls.Fowl{}, fowls.ErrNotFound
	}
	return f, nil
}

func (r *fowlsRepo) ListByOwner(ctx context.Context, ownerUserID string) ([]fowls.Fowl, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]fowls.Fowl, 0)
	for _, f := range r.byID {
		if f.OwnerUserID == ownerUserID {
			out = append(out, f)
		}
	}

	// Orden estable por created_at asc (solo para consistencia en dev)
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *fowlsRepo) Update(ctx context.Context, f fowls.Fowl) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[f.ID]; !exists {
		return fowls.ErrNotFound
	}
	r.byID[f.ID] = f
	return nil
}

func (r *fowlsRepo) ListByParent(ctx context.Context, parentID string) ([]fowls.Fowl, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]fowls.Fowl, 0)
	for _, f := range r.byID {
		if f.ParentMaleID == parentID || f.ParentFemaleID == parentID {
			out = append(out, f)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *fowlsRepo) TransferOwnership(ctx context.Context, fowlID, newOwnerID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.byID[fowlID]
	if !ok {
		return fowls.ErrNotFound
	}
	f.OwnerUserID = newOwnerID
	f.UpdatedAt = at
	r.byID[fowlID] = f
	return nil
}
