package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"fowl-traceability/internal/domain/disputes"
)

type disputesRepo struct {
	mu   sync.RWMutex
	byID map[string]disputes.Dispute
}

func NewDisputesRepo() disputes.Repository {
	return &disputesRepo{
		byID: make(map[string]disputes.Dispute),
	}
}

func (r *disputesRepo) Create(ctx context.Context, d disputes.Dispute) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(d.ID) == "" {
		return errors.New("dispute id required")
	}
	if _, exists := r.byID[d.ID]; exists {
		return errors.New("dispute already exists")
	}
	r.byID[d.ID] = d
	return nil
}

func (r *disputesRepo) GetByID(ctx context.Context, id string) (disputes.Dispute, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.byID[id]
	if !ok {
		return disputes.Dispute{}, disputes.ErrNotFound
	}
	return d, nil
}

func (r *disputesRepo) Update(ctx context.Context, d disputes.Dispute) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[d.ID]; !exists {
		return disputes.ErrNotFound
	}
	r.byID[d.ID] = d
	return nil
}

func (r *disputesRepo) ListByTransfer(ctx context.Context, transferID string) ([]disputes.Dispute, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]disputes.Dispute, 0)
	for _, d := range r.byID {
		if d.TransferID == transferID {
			out = append(out, d)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
