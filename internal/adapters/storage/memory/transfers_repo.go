package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"fowl-traceability/internal/domain/transfers"
)

type transfersRepo struct {
	mu   sync.Mutex
	byID map[string]transfers.Transfer
}

func NewTransfersRepo() transfers.Repository {
	return &transfersRepo{
		byID: make(map[string]transfers.Transfer),
	}
}

// Create chequea bajo el lock el invariante "a lo sumo una transferencia
// no-terminal por fowl" antes de insertar.
func (r *transfersRepo) Create(ctx context.Context, t transfers.Transfer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(t.ID) == "" {
		return errors.New("transfer id required")
	}
	if _, exists := r.byID[t.ID]; exists {
		return errors.New("transfer already exists")
	}

	for _, existing := range r.byID {
		if existing.FowlID == t.FowlID && !existing.Status.Terminal() {
			return transfers.ErrActiveTransferExists
		}
	}

	r.byID[t.ID] = t
	return nil
}

func (r *transfersRepo) GetByID(ctx context.Context, id string) (transfers.Transfer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.byID[id]
	if !ok {
		return transfers.Transfer{}, transfers.ErrNotFound
	}
	return t, nil
}

func (r *transfersRepo) ListByUser(ctx context.Context, userID string) ([]transfers.Transfer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]transfers.Transfer, 0)
	for _, t := range r.byID {
		if t.FromUserID == userID || t.ToUserID == userID {
			out = append(out, t)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// UpdateStatusIf aplica el compare-and-swap bajo el lock: el predicado y
// el write son una sola sección crítica, igual que el update condicional
// de un solo statement en postgres.
func (r *transfersRepo) UpdateStatusIf(ctx context.Context, id string, from []transfers.Status, to transfers.Status, at time.Time) (transfers.Transfer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.byID[id]
	if !ok {
		return transfers.Transfer{}, transfers.ErrNotFound
	}

	matched := false
	for _, st := range from {
		if t.Status == st {
			matched = true
			break
		}
	}
	if !matched {
		return transfers.Transfer{}, transfers.ErrStateConflict
	}

	t.Status = to
	t.UpdatedAt = at
	switch to {
	case transfers.StatusCompleted:
		t.CompletedAt = &at
	case transfers.StatusCancelled:
		t.CancelledAt = &at
	}

	r.byID[id] = t
	return t, nil
}
