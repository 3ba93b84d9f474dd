package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"fowl-traceability/internal/domain/transfers"
)

type verificationsRepo struct {
	mu   sync.Mutex
	byID map[string]transfers.Verification
}

func NewVerificationsRepo() transfers.VerificationsRepository {
	return &verificationsRepo{
		byID: make(map[string]transfers.Verification),
	}
}

// Upsert aplica latest-wins por (transfer_id, verifier_id): si ese
// verificador ya confirmó, se actualiza su registro conservando el id.
func (r *verificationsRepo) Upsert(ctx context.Context, v transfers.Verification) (transfers.Verification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(v.ID) == "" {
		return transfers.Verification{}, errors.New("verification id required")
	}

	for id, existing := range r.byID {
		if existing.TransferID == v.TransferID && existing.VerifierID == v.VerifierID {
			v.ID = id
			r.byID[id] = v
			return v, nil
		}
	}

	r.byID[v.ID] = v
	return v, nil
}

func (r *verificationsRepo) ListByTransfer(ctx context.Context, transferID string) ([]transfers.Verification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]transfers.Verification, 0)
	for _, v := range r.byID {
		if v.TransferID == transferID {
			out = append(out, v)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].VerifiedAt.Before(out[j].VerifiedAt)
	})
	return out, nil
}
