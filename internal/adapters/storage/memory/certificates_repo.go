package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"fowl-traceability/internal/domain/certificates"
)

type certificatesRepo struct {
	mu   sync.Mutex
	byID map[string]certificates.Certificate
}

func NewCertificatesRepo() certificates.Repository {
	return &certificatesRepo{
		byID: make(map[string]certificates.Certificate),
	}
}

// Create es idempotente por transfer_id: el chequeo y el insert corren
// bajo el mismo lock, nunca quedan dos certificados para la misma
// transferencia.
func (r *certificatesRepo) Create(ctx context.Context, c certificates.Certificate) (certificates.Certificate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(c.ID) == "" {
		return certificates.Certificate{}, errors.New("certificate id required")
	}

	if c.TransferID != "" {
		for _, existing := range r.byID {
			if existing.TransferID == c.TransferID {
				return existing, nil
			}
		}
	}

	r.byID[c.ID] = c
	return c, nil
}

func (r *certificatesRepo) GetByID(ctx context.Context, id string) (certificates.Certificate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byID[id]
	if !ok {
		return certificates.Certificate{}, certificates.ErrNotFound
	}
	return c, nil
}

func (r *certificatesRepo) GetByTransfer(ctx context.Context, transferID string) (certificates.Certificate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.byID {
		if c.TransferID != "" && c.TransferID == transferID {
			return c, nil
		}
	}
	return certificates.Certificate{}, certificates.ErrNotFound
}

func (r *certificatesRepo) ListByFowl(ctx context.Context, fowlID string) ([]certificates.Certificate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]certificates.Certificate, 0)
	for _, c := range r.byID {
		if c.FowlID == fowlID {
			out = append(out, c)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].IssueDate.Before(out[j].IssueDate)
	})
	return out, nil
}

func (r *certificatesRepo) SetValidity(ctx context.Context, id string, valid bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byID[id]
	if !ok {
		return certificates.ErrNotFound
	}
	c.Valid = valid
	r.byID[id] = c
	return nil
}
