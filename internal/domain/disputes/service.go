package disputes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"fowl-traceability/internal/domain/transfers"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrBadState         = errors.New("invalid state")
	ErrStoreUnavailable = errors.New("store unavailable")
)

type Service struct {
	repo      Repository
	transfers *transfers.Service
	now       func() time.Time
}

func NewService(repo Repository, transfersSvc *transfers.Service) *Service {
	return &Service{
		repo:      repo,
		transfers: transfersSvc,
		now:       time.Now,
	}
}

// Create registra una disputa de una de las partes. Si la transferencia
// es no-terminal, además la marca disputed (sobre una completed el
// status no se toca: la disputa queda registrada aparte).
func (s *Service) Create(ctx context.Context, transferID, raisedBy, reason string) (Dispute, error) {
	transferID = strings.TrimSpace(transferID)
	raisedBy = strings.TrimSpace(raisedBy)
	reason = strings.TrimSpace(reason)

	if transferID == "" || raisedBy == "" || reason == "" {
		return Dispute{}, ErrInvalidInput
	}

	t, err := s.transfers.Get(ctx, transferID)
	if err != nil {
		if errors.Is(err, transfers.ErrNotFound) {
			return Dispute{}, ErrNotFound
		}
		return Dispute{}, storeErr(err)
	}
	if !t.IsParty(raisedBy) {
		return Dispute{}, ErrForbidden
	}

	now := s.now()
	d := Dispute{
		ID:         uuid.NewString(),
		TransferID: transferID,
		RaisedBy:   raisedBy,
		Reason:     reason,
		Status:     StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.repo.Create(ctx, d); err != nil {
		return Dispute{}, storeErr(err)
	}

	if _, err := s.transfers.MarkDisputed(ctx, transferID); err != nil {
		// la disputa ya quedó registrada; el marcado de estado es
		// reintentable y no invalida el registro
		return d, storeErr(err)
	}
	return d, nil
}

// UpdateStatus avanza la disputa: pending -> reviewed -> resolved.
// Re-aplicar el mismo estado es idempotente. Resolver la última disputa
// abierta destraba la transferencia (vuelve a su estado de verificación
// y puede completar si ambas partes ya habían verificado); nunca
// revierte un completado previo ni el dueño del fowl.
func (s *Service) UpdateStatus(ctx context.Context, disputeID string, status Status, resolutionNote string) (Dispute, error) {
	disputeID = strings.TrimSpace(disputeID)
	if disputeID == "" {
		return Dispute{}, ErrInvalidInput
	}
	switch status {
	case StatusPending, StatusReviewed, StatusResolved:
	default:
		return Dispute{}, ErrInvalidInput
	}

	d, err := s.repo.GetByID(ctx, disputeID)
	if err != nil {
		return Dispute{}, storeErr(err)
	}

	// Idempotente
	if d.Status == status {
		return d, nil
	}
	if !validTransition(d.Status, status) {
		return Dispute{}, ErrBadState
	}

	now := s.now()
	d.Status = status
	d.UpdatedAt = now
	if note := strings.TrimSpace(resolutionNote); note != "" {
		d.ResolutionNote = note
	}
	if status == StatusResolved {
		d.ResolvedAt = &now
	}

	if err := s.repo.Update(ctx, d); err != nil {
		return Dispute{}, storeErr(err)
	}

	if status == StatusResolved {
		if err := s.releaseIfNoneOpen(ctx, d.TransferID); err != nil {
			// la disputa quedó resuelta; el destrabe es reintentable
			return d, storeErr(err)
		}
	}
	return d, nil
}

// releaseIfNoneOpen destraba la transferencia solo cuando ya no queda
// ninguna disputa sin resolver sobre ella.
func (s *Service) releaseIfNoneOpen(ctx context.Context, transferID string) error {
	all, err := s.repo.ListByTransfer(ctx, transferID)
	if err != nil {
		return err
	}
	for _, other := range all {
		if other.Status != StatusResolved {
			return nil
		}
	}
	_, err = s.transfers.ReleaseDispute(ctx, transferID)
	return err
}

func (s *Service) ListByTransfer(ctx context.Context, transferID string) ([]Dispute, error) {
	transferID = strings.TrimSpace(transferID)
	if transferID == "" {
		return nil, ErrInvalidInput
	}
	out, err := s.repo.ListByTransfer(ctx, transferID)
	if err != nil {
		return nil, storeErr(err)
	}
	return out, nil
}

func validTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusReviewed || to == StatusResolved
	case StatusReviewed:
		return to == StatusResolved
	default:
		// resolved es terminal
		return false
	}
}

func storeErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}
