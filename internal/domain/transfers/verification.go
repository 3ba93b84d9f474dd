package transfers

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

type VerificationInput struct {
	EvidenceRefs []string
	Notes        string
}

// SubmitVerification registra la confirmación de una de las partes y
// corre el chequeo de completado.
//
// Latest-wins: un segundo submit del mismo verificador actualiza su
// verificación existente (mismo id), no crea otra. Devuelve la
// verificación aplicada y la transferencia resultante (puede venir ya
// completed si este submit cerró el ciclo o perdió la carrera contra el
// submit concurrente de la otra parte).
func (s *Service) SubmitVerification(ctx context.Context, transferID, verifierID string, in VerificationInput) (Verification, Transfer, error) {
	verifierID = strings.TrimSpace(verifierID)
	if verifierID == "" {
		return Verification{}, Transfer{}, ErrInvalidInput
	}

	t, err := s.Get(ctx, transferID)
	if err != nil {
		return Verification{}, Transfer{}, err
	}
	if !t.IsParty(verifierID) {
		return Verification{}, Transfer{}, ErrUnauthorized
	}
	if t.Status.Terminal() {
		return Verification{}, Transfer{}, ErrInvalidState
	}

	v := Verification{
		ID:           uuid.NewString(),
		TransferID:   t.ID,
		VerifierID:   verifierID,
		EvidenceRefs: in.EvidenceRefs,
		Notes:        strings.TrimSpace(in.Notes),
		VerifiedAt:   s.now(),
	}
	v, err = s.verifs.Upsert(ctx, v)
	if err != nil {
		return Verification{}, Transfer{}, storeErr(err)
	}

	t, err = s.checkCompletion(ctx, t)
	if err != nil {
		return Verification{}, Transfer{}, err
	}
	return v, t, nil
}

func (s *Service) GetVerifications(ctx context.Context, transferID string) ([]Verification, error) {
	transferID = strings.TrimSpace(transferID)
	if transferID == "" {
		return nil, ErrInvalidInput
	}
	out, err := s.verifs.ListByTransfer(ctx, transferID)
	if err != nil {
		return nil, storeErr(err)
	}
	return out, nil
}

// checkCompletion re-lee el set de verificaciones (nunca confía en la
// vista local del caller) y decide la transición:
// - ambas partes verificaron y la transferencia no está disputed => complete
// - una sola parte => initiated avanza a partially_verified
func (s *Service) checkCompletion(ctx context.Context, t Transfer) (Transfer, error) {
	both, err := s.bothPartiesVerified(ctx, t)
	if err != nil {
		return Transfer{}, err
	}

	if both && (t.Status == StatusInitiated || t.Status == StatusPartiallyVerified) {
		return s.complete(ctx, t)
	}

	if t.Status == StatusInitiated {
		updated, err := s.repo.UpdateStatusIf(ctx, t.ID,
			[]Status{StatusInitiated}, StatusPartiallyVerified, s.now())
		if err != nil {
			if errors.Is(err, ErrStateConflict) {
				// el submit concurrente de la otra parte ya avanzó el estado
				return s.Get(ctx, t.ID)
			}
			return Transfer{}, storeErr(err)
		}
		return updated, nil
	}

	return s.Get(ctx, t.ID)
}

// complete cierra la transferencia: CAS de estado, mutación del dueño,
// emisión de certificado y hook externo.
//
// Dos submits concurrentes pueden observar "ambas partes verificaron" y
// llegar acá a la vez; el UpdateStatusIf garantiza un único ganador. El
// perdedor ve ErrStateConflict, relee y devuelve la transferencia ya
// completada sin repetir efectos.
func (s *Service) complete(ctx context.Context, t Transfer) (Transfer, error) {
	// Invariante de programa: complete solo corre con ambas partes
	// verificadas. Se re-lee el set en vez de confiar en el caller.
	both, err := s.bothPartiesVerified(ctx, t)
	if err != nil {
		return Transfer{}, err
	}
	if !both {
		return Transfer{}, ErrInvalidState
	}

	now := s.now()
	updated, err := s.repo.UpdateStatusIf(ctx, t.ID,
		[]Status{StatusInitiated, StatusPartiallyVerified},
		StatusCompleted, now)
	if err != nil {
		if errors.Is(err, ErrStateConflict) {
			cur, gerr := s.Get(ctx, t.ID)
			if gerr != nil {
				return Transfer{}, gerr
			}
			if cur.Status == StatusCompleted {
				// perdió la carrera: el otro submit ya completó
				return cur, nil
			}
			return cur, ErrInvalidState
		}
		return Transfer{}, storeErr(err)
	}

	// Único ganador del CAS de acá en adelante.
	if err := s.fowls.TransferOwnership(ctx, t.FowlID, t.ToUserID); err != nil {
		// El estado quedó completed; la mutación del dueño se reporta
		// para retry externo, no se revierte en esta capa.
		s.log.Error("ownership mutation failed after completion", map[string]any{
			"transfer_id": t.ID,
			"fowl_id":     t.FowlID,
			"err":         err.Error(),
		})
		return updated, storeErr(err)
	}

	if s.certs != nil {
		if err := s.certs.EnsureForTransfer(ctx, t.ID); err != nil {
			// emisión idempotente: se puede reintentar vía endpoint
			s.log.Warn("certificate issuance failed", map[string]any{
				"transfer_id": t.ID,
				"err":         err.Error(),
			})
		}
	}

	if s.completionHook != nil {
		ev := completionEvent(updated, now)
		if err := s.completionHook.OwnershipTransferCompleted(ctx, ev); err != nil {
			s.log.Warn("completion hook failed", map[string]any{
				"transfer_id": t.ID,
				"err":         err.Error(),
			})
		}
	}

	s.log.Info("transfer completed", map[string]any{
		"transfer_id": updated.ID,
		"fowl_id":     updated.FowlID,
		"new_owner":   updated.ToUserID,
	})
	return updated, nil
}

func (s *Service) bothPartiesVerified(ctx context.Context, t Transfer) (bool, error) {
	vs, err := s.verifs.ListByTransfer(ctx, t.ID)
	if err != nil {
		return false, storeErr(err)
	}

	var from, to bool
	for _, v := range vs {
		switch v.VerifierID {
		case t.FromUserID:
			from = true
		case t.ToUserID:
			to = true
		}
	}
	return from && to, nil
}
