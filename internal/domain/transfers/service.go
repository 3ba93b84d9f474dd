package transfers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"fowl-traceability/internal/domain/fowls"
	"fowl-traceability/internal/platform/logger"
	"fowl-traceability/internal/ports/hooks"
)

var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrNotFound             = errors.New("not found")
	ErrUnauthorized         = errors.New("not a party to the transfer")
	ErrActiveTransferExists = errors.New("active transfer exists for fowl")
	ErrInvalidState         = errors.New("invalid state for operation")
	ErrStoreUnavailable     = errors.New("store unavailable")

	// ErrStateConflict lo devuelven los adapters cuando el predicado del
	// CAS no matchea. El servicio lo traduce; no cruza el boundary HTTP.
	ErrStateConflict = errors.New("state changed concurrently")
)

// CertificateIssuer dispara la emisión del certificado post-completado.
// La interfaz vive acá para no importar el módulo de certificates
// (certificates ya importa transfers para armar el snapshot).
type CertificateIssuer interface {
	EnsureForTransfer(ctx context.Context, transferID string) error
}

// Service es la máquina de estados de transferencias más el coordinador
// de verificaciones (verification.go).
type Service struct {
	repo   Repository
	verifs VerificationsRepository
	fowls  *fowls.Service

	certs          CertificateIssuer    // opcional, se inyecta en el router
	validator      hooks.FowlValidator  // opcional
	completionHook hooks.CompletionHook // opcional

	log logger.Logger
	now func() time.Time
}

func NewService(repo Repository, verifs VerificationsRepository, fowlSvc *fowls.Service) *Service {
	return &Service{
		repo:   repo,
		verifs: verifs,
		fowls:  fowlSvc,
		log:    logger.Nop(),
		now:    time.Now,
	}
}

func (s *Service) SetCertificateIssuer(ci CertificateIssuer) { s.certs = ci }

func (s *Service) SetHooks(v hooks.FowlValidator, c hooks.CompletionHook) {
	s.validator = v
	s.completionHook = c
}

func (s *Service) SetLogger(l logger.Logger) {
	if l != nil {
		s.log = l
	}
}

type InitiateInput struct {
	FowlID   string
	ToUserID string
	Price    *int64

	// Atributos esperados del listado, para el hook de validación remota.
	ExpectedAttributes map[string]string
}

// Initiate crea la transferencia en estado initiated.
// Falla con ErrInvalidInput si el iniciador no es el dueño actual y con
// ErrActiveTransferExists si ya hay una transferencia no-terminal para
// el fowl (invariante duro, re-chequeado por el adapter en el Create).
func (s *Service) Initiate(ctx context.Context, fromUserID string, in InitiateInput) (Transfer, error) {
	fromUserID = strings.TrimSpace(fromUserID)
	fowlID := strings.TrimSpace(in.FowlID)
	toUserID := strings.TrimSpace(in.ToUserID)

	if fromUserID == "" || fowlID == "" || toUserID == "" {
		return Transfer{}, ErrInvalidInput
	}
	if fromUserID == toUserID {
		return Transfer{}, ErrInvalidInput
	}
	if in.Price != nil && *in.Price < 0 {
		return Transfer{}, ErrInvalidInput
	}

	owner, err := s.fowls.OwnerOf(ctx, fowlID)
	if err != nil {
		if errors.Is(err, fowls.ErrNotFound) {
			return Transfer{}, ErrNotFound
		}
		return Transfer{}, storeErr(err)
	}
	if owner != fromUserID {
		return Transfer{}, ErrInvalidInput
	}

	// Pre-chequeo best-effort contra el listado externo: un mismatch
	// rechaza, un error de transporte no bloquea la iniciación.
	if s.validator != nil && len(in.ExpectedAttributes) > 0 {
		ok, verr := s.validator.ValidateFowlAttributes(ctx, fowlID, in.ExpectedAttributes)
		if verr != nil {
			s.log.Warn("fowl attribute validation unavailable", map[string]any{
				"fowl_id": fowlID,
				"err":     verr.Error(),
			})
		} else if !ok {
			return Transfer{}, ErrInvalidInput
		}
	}

	now := s.now()
	t := Transfer{
		ID:         uuid.NewString(),
		FowlID:     fowlID,
		FromUserID: fromUserID,
		ToUserID:   toUserID,
		Status:     StatusInitiated,
		Price:      in.Price,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.repo.Create(ctx, t); err != nil {
		return Transfer{}, storeErr(err)
	}
	return t, nil
}

func (s *Service) Get(ctx context.Context, id string) (Transfer, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Transfer{}, ErrInvalidInput
	}
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Transfer{}, storeErr(err)
	}
	return t, nil
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]Transfer, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrInvalidInput
	}
	out, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, storeErr(err)
	}
	return out, nil
}

// Cancel pasa la transferencia a cancelled. Solo una de las partes puede
// cancelar y solo en estados no-terminales. No toca el fowl.
func (s *Service) Cancel(ctx context.Context, transferID, byUserID string) (Transfer, error) {
	t, err := s.Get(ctx, transferID)
	if err != nil {
		return Transfer{}, err
	}
	if !t.IsParty(strings.TrimSpace(byUserID)) {
		return Transfer{}, ErrUnauthorized
	}
	if t.Status.Terminal() {
		return Transfer{}, ErrInvalidState
	}

	updated, err := s.repo.UpdateStatusIf(ctx, t.ID,
		[]Status{StatusInitiated, StatusPartiallyVerified, StatusDisputed},
		StatusCancelled, s.now())
	if err != nil {
		if errors.Is(err, ErrStateConflict) {
			// otro actor llegó primero (completado concurrente, etc.)
			return Transfer{}, ErrInvalidState
		}
		return Transfer{}, storeErr(err)
	}
	return updated, nil
}

// MarkDisputed pasa estados no-terminales a disputed. Sobre una
// transferencia completed no toca el campo status: la disputa queda
// registrada aparte (módulo disputes). Lo invoca el Dispute Manager.
func (s *Service) MarkDisputed(ctx context.Context, transferID string) (Transfer, error) {
	t, err := s.Get(ctx, transferID)
	if err != nil {
		return Transfer{}, err
	}
	if t.Status == StatusDisputed || t.Status.Terminal() {
		return t, nil
	}

	updated, err := s.repo.UpdateStatusIf(ctx, t.ID,
		[]Status{StatusInitiated, StatusPartiallyVerified},
		StatusDisputed, s.now())
	if err != nil {
		if errors.Is(err, ErrStateConflict) {
			// el estado cambió en el medio; la disputa igual se registra
			return s.Get(ctx, transferID)
		}
		return Transfer{}, storeErr(err)
	}
	return updated, nil
}

// ReleaseDispute devuelve una transferencia disputed a su estado de
// verificación: partially_verified si alguna parte ya verificó,
// initiated si ninguna. Si ambas partes habían verificado antes del
// bloqueo, el chequeo de completado la cierra en el mismo paso. Lo
// invoca el Dispute Manager cuando no queda ninguna disputa abierta.
func (s *Service) ReleaseDispute(ctx context.Context, transferID string) (Transfer, error) {
	t, err := s.Get(ctx, transferID)
	if err != nil {
		return Transfer{}, err
	}
	if t.Status != StatusDisputed {
		return t, nil
	}

	vs, err := s.verifs.ListByTransfer(ctx, t.ID)
	if err != nil {
		return Transfer{}, storeErr(err)
	}
	target := StatusInitiated
	if len(vs) > 0 {
		target = StatusPartiallyVerified
	}

	updated, err := s.repo.UpdateStatusIf(ctx, t.ID,
		[]Status{StatusDisputed}, target, s.now())
	if err != nil {
		if errors.Is(err, ErrStateConflict) {
			// cancelado (u otro release) en el medio
			return s.Get(ctx, transferID)
		}
		return Transfer{}, storeErr(err)
	}
	if target == StatusInitiated {
		return updated, nil
	}
	return s.checkCompletion(ctx, updated)
}

func completionEvent(t Transfer, at time.Time) hooks.CompletionEvent {
	return hooks.CompletionEvent{
		TransferID:      t.ID,
		FowlID:          t.FowlID,
		NewOwnerID:      t.ToUserID,
		PreviousOwnerID: t.FromUserID,
		CompletedAt:     at,
	}
}

// storeErr normaliza errores del repo: sentinels del dominio y la
// cancelación pasan intactos, el resto se reporta como store unavailable.
func storeErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrActiveTransferExists),
		errors.Is(err, ErrStateConflict),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}
