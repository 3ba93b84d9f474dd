package certificates

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"fowl-traceability/internal/domain/fowls"
	"fowl-traceability/internal/domain/lineage"
	"fowl-traceability/internal/domain/transfers"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrInvalidState     = errors.New("transfer not completed")
	ErrStoreUnavailable = errors.New("store unavailable")
)

const lineageSnapshotGenerations = 2

type Service struct {
	repo      Repository
	transfers *transfers.Service
	fowls     *fowls.Service
	lineage   *lineage.Service

	signingKey []byte
	now        func() time.Time
}

// NewService arma el emisor. signingKey firma el payload de verificación
// pública (CERT_SIGNING_KEY en producción; el default solo sirve en dev).
func NewService(repo Repository, transfersSvc *transfers.Service, fowlsSvc *fowls.Service, lineageSvc *lineage.Service, signingKey string) *Service {
	if strings.TrimSpace(signingKey) == "" {
		signingKey = "fowl-traceability-dev-key"
	}
	return &Service{
		repo:       repo,
		transfers:  transfersSvc,
		fowls:      fowlsSvc,
		lineage:    lineageSvc,
		signingKey: []byte(signingKey),
		now:        time.Now,
	}
}

// IssueForTransfer emite el certificado de una transferencia completed.
// Idempotente: re-emitir devuelve el certificado existente, nunca crea
// un segundo para la misma transferencia.
func (s *Service) IssueForTransfer(ctx context.Context, transferID string) (Certificate, error) {
	transferID = strings.TrimSpace(transferID)
	if transferID == "" {
		return Certificate{}, ErrInvalidInput
	}

	t, err := s.transfers.Get(ctx, transferID)
	if err != nil {
		if errors.Is(err, transfers.ErrNotFound) {
			return Certificate{}, ErrNotFound
		}
		return Certificate{}, storeErr(err)
	}
	if t.Status != transfers.StatusCompleted {
		return Certificate{}, ErrInvalidState
	}

	// Fast path: ya emitido (el Create del repo re-chequea de todos modos)
	if existing, err := s.repo.GetByTransfer(ctx, transferID); err == nil {
		return existing, nil
	} else if !errors.Is(err, ErrNotFound) {
		return Certificate{}, storeErr(err)
	}

	snap, err := s.buildSnapshot(ctx, t.FowlID, t.ToUserID)
	if err != nil {
		return Certificate{}, err
	}
	snap.TransferPrice = t.Price
	snap.TransferDate = t.CompletedAt

	cert := s.build(t.FowlID, t.ToUserID, transferID, snap)
	created, err := s.repo.Create(ctx, cert)
	if err != nil {
		return Certificate{}, storeErr(err)
	}
	return created, nil
}

// EnsureForTransfer satisface transfers.CertificateIssuer: emite si
// hace falta, descarta el valor.
func (s *Service) EnsureForTransfer(ctx context.Context, transferID string) error {
	_, err := s.IssueForTransfer(ctx, transferID)
	return err
}

// IssueForOwnership emite un certificado de tenencia actual, fuera de
// toda transferencia. Solo el dueño puede pedirlo.
func (s *Service) IssueForOwnership(ctx context.Context, fowlID, requestedBy string) (Certificate, error) {
	fowlID = strings.TrimSpace(fowlID)
	requestedBy = strings.TrimSpace(requestedBy)
	if fowlID == "" || requestedBy == "" {
		return Certificate{}, ErrInvalidInput
	}

	f, err := s.fowls.GetByID(ctx, fowlID)
	if err != nil {
		if errors.Is(err, fowls.ErrNotFound) {
			return Certificate{}, ErrNotFound
		}
		return Certificate{}, storeErr(err)
	}
	if f.OwnerUserID != requestedBy {
		return Certificate{}, ErrForbidden
	}

	snap, err := s.buildSnapshot(ctx, fowlID, f.OwnerUserID)
	if err != nil {
		return Certificate{}, err
	}

	cert := s.build(fowlID, f.OwnerUserID, "", snap)
	created, err := s.repo.Create(ctx, cert)
	if err != nil {
		return Certificate{}, storeErr(err)
	}
	return created, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Certificate, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Certificate{}, ErrInvalidInput
	}
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Certificate{}, storeErr(err)
	}
	return c, nil
}

func (s *Service) ListByFowl(ctx context.Context, fowlID string) ([]Certificate, error) {
	fowlID = strings.TrimSpace(fowlID)
	if fowlID == "" {
		return nil, ErrInvalidInput
	}
	out, err := s.repo.ListByFowl(ctx, fowlID)
	if err != nil {
		return nil, storeErr(err)
	}
	return out, nil
}

// VerifyResult es la respuesta de la superficie pública de verificación.
type VerifyResult struct {
	Valid       bool
	Certificate Certificate
}

// Verify chequea autenticidad: existe, no fue invalidado y el payload
// coincide con la firma recalculada. Un certificado ausente devuelve
// valid=false, no error: la superficie es pública y no filtra detalles.
func (s *Service) Verify(ctx context.Context, certificateID string) (VerifyResult, error) {
	certificateID = strings.TrimSpace(certificateID)
	if certificateID == "" {
		return VerifyResult{}, ErrInvalidInput
	}

	c, err := s.repo.GetByID(ctx, certificateID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return VerifyResult{Valid: false}, nil
		}
		return VerifyResult{}, storeErr(err)
	}

	valid := c.Valid && hmac.Equal([]byte(c.Payload), []byte(s.sign(c)))
	return VerifyResult{Valid: valid, Certificate: c}, nil
}

// Invalidate baja el flag de validez (resolución de una disputa, error
// de emisión). Única mutación permitida post-emisión. Solo el dueño del
// certificado o una parte de su transferencia pueden invocarla.
func (s *Service) Invalidate(ctx context.Context, certificateID, requestedBy string) error {
	certificateID = strings.TrimSpace(certificateID)
	requestedBy = strings.TrimSpace(requestedBy)
	if certificateID == "" || requestedBy == "" {
		return ErrInvalidInput
	}

	c, err := s.repo.GetByID(ctx, certificateID)
	if err != nil {
		return storeErr(err)
	}
	if !s.canInvalidate(ctx, c, requestedBy) {
		return ErrForbidden
	}

	if err := s.repo.SetValidity(ctx, certificateID, false); err != nil {
		return storeErr(err)
	}
	return nil
}

func (s *Service) canInvalidate(ctx context.Context, c Certificate, requestedBy string) bool {
	if requestedBy == c.OwnerUserID {
		return true
	}
	if c.TransferID == "" {
		return false
	}
	t, err := s.transfers.Get(ctx, c.TransferID)
	return err == nil && t.IsParty(requestedBy)
}

func (s *Service) buildSnapshot(ctx context.Context, fowlID, ownerUserID string) (Snapshot, error) {
	f, err := s.fowls.GetByID(ctx, fowlID)
	if err != nil {
		if errors.Is(err, fowls.ErrNotFound) {
			return Snapshot{}, ErrNotFound
		}
		return Snapshot{}, storeErr(err)
	}

	snap := Snapshot{
		FowlID:         f.ID,
		OwnerUserID:    ownerUserID,
		Breed:          string(f.Breed),
		Gender:         string(f.Gender),
		DateOfBirth:    f.DateOfBirth,
		ParentMaleID:   f.ParentMaleID,
		ParentFemaleID: f.ParentFemaleID,
		HealthSummary:  f.Notes,
	}

	// Los conteos de linaje son informativos: si la traversal falla no
	// bloquea la emisión.
	if s.lineage != nil {
		if anc, err := s.lineage.GetAncestors(ctx, fowlID, lineageSnapshotGenerations); err == nil {
			snap.AncestorCount = len(anc)
		}
		if desc, err := s.lineage.GetDescendants(ctx, fowlID, lineageSnapshotGenerations); err == nil {
			snap.DescendantCount = len(desc)
		}
	}
	return snap, nil
}

func (s *Service) build(fowlID, ownerUserID, transferID string, snap Snapshot) Certificate {
	now := s.now()
	c := Certificate{
		ID:                uuid.NewString(),
		FowlID:            fowlID,
		OwnerUserID:       ownerUserID,
		TransferID:        transferID,
		CertificateNumber: certificateNumber(now),
		IssueDate:         now,
		Snapshot:          snap,
		Valid:             true,
	}
	c.Payload = s.sign(c)
	return c
}

// sign produce el token opaco: HMAC-SHA256 sobre los campos canónicos.
// Cualquier alteración del registro invalida la verificación pública.
func (s *Service) sign(c Certificate) string {
	canonical := strings.Join([]string{
		c.CertificateNumber,
		c.FowlID,
		c.OwnerUserID,
		c.TransferID,
		c.IssueDate.UTC().Format(time.RFC3339),
	}, "|")

	mac := hmac.New(sha256.New, s.signingKey)
	mac.Write([]byte(canonical))
	return hex.EncodeToString(mac.Sum(nil))
}

// certificateNumber genera un número único legible: FTC-<año>-<12 hex>.
func certificateNumber(at time.Time) string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("FTC-%d-%s", at.Year(), strings.ToUpper(raw[:12]))
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
