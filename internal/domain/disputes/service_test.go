package disputes

import (
	"context"
	"errors"
	"testing"
	"time"

	"fowl-traceability/internal/domain/fowls"
	"fowl-traceability/internal/domain/transfers"
)

// -------------------------
// Test repos (in-memory)
// -------------------------

type testRepo struct {
	byID map[string]Dispute
}

func newTestRepo() *testRepo {
	return &testRepo{byID: map[string]Dispute{}}
}

func (r *testRepo) Create(ctx context.Context, d Dispute) error {
	if _, ok := r.byID[d.ID]; ok {
		return errors.New("repo: already exists")
	}
	r.byID[d.ID] = d
	return nil
}

func (r *testRepo) GetByID(ctx context.Context, id string) (Dispute, error) {
	d, ok := r.byID[id]
	if !ok {
		return Dispute{}, ErrNotFound
	}
	return d, nil
}

func (r *testRepo) Update(ctx context.Context, d Dispute) error {
	if _, ok := r.byID[d.ID]; !ok {
		return ErrNotFound
	}
	r.byID[d.ID] = d
	return nil
}

func (r *testRepo) ListByTransfer(ctx context.Context, transferID string) ([]Dispute, error) {
	out := make([]Dispute, 0)
	for _, d := range r.byID {
		if d.TransferID == transferID {
			out = append(out, d)
		}
	}
	return out, nil
}

// Fakes mínimos para armar un *transfers.Service con estado sembrado.

type testTransfersRepo struct {
	byID map[string]transfers.Transfer
}

func (r *testTransfersRepo) Create(ctx context.Context, t transfers.Transfer) error {
	r.byID[t.ID] = t
	return nil
}

func (r *testTransfersRepo) GetByID(ctx context.Context, id string) (transfers.Transfer, error) {
	t, ok := r.byID[id]
	if !ok {
		return transfers.Transfer{}, transfers.ErrNotFound
	}
	return t, nil
}

func (r *testTransfersRepo) ListByUser(ctx context.Context, userID string) ([]transfers.Transfer, error) {
	return nil, nil
}

func (r *testTransfersRepo) UpdateStatusIf(ctx context.Context, id string, from []transfers.Status, to transfers.Status, at time.Time) (transfers.Transfer, error) {
	t, ok := r.byID[id]
	if !ok {
		return transfers.Transfer{}, transfers.ErrNotFound
	}
	for _, s := range from {
		if t.Status == s {
			t.Status = to
			t.UpdatedAt = at
			r.byID[id] = t
			return t, nil
		}
	}
	return transfers.Transfer{}, transfers.ErrStateConflict
}

type testVerifsRepo struct{}

func (testVerifsRepo) Upsert(ctx context.Context, v transfers.Verification) (transfers.Verification, error) {
	return v, nil
}

func (testVerifsRepo) ListByTransfer(ctx context.Context, transferID string) ([]transfers.Verification, error) {
	return nil, nil
}

type testFowlsRepo struct{}

func (testFowlsRepo) Create(ctx context.Context, f fowls.Fowl) error { return nil }
func (testFowlsRepo) GetByID(ctx context.Context, id string) (fowls.Fowl, error) {
	return fowls.Fowl{}, fowls.ErrNotFound
}
func (testFowlsRepo) ListByOwner(ctx context.Context, ownerUserID string) ([]fowls.Fowl, error) {
	return nil, nil
}
func (testFowlsRepo) Update(ctx context.Context, f fowls.Fowl) error { return nil }
func (testFowlsRepo) ListByParent(ctx context.Context, parentID string) ([]fowls.Fowl, error) {
	return nil, nil
}
func (testFowlsRepo) TransferOwnership(ctx context.Context, fowlID, newOwnerID string, at time.Time) error {
	return nil
}

// -------------------------
// Setup helper
// -------------------------

func newTestService(seed ...transfers.Transfer) (*Service, *testRepo, *testTransfersRepo) {
	trRepo := &testTransfersRepo{byID: map[string]transfers.Transfer{}}
	for _, t := range seed {
		trRepo.byID[t.ID] = t
	}

	transfersSvc := transfers.NewService(trRepo, testVerifsRepo{}, fowls.NewService(testFowlsRepo{}))
	repo := newTestRepo()
	return NewService(repo, transfersSvc), repo, trRepo
}

func seedTransfer(id string, status transfers.Status) transfers.Transfer {
	return transfers.Transfer{
		ID:         id,
		FowlID:     "fowl-1",
		FromUserID: "seller",
		ToUserID:   "buyer",
		Status:     status,
	}
}

// -------------------------
// Tests
// -------------------------

func TestService_Create_MarksTransferDisputed(t *testing.T) {
	svc, _, trRepo := newTestService(seedTransfer("t1", transfers.StatusInitiated))

	d, err := svc.Create(context.Background(), "t1", "buyer", "el ave no coincide con el listado")
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if d.Status != StatusPending {
		t.Fatalf("expected pending, got %s", d.Status)
	}
	if got := trRepo.byID["t1"].Status; got != transfers.StatusDisputed {
		t.Fatalf("expected transfer disputed, got %s", got)
	}
}

func TestService_Create_CompletedTransferKeepsStatus(t *testing.T) {
	// Disputa post-completado: se registra pero el status de la
	// transferencia no se toca.
	svc, repo, trRepo := newTestService(seedTransfer("t1", transfers.StatusCompleted))

	d, err := svc.Create(context.Background(), "t1", "buyer", "el ave llegó enferma")
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got := trRepo.byID["t1"].Status; got != transfers.StatusCompleted {
		t.Fatalf("expected transfer completed untouched, got %s", got)
	}
	if _, ok := repo.byID[d.ID]; !ok {
		t.Fatalf("expected dispute persisted")
	}
}

func TestService_Create_NonPartyForbidden(t *testing.T) {
	svc, _, _ := newTestService(seedTransfer("t1", transfers.StatusInitiated))

	_, err := svc.Create(context.Background(), "t1", "intruso", "razón cualquiera")
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestService_Create_RequiresReason(t *testing.T) {
	svc, _, _ := newTestService(seedTransfer("t1", transfers.StatusInitiated))

	_, err := svc.Create(context.Background(), "t1", "buyer", "   ")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty reason, got %v", err)
	}
}

func TestService_Create_UnknownTransfer(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Create(context.Background(), "nope", "buyer", "razón")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestService_UpdateStatus_Transitions(t *testing.T) {
	svc, _, _ := newTestService(seedTransfer("t1", transfers.StatusInitiated))

	d, err := svc.Create(context.Background(), "t1", "buyer", "razón")
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	reviewed, err := svc.UpdateStatus(context.Background(), d.ID, StatusReviewed, "")
	if err != nil {
		t.Fatalf("UpdateStatus reviewed error: %v", err)
	}
	if reviewed.Status != StatusReviewed {
		t.Fatalf("expected reviewed, got %s", reviewed.Status)
	}

	resolved, err := svc.UpdateStatus(context.Background(), d.ID, StatusResolved, "se acordó un reembolso parcial")
	if err != nil {
		t.Fatalf("UpdateStatus resolved error: %v", err)
	}
	if resolved.Status != StatusResolved {
		t.Fatalf("expected resolved, got %s", resolved.Status)
	}
	if resolved.ResolvedAt == nil {
		t.Fatalf("expected ResolvedAt set")
	}
	if resolved.ResolutionNote == "" {
		t.Fatalf("expected resolution note saved")
	}
}

func TestService_UpdateStatus_ResolveReleasesTransfer(t *testing.T) {
	svc, _, trRepo := newTestService(seedTransfer("t1", transfers.StatusInitiated))

	d, err := svc.Create(context.Background(), "t1", "buyer", "razón")
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got := trRepo.byID["t1"].Status; got != transfers.StatusDisputed {
		t.Fatalf("expected transfer disputed, got %s", got)
	}

	if _, err := svc.UpdateStatus(context.Background(), d.ID, StatusResolved, "acordaron continuar"); err != nil {
		t.Fatalf("UpdateStatus resolved error: %v", err)
	}
	if got := trRepo.byID["t1"].Status; got != transfers.StatusInitiated {
		t.Fatalf("expected transfer released to initiated, got %s", got)
	}
}

func TestService_UpdateStatus_ResolveKeepsDisputedWhileOthersOpen(t *testing.T) {
	svc, _, trRepo := newTestService(seedTransfer("t1", transfers.StatusInitiated))

	d1, err := svc.Create(context.Background(), "t1", "buyer", "el ave no coincide")
	if err != nil {
		t.Fatalf("Create #1 error: %v", err)
	}
	if _, err := svc.Create(context.Background(), "t1", "seller", "el pago no llegó"); err != nil {
		t.Fatalf("Create #2 error: %v", err)
	}

	if _, err := svc.UpdateStatus(context.Background(), d1.ID, StatusResolved, "primera cerrada"); err != nil {
		t.Fatalf("UpdateStatus resolved error: %v", err)
	}
	if got := trRepo.byID["t1"].Status; got != transfers.StatusDisputed {
		t.Fatalf("expected transfer still disputed with open dispute, got %s", got)
	}
}

func TestService_UpdateStatus_SameStatusIdempotent(t *testing.T) {
	svc, _, _ := newTestService(seedTransfer("t1", transfers.StatusInitiated))

	d, err := svc.Create(context.Background(), "t1", "buyer", "razón")
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	again, err := svc.UpdateStatus(context.Background(), d.ID, StatusPending, "")
	if err != nil {
		t.Fatalf("expected idempotent same-status update, got %v", err)
	}
	if again.Status != StatusPending {
		t.Fatalf("expected pending, got %s", again.Status)
	}
}

func TestService_UpdateStatus_ResolvedIsTerminal(t *testing.T) {
	svc, _, _ := newTestService(seedTransfer("t1", transfers.StatusInitiated))

	d, err := svc.Create(context.Background(), "t1", "buyer", "razón")
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if _, err := svc.UpdateStatus(context.Background(), d.ID, StatusResolved, "cerrada"); err != nil {
		t.Fatalf("UpdateStatus resolved error: %v", err)
	}

	_, err = svc.UpdateStatus(context.Background(), d.ID, StatusReviewed, "")
	if !errors.Is(err, ErrBadState) {
		t.Fatalf("expected ErrBadState reopening resolved dispute, got %v", err)
	}
}

func TestService_UpdateStatus_RejectsUnknownStatus(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.UpdateStatus(context.Background(), "d1", Status("escalated"), "")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
