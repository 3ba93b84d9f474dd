package certificates

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"fowl-traceability/internal/domain/fowls"
	"fowl-traceability/internal/domain/lineage"
	"fowl-traceability/internal/domain/transfers"
)

// -------------------------
// Test repos (in-memory)
// -------------------------

type testRepo struct {
	byID map[string]Certificate
}

func newTestRepo() *testRepo {
	return &testRepo{byID: map[string]Certificate{}}
}

func (r *testRepo) Create(ctx context.Context, c Certificate) (Certificate, error) {
	if c.TransferID != "" {
		for _, cur := range r.byID {
			if cur.TransferID == c.TransferID {
				return cur, nil
			}
		}
	}
	r.byID[c.ID] = c
	return c, nil
}

func (r *testRepo) GetByID(ctx context.Context, id string) (Certificate, error) {
	c, ok := r.byID[id]
	if !ok {
		return Certificate{}, ErrNotFound
	}
	return c, nil
}

func (r *testRepo) GetByTransfer(ctx context.Context, transferID string) (Certificate, error) {
	for _, c := range r.byID {
		if c.TransferID == transferID && transferID != "" {
			return c, nil
		}
	}
	return Certificate{}, ErrNotFound
}

func (r *testRepo) ListByFowl(ctx context.Context, fowlID string) ([]Certificate, error) {
	out := make([]Certificate, 0)
	for _, c := range r.byID {
		if c.FowlID == fowlID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *testRepo) SetValidity(ctx context.Context, id string, valid bool) error {
	c, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	c.Valid = valid
	r.byID[id] = c
	return nil
}

type testFowlsRepo struct {
	byID map[string]fowls.Fowl
}

func (r *testFowlsRepo) Create(ctx context.Context, f fowls.Fowl) error {
	r.byID[f.ID] = f
	return nil
}

func (r *testFowlsRepo) GetByID(ctx context.Context, id string) (fowls.Fowl, error) {
	f, ok := r.byID[id]
	if !ok {
		return fowls.Fowl{}, fowls.ErrNotFound
	}
	return f, nil
}

func (r *testFowlsRepo) ListByOwner(ctx context.Context, ownerUserID string) ([]fowls.Fowl, error) {
	return nil, nil
}

func (r *testFowlsRepo) Update(ctx context.Context, f fowls.Fowl) error {
	r.byID[f.ID] = f
	return nil
}

func (r *testFowlsRepo) ListByParent(ctx context.Context, parentID string) ([]fowls.Fowl, error) {
	out := make([]fowls.Fowl, 0)
	for _, f := range r.byID {
		if f.ParentMaleID == parentID || f.ParentFemaleID == parentID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (r *testFowlsRepo) TransferOwnership(ctx context.Context, fowlID, newOwnerID string, at time.Time) error {
	f, ok := r.byID[fowlID]
	if !ok {
		return fowls.ErrNotFound
	}
	f.OwnerUserID = newOwnerID
	r.byID[fowlID] = f
	return nil
}

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
	return transfers.Transfer{}, transfers.ErrStateConflict
}

type testVerifsRepo struct{}

func (testVerifsRepo) Upsert(ctx context.Context, v transfers.Verification) (transfers.Verification, error) {
	return v, nil
}

func (testVerifsRepo) ListByTransfer(ctx context.Context, transferID string) ([]transfers.Verification, error) {
	return nil, nil
}

// -------------------------
// Setup helper
// -------------------------

type testEnv struct {
	svc  *Service
	repo *testRepo
}

func newTestEnv(seedFowls []fowls.Fowl, seedTransfers []transfers.Transfer) *testEnv {
	fowlsRepo := &testFowlsRepo{byID: map[string]fowls.Fowl{}}
	for _, f := range seedFowls {
		fowlsRepo.byID[f.ID] = f
	}
	trRepo := &testTransfersRepo{byID: map[string]transfers.Transfer{}}
	for _, t := range seedTransfers {
		trRepo.byID[t.ID] = t
	}

	fowlsSvc := fowls.NewService(fowlsRepo)
	transfersSvc := transfers.NewService(trRepo, testVerifsRepo{}, fowlsSvc)
	lineageSvc := lineage.NewService(fowlsSvc)

	repo := newTestRepo()
	svc := NewService(repo, transfersSvc, fowlsSvc, lineageSvc, "clave-de-test")
	return &testEnv{svc: svc, repo: repo}
}

func completedAt(t time.Time) *time.Time { return &t }

func seedEnv() *testEnv {
	done := time.Date(2026, 4, 2, 15, 0, 0, 0, time.UTC)
	priceVal := int64(500)

	return newTestEnv(
		[]fowls.Fowl{
			{ID: "papa", OwnerUserID: "seller", Breed: fowls.BreedAseel},
			{ID: "fowl-1", OwnerUserID: "buyer", Breed: fowls.BreedAseel, Gender: fowls.GenderFemale, ParentMaleID: "papa", Notes: "vacunada"},
			{ID: "cria", OwnerUserID: "buyer", Breed: fowls.BreedAseel, ParentFemaleID: "fowl-1"},
		},
		[]transfers.Transfer{
			{
				ID:          "t-done",
				FowlID:      "fowl-1",
				FromUserID:  "seller",
				ToUserID:    "buyer",
				Status:      transfers.StatusCompleted,
				Price:       &priceVal,
				CompletedAt: completedAt(done),
			},
			{
				ID:         "t-open",
				FowlID:     "fowl-1",
				FromUserID: "seller",
				ToUserID:   "buyer",
				Status:     transfers.StatusInitiated,
			},
		},
	)
}

// -------------------------
// Tests
// -------------------------

func TestService_IssueForTransfer_CompletedOnly(t *testing.T) {
	env := seedEnv()

	_, err := env.svc.IssueForTransfer(context.Background(), "t-open")
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for non-completed transfer, got %v", err)
	}

	c, err := env.svc.IssueForTransfer(context.Background(), "t-done")
	if err != nil {
		t.Fatalf("IssueForTransfer error: %v", err)
	}
	if !c.Valid {
		t.Fatalf("expected valid certificate")
	}
	if !strings.HasPrefix(c.CertificateNumber, "FTC-") {
		t.Fatalf("unexpected certificate number %q", c.CertificateNumber)
	}
	if c.OwnerUserID != "buyer" {
		t.Fatalf("expected buyer as certified owner, got %s", c.OwnerUserID)
	}
}

func TestService_IssueForTransfer_Idempotent(t *testing.T) {
	env := seedEnv()

	c1, err := env.svc.IssueForTransfer(context.Background(), "t-done")
	if err != nil {
		t.Fatalf("issue #1 error: %v", err)
	}
	c2, err := env.svc.IssueForTransfer(context.Background(), "t-done")
	if err != nil {
		t.Fatalf("issue #2 error: %v", err)
	}

	if c2.ID != c1.ID {
		t.Fatalf("expected same certificate on re-issue, got %s vs %s", c1.ID, c2.ID)
	}
	if len(env.repo.byID) != 1 {
		t.Fatalf("expected 1 stored certificate, got %d", len(env.repo.byID))
	}
}

func TestService_IssueForTransfer_SnapshotFreezesState(t *testing.T) {
	env := seedEnv()

	c, err := env.svc.IssueForTransfer(context.Background(), "t-done")
	if err != nil {
		t.Fatalf("IssueForTransfer error: %v", err)
	}

	snap := c.Snapshot
	if snap.Breed != "aseel" || snap.Gender != "female" {
		t.Fatalf("unexpected snapshot attrs: %#v", snap)
	}
	if snap.ParentMaleID != "papa" {
		t.Fatalf("expected parent male in snapshot")
	}
	if snap.HealthSummary != "vacunada" {
		t.Fatalf("expected health summary from notes, got %q", snap.HealthSummary)
	}
	if snap.TransferPrice == nil || *snap.TransferPrice != 500 {
		t.Fatalf("expected transfer price 500, got %v", snap.TransferPrice)
	}
	if snap.TransferDate == nil {
		t.Fatalf("expected transfer date from completion")
	}
	if snap.AncestorCount != 1 || snap.DescendantCount != 1 {
		t.Fatalf("expected lineage counts 1/1, got %d/%d", snap.AncestorCount, snap.DescendantCount)
	}
}

func TestService_IssueForOwnership_OwnerOnly(t *testing.T) {
	env := seedEnv()

	if _, err := env.svc.IssueForOwnership(context.Background(), "fowl-1", "seller"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for ex-owner, got %v", err)
	}

	c, err := env.svc.IssueForOwnership(context.Background(), "fowl-1", "buyer")
	if err != nil {
		t.Fatalf("IssueForOwnership error: %v", err)
	}
	if c.TransferID != "" {
		t.Fatalf("ownership certificate must not reference a transfer")
	}
	if c.Snapshot.TransferPrice != nil {
		t.Fatalf("ownership certificate must not carry a price")
	}
}

func TestService_Verify_ValidCertificate(t *testing.T) {
	env := seedEnv()

	c, err := env.svc.IssueForTransfer(context.Background(), "t-done")
	if err != nil {
		t.Fatalf("IssueForTransfer error: %v", err)
	}

	res, err := env.svc.Verify(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if !res.Valid {
		t.Fatalf("expected valid certificate")
	}
}

func TestService_Verify_AbsentIsInvalidNotError(t *testing.T) {
	env := seedEnv()

	res, err := env.svc.Verify(context.Background(), "no-existe")
	if err != nil {
		t.Fatalf("Verify must not error on absent certificate, got %v", err)
	}
	if res.Valid {
		t.Fatalf("absent certificate must verify as invalid")
	}
}

func TestService_Verify_InvalidatedFails(t *testing.T) {
	env := seedEnv()

	c, err := env.svc.IssueForTransfer(context.Background(), "t-done")
	if err != nil {
		t.Fatalf("IssueForTransfer error: %v", err)
	}

	if err := env.svc.Invalidate(context.Background(), c.ID, "buyer"); err != nil {
		t.Fatalf("Invalidate error: %v", err)
	}

	res, err := env.svc.Verify(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if res.Valid {
		t.Fatalf("invalidated certificate must verify as invalid")
	}
}

func TestService_Invalidate_OwnerOrPartyOnly(t *testing.T) {
	env := seedEnv()

	c, err := env.svc.IssueForOwnership(context.Background(), "fowl-1", "buyer")
	if err != nil {
		t.Fatalf("IssueForOwnership error: %v", err)
	}

	if err := env.svc.Invalidate(context.Background(), c.ID, "extranio-99"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for foreign user, got %v", err)
	}

	// El rechazo no debe tocar el certificado
	res, err := env.svc.Verify(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if !res.Valid {
		t.Fatalf("certificate must stay valid after rejected invalidation")
	}

	if err := env.svc.Invalidate(context.Background(), c.ID, "buyer"); err != nil {
		t.Fatalf("Invalidate by owner error: %v", err)
	}
}

func TestService_Invalidate_TransferPartyAllowed(t *testing.T) {
	env := seedEnv()

	c, err := env.svc.IssueForTransfer(context.Background(), "t-done")
	if err != nil {
		t.Fatalf("IssueForTransfer error: %v", err)
	}

	// El vendedor no es el dueño certificado pero sí parte de la transferencia
	if err := env.svc.Invalidate(context.Background(), c.ID, "seller"); err != nil {
		t.Fatalf("Invalidate by transfer party error: %v", err)
	}

	res, err := env.svc.Verify(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if res.Valid {
		t.Fatalf("invalidated certificate must verify as invalid")
	}
}

func TestService_Verify_TamperedRecordFails(t *testing.T) {
	env := seedEnv()

	c, err := env.svc.IssueForTransfer(context.Background(), "t-done")
	if err != nil {
		t.Fatalf("IssueForTransfer error: %v", err)
	}

	// Alterar el registro persistido rompe la firma recalculada.
	tampered := env.repo.byID[c.ID]
	tampered.OwnerUserID = "atacante"
	env.repo.byID[c.ID] = tampered

	res, err := env.svc.Verify(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if res.Valid {
		t.Fatalf("tampered certificate must verify as invalid")
	}
}

func TestService_ListByFowl(t *testing.T) {
	env := seedEnv()

	if _, err := env.svc.IssueForTransfer(context.Background(), "t-done"); err != nil {
		t.Fatalf("IssueForTransfer error: %v", err)
	}
	if _, err := env.svc.IssueForOwnership(context.Background(), "fowl-1", "buyer"); err != nil {
		t.Fatalf("IssueForOwnership error: %v", err)
	}

	items, err := env.svc.ListByFowl(context.Background(), "fowl-1")
	if err != nil {
		t.Fatalf("ListByFowl error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 certificates, got %d", len(items))
	}
}
