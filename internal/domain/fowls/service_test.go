package fowls

import (
	"context"
	"errors"
	"testing"
	"time"
)

// -------------------------
// Test repo (in-memory)
// -------------------------

type testRepo struct {
	byID map[string]Fowl
}

func newTestRepo() *testRepo {
	return &testRepo{byID: map[string]Fowl{}}
}

func (r *testRepo) Create(ctx context.Context, f Fowl) error {
	if f.ID == "" {
		return errors.New("repo: id required")
	}
	if _, ok := r.byID[f.ID]; ok {
		return errors.New("repo: already exists")
	}
	r.byID[f.ID] = f
	return nil
}

func (r *testRepo) GetByID(ctx context.Context, id string) (Fowl, error) {
	f, ok := r.byID[id]
	if !ok {
		return Fowl{}, ErrNotFound
	}
	return f, nil
}

func (r *testRepo) ListByOwner(ctx context.Context, ownerUserID string) ([]Fowl, error) {
	out := make([]Fowl, 0)
	for _, f := range r.byID {
		if f.OwnerUserID == ownerUserID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (r *testRepo) Update(ctx context.Context, f Fowl) error {
	if _, ok := r.byID[f.ID]; !ok {
		return ErrNotFound
	}
	r.byID[f.ID] = f
	return nil
}

func (r *testRepo) ListByParent(ctx context.Context, parentID string) ([]Fowl, error) {
	out := make([]Fowl, 0)
	for _, f := range r.byID {
		if f.ParentMaleID == parentID || f.ParentFemaleID == parentID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (r *testRepo) TransferOwnership(ctx context.Context, fowlID, newOwnerID string, at time.Time) error {
	f, ok := r.byID[fowlID]
	if !ok {
		return ErrNotFound
	}
	f.OwnerUserID = newOwnerID
	f.UpdatedAt = at
	r.byID[fowlID] = f
	return nil
}

// -------------------------
// Tests
// -------------------------

func TestService_Register_DefaultsAndStatus(t *testing.T) {
	repo := newTestRepo()
	svc := NewService(repo)

	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	f, err := svc.Register(context.Background(), "owner-1", RegisterInput{
		Breed:     "aseel",
		Traceable: true,
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if f.Status != StatusActive {
		t.Fatalf("expected status active, got %s", f.Status)
	}
	if f.Gender != GenderUnknown {
		t.Fatalf("expected gender unknown by default, got %s", f.Gender)
	}
	if f.CreatedAt != now || f.UpdatedAt != now {
		t.Fatalf("expected CreatedAt/UpdatedAt to be now")
	}
	if f.ID == "" {
		t.Fatalf("expected generated id")
	}
}

func TestService_Register_RequiresBreed(t *testing.T) {
	svc := NewService(newTestRepo())

	_, err := svc.Register(context.Background(), "owner-1", RegisterInput{})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestService_Register_RejectsUnknownParent(t *testing.T) {
	svc := NewService(newTestRepo())

	_, err := svc.Register(context.Background(), "owner-1", RegisterInput{
		Breed:        "kadaknath",
		ParentMaleID: "does-not-exist",
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown parent, got %v", err)
	}
}

func TestService_Register_RejectsSameParentTwice(t *testing.T) {
	repo := newTestRepo()
	svc := NewService(repo)

	p, err := svc.Register(context.Background(), "owner-1", RegisterInput{Breed: "brahma", Gender: "male"})
	if err != nil {
		t.Fatalf("register parent: %v", err)
	}

	_, err = svc.Register(context.Background(), "owner-1", RegisterInput{
		Breed:          "brahma",
		ParentMaleID:   p.ID,
		ParentFemaleID: p.ID,
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for same parent twice, got %v", err)
	}
}

func TestService_UpdateStatus_OwnerOnly(t *testing.T) {
	repo := newTestRepo()
	svc := NewService(repo)

	f, err := svc.Register(context.Background(), "owner-1", RegisterInput{Breed: "country"})
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}

	if _, err := svc.UpdateStatus(context.Background(), f.ID, "intruso", StatusSold); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-owner, got %v", err)
	}

	updated, err := svc.UpdateStatus(context.Background(), f.ID, "owner-1", StatusSold)
	if err != nil {
		t.Fatalf("UpdateStatus error: %v", err)
	}
	if updated.Status != StatusSold {
		t.Fatalf("expected sold, got %s", updated.Status)
	}
}

func TestService_UpdateStatus_RejectsUnknownStatus(t *testing.T) {
	svc := NewService(newTestRepo())

	_, err := svc.UpdateStatus(context.Background(), "f1", "owner-1", Status("flying"))
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestService_TransferOwnership_MutatesOwner(t *testing.T) {
	repo := newTestRepo()
	svc := NewService(repo)

	f, err := svc.Register(context.Background(), "owner-1", RegisterInput{Breed: "leghorn"})
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}

	if err := svc.TransferOwnership(context.Background(), f.ID, "owner-2"); err != nil {
		t.Fatalf("TransferOwnership error: %v", err)
	}

	got, err := svc.GetByID(context.Background(), f.ID)
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if got.OwnerUserID != "owner-2" {
		t.Fatalf("expected owner-2, got %s", got.OwnerUserID)
	}
}

func TestService_StoreErr_WrapsUnknownRepoErrors(t *testing.T) {
	err := storeErr(errors.New("connection refused"))
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable wrap, got %v", err)
	}

	if got := storeErr(ErrNotFound); !errors.Is(got, ErrNotFound) {
		t.Fatalf("expected ErrNotFound passthrough, got %v", got)
	}
}
