package fowls

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrStoreUnavailable = errors.New("store unavailable")
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

type RegisterInput struct {
	Breed          string
	Gender         string
	DateOfBirth    *time.Time
	ParentMaleID   string
	ParentFemaleID string
	Traceable      bool
	Notes          string
}

func (s *Service) Register(ctx context.Context, ownerUserID string, in RegisterInput) (Fowl, error) {
	ownerUserID = strings.TrimSpace(ownerUserID)
	if ownerUserID == "" {
		return Fowl{}, ErrInvalidInput
	}
	if strings.TrimSpace(in.Breed) == "" {
		return Fowl{}, ErrInvalidInput
	}

	gender := Gender(strings.TrimSpace(in.Gender))
	if gender == "" {
		gender = GenderUnknown
	}
	switch gender {
	case GenderMale, GenderFemale, GenderUnknown:
	default:
		return Fowl{}, ErrInvalidInput
	}

	maleID := strings.TrimSpace(in.ParentMaleID)
	femaleID := strings.TrimSpace(in.ParentFemaleID)
	if maleID != "" && maleID == femaleID {
		return Fowl{}, ErrInvalidInput
	}
	// Los padres, si vienen, deben existir ya en el registro.
	for _, pid := range []string{maleID, femaleID} {
		if pid == "" {
			continue
		}
		if _, err := s.repo.GetByID(ctx, pid); err != nil {
			if errors.Is(err, ErrNotFound) {
				return Fowl{}, ErrInvalidInput
			}
			return Fowl{}, storeErr(err)
		}
	}

	now := s.now()
	f := Fowl{
		ID:             uuid.NewString(),
		OwnerUserID:    ownerUserID,
		Breed:          Breed(strings.TrimSpace(in.Breed)),
		Gender:         gender,
		DateOfBirth:    in.DateOfBirth,
		ParentMaleID:   maleID,
		ParentFemaleID: femaleID,
		Status:         StatusActive,
		Traceable:      in.Traceable,
		Notes:          strings.TrimSpace(in.Notes),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Create(ctx, f); err != nil {
		return Fowl{}, storeErr(err)
	}
	return f, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Fowl, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Fowl{}, ErrInvalidInput
	}
	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Fowl{}, storeErr(err)
	}
	return f, nil
}

func (s *Service) ListByOwner(ctx context.Context, ownerUserID string) ([]Fowl, error) {
	ownerUserID = strings.TrimSpace(ownerUserID)
	if ownerUserID == "" {
		return nil, ErrInvalidInput
	}
	out, err := s.repo.ListByOwner(ctx, ownerUserID)
	if err != nil {
		return nil, storeErr(err)
	}
	return out, nil
}

// UpdateStatus cambia el estado del fowl (sold, deceased, active).
// Solo el dueño actual puede hacerlo.
func (s *Service) UpdateStatus(ctx context.Context, fowlID, byUserID string, status Status) (Fowl, error) {
	switch status {
	case StatusActive, StatusSold, StatusDeceased:
	default:
		return Fowl{}, ErrInvalidInput
	}

	f, err := s.GetByID(ctx, fowlID)
	if err != nil {
		return Fowl{}, err
	}
	if f.OwnerUserID != strings.TrimSpace(byUserID) {
		return Fowl{}, ErrForbidden
	}

	f.Status = status
	f.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, f); err != nil {
		return Fowl{}, storeErr(err)
	}
	return f, nil
}

// OwnerOf expone el ownerUserID de un fowl.
// Se usa para evitar ciclos de imports entre módulos (fowls <-> transfers).
func (s *Service) OwnerOf(ctx context.Context, fowlID string) (string, error) {
	f, err := s.GetByID(ctx, fowlID)
	if err != nil {
		return "", err
	}
	return f.OwnerUserID, nil
}

// ListByParent expone la búsqueda inversa del grafo de linaje.
func (s *Service) ListByParent(ctx context.Context, parentID string) ([]Fowl, error) {
	parentID = strings.TrimSpace(parentID)
	if parentID == "" {
		return nil, ErrInvalidInput
	}
	out, err := s.repo.ListByParent(ctx, parentID)
	if err != nil {
		return nil, storeErr(err)
	}
	return out, nil
}

// TransferOwnership muta el dueño del fowl. Lo invoca el módulo de
// transferencias después de ganar el CAS de completado; no valida partes.
func (s *Service) TransferOwnership(ctx context.Context, fowlID, newOwnerID string) error {
	fowlID = strings.TrimSpace(fowlID)
	newOwnerID = strings.TrimSpace(newOwnerID)
	if fowlID == "" || newOwnerID == "" {
		return ErrInvalidInput
	}
	if err := s.repo.TransferOwnership(ctx, fowlID, newOwnerID, s.now()); err != nil {
		return storeErr(err)
	}
	return nil
}

// storeErr normaliza errores del repo: los sentinels del dominio y la
// cancelación pasan intactos, el resto se reporta como store unavailable.
func storeErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrInvalidInput),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}
