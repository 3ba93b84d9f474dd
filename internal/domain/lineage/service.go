package lineage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fowl-traceability/internal/domain/fowls"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrNotFound         = errors.New("not found")
	ErrStoreUnavailable = errors.New("store unavailable")
)

const (
	DefaultGenerations = 3
	MaxGenerations     = 10
)

// FowlSource es el port de solo lectura sobre el registro de fowls.
// *fowls.Service lo implementa; la interfaz angosta evita acoplar el
// módulo de linaje al servicio completo.
type FowlSource interface {
	GetByID(ctx context.Context, id string) (fowls.Fowl, error)
	ListByParent(ctx context.Context, parentID string) ([]fowls.Fowl, error)
}

// Service reconstruye relaciones del grafo de linaje. Solo lectura:
// nunca muta fowls ni transferencias.
//
// El grafo es nominalmente acíclico, pero la traversal se defiende de
// datos corruptos (ciclos, self-parent) con un visited set por llamada,
// así la terminación es una garantía estructural y no una suposición.
type Service struct {
	src FowlSource
}

func NewService(src FowlSource) *Service {
	return &Service{src: src}
}

// GetParents devuelve los padres directos (macho, hembra); nil si no hay.
func (s *Service) GetParents(ctx context.Context, fowlID string) (*fowls.Fowl, *fowls.Fowl, error) {
	f, err := s.get(ctx, fowlID)
	if err != nil {
		return nil, nil, err
	}

	male, err := s.lookupParent(ctx, f.ID, f.ParentMaleID)
	if err != nil {
		return nil, nil, err
	}
	female, err := s.lookupParent(ctx, f.ID, f.ParentFemaleID)
	if err != nil {
		return nil, nil, err
	}
	return male, female, nil
}

// GetChildren devuelve los fowls que tienen a fowlID como padre o madre,
// deduplicado por id.
func (s *Service) GetChildren(ctx context.Context, fowlID string) ([]fowls.Fowl, error) {
	fowlID = strings.TrimSpace(fowlID)
	if fowlID == "" {
		return nil, ErrInvalidInput
	}

	items, err := s.src.ListByParent(ctx, fowlID)
	if err != nil {
		return nil, s.mapErr(err)
	}

	return dedup(items, nil), nil
}

// GetSiblings devuelve la unión de los hijos de ambos padres,
// excluyendo al propio fowl, deduplicado.
func (s *Service) GetSiblings(ctx context.Context, fowlID string) ([]fowls.Fowl, error) {
	f, err := s.get(ctx, fowlID)
	if err != nil {
		return nil, err
	}

	var all []fowls.Fowl
	for _, pid := range parentIDs(f) {
		kids, err := s.src.ListByParent(ctx, pid)
		if err != nil {
			return nil, s.mapErr(err)
		}
		all = append(all, kids...)
	}

	exclude := map[string]struct{}{f.ID: {}}
	return dedup(all, exclude), nil
}

// GetAncestors hace BFS hacia arriba acotado por generations.
// Visited set por id garantiza terminación aun con ciclos en los datos,
// y evita la explosión por ancestros compartidos: el costo es
// O(nodos visitados).
func (s *Service) GetAncestors(ctx context.Context, fowlID string, generations int) ([]fowls.Fowl, error) {
	root, err := s.get(ctx, fowlID)
	if err != nil {
		return nil, err
	}
	generations = clampGenerations(generations)

	visited := map[string]struct{}{root.ID: {}}
	out := make([]fowls.Fowl, 0)
	frontier := []fowls.Fowl{root}

	for gen := 0; gen < generations && len(frontier) > 0; gen++ {
		var next []fowls.Fowl
		for _, f := range frontier {
			for _, pid := range parentIDs(f) {
				if pid == f.ID {
					// self-parent: dato corrupto, se ignora
					continue
				}
				if _, seen := visited[pid]; seen {
					continue
				}
				visited[pid] = struct{}{}

				p, err := s.src.GetByID(ctx, pid)
				if err != nil {
					if errors.Is(err, fowls.ErrNotFound) {
						// referencia colgante: el linaje sigue sin ese nodo
						continue
					}
					return nil, s.mapErr(err)
				}
				out = append(out, p)
				next = append(next, p)
			}
		}
		frontier = next
	}
	return out, nil
}

// GetDescendants hace BFS hacia abajo acotado por generations,
// con el mismo visited set que GetAncestors.
func (s *Service) GetDescendants(ctx context.Context, fowlID string, generations int) ([]fowls.Fowl, error) {
	root, err := s.get(ctx, fowlID)
	if err != nil {
		return nil, err
	}
	generations = clampGenerations(generations)

	visited := map[string]struct{}{root.ID: {}}
	out := make([]fowls.Fowl, 0)
	frontier := []string{root.ID}

	for gen := 0; gen < generations && len(frontier) > 0; gen++ {
		var next []string
		for _, id := range frontier {
			kids, err := s.src.ListByParent(ctx, id)
			if err != nil {
				return nil, s.mapErr(err)
			}
			for _, k := range kids {
				if _, seen := visited[k.ID]; seen {
					continue
				}
				visited[k.ID] = struct{}{}
				out = append(out, k)
				next = append(next, k.ID)
			}
		}
		frontier = next
	}
	return out, nil
}

// FamilyTree es el payload compuesto para display.
type FamilyTree struct {
	Root         fowls.Fowl
	ParentMale   *fowls.Fowl
	ParentFemale *fowls.Fowl
	Children     []fowls.Fowl
}

func (s *Service) GetFamilyTree(ctx context.Context, fowlID string) (FamilyTree, error) {
	root, err := s.get(ctx, fowlID)
	if err != nil {
		return FamilyTree{}, err
	}

	male, female, err := s.GetParents(ctx, root.ID)
	if err != nil {
		return FamilyTree{}, err
	}
	children, err := s.GetChildren(ctx, root.ID)
	if err != nil {
		return FamilyTree{}, err
	}

	return FamilyTree{
		Root:         root,
		ParentMale:   male,
		ParentFemale: female,
		Children:     children,
	}, nil
}

func (s *Service) get(ctx context.Context, fowlID string) (fowls.Fowl, error) {
	fowlID = strings.TrimSpace(fowlID)
	if fowlID == "" {
		return fowls.Fowl{}, ErrInvalidInput
	}
	f, err := s.src.GetByID(ctx, fowlID)
	if err != nil {
		return fowls.Fowl{}, s.mapErr(err)
	}
	return f, nil
}

func (s *Service) lookupParent(ctx context.Context, selfID, parentID string) (*fowls.Fowl, error) {
	if parentID == "" || parentID == selfID {
		return nil, nil
	}
	p, err := s.src.GetByID(ctx, parentID)
	if err != nil {
		if errors.Is(err, fowls.ErrNotFound) {
			return nil, nil
		}
		return nil, s.mapErr(err)
	}
	return &p, nil
}

func (s *Service) mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fowls.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, fowls.ErrInvalidInput):
		return ErrInvalidInput
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}

func clampGenerations(n int) int {
	if n <= 0 {
		return DefaultGenerations
	}
	if n > MaxGenerations {
		return MaxGenerations
	}
	return n
}

func parentIDs(f fowls.Fowl) []string {
	ids := make([]string, 0, 2)
	if f.ParentMaleID != "" {
		ids = append(ids, f.ParentMaleID)
	}
	if f.ParentFemaleID != "" && f.ParentFemaleID != f.ParentMaleID {
		ids = append(ids, f.ParentFemaleID)
	}
	return ids
}

func dedup(items []fowls.Fowl, exclude map[string]struct{}) []fowls.Fowl {
	seen := map[string]struct{}{}
	out := make([]fowls.Fowl, 0, len(items))
	for _, f := range items {
		if _, skip := exclude[f.ID]; skip {
			continue
		}
		if _, ok := seen[f.ID]; ok {
			continue
		}
		seen[f.ID] = struct{}{}
		out = append(out, f)
	}
	return out
}
