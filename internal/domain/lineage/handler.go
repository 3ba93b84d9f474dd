package lineage

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fowl-traceability/internal/domain/fowls"
	"fowl-traceability/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/fowls/{fowlID}/lineage", func(lr chi.Router) {
		lr.Get("/parents", getParentsHandler(svc))
		lr.Get("/children", getChildrenHandler(svc))
		lr.Get("/siblings", getSiblingsHandler(svc))
		lr.Get("/ancestors", getAncestorsHandler(svc))
		lr.Get("/descendants", getDescendantsHandler(svc))
		lr.Get("/tree", getFamilyTreeHandler(svc))
	})
}

type lineageFowl struct {
	ID             string     `json:"id"`
	OwnerUserID    string     `json:"owner_user_id"`
	Breed          string     `json:"breed"`
	Gender         string     `json:"gender"`
	DateOfBirth    *time.Time `json:"date_of_birth,omitempty"`
	ParentMaleID   string     `json:"parent_male_id,omitempty"`
	ParentFemaleID string     `json:"parent_female_id,omitempty"`
	Status         string     `json:"status"`
}

type parentsResponse struct {
	Male   *lineageFowl `json:"male"`
	Female *lineageFowl `json:"female"`
}

type familyTreeResponse struct {
	Root     lineageFowl     `json:"root"`
	Parents  parentsResponse `json:"parents"`
	Children []lineageFowl   `json:"children"`
}

func getParentsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireUser(w, r) {
			return
		}
		male, female, err := svc.GetParents(r.Context(), chi.URLParam(r, "fowlID"))
		if err != nil {
			writeLineageErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, parentsResponse{
			Male:   toLineageFowlPtr(male),
			Female: toLineageFowlPtr(female),
		})
	}
}

func getChildrenHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireUser(w, r) {
			return
		}
		items, err := svc.GetChildren(r.Context(), chi.URLParam(r, "fowlID"))
		if err != nil {
			writeLineageErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toLineageFowls(items))
	}
}

func getSiblingsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireUser(w, r) {
			return
		}
		items, err := svc.GetSiblings(r.Context(), chi.URLParam(r, "fowlID"))
		if err != nil {
			writeLineageErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toLineageFowls(items))
	}
}

// getAncestorsHandler godoc
// @Summary Ancestros de un fowl
// @Description BFS acotado por `generations` (default 3, máximo 10). Devuelve un set deduplicado; el orden es por generación descubierta.
// @Tags lineage
// @Produce json
// @Param fowlID path string true "ID del fowl"
// @Param generations query int false "Generaciones hacia arriba (1-10)"
// @Success 200 {array} lineageFowl
// @Failure 404 {string} string "fowl not found"
// @Router /fowls/{fowlID}/lineage/ancestors [get]
func getAncestorsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireUser(w, r) {
			return
		}
		items, err := svc.GetAncestors(r.Context(), chi.URLParam(r, "fowlID"), parseGenerations(r))
		if err != nil {
			writeLineageErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toLineageFowls(items))
	}
}

func getDescendantsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireUser(w, r) {
			return
		}
		items, err := svc.GetDescendants(r.Context(), chi.URLParam(r, "fowlID"), parseGenerations(r))
		if err != nil {
			writeLineageErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toLineageFowls(items))
	}
}

func getFamilyTreeHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireUser(w, r) {
			return
		}
		tree, err := svc.GetFamilyTree(r.Context(), chi.URLParam(r, "fowlID"))
		if err != nil {
			writeLineageErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, familyTreeResponse{
			Root: toLineageFowl(tree.Root),
			Parents: parentsResponse{
				Male:   toLineageFowlPtr(tree.ParentMale),
				Female: toLineageFowlPtr(tree.ParentFemale),
			},
			Children: toLineageFowls(tree.Children),
		})
	}
}

func requireUser(w http.ResponseWriter, r *http.Request) bool {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok || strings.TrimSpace(claims.UserID) == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return false
	}
	return true
}

func parseGenerations(r *http.Request) int {
	v := strings.TrimSpace(r.URL.Query().Get("generations"))
	if v == "" {
		return DefaultGenerations
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return DefaultGenerations
	}
	return n
}

func toLineageFowl(f fowls.Fowl) lineageFowl {
	return lineageFowl{
		ID:             f.ID,
		OwnerUserID:    f.OwnerUserID,
		Breed:          string(f.Breed),
		Gender:         string(f.Gender),
		DateOfBirth:    f.DateOfBirth,
		ParentMaleID:   f.ParentMaleID,
		ParentFemaleID: f.ParentFemaleID,
		Status:         string(f.Status),
	}
}

func toLineageFowlPtr(f *fowls.Fowl) *lineageFowl {
	if f == nil {
		return nil
	}
	out := toLineageFowl(*f)
	return &out
}

func toLineageFowls(items []fowls.Fowl) []lineageFowl {
	out := make([]lineageFowl, 0, len(items))
	for _, f := range items {
		out = append(out, toLineageFowl(f))
	}
	return out
}

func writeLineageErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "fowl not found", http.StatusNotFound)
	case errors.Is(err, ErrStoreUnavailable):
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// writeJSON está duplicado intencionalmente en handlers de distintos módulos
// para evitar crear paquetes/helpers compartidos demasiado pronto.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
