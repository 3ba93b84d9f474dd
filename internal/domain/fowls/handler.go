package fowls

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"fowl-traceability/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/fowls", func(fr chi.Router) {
		fr.Post("/", registerFowlHandler(svc))
		fr.Get("/", listFowlsHandler(svc))

		// Perfil del fowl (cualquier usuario autenticado: los compradores
		// necesitan verlo antes de aceptar una transferencia)
		fr.Get("/{fowlID}", getFowlHandler(svc))

		// Cambiar estado (solo owner)
		fr.Post("/{fowlID}/status", updateFowlStatusHandler(svc))
	})
}

type registerFowlRequest struct {
	Breed          string `json:"breed"`
	Gender         string `json:"gender"`
	DateOfBirth    string `json:"date_of_birth"` // YYYY-MM-DD opcional
	ParentMaleID   string `json:"parent_male_id"`
	ParentFemaleID string `json:"parent_female_id"`
	Traceable      bool   `json:"traceable"`
	Notes          string `json:"notes"`
}

type fowlResponse struct {
	ID             string     `json:"id"`
	OwnerUserID    string     `json:"owner_user_id"`
	Breed          string     `json:"breed"`
	Gender         string     `json:"gender"`
	DateOfBirth    *time.Time `json:"date_of_birth,omitempty"`
	ParentMaleID   string     `json:"parent_male_id,omitempty"`
	ParentFemaleID string     `json:"parent_female_id,omitempty"`
	Status         string     `json:"status"`
	Traceable      bool       `json:"traceable"`
	Notes          string     `json:"notes"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type updateFowlStatusRequest struct {
	Status string `json:"status"`
}

// registerFowlHandler godoc
// @Summary Registrar un fowl
// @Description Registra un ave trazable. Los padres (parent_male_id / parent_female_id) son opcionales pero deben existir. Autenticación: `X-Debug-User-ID` (dev) o `Authorization: Bearer <token>` (prod).
// @Tags fowls
// @Accept json
// @Produce json
// @Param payload body registerFowlRequest true "Datos del fowl; date_of_birth en formato YYYY-MM-DD"
// @Success 201 {object} fowlResponse
// @Failure 400 {string} string "invalid json / reglas de negocio"
// @Failure 401 {string} string "unauthorized"
// @Router /fowls [post]
func registerFowlHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req registerFowlRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		var dob *time.Time
		if strings.TrimSpace(req.DateOfBirth) != "" {
			t, err := time.Parse("2006-01-02", req.DateOfBirth)
			if err != nil {
				http.Error(w, "date_of_birth must be YYYY-MM-DD", http.StatusBadRequest)
				return
			}
			dob = &t
		}

		f, err := svc.Register(r.Context(), claims.UserID, RegisterInput{
			Breed:          req.Breed,
			Gender:         req.Gender,
			DateOfBirth:    dob,
			ParentMaleID:   req.ParentMaleID,
			ParentFemaleID: req.ParentFemaleID,
			Traceable:      req.Traceable,
			Notes:          req.Notes,
		})
		if err != nil {
			writeErr(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toFowlResponse(f))
	}
}

func listFowlsHandler(svc *Service) http.HandlerFunc {
	// Owner-only: lista mis fowls
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.ListByOwner(r.Context(), claims.UserID)
		if err != nil {
			writeErr(w, err)
			return
		}

		out := make([]fowlResponse, 0, len(items))
		for _, f := range items {
			out = append(out, toFowlResponse(f))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func getFowlHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		f, err := svc.GetByID(r.Context(), chi.URLParam(r, "fowlID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toFowlResponse(f))
	}
}

func updateFowlStatusHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req updateFowlStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		f, err := svc.UpdateStatus(r.Context(), chi.URLParam(r, "fowlID"), claims.UserID, Status(strings.TrimSpace(req.Status)))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toFowlResponse(f))
	}
}

func toFowlResponse(f Fowl) fowlResponse {
	return fowlResponse{
		ID:             f.ID,
		OwnerUserID:    f.OwnerUserID,
		Breed:          string(f.Breed),
		Gender:         string(f.Gender),
		DateOfBirth:    f.DateOfBirth,
		ParentMaleID:   f.ParentMaleID,
		ParentFemaleID: f.ParentFemaleID,
		Status:         string(f.Status),
		Traceable:      f.Traceable,
		Notes:          f.Notes,
		CreatedAt:      f.CreatedAt,
		UpdatedAt:      f.UpdatedAt,
	}
}

func writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "fowl not found", http.StatusNotFound)
	case errors.Is(err, ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
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
