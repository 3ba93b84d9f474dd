package certificates

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"fowl-traceability/internal/domain/transfers"
	"fowl-traceability/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service, transfersSvc *transfers.Service) {
	// Emisión (partes / dueño)
	r.Post("/transfers/{transferID}/certificate", issueForTransferHandler(svc, transfersSvc))
	r.Post("/fowls/{fowlID}/certificate", issueForOwnershipHandler(svc))
	r.Get("/fowls/{fowlID}/certificates", listByFowlHandler(svc))

	r.Route("/certificates/{certificateID}", func(cr chi.Router) {
		cr.Get("/", getCertificateHandler(svc))

		// Superficie pública: sin auth, la usan terceros (QR del comprador)
		cr.Get("/verify", verifyCertificateHandler(svc))

		// Solo dueño del certificado o parte de la transferencia
		cr.Post("/invalidate", invalidateCertificateHandler(svc))
	})
}

type certificateResponse struct {
	ID                string           `json:"id"`
	FowlID            string           `json:"fowl_id"`
	OwnerUserID       string           `json:"owner_user_id"`
	TransferID        string           `json:"transfer_id,omitempty"`
	CertificateNumber string           `json:"certificate_number"`
	IssueDate         time.Time        `json:"issue_date"`
	Snapshot          snapshotResponse `json:"snapshot"`
	Payload           string           `json:"payload"`
	Valid             bool             `json:"valid"`
}

type snapshotResponse struct {
	FowlID          string     `json:"fowl_id"`
	OwnerUserID     string     `json:"owner_user_id"`
	Breed           string     `json:"breed"`
	Gender          string     `json:"gender"`
	DateOfBirth     *time.Time `json:"date_of_birth,omitempty"`
	ParentMaleID    string     `json:"parent_male_id,omitempty"`
	ParentFemaleID  string     `json:"parent_female_id,omitempty"`
	HealthSummary   string     `json:"health_summary,omitempty"`
	TransferPrice   *int64     `json:"transfer_price,omitempty"`
	TransferDate    *time.Time `json:"transfer_date,omitempty"`
	AncestorCount   int        `json:"ancestor_count"`
	DescendantCount int        `json:"descendant_count"`
}

type verifyResponse struct {
	Valid    bool              `json:"valid"`
	Snapshot *snapshotResponse `json:"snapshot,omitempty"`
}

func issueForTransferHandler(svc *Service, transfersSvc *transfers.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		transferID := chi.URLParam(r, "transferID")
		t, err := transfersSvc.Get(r.Context(), transferID)
		if err != nil {
			http.Error(w, "transfer not found", http.StatusNotFound)
			return
		}
		if !t.IsParty(claims.UserID) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		c, err := svc.IssueForTransfer(r.Context(), transferID)
		if err != nil {
			writeCertErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toCertificateResponse(c))
	}
}

func issueForOwnershipHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		c, err := svc.IssueForOwnership(r.Context(), chi.URLParam(r, "fowlID"), claims.UserID)
		if err != nil {
			writeCertErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toCertificateResponse(c))
	}
}

func listByFowlHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.ListByFowl(r.Context(), chi.URLParam(r, "fowlID"))
		if err != nil {
			writeCertErr(w, err)
			return
		}
		out := make([]certificateResponse, 0, len(items))
		for _, c := range items {
			out = append(out, toCertificateResponse(c))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func getCertificateHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		c, err := svc.GetByID(r.Context(), chi.URLParam(r, "certificateID"))
		if err != nil {
			writeCertErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toCertificateResponse(c))
	}
}

// verifyCertificateHandler godoc
// @Summary Verificar un certificado (público)
// @Description Superficie pública de verificación, sin autenticación: la usan terceros (p.ej. un comprador escaneando el QR) para confirmar autenticidad. Un certificado ausente o invalidado responde valid=false.
// @Tags certificates
// @Produce json
// @Param certificateID path string true "ID del certificado"
// @Success 200 {object} verifyResponse
// @Router /certificates/{certificateID}/verify [get]
func verifyCertificateHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := svc.Verify(r.Context(), chi.URLParam(r, "certificateID"))
		if err != nil {
			writeCertErr(w, err)
			return
		}

		out := verifyResponse{Valid: res.Valid}
		if res.Valid {
			snap := toSnapshotResponse(res.Certificate.Snapshot)
			out.Snapshot = &snap
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func invalidateCertificateHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		if err := svc.Invalidate(r.Context(), chi.URLParam(r, "certificateID"), claims.UserID); err != nil {
			writeCertErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func toCertificateResponse(c Certificate) certificateResponse {
	return certificateResponse{
		ID:                c.ID,
		FowlID:            c.FowlID,
		OwnerUserID:       c.OwnerUserID,
		TransferID:        c.TransferID,
		CertificateNumber: c.CertificateNumber,
		IssueDate:         c.IssueDate,
		Snapshot:          toSnapshotResponse(c.Snapshot),
		Payload:           c.Payload,
		Valid:             c.Valid,
	}
}

func toSnapshotResponse(s Snapshot) snapshotResponse {
	return snapshotResponse{
		FowlID:          s.FowlID,
		OwnerUserID:     s.OwnerUserID,
		Breed:           s.Breed,
		Gender:          s.Gender,
		DateOfBirth:     s.DateOfBirth,
		ParentMaleID:    s.ParentMaleID,
		ParentFemaleID:  s.ParentFemaleID,
		HealthSummary:   s.HealthSummary,
		TransferPrice:   s.TransferPrice,
		TransferDate:    s.TransferDate,
		AncestorCount:   s.AncestorCount,
		DescendantCount: s.DescendantCount,
	}
}

func writeCertErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "certificate not found", http.StatusNotFound)
	case errors.Is(err, ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, ErrInvalidState):
		http.Error(w, "transfer not completed", http.StatusConflict)
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
