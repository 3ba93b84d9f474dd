package transfers

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
	r.Route("/transfers", func(tr chi.Router) {
		tr.Post("/", initiateTransferHandler(svc))
		tr.Get("/", listTransfersHandler(svc))

		tr.Get("/{transferID}", getTransferHandler(svc))
		tr.Post("/{transferID}/cancel", cancelTransferHandler(svc))

		tr.Post("/{transferID}/verify", submitVerificationHandler(svc))
		tr.Get("/{transferID}/verifications", listVerificationsHandler(svc))
	})
}

type initiateTransferRequest struct {
	FowlID             string            `json:"fowl_id"`
	ToUserID           string            `json:"to_user_id"`
	Price              *int64            `json:"price"`
	ExpectedAttributes map[string]string `json:"expected_attributes,omitempty"`
}

type transferResponse struct {
	ID          string     `json:"id"`
	FowlID      string     `json:"fowl_id"`
	FromUserID  string     `json:"from_user_id"`
	ToUserID    string     `json:"to_user_id"`
	Status      string     `json:"status"`
	Price       *int64     `json:"price,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
}

type submitVerificationRequest struct {
	EvidenceRefs []string `json:"evidence_refs"`
	Notes        string   `json:"notes"`
}

type verificationResponse struct {
	ID           string    `json:"id"`
	TransferID   string    `json:"transfer_id"`
	VerifierID   string    `json:"verifier_id"`
	EvidenceRefs []string  `json:"evidence_refs,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	VerifiedAt   time.Time `json:"verified_at"`
}

type submitVerificationResponse struct {
	Verification verificationResponse `json:"verification"`
	Transfer     transferResponse     `json:"transfer"`
}

// initiateTransferHandler godoc
// @Summary Iniciar transferencia de propiedad
// @Description Crea una transferencia en estado `initiated`. Rechaza con 400 si el iniciador no es el dueño actual del fowl y con 409 si ya existe una transferencia no-terminal para ese fowl. Autenticación: `X-Debug-User-ID` (dev) o `Authorization: Bearer <token>` (prod).
// @Tags transfers
// @Accept json
// @Produce json
// @Param payload body initiateTransferRequest true "fowl_id, to_user_id, price opcional en unidades menores"
// @Success 201 {object} transferResponse
// @Failure 400 {string} string "invalid json / no es el dueño"
// @Failure 401 {string} string "unauthorized"
// @Failure 404 {string} string "fowl not found"
// @Failure 409 {string} string "active transfer exists"
// @Router /transfers [post]
func initiateTransferHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req initiateTransferRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		t, err := svc.Initiate(r.Context(), claims.UserID, InitiateInput{
			FowlID:             req.FowlID,
			ToUserID:           req.ToUserID,
			Price:              req.Price,
			ExpectedAttributes: req.ExpectedAttributes,
		})
		if err != nil {
			writeTransferErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toTransferResponse(t))
	}
}

func listTransfersHandler(svc *Service) http.HandlerFunc {
	// Transferencias donde soy vendedor o comprador
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.ListByUser(r.Context(), claims.UserID)
		if err != nil {
			writeTransferErr(w, err)
			return
		}

		out := make([]transferResponse, 0, len(items))
		for _, t := range items {
			out = append(out, toTransferResponse(t))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func getTransferHandler(svc *Service) http.HandlerFunc {
	// Solo las partes ven el detalle
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		t, err := svc.Get(r.Context(), chi.URLParam(r, "transferID"))
		if err != nil {
			writeTransferErr(w, err)
			return
		}
		if !t.IsParty(claims.UserID) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		writeJSON(w, http.StatusOK, toTransferResponse(t))
	}
}

func cancelTransferHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		t, err := svc.Cancel(r.Context(), chi.URLParam(r, "transferID"), claims.UserID)
		if err != nil {
			writeTransferErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toTransferResponse(t))
	}
}

// submitVerificationHandler godoc
// @Summary Confirmar una transferencia
// @Description Registra la verificación de una de las partes. Cuando ambas partes verificaron, la transferencia pasa a `completed`, el fowl cambia de dueño y se emite el certificado. Un segundo submit del mismo usuario actualiza su verificación (latest-wins).
// @Tags transfers
// @Accept json
// @Produce json
// @Param transferID path string true "ID de la transferencia"
// @Param payload body submitVerificationRequest true "Evidencia opcional"
// @Success 200 {object} submitVerificationResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "no es parte de la transferencia"
// @Failure 404 {string} string "transfer not found"
// @Failure 409 {string} string "transferencia terminal"
// @Router /transfers/{transferID}/verify [post]
func submitVerificationHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req submitVerificationRequest
		if r.Body != nil {
			// body opcional: la evidencia no es obligatoria
			_ = json.NewDecoder(r.Body).Decode(&req)
		}

		v, t, err := svc.SubmitVerification(r.Context(), chi.URLParam(r, "transferID"), claims.UserID, VerificationInput{
			EvidenceRefs: req.EvidenceRefs,
			Notes:        req.Notes,
		})
		if err != nil {
			writeTransferErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, submitVerificationResponse{
			Verification: toVerificationResponse(v),
			Transfer:     toTransferResponse(t),
		})
	}
}

func listVerificationsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		transferID := chi.URLParam(r, "transferID")
		t, err := svc.Get(r.Context(), transferID)
		if err != nil {
			writeTransferErr(w, err)
			return
		}
		if !t.IsParty(claims.UserID) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		items, err := svc.GetVerifications(r.Context(), transferID)
		if err != nil {
			writeTransferErr(w, err)
			return
		}
		out := make([]verificationResponse, 0, len(items))
		for _, v := range items {
			out = append(out, toVerificationResponse(v))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func toTransferResponse(t Transfer) transferResponse {
	return transferResponse{
		ID:          t.ID,
		FowlID:      t.FowlID,
		FromUserID:  t.FromUserID,
		ToUserID:    t.ToUserID,
		Status:      string(t.Status),
		Price:       t.Price,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		CompletedAt: t.CompletedAt,
		CancelledAt: t.CancelledAt,
	}
}

func toVerificationResponse(v Verification) verificationResponse {
	return verificationResponse{
		ID:           v.ID,
		TransferID:   v.TransferID,
		VerifierID:   v.VerifierID,
		EvidenceRefs: v.EvidenceRefs,
		Notes:        v.Notes,
		VerifiedAt:   v.VerifiedAt,
	}
}

func writeTransferErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "transfer not found", http.StatusNotFound)
	case errors.Is(err, ErrUnauthorized):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, ErrActiveTransferExists):
		http.Error(w, "active transfer exists for fowl", http.StatusConflict)
	case errors.Is(err, ErrInvalidState):
		http.Error(w, "invalid state for operation", http.StatusConflict)
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
