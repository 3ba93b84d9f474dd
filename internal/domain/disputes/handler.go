package disputes

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
	r.Post("/transfers/{transferID}/disputes", createDisputeHandler(svc))
	r.Get("/transfers/{transferID}/disputes", listDisputesHandler(svc, transfersSvc))

	// Superficie administrativa: avanza el estado de la disputa.
	r.Post("/disputes/{disputeID}/status", updateDisputeStatusHandler(svc))
}

type createDisputeRequest struct {
	Reason string `json:"reason"`
}

type updateDisputeRequest struct {
	Status         string `json:"status"`
	ResolutionNote string `json:"resolution_note"`
}

type disputeResponse struct {
	ID             string     `json:"id"`
	TransferID     string     `json:"transfer_id"`
	RaisedBy       string     `json:"raised_by"`
	Reason         string     `json:"reason"`
	Status         string     `json:"status"`
	ResolutionNote string     `json:"resolution_note,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
}

func createDisputeHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req createDisputeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		d, err := svc.Create(r.Context(), chi.URLParam(r, "transferID"), claims.UserID, req.Reason)
		if err != nil {
			writeDisputeErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toDisputeResponse(d))
	}
}

func listDisputesHandler(svc *Service, transfersSvc *transfers.Service) http.HandlerFunc {
	// Solo las partes de la transferencia ven sus disputas
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

		items, err := svc.ListByTransfer(r.Context(), transferID)
		if err != nil {
			writeDisputeErr(w, err)
			return
		}
		out := make([]disputeResponse, 0, len(items))
		for _, d := range items {
			out = append(out, toDisputeResponse(d))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func updateDisputeStatusHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req updateDisputeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		d, err := svc.UpdateStatus(r.Context(), chi.URLParam(r, "disputeID"),
			Status(strings.TrimSpace(req.Status)), req.ResolutionNote)
		if err != nil {
			writeDisputeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toDisputeResponse(d))
	}
}

func toDisputeResponse(d Dispute) disputeResponse {
	return disputeResponse{
		ID:             d.ID,
		TransferID:     d.TransferID,
		RaisedBy:       d.RaisedBy,
		Reason:         d.Reason,
		Status:         string(d.Status),
		ResolutionNote: d.ResolutionNote,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
		ResolvedAt:     d.ResolvedAt,
	}
}

func writeDisputeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, ErrBadState):
		http.Error(w, "invalid state", http.StatusConflict)
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
