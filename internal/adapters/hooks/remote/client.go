// Package remote implementa los hooks opcionales de validación y
// completado contra un sistema externo (p.ej. el backend del
// marketplace que publica los listados).
package remote

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"fowl-traceability/internal/platform/httpclient"
	"fowl-traceability/internal/ports/hooks"
)

var (
	ErrNotConfigured = errors.New("hooks client not configured")
	ErrUpstream      = errors.New("hooks upstream error")
)

// Config del cliente de hooks.
// BaseURL y APIKey normalmente vienen de env vars (HOOKS_BASE_URL,
// HOOKS_API_KEY) en quien lo instancie.
type Config struct {
	BaseURL string
	APIKey  string

	// Opcional: header de la API key. Vacío => "X-Api-Key".
	APIKeyHeader string

	Timeout time.Duration
}

type Client struct {
	http         *httpclient.Client
	apiKey       string
	apiKeyHeader string
}

func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return nil, ErrNotConfigured
	}

	hc, err := httpclient.NewWithBaseURL(base, cfg.Timeout)
	if err != nil {
		return nil, err
	}

	header := strings.TrimSpace(cfg.APIKeyHeader)
	if header == "" {
		header = "X-Api-Key"
	}

	return &Client{
		http:         hc,
		apiKey:       strings.TrimSpace(cfg.APIKey),
		apiKeyHeader: header,
	}, nil
}

type validateRequest struct {
	ExpectedAttributes map[string]string `json:"expected_attributes"`
}

type validateResponse struct {
	Valid bool `json:"valid"`
}

// ValidateFowlAttributes implementa hooks.FowlValidator.
func (c *Client) ValidateFowlAttributes(ctx context.Context, fowlID string, expected map[string]string) (bool, error) {
	var out validateResponse
	err := c.http.DoJSON(ctx, http.MethodPost, "/fowls/"+fowlID+"/validate",
		c.headers(), validateRequest{ExpectedAttributes: expected}, &out)
	if err != nil {
		return false, upstreamErr(err)
	}
	return out.Valid, nil
}

type completedRequest struct {
	TransferID      string    `json:"transfer_id"`
	FowlID          string    `json:"fowl_id"`
	NewOwnerID      string    `json:"new_owner_id"`
	PreviousOwnerID string    `json:"previous_owner_id"`
	CompletedAt     time.Time `json:"completed_at"`
}

// OwnershipTransferCompleted implementa hooks.CompletionHook.
func (c *Client) OwnershipTransferCompleted(ctx context.Context, ev hooks.CompletionEvent) error {
	err := c.http.DoJSON(ctx, http.MethodPost, "/transfers/completed",
		c.headers(), completedRequest{
			TransferID:      ev.TransferID,
			FowlID:          ev.FowlID,
			NewOwnerID:      ev.NewOwnerID,
			PreviousOwnerID: ev.PreviousOwnerID,
			CompletedAt:     ev.CompletedAt,
		}, nil)
	if err != nil {
		return upstreamErr(err)
	}
	return nil
}

func (c *Client) headers() map[string]string {
	if c.apiKey == "" {
		return nil
	}
	return map[string]string{c.apiKeyHeader: c.apiKey}
}

func upstreamErr(err error) error {
	var httpErr *httpclient.HTTPError
	if errors.As(err, &httpErr) {
		return ErrUpstream
	}
	return err
}
