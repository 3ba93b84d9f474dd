// Package authsvc implementa auth.Verifier contra el servicio de
// identidad de la plataforma.
package authsvc

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"fowl-traceability/internal/platform/httpclient"
	"fowl-traceability/internal/ports/auth"
)

var (
	ErrNotConfigured = errors.New("auth client not configured")
	ErrUnauthorized  = errors.New("auth unauthorized")
	ErrUpstream      = errors.New("auth upstream error")
)

type Config struct {
	BaseURL string
	Timeout time.Duration
}

type Verifier struct {
	http *httpclient.Client
}

func NewVerifier(cfg Config) (*Verifier, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return nil, ErrNotConfigured
	}

	hc, err := httpclient.NewWithBaseURL(base, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	return &Verifier{http: hc}, nil
}

type verifyResponse struct {
	UserID string `json:"user_id"`
}

func (v *Verifier) Verify(ctx context.Context, token string) (auth.Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return auth.Claims{}, ErrUnauthorized
	}

	var out verifyResponse
	err := v.http.DoJSON(ctx, http.MethodGet, "/auth/verify",
		map[string]string{"Authorization": "Bearer " + token}, nil, &out)
	if err != nil {
		var httpErr *httpclient.HTTPError
		if errors.As(err, &httpErr) {
			if httpErr.StatusCode == http.StatusUnauthorized || httpErr.StatusCode == http.StatusForbidden {
				return auth.Claims{}, ErrUnauthorized
			}
			return auth.Claims{}, ErrUpstream
		}
		return auth.Claims{}, err
	}

	if strings.TrimSpace(out.UserID) == "" {
		return auth.Claims{}, ErrUnauthorized
	}

	return auth.Claims{UserID: out.UserID}, nil
}
