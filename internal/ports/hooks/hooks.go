package hooks

import (
	"context"
	"time"
)

// FowlValidator valida atributos de un fowl contra un sistema externo
// (p.ej. el listado del marketplace) antes de iniciar una transferencia.
type FowlValidator interface {
	ValidateFowlAttributes(ctx context.Context, fowlID string, expected map[string]string) (bool, error)
}

// CompletionEvent es el payload que se publica cuando una transferencia
// de propiedad queda completada.
type CompletionEvent struct {
	TransferID      string
	FowlID          string
	NewOwnerID      string
	PreviousOwnerID string
	CompletedAt     time.Time
}

// CompletionHook recibe el evento post-completado.
// Es best-effort: un error aquí se loguea y no revierte la transferencia.
type CompletionHook interface {
	OwnershipTransferCompleted(ctx context.Context, ev CompletionEvent) error
}
