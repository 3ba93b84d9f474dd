package transfers

import (
	"context"
	"time"
)

// Repository es el port de persistencia de transferencias.
// Los adapters devuelven los sentinels de este paquete.
type Repository interface {
	// Create inserta la transferencia solo si no existe otra no-terminal
	// para el mismo fowl; en ese caso devuelve ErrActiveTransferExists.
	// La unicidad se chequea dentro del adapter (bajo lock o en el mismo
	// statement), no en el servicio.
	Create(ctx context.Context, t Transfer) error

	GetByID(ctx context.Context, id string) (Transfer, error)

	// ListByUser devuelve transferencias donde userID es vendedor o comprador.
	ListByUser(ctx context.Context, userID string) ([]Transfer, error)

	// UpdateStatusIf es el write condicional (compare-and-swap): cambia a
	// `to` solo si el estado actual está en `from`. Si el estado actual no
	// está en `from` devuelve ErrStateConflict; si no existe, ErrNotFound.
	// completed_at / cancelled_at se setean según el estado destino.
	UpdateStatusIf(ctx context.Context, id string, from []Status, to Status, at time.Time) (Transfer, error)
}

// VerificationsRepository persiste las confirmaciones de las partes.
type VerificationsRepository interface {
	// Upsert aplica latest-wins por (transfer_id, verifier_id): si ya hay
	// una verificación de ese verificador la actualiza conservando su id.
	Upsert(ctx context.Context, v Verification) (Verification, error)

	ListByTransfer(ctx context.Context, transferID string) ([]Verification, error)
}
