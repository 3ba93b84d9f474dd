package certificates

import "context"

type Repository interface {
	// Create es idempotente por transfer_id: si el certificado tiene
	// TransferID y ya existe uno para esa transferencia, devuelve el
	// existente sin crear otro. Certificados de tenencia (TransferID
	// vacío) se insertan siempre.
	Create(ctx context.Context, c Certificate) (Certificate, error)

	GetByID(ctx context.Context, id string) (Certificate, error)
	GetByTransfer(ctx context.Context, transferID string) (Certificate, error)
	ListByFowl(ctx context.Context, fowlID string) ([]Certificate, error)

	SetValidity(ctx context.Context, id string, valid bool) error
}
