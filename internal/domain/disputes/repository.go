package disputes

import "context"

type Repository interface {
	Create(ctx context.Context, d Dispute) error
	GetByID(ctx context.Context, id string) (Dispute, error)
	Update(ctx context.Context, d Dispute) error
	ListByTransfer(ctx context.Context, transferID string) ([]Dispute, error)
}
