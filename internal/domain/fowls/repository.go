package fowls

import (
	"context"
	"time"
)

// Repository es el port de persistencia de fowls.
// Los adapters devuelven los sentinels de este paquete (ErrNotFound).
type Repository interface {
	Create(ctx context.Context, f Fowl) error
	GetByID(ctx context.Context, id string) (Fowl, error)
	ListByOwner(ctx context.Context, ownerUserID string) ([]Fowl, error)
	Update(ctx context.Context, f Fowl) error

	// ListByParent devuelve los fowls cuyo parent_male_id o parent_female_id
	// es parentID, deduplicado por id. Lo consume el servicio de linaje.
	ListByParent(ctx context.Context, parentID string) ([]Fowl, error)

	// TransferOwnership cambia el dueño en un solo write.
	// Lo invoca únicamente la transferencia que ganó el CAS de completado.
	TransferOwnership(ctx context.Context, fowlID, newOwnerID string, at time.Time) error
}
