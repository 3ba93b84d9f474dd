package disputes

import "time"

// Status define el ciclo administrativo de una disputa.
// @Enum pending, reviewed, resolved
type Status string

const (
	StatusPending  Status = "pending"
	StatusReviewed Status = "reviewed"
	StatusResolved Status = "resolved"
)

// Dispute registra un desacuerdo sobre una transferencia. Es
// informativo/administrativo: resolverla nunca revierte la propiedad
// (una reversión sería una transferencia nueva, auditada aparte).
type Dispute struct {
	ID         string
	TransferID string

	RaisedBy string
	Reason   string

	Status         Status
	ResolutionNote string

	CreatedAt  time.Time
	UpdatedAt  time.Time
	ResolvedAt *time.Time
}
