package transfers

import "time"

// Status define el ciclo de vida de una transferencia de propiedad.
//
//	initiated -> partially_verified -> completed (terminal)
//	cancelled (terminal, desde cualquier estado no-terminal)
//	disputed  (desde cualquier estado no-terminal; bloquea el completado
//	           hasta que se resuelva la disputa)
type Status string

const (
	StatusInitiated         Status = "initiated"
	StatusPartiallyVerified Status = "partially_verified"
	StatusCompleted         Status = "completed"
	StatusCancelled         Status = "cancelled"
	StatusDisputed          Status = "disputed"
)

// Terminal indica si el estado es final (inmutable salvo disputas anexas).
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Transfer representa una propuesta de cambio de dueño de un fowl.
// Solo muta a través de las transiciones del servicio; una vez terminal
// no se toca más.
type Transfer struct {
	ID     string
	FowlID string

	FromUserID string
	ToUserID   string

	Status Status
	Price  *int64 // unidades menores de moneda; nil = sin precio

	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
	CancelledAt *time.Time
}

// IsParty indica si userID es vendedor o comprador de la transferencia.
func (t Transfer) IsParty(userID string) bool {
	return userID != "" && (userID == t.FromUserID || userID == t.ToUserID)
}

// Verification es la confirmación independiente de una de las partes.
// Append-only con semántica latest-wins por (transferencia, verificador):
// un segundo submit del mismo verificador pisa al anterior, nunca crea
// un segundo trigger de completado.
type Verification struct {
	ID         string
	TransferID string
	VerifierID string

	EvidenceRefs []string // referencias a documentos adjuntos
	Notes        string

	VerifiedAt time.Time
}
