package certificates

import "time"

// Snapshot son los datos congelados al momento de emisión. Nunca se
// re-derivan: el certificado describe el estado en su issue date aunque
// el fowl cambie después.
type Snapshot struct {
	FowlID      string
	OwnerUserID string

	Breed       string
	Gender      string
	DateOfBirth *time.Time

	ParentMaleID   string
	ParentFemaleID string

	HealthSummary string

	TransferPrice *int64
	TransferDate  *time.Time

	// Conteos de linaje (2 generaciones) al momento de emisión.
	AncestorCount   int
	DescendantCount int
}

// Certificate es el registro inmutable de procedencia. Tras la emisión
// solo muta el flag Valid (invalidación administrativa).
type Certificate struct {
	ID     string
	FowlID string

	// Snapshot del dueño, no referencia viva.
	OwnerUserID string

	// Vacío para certificados de tenencia actual (sin transferencia).
	TransferID string

	CertificateNumber string
	IssueDate         time.Time

	Snapshot Snapshot

	// Token opaco (HMAC del snapshot) para la verificación pública.
	Payload string

	Valid bool
}
