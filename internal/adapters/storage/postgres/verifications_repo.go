package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"fowl-traceability/internal/domain/transfers"
)

type VerificationsRepo struct {
	db *sql.DB
}

func NewVerificationsRepo(db *sql.DB) *VerificationsRepo {
	return &VerificationsRepo{db: db}
}

// Upsert aplica latest-wins con el unique (transfer_id, verifier_id):
// un segundo submit del mismo verificador actualiza la fila existente
// (conserva su id) en un solo statement, sin carrera check-then-act.
func (r *VerificationsRepo) Upsert(ctx context.Context, v transfers.Verification) (transfers.Verification, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO transfer_verifications (
			id, transfer_id, verifier_id,
			evidence_refs, notes, verified_at
		) VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (transfer_id, verifier_id) DO UPDATE
		SET
			evidence_refs = EXCLUDED.evidence_refs,
			notes = EXCLUDED.notes,
			verified_at = EXCLUDED.verified_at
		RETURNING id, transfer_id, verifier_id, evidence_refs, notes, verified_at
	`,
		v.ID,
		v.TransferID,
		v.VerifierID,
		encodeRefs(v.EvidenceRefs),
		v.Notes,
		v.VerifiedAt,
	)

	return scanVerification(row)
}

func (r *VerificationsRepo) ListByTransfer(ctx context.Context, transferID string) ([]transfers.Verification, error) {
	transferID = strings.TrimSpace(transferID)
	if transferID == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, transfer_id, verifier_id, evidence_refs, notes, verified_at
		FROM transfer_verifications
		WHERE transfer_id = $1
		ORDER BY verified_at ASC
	`, transferID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]transfers.Verification, 0)
	for rows.Next() {
		v, err := scanVerification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func scanVerification(row rowScanner) (transfers.Verification, error) {
	var v transfers.Verification
	var refs string

	if err := row.Scan(
		&v.ID,
		&v.TransferID,
		&v.VerifierID,
		&refs,
		&v.Notes,
		&v.VerifiedAt,
	); err != nil {
		return transfers.Verification{}, err
	}

	v.EvidenceRefs = decodeRefs(refs)
	return v, nil
}

// evidence_refs va como JSON en una columna TEXT: evita depender del
// mapeo de arrays del driver y el contenido es opaco para el SQL.
func encodeRefs(refs []string) string {
	if len(refs) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(refs)
	return string(b)
}

func decodeRefs(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var refs []string
	if err := json.Unmarshal([]byte(raw), &refs); err != nil {
		return nil
	}
	if len(refs) == 0 {
		return nil
	}
	return refs
}
