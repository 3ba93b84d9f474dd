package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"fowl-traceability/internal/domain/certificates"
)

type CertificatesRepo struct {
	db *sql.DB
}

func NewCertificatesRepo(db *sql.DB) *CertificatesRepo {
	return &CertificatesRepo{db: db}
}

const certificateColumns = `
	id, fowl_id, owner_user_id, transfer_id,
	certificate_number, issue_date,
	snapshot, payload, valid
`

// Create se apoya en el unique parcial sobre transfer_id (WHERE
// transfer_id <> ''): ON CONFLICT DO NOTHING y re-lectura del existente.
// Dos emisiones concurrentes para la misma transferencia terminan ambas
// con el mismo certificado.
func (r *CertificatesRepo) Create(ctx context.Context, c certificates.Certificate) (certificates.Certificate, error) {
	snap, err := json.Marshal(c.Snapshot)
	if err != nil {
		return certificates.Certificate{}, err
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO certificates (`+certificateColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (transfer_id) WHERE transfer_id <> '' DO NOTHING
	`,
		c.ID,
		c.FowlID,
		c.OwnerUserID,
		c.TransferID,
		c.CertificateNumber,
		c.IssueDate,
		string(snap),
		c.Payload,
		c.Valid,
	)
	if err != nil {
		return certificates.Certificate{}, err
	}

	n, _ := res.RowsAffected()
	if n == 0 && c.TransferID != "" {
		// perdió contra una emisión concurrente: devolver el existente
		return r.GetByTransfer(ctx, c.TransferID)
	}
	return c, nil
}

func (r *CertificatesRepo) GetByID(ctx context.Context, id string) (certificates.Certificate, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return certificates.Certificate{}, certificates.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT `+certificateColumns+`
		FROM certificates
		WHERE id = $1
	`, id)

	c, err := scanCertificate(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return certificates.Certificate{}, certificates.ErrNotFound
		}
		return certificates.Certificate{}, err
	}
	return c, nil
}

func (r *CertificatesRepo) GetByTransfer(ctx context.Context, transferID string) (certificates.Certificate, error) {
	transferID = strings.TrimSpace(transferID)
	if transferID == "" {
		return certificates.Certificate{}, certificates.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT `+certificateColumns+`
		FROM certificates
		WHERE transfer_id = $1
	`, transferID)

	c, err := scanCertificate(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return certificates.Certificate{}, certificates.ErrNotFound
		}
		return certificates.Certificate{}, err
	}
	return c, nil
}

func (r *CertificatesRepo) ListByFowl(ctx context.Context, fowlID string) ([]certificates.Certificate, error) {
	fowlID = strings.TrimSpace(fowlID)
	if fowlID == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+certificateColumns+`
		FROM certificates
		WHERE fowl_id = $1
		ORDER BY issue_date ASC
	`, fowlID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]certificates.Certificate, 0)
	for rows.Next() {
		c, err := scanCertificate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *CertificatesRepo) SetValidity(ctx context.Context, id string, valid bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE certificates
		SET valid = $2
		WHERE id = $1
	`, id, valid)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return certificates.ErrNotFound
	}
	return nil
}

func scanCertificate(row rowScanner) (certificates.Certificate, error) {
	var c certificates.Certificate
	var snap string

	if err := row.Scan(
		&c.ID,
		&c.FowlID,
		&c.OwnerUserID,
		&c.TransferID,
		&c.CertificateNumber,
		&c.IssueDate,
		&snap,
		&c.Payload,
		&c.Valid,
	); err != nil {
		return certificates.Certificate{}, err
	}

	if err := json.Unmarshal([]byte(snap), &c.Snapshot); err != nil {
		return certificates.Certificate{}, err
	}
	return c, nil
}
