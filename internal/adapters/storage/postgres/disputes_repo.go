package postgres

import (
	"context"
	"database/sql"
	"strings"

	"fowl-traceability/internal/domain/disputes"
)

type DisputesRepo struct {
	db *sql.DB
}

func NewDisputesRepo(db *sql.DB) *DisputesRepo {
	return &DisputesRepo{db: db}
}

func (r *DisputesRepo) Create(ctx context.Context, d disputes.Dispute) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transfer_disputes (
			id, transfer_id, raised_by, reason,
			status, resolution_note,
			created_at, updated_at, resolved_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		d.ID,
		d.TransferID,
		d.RaisedBy,
		d.Reason,
		string(d.Status),
		d.ResolutionNote,
		d.CreatedAt,
		d.UpdatedAt,
		toNullTime(d.ResolvedAt),
	)
	return err
}

func (r *DisputesRepo) GetByID(ctx context.Context, id string) (disputes.Dispute, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return disputes.Dispute{}, disputes.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT id, transfer_id, raised_by, reason,
		       status, resolution_note,
		       created_at, updated_at, resolved_at
		FROM transfer_disputes
		WHERE id = $1
	`, id)

	d, err := scanDispute(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return disputes.Dispute{}, disputes.ErrNotFound
		}
		return disputes.Dispute{}, err
	}
	return d, nil
}

func (r *DisputesRepo) Update(ctx context.Context, d disputes.Dispute) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE transfer_disputes
		SET
			status = $2,
			resolution_note = $3,
			updated_at = $4,
			resolved_at = $5
		WHERE id = $1
	`,
		d.ID,
		string(d.Status),
		d.ResolutionNote,
		d.UpdatedAt,
		toNullTime(d.ResolvedAt),
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return disputes.ErrNotFound
	}
	return nil
}

func (r *DisputesRepo) ListByTransfer(ctx context.Context, transferID string) ([]disputes.Dispute, error) {
	transferID = strings.TrimSpace(transferID)
	if transferID == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, transfer_id, raised_by, reason,
		       status, resolution_note,
		       created_at, updated_at, resolved_at
		FROM transfer_disputes
		WHERE transfer_id = $1
		ORDER BY created_at ASC
	`, transferID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]disputes.Dispute, 0)
	for rows.Next() {
		d, err := scanDispute(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanDispute(row rowScanner) (disputes.Dispute, error) {
	var d disputes.Dispute
	var status string
	var resolvedAt sql.NullTime

	if err := row.Scan(
		&d.ID,
		&d.TransferID,
		&d.RaisedBy,
		&d.Reason,
		&status,
		&d.ResolutionNote,
		&d.CreatedAt,
		&d.UpdatedAt,
		&resolvedAt,
	); err != nil {
		return disputes.Dispute{}, err
	}

	d.Status = disputes.Status(status)
	d.ResolvedAt = fromNullTime(resolvedAt)
	return d, nil
}
