package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"fowl-traceability/internal/domain/transfers"
)

type TransfersRepo struct {
	db *sql.DB
}

func NewTransfersRepo(db *sql.DB) *TransfersRepo {
	return &TransfersRepo{db: db}
}

const transferColumns = `
	id, fowl_id, from_user_id, to_user_id,
	status, price,
	created_at, updated_at, completed_at, cancelled_at
`

// Create inserta solo si no existe otra transferencia no-terminal para
// el fowl: el chequeo va en el mismo statement (INSERT ... WHERE NOT
// EXISTS), así el invariante lo sostiene el store y no el servicio.
func (r *TransfersRepo) Create(ctx context.Context, t transfers.Transfer) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO transfers (`+transferColumns+`)
		SELECT $1,$2,$3,$4,$5,$6,$7,$8,$9,$10
		WHERE NOT EXISTS (
			SELECT 1 FROM transfers
			WHERE fowl_id = $2
			  AND status NOT IN ('completed','cancelled')
		)
	`,
		t.ID,
		t.FowlID,
		t.FromUserID,
		t.ToUserID,
		string(t.Status),
		toNullInt64(t.Price),
		t.CreatedAt,
		t.UpdatedAt,
		toNullTime(t.CompletedAt),
		toNullTime(t.CancelledAt),
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return transfers.ErrActiveTransferExists
	}
	return nil
}

func (r *TransfersRepo) GetByID(ctx context.Context, id string) (transfers.Transfer, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return transfers.Transfer{}, transfers.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT `+transferColumns+`
		FROM transfers
		WHERE id = $1
	`, id)

	t, err := scanTransfer(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return transfers.Transfer{}, transfers.ErrNotFound
		}
		return transfers.Transfer{}, err
	}
	return t, nil
}

func (r *TransfersRepo) ListByUser(ctx context.Context, userID string) ([]transfers.Transfer, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+transferColumns+`
		FROM transfers
		WHERE from_user_id = $1 OR to_user_id = $1
		ORDER BY created_at ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]transfers.Transfer, 0)
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpdateStatusIf es el write condicional del completado: un solo UPDATE
// con el predicado de estado. De dos invocaciones concurrentes solo una
// afecta filas; la otra recibe ErrStateConflict.
func (r *TransfersRepo) UpdateStatusIf(ctx context.Context, id string, from []transfers.Status, to transfers.Status, at time.Time) (transfers.Transfer, error) {
	if len(from) == 0 {
		return transfers.Transfer{}, transfers.ErrStateConflict
	}

	args := []any{id, string(to), at}
	placeholders := make([]string, 0, len(from))
	for _, st := range from {
		args = append(args, string(st))
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE transfers
		SET
			status = $2,
			updated_at = $3,
			completed_at = CASE WHEN $2 = 'completed' THEN $3 ELSE completed_at END,
			cancelled_at = CASE WHEN $2 = 'cancelled' THEN $3 ELSE cancelled_at END
		WHERE id = $1
		  AND status IN (`+strings.Join(placeholders, ",")+`)
	`, args...)
	if err != nil {
		return transfers.Transfer{}, err
	}

	n, _ := res.RowsAffected()
	if n == 0 {
		// distinguir ausente de predicado no matcheado
		if _, gerr := r.GetByID(ctx, id); gerr != nil {
			return transfers.Transfer{}, gerr
		}
		return transfers.Transfer{}, transfers.ErrStateConflict
	}

	return r.GetByID(ctx, id)
}

func scanTransfer(row rowScanner) (transfers.Transfer, error) {
	var t transfers.Transfer
	var status string
	var price sql.NullInt64
	var completedAt, cancelledAt sql.NullTime

	if err := row.Scan(
		&t.ID,
		&t.FowlID,
		&t.FromUserID,
		&t.ToUserID,
		&status,
		&price,
		&t.CreatedAt,
		&t.UpdatedAt,
		&completedAt,
		&cancelledAt,
	); err != nil {
		return transfers.Transfer{}, err
	}

	t.Status = transfers.Status(status)
	t.Price = fromNullInt64(price)
	t.CompletedAt = fromNullTime(completedAt)
	t.CancelledAt = fromNullTime(cancelledAt)
	return t, nil
}
