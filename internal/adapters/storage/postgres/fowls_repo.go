package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"fowl-traceability/internal/domain/fowls"
)

type FowlsRepo struct {
	db *sql.DB
}

func NewFowlsRepo(db *sql.DB) *FowlsRepo {
	return &FowlsRepo{db: db}
}

const fowlColumns = `
	id, owner_user_id,
	breed, gender, date_of_birth,
	parent_male_id, parent_female_id,
	status, traceable, notes,
	created_at, updated_at
`

func (r *FowlsRepo) Create(ctx context.Context, f fowls.Fowl) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO fowls (`+fowlColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`,
		f.ID,
		f.OwnerUserID,
		string(f.Breed),
		string(f.Gender),
		toNullTime(f.DateOfBirth),
		f.ParentMaleID,
		f.ParentFemaleID,
		string(f.Status),
		f.Traceable,
		f.Notes,
		f.CreatedAt,
		f.UpdatedAt,
	)
	return err
}

func (r *FowlsRepo) GetByID(ctx context.Context, id string) (fowls.Fowl, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return fowls.Fowl{}, fowls.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT `+fowlColumns+`
		FROM fowls
		WHERE id = $1
	`, id)

	f, err := scanFowl(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return fowls.Fowl{}, fowls.ErrNotFound
		}
		return fowls.Fowl{}, err
	}
	return f, nil
}

func (r *FowlsRepo) ListByOwner(ctx context.Context, ownerUserID string) ([]fowls.Fowl, error) {
	ownerUserID = strings.TrimSpace(ownerUserID)
	if ownerUserID == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+fowlColumns+`
		FROM fowls
		WHERE owner_user_id = $1
		ORDER BY created_at ASC
	`, ownerUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectFowls(rows)
}

func (r *FowlsRepo) Update(ctx context.Context, f fowls.Fowl) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE fowls
		SET
			breed = $2,
			gender = $3,
			date_of_birth = $4,
			status = $5,
			traceable = $6,
			notes = $7,
			updated_at = $8
		WHERE id = $1
	`,
		f.ID,
		string(f.Breed),
		string(f.Gender),
		toNullTime(f.DateOfBirth),
		string(f.Status),
		f.Traceable,
		f.Notes,
		f.UpdatedAt,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fowls.ErrNotFound
	}
	return nil
}

func (r *FowlsRepo) ListByParent(ctx context.Context, parentID string) ([]fowls.Fowl, error) {
	parentID = strings.TrimSpace(parentID)
	if parentID == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+fowlColumns+`
		FROM fowls
		WHERE parent_male_id = $1 OR parent_female_id = $1
		ORDER BY created_at ASC
	`, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectFowls(rows)
}

// TransferOwnership muta el dueño en un solo UPDATE; el CAS de la
// transferencia ya garantizó un único invocador.
func (r *FowlsRepo) TransferOwnership(ctx context.Context, fowlID, newOwnerID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE fowls
		SET owner_user_id = $2, updated_at = $3
		WHERE id = $1
	`, fowlID, newOwnerID, at)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fowls.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFowl(row rowScanner) (fowls.Fowl, error) {
	var f fowls.Fowl
	var breed, gender, status string
	var dob sql.NullTime

	if err := row.Scan(
		&f.ID,
		&f.OwnerUserID,
		&breed,
		&gender,
		&dob,
		&f.ParentMaleID,
		&f.ParentFemaleID,
		&status,
		&f.Traceable,
		&f.Notes,
		&f.CreatedAt,
		&f.UpdatedAt,
	); err != nil {
		return fowls.Fowl{}, err
	}

	f.Breed = fowls.Breed(breed)
	f.Gender = fowls.Gender(gender)
	f.Status = fowls.Status(status)
	f.DateOfBirth = fromNullTime(dob)
	return f, nil
}

func collectFowls(rows *sql.Rows) ([]fowls.Fowl, error) {
	out := make([]fowls.Fowl, 0)
	for rows.Next() {
		f, err := scanFowl(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
