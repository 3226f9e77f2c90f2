package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/ebivilapaula/backend/core/child"
)

const childColumns = `id, name, guardian_name, guardian_phone, created_at, updated_at`

type childRepository struct {
	db *sqlx.DB
}

var _ child.Repository = (*childRepository)(nil) // interface compliance check

func NewChildRepository(db *sqlx.DB) *childRepository {
	return &childRepository{db: db}
}

type childRow struct {
	ID            string    `db:"id"`
	Name          string    `db:"name"`
	GuardianName  string    `db:"guardian_name"`
	GuardianPhone string    `db:"guardian_phone"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

type guardianRow struct {
	ID      string `db:"id"`
	ChildID string `db:"child_id"`
	Name    string `db:"name"`
	Phone   string `db:"phone"`
}

func (repo childRepository) fromRow(row childRow) child.Child {
	return child.Child{
		ID:            row.ID,
		Name:          row.Name,
		GuardianName:  row.GuardianName,
		GuardianPhone: row.GuardianPhone,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
}

func (repo childRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return child.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo childRepository) CreateChild(ctx context.Context, chd child.Child) (child.Child, error) {
	chd.ID = uuid.New().String()

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return child.Child{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO children (`+childColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		chd.ID, chd.Name, chd.GuardianName, chd.GuardianPhone, chd.CreatedAt.UTC(), chd.UpdatedAt.UTC(),
	)
	if err != nil {
		return child.Child{}, errors.Wrap(err, "inserting child")
	}

	for i := range chd.Guardians {
		chd.Guardians[i].ID = uuid.New().String()
		chd.Guardians[i].ChildID = chd.ID
		_, err = tx.ExecContext(ctx, `
			INSERT INTO child_guardians (id, child_id, name, phone)
			VALUES ($1, $2, $3, $4)`,
			chd.Guardians[i].ID, chd.ID, chd.Guardians[i].Name, chd.Guardians[i].Phone,
		)
		if err != nil {
			return child.Child{}, errors.Wrap(err, "inserting guardian")
		}
	}

	if err = tx.Commit(); err != nil {
		return child.Child{}, errors.Wrap(err, "committing transaction")
	}
	return chd, nil
}

func (repo childRepository) QueryChildren(ctx context.Context, filter *child.QueryFilter) ([]child.Child, int, error) {
	where := ``
	args := []interface{}{}
	if filter != nil && filter.Search != "" {
		where = ` WHERE name ILIKE $1 OR guardian_name ILIKE $1`
		args = append(args, "%"+filter.Search+"%")
	}

	var total int
	if err := repo.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM children`+where, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "counting children")
	}

	query := `SELECT ` + childColumns + ` FROM children` + where + ` ORDER BY name ASC`
	if filter != nil {
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
		args = append(args, filter.PageSize, filter.Offset())
	}

	var rows []childRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, errors.Wrap(err, "querying children")
	}

	children := make([]child.Child, 0, len(rows))
	for _, row := range rows {
		chd := repo.fromRow(row)
		guardians, err := repo.queryGuardians(ctx, chd.ID)
		if err != nil {
			return nil, 0, err
		}
		chd.Guardians = guardians
		children = append(children, chd)
	}
	return children, total, nil
}

func (repo childRepository) GetChild(ctx context.Context, id string) (child.Child, error) {
	if _, err := uuid.Parse(id); err != nil {
		return child.Child{}, child.ErrNotFound
	}

	var row childRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+childColumns+` FROM children WHERE id = $1`, id); err != nil {
		return child.Child{}, repo.trapNoRowsErr(err, "finding child")
	}

	chd := repo.fromRow(row)
	guardians, err := repo.queryGuardians(ctx, chd.ID)
	if err != nil {
		return child.Child{}, err
	}
	chd.Guardians = guardians
	return chd, nil
}

func (repo childRepository) UpdateChild(ctx context.Context, chd child.Child, replaceGuardians bool) (child.Child, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return child.Child{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE children SET name = $1, guardian_name = $2, guardian_phone = $3, updated_at = $4
		WHERE id = $5`,
		chd.Name, chd.GuardianName, chd.GuardianPhone, chd.UpdatedAt.UTC(), chd.ID,
	)
	if err != nil {
		return child.Child{}, errors.Wrap(err, "updating child")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return child.Child{}, child.ErrNotFound
	}

	if replaceGuardians {
		if _, err = tx.ExecContext(ctx, `DELETE FROM child_guardians WHERE child_id = $1`, chd.ID); err != nil {
			return child.Child{}, errors.Wrap(err, "clearing guardians")
		}
		for i := range chd.Guardians {
			chd.Guardians[i].ID = uuid.New().String()
			chd.Guardians[i].ChildID = chd.ID
			_, err = tx.ExecContext(ctx, `
				INSERT INTO child_guardians (id, child_id, name, phone)
				VALUES ($1, $2, $3, $4)`,
				chd.Guardians[i].ID, chd.ID, chd.Guardians[i].Name, chd.Guardians[i].Phone,
			)
			if err != nil {
				return child.Child{}, errors.Wrap(err, "inserting guardian")
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return child.Child{}, errors.Wrap(err, "committing transaction")
	}
	return chd, nil
}

func (repo childRepository) queryGuardians(ctx context.Context, childID string) ([]child.Guardian, error) {
	var rows []guardianRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT id, child_id, name, phone FROM child_guardians WHERE child_id = $1 ORDER BY name ASC`, childID)
	if err != nil {
		return nil, errors.Wrap(err, "querying guardians")
	}

	guardians := make([]child.Guardian, 0, len(rows))
	for _, row := range rows {
		guardians = append(guardians, child.Guardian{ID: row.ID, ChildID: row.ChildID, Name: row.Name, Phone: row.Phone})
	}
	return guardians, nil
}
