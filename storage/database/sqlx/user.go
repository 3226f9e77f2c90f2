package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/ebivilapaula/backend/core/user"
)

const userColumns = `id, full_name, email, phone, role, group_number, password_hash,
cpf, rg, birth_date, address, city, state, zip_code,
emergency_contact_name, emergency_contact_phone, last_login, created_at, updated_at`

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

// userRow mirrors the users table; domain structs carry no db tags.
type userRow struct {
	ID                    string         `db:"id"`
	FullName              string         `db:"full_name"`
	Email                 string         `db:"email"`
	Phone                 string         `db:"phone"`
	Role                  string         `db:"role"`
	GroupNumber           int            `db:"group_number"`
	PasswordHash          []byte         `db:"password_hash"`
	CPF                   sql.NullString `db:"cpf"`
	RG                    sql.NullString `db:"rg"`
	BirthDate             *time.Time     `db:"birth_date"`
	Address               sql.NullString `db:"address"`
	City                  sql.NullString `db:"city"`
	State                 sql.NullString `db:"state"`
	ZipCode               sql.NullString `db:"zip_code"`
	EmergencyContactName  sql.NullString `db:"emergency_contact_name"`
	EmergencyContactPhone sql.NullString `db:"emergency_contact_phone"`
	LastLogin             sql.NullTime   `db:"last_login"`
	CreatedAt             time.Time      `db:"created_at"`
	UpdatedAt             time.Time      `db:"updated_at"`
}

func (repo userRepository) toRow(usr user.User) userRow {
	return userRow{
		ID:                    usr.ID,
		FullName:              usr.FullName,
		Email:                 usr.Email,
		Phone:                 usr.Phone,
		Role:                  usr.Role,
		GroupNumber:           usr.GroupNumber,
		PasswordHash:          usr.PasswordHash,
		CPF:                   nullString(usr.CPF),
		RG:                    nullString(usr.RG),
		BirthDate:             usr.BirthDate,
		Address:               nullString(usr.Address),
		City:                  nullString(usr.City),
		State:                 nullString(usr.State),
		ZipCode:               nullString(usr.ZipCode),
		EmergencyContactName:  nullString(usr.EmergencyContactName),
		EmergencyContactPhone: nullString(usr.EmergencyContactPhone),
		LastLogin:             sql.NullTime{Time: usr.LastLogin.UTC(), Valid: !usr.LastLogin.IsZero()},
		CreatedAt:             usr.CreatedAt.UTC(),
		UpdatedAt:             usr.UpdatedAt.UTC(),
	}
}

func (repo userRepository) fromRow(row userRow) user.User {
	return user.User{
		ID:                    row.ID,
		FullName:              row.FullName,
		Email:                 row.Email,
		Phone:                 row.Phone,
		Role:                  row.Role,
		GroupNumber:           row.GroupNumber,
		PasswordHash:          row.PasswordHash,
		CPF:                   row.CPF.String,
		RG:                    row.RG.String,
		BirthDate:             row.BirthDate,
		Address:               row.Address.String,
		City:                  row.City.String,
		State:                 row.State.String,
		ZipCode:               row.ZipCode.String,
		EmergencyContactName:  row.EmergencyContactName.String,
		EmergencyContactPhone: row.EmergencyContactPhone.String,
		LastLogin:             row.LastLogin.Time,
		CreatedAt:             row.CreatedAt,
		UpdatedAt:             row.UpdatedAt,
	}
}

// trapNoRowsErr maps psql "no rows" err to user.ErrNotFound
func (repo userRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...user.User) error {
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1`
	args := []interface{}{email}
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		query += ` AND id != ALL($2)`
		args = append(args, pq.Array(ids))
	}
	query += `)`

	var exists bool
	if err := repo.db.QueryRowContext(ctx, query, args...).Scan(&exists); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if exists {
		return user.ErrEmailExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	row := repo.toRow(usr)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (:id, :full_name, :email, :phone, :role, :group_number, :password_hash,
		        :cpf, :rg, :birth_date, :address, :city, :state, :zip_code,
		        :emergency_contact_name, :emergency_contact_phone, :last_login, :created_at, :updated_at)`,
		row,
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter) ([]user.User, int, error) {
	where := ``
	args := []interface{}{}
	if filter != nil && filter.Search != "" {
		where = ` WHERE full_name ILIKE $1 OR email ILIKE $1`
		args = append(args, "%"+filter.Search+"%")
	}

	var total int
	if err := repo.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`+where, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "counting users")
	}

	query := `SELECT ` + userColumns + ` FROM users` + where + ` ORDER BY full_name ASC`
	if filter != nil {
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
		args = append(args, filter.PageSize, filter.Offset())
	}

	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, errors.Wrap(err, "querying users")
	}

	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, repo.fromRow(row))
	}
	return users, total, nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var row userRow
	var err error

	if filter.ID != "" {
		if _, err = uuid.Parse(filter.ID); err != nil {
			return user.User{}, user.ErrNotFound
		}
		err = repo.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE id = $1`, filter.ID)
		if err != nil {
			return user.User{}, repo.trapNoRowsErr(err, "finding user by ID")
		}
	} else {
		err = repo.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE email = $1`, filter.Email)
		if err != nil {
			return user.User{}, repo.trapNoRowsErr(err, "finding user by email")
		}
	}
	return repo.fromRow(row), nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	row := repo.toRow(usr)
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE users SET
			full_name = :full_name, email = :email, phone = :phone, role = :role,
			group_number = :group_number, password_hash = :password_hash,
			cpf = :cpf, rg = :rg, birth_date = :birth_date, address = :address,
			city = :city, state = :state, zip_code = :zip_code,
			emergency_contact_name = :emergency_contact_name,
			emergency_contact_phone = :emergency_contact_phone,
			last_login = :last_login, updated_at = :updated_at
		WHERE id = :id`,
		row,
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
