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

	"github.com/ebivilapaula/backend/core/ebi"
)

const (
	sessionColumns = `id, ebi_date, group_number, coordinator_id, status, finished_at, created_at, updated_at`

	presenceSelect = `
		SELECT p.id, p.ebi_id, p.child_id, c.name AS child_name,
		       p.guardian_name_day, p.guardian_phone_day, p.entry_at, p.exit_at,
		       p.checkout_justification, p.pin_code, p.pin_attempts
		FROM ebi_presence p
		JOIN children c ON c.id = p.child_id`

	pqUniqueViolation = "23505"
)

type ebiRepository struct {
	db *sqlx.DB
}

var _ ebi.Repository = (*ebiRepository)(nil) // interface compliance check

func NewEbiRepository(db *sqlx.DB) *ebiRepository {
	return &ebiRepository{db: db}
}

type sessionRow struct {
	ID            string       `db:"id"`
	EbiDate       time.Time    `db:"ebi_date"`
	GroupNumber   int          `db:"group_number"`
	CoordinatorID string       `db:"coordinator_id"`
	Status        string       `db:"status"`
	FinishedAt    sql.NullTime `db:"finished_at"`
	CreatedAt     time.Time    `db:"created_at"`
	UpdatedAt     time.Time    `db:"updated_at"`
}

type presenceRow struct {
	ID               string         `db:"id"`
	SessionID        string         `db:"ebi_id"`
	ChildID          string         `db:"child_id"`
	ChildName        string         `db:"child_name"`
	GuardianNameDay  string         `db:"guardian_name_day"`
	GuardianPhoneDay string         `db:"guardian_phone_day"`
	EntryAt          time.Time      `db:"entry_at"`
	ExitAt           sql.NullTime   `db:"exit_at"`
	Justification    sql.NullString `db:"checkout_justification"`
	PinCode          string         `db:"pin_code"`
	PinAttempts      int            `db:"pin_attempts"`
}

func (repo ebiRepository) fromSessionRow(row sessionRow, collaboratorIDs []string) ebi.Session {
	s := ebi.Session{
		ID:              row.ID,
		EbiDate:         ebi.Date{Time: row.EbiDate},
		GroupNumber:     row.GroupNumber,
		CoordinatorID:   row.CoordinatorID,
		CollaboratorIDs: collaboratorIDs,
		Status:          row.Status,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
	if row.FinishedAt.Valid {
		t := row.FinishedAt.Time
		s.FinishedAt = &t
	}
	return s
}

func (repo ebiRepository) fromPresenceRow(row presenceRow) ebi.Presence {
	p := ebi.Presence{
		ID:               row.ID,
		SessionID:        row.SessionID,
		ChildID:          row.ChildID,
		ChildName:        row.ChildName,
		GuardianNameDay:  row.GuardianNameDay,
		GuardianPhoneDay: row.GuardianPhoneDay,
		EntryAt:          row.EntryAt,
		Justification:    row.Justification.String,
		PinCode:          row.PinCode,
		PinAttempts:      row.PinAttempts,
	}
	if row.ExitAt.Valid {
		t := row.ExitAt.Time
		p.ExitAt = &t
	}
	return p
}

func (repo ebiRepository) trapNoRowsErr(err error, notFound error, msg string) error {
	if err == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func (repo ebiRepository) CreateSession(ctx context.Context, s ebi.Session) (ebi.Session, error) {
	s.ID = uuid.New().String()

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return ebi.Session{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO ebi (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, NULL, $6, $7)`,
		s.ID, s.EbiDate.Time, s.GroupNumber, s.CoordinatorID, s.Status, s.CreatedAt.UTC(), s.UpdatedAt.UTC(),
	)
	if err != nil {
		return ebi.Session{}, errors.Wrap(err, "inserting session")
	}

	if err = insertCollaborators(ctx, tx, s.ID, s.CollaboratorIDs); err != nil {
		return ebi.Session{}, err
	}

	if err = tx.Commit(); err != nil {
		return ebi.Session{}, errors.Wrap(err, "committing transaction")
	}
	return s, nil
}

func (repo ebiRepository) GetSession(ctx context.Context, id string) (ebi.Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return ebi.Session{}, ebi.ErrSessionNotFound
	}

	var row sessionRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+sessionColumns+` FROM ebi WHERE id = $1`, id); err != nil {
		return ebi.Session{}, repo.trapNoRowsErr(err, ebi.ErrSessionNotFound, "finding session")
	}

	ids, err := repo.queryCollaboratorIDs(ctx, id)
	if err != nil {
		return ebi.Session{}, err
	}
	return repo.fromSessionRow(row, ids), nil
}

func (repo ebiRepository) QuerySessions(ctx context.Context, filter *ebi.QueryFilter) ([]ebi.Session, int, error) {
	where := ``
	args := []interface{}{}
	if filter != nil && filter.Search != "" {
		where = ` WHERE to_char(ebi_date, 'YYYY-MM-DD') LIKE $1`
		args = append(args, "%"+filter.Search+"%")
	}

	var total int
	if err := repo.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ebi`+where, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "counting sessions")
	}

	query := `SELECT ` + sessionColumns + ` FROM ebi` + where + ` ORDER BY ebi_date DESC, created_at DESC`
	if filter != nil {
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
		args = append(args, filter.PageSize, filter.Offset())
	}

	var rows []sessionRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, errors.Wrap(err, "querying sessions")
	}

	sessions := make([]ebi.Session, 0, len(rows))
	for _, row := range rows {
		ids, err := repo.queryCollaboratorIDs(ctx, row.ID)
		if err != nil {
			return nil, 0, err
		}
		sessions = append(sessions, repo.fromSessionRow(row, ids))
	}
	return sessions, total, nil
}

func (repo ebiRepository) UpdateSession(ctx context.Context, s ebi.Session) (ebi.Session, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return ebi.Session{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE ebi SET ebi_date = $1, group_number = $2, coordinator_id = $3, updated_at = $4
		WHERE id = $5`,
		s.EbiDate.Time, s.GroupNumber, s.CoordinatorID, s.UpdatedAt.UTC(), s.ID,
	)
	if err != nil {
		return ebi.Session{}, errors.Wrap(err, "updating session")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ebi.Session{}, ebi.ErrSessionNotFound
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM ebi_colaboradoras WHERE ebi_id = $1`, s.ID); err != nil {
		return ebi.Session{}, errors.Wrap(err, "clearing collaborators")
	}
	if err = insertCollaborators(ctx, tx, s.ID, s.CollaboratorIDs); err != nil {
		return ebi.Session{}, err
	}

	if err = tx.Commit(); err != nil {
		return ebi.Session{}, errors.Wrap(err, "committing transaction")
	}
	return s, nil
}

func (repo ebiRepository) CloseSession(ctx context.Context, id string, finishedAt time.Time) (ebi.Session, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return ebi.Session{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	var row sessionRow
	err = tx.GetContext(ctx, &row, `SELECT `+sessionColumns+` FROM ebi WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		return ebi.Session{}, repo.trapNoRowsErr(err, ebi.ErrSessionNotFound, "finding session")
	}

	// already closed: nothing to do
	if row.Status == ebi.StatusClosed {
		ids, err := repo.queryCollaboratorIDs(ctx, id)
		if err != nil {
			return ebi.Session{}, err
		}
		return repo.fromSessionRow(row, ids), nil
	}

	var openLeft bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM ebi_presence WHERE ebi_id = $1 AND exit_at IS NULL)`, id,
	).Scan(&openLeft)
	if err != nil {
		return ebi.Session{}, errors.Wrap(err, "checking open presences")
	}
	if openLeft {
		return ebi.Session{}, ebi.ErrPresencesStillOpen
	}

	now := finishedAt.UTC()
	_, err = tx.ExecContext(ctx,
		`UPDATE ebi SET status = $1, finished_at = $2, updated_at = $2 WHERE id = $3`,
		ebi.StatusClosed, now, id,
	)
	if err != nil {
		return ebi.Session{}, errors.Wrap(err, "closing session")
	}

	if err = tx.Commit(); err != nil {
		return ebi.Session{}, errors.Wrap(err, "committing transaction")
	}

	row.Status = ebi.StatusClosed
	row.FinishedAt = sql.NullTime{Time: now, Valid: true}
	row.UpdatedAt = now
	ids, err := repo.queryCollaboratorIDs(ctx, id)
	if err != nil {
		return ebi.Session{}, err
	}
	return repo.fromSessionRow(row, ids), nil
}

func (repo ebiRepository) ReopenSession(ctx context.Context, id, performedBy string) (ebi.Session, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return ebi.Session{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	var row sessionRow
	err = tx.GetContext(ctx, &row, `SELECT `+sessionColumns+` FROM ebi WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		return ebi.Session{}, repo.trapNoRowsErr(err, ebi.ErrSessionNotFound, "finding session")
	}
	if row.Status != ebi.StatusClosed {
		return ebi.Session{}, ebi.ErrSessionNotClosed
	}

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx,
		`UPDATE ebi SET status = $1, finished_at = NULL, updated_at = $2 WHERE id = $3`,
		ebi.StatusOpen, now, id,
	)
	if err != nil {
		return ebi.Session{}, errors.Wrap(err, "reopening session")
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO ebi_audit (id, ebi_id, action, performed_by, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.New().String(), id, ebi.AuditActionReopen, performedBy, now,
	)
	if err != nil {
		return ebi.Session{}, errors.Wrap(err, "recording audit")
	}

	if err = tx.Commit(); err != nil {
		return ebi.Session{}, errors.Wrap(err, "committing transaction")
	}

	row.Status = ebi.StatusOpen
	row.FinishedAt = sql.NullTime{}
	row.UpdatedAt = now
	ids, err := repo.queryCollaboratorIDs(ctx, id)
	if err != nil {
		return ebi.Session{}, err
	}
	return repo.fromSessionRow(row, ids), nil
}

func (repo ebiRepository) CreatePresence(ctx context.Context, p ebi.Presence) (ebi.Presence, error) {
	p.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO ebi_presence (id, ebi_id, child_id, guardian_name_day, guardian_phone_day, entry_at, exit_at, checkout_justification, pin_code, pin_attempts)
		VALUES ($1, $2, $3, $4, $5, $6, NULL, NULL, $7, 0)`,
		p.ID, p.SessionID, p.ChildID, p.GuardianNameDay, p.GuardianPhoneDay, p.EntryAt.UTC(), p.PinCode,
	)
	if err != nil {
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == pqUniqueViolation {
			return ebi.Presence{}, ebi.ErrDuplicatePresence
		}
		return ebi.Presence{}, errors.Wrap(err, "inserting presence")
	}
	return p, nil
}

func (repo ebiRepository) GetPresence(ctx context.Context, id string) (ebi.Presence, error) {
	if _, err := uuid.Parse(id); err != nil {
		return ebi.Presence{}, ebi.ErrPresenceNotFound
	}

	var row presenceRow
	if err := repo.db.GetContext(ctx, &row, presenceSelect+` WHERE p.id = $1`, id); err != nil {
		return ebi.Presence{}, repo.trapNoRowsErr(err, ebi.ErrPresenceNotFound, "finding presence")
	}
	return repo.fromPresenceRow(row), nil
}

func (repo ebiRepository) QueryPresences(ctx context.Context, sessionID string) ([]ebi.Presence, error) {
	var rows []presenceRow
	err := repo.db.SelectContext(ctx, &rows, presenceSelect+` WHERE p.ebi_id = $1 ORDER BY p.entry_at ASC`, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "querying presences")
	}

	presences := make([]ebi.Presence, 0, len(rows))
	for _, row := range rows {
		presences = append(presences, repo.fromPresenceRow(row))
	}
	return presences, nil
}

func (repo ebiRepository) CheckoutPresence(ctx context.Context, id string, exitAt time.Time, justification string) (ebi.Presence, error) {
	res, err := repo.db.ExecContext(ctx, `
		UPDATE ebi_presence SET exit_at = $1, checkout_justification = $2
		WHERE id = $3 AND exit_at IS NULL`,
		exitAt.UTC(), nullString(justification), id,
	)
	if err != nil {
		return ebi.Presence{}, errors.Wrap(err, "checking out presence")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// lost the race or unknown presence
		if _, err := repo.GetPresence(ctx, id); err != nil {
			return ebi.Presence{}, err
		}
		return ebi.Presence{}, ebi.ErrAlreadyCheckedOut
	}
	return repo.GetPresence(ctx, id)
}

func (repo ebiRepository) RecordPinFailure(ctx context.Context, id string) (int, error) {
	var attempts int
	err := repo.db.QueryRowContext(ctx,
		`UPDATE ebi_presence SET pin_attempts = pin_attempts + 1 WHERE id = $1 RETURNING pin_attempts`, id,
	).Scan(&attempts)
	if err != nil {
		return 0, repo.trapNoRowsErr(err, ebi.ErrPresenceNotFound, "recording pin failure")
	}
	return attempts, nil
}

func (repo ebiRepository) QueryAudits(ctx context.Context, sessionID string) ([]ebi.Audit, error) {
	rows, err := repo.db.QueryContext(ctx, `
		SELECT id, ebi_id, action, performed_by, created_at
		FROM ebi_audit WHERE ebi_id = $1 ORDER BY created_at ASC`, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "querying audits")
	}
	defer func() { _ = rows.Close() }()

	var audits []ebi.Audit
	for rows.Next() {
		var a ebi.Audit
		if err = rows.Scan(&a.ID, &a.SessionID, &a.Action, &a.PerformedBy, &a.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scanning audit")
		}
		audits = append(audits, a)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "querying audits")
	}
	return audits, nil
}

func (repo ebiRepository) queryCollaboratorIDs(ctx context.Context, sessionID string) ([]string, error) {
	var ids []string
	err := repo.db.SelectContext(ctx, &ids, `SELECT user_id FROM ebi_colaboradoras WHERE ebi_id = $1`, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "querying collaborators")
	}
	return ids, nil
}

func insertCollaborators(ctx context.Context, tx *sqlx.Tx, sessionID string, userIDs []string) error {
	for _, uid := range userIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO ebi_colaboradoras (ebi_id, user_id) VALUES ($1, $2)`, sessionID, uid)
		if err != nil {
			return errors.Wrap(err, "inserting collaborator")
		}
	}
	return nil
}
