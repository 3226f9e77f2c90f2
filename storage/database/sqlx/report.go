package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/ebivilapaula/backend/core/ebi"
	"github.com/ebivilapaula/backend/core/report"
)

type reportRepository struct {
	db *sqlx.DB
}

var _ report.Repository = (*reportRepository)(nil) // interface compliance check

func NewReportRepository(db *sqlx.DB) *reportRepository {
	return &reportRepository{db: db}
}

func (repo reportRepository) ListPeople(ctx context.Context) ([]report.Person, error) {
	rows, err := repo.db.QueryContext(ctx, `SELECT full_name, role FROM users ORDER BY full_name ASC`)
	if err != nil {
		return nil, errors.Wrap(err, "listing people")
	}
	defer func() { _ = rows.Close() }()

	people := make([]report.Person, 0)
	for rows.Next() {
		var p report.Person
		if err = rows.Scan(&p.FullName, &p.Role); err != nil {
			return nil, errors.Wrap(err, "scanning person")
		}
		people = append(people, p)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "listing people")
	}
	return people, nil
}

func (repo reportRepository) CountUsersByRole(ctx context.Context, role string) (int, error) {
	var n int
	err := repo.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE role = $1`, role).Scan(&n)
	return n, errors.Wrap(err, "counting users by role")
}

func (repo reportRepository) CountUsersByGroup(ctx context.Context, group int) (int, error) {
	var n int
	err := repo.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE group_number = $1`, group).Scan(&n)
	return n, errors.Wrap(err, "counting users by group")
}

func (repo reportRepository) CountSessions(ctx context.Context, from, to time.Time) (int, error) {
	var n int
	err := repo.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ebi WHERE ebi_date >= $1 AND ebi_date < $2`, from, to,
	).Scan(&n)
	return n, errors.Wrap(err, "counting sessions")
}

func (repo reportRepository) CountPresences(ctx context.Context, from, to time.Time) (int, error) {
	var n int
	err := repo.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM ebi_presence p
		JOIN ebi e ON e.id = p.ebi_id
		WHERE e.ebi_date >= $1 AND e.ebi_date < $2`, from, to,
	).Scan(&n)
	return n, errors.Wrap(err, "counting presences")
}

func (repo reportRepository) GetSessionReport(ctx context.Context, sessionID string) (report.Session, error) {
	if _, err := uuid.Parse(sessionID); err != nil {
		return report.Session{}, ebi.ErrSessionNotFound
	}

	var hdr struct {
		EbiDate         time.Time `db:"ebi_date"`
		GroupNumber     int       `db:"group_number"`
		CoordinatorName string    `db:"coordinator_name"`
	}
	err := repo.db.GetContext(ctx, &hdr, `
		SELECT e.ebi_date, e.group_number, u.full_name AS coordinator_name
		FROM ebi e
		JOIN users u ON u.id = e.coordinator_id
		WHERE e.id = $1`, sessionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return report.Session{}, ebi.ErrSessionNotFound
		}
		return report.Session{}, errors.Wrap(err, "finding session")
	}

	rpt := report.Session{
		EbiID:           sessionID,
		EbiDate:         hdr.EbiDate.Format("2006-01-02"),
		GroupNumber:     hdr.GroupNumber,
		CoordinatorName: hdr.CoordinatorName,
		Collaborators:   make([]string, 0),
		Presences:       make([]report.PresenceLine, 0),
	}

	err = repo.db.SelectContext(ctx, &rpt.Collaborators, `
		SELECT u.full_name FROM ebi_colaboradoras ec
		JOIN users u ON u.id = ec.user_id
		WHERE ec.ebi_id = $1 ORDER BY u.full_name ASC`, sessionID)
	if err != nil {
		return report.Session{}, errors.Wrap(err, "querying collaborators")
	}

	rows, err := repo.db.QueryContext(ctx, `
		SELECT c.name, p.guardian_name_day, p.guardian_phone_day, p.entry_at, p.exit_at
		FROM ebi_presence p
		JOIN children c ON c.id = p.child_id
		WHERE p.ebi_id = $1 ORDER BY p.entry_at ASC`, sessionID)
	if err != nil {
		return report.Session{}, errors.Wrap(err, "querying presences")
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var line report.PresenceLine
		var exitAt sql.NullTime
		if err = rows.Scan(&line.ChildName, &line.GuardianNameDay, &line.GuardianPhoneDay, &line.EntryAt, &exitAt); err != nil {
			return report.Session{}, errors.Wrap(err, "scanning presence")
		}
		if exitAt.Valid {
			t := exitAt.Time
			line.ExitAt = &t
		}
		rpt.Presences = append(rpt.Presences, line)
	}
	if err = rows.Err(); err != nil {
		return report.Session{}, errors.Wrap(err, "querying presences")
	}
	return rpt, nil
}
