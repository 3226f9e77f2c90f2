package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/ebivilapaula/backend/core/ebi"
	"github.com/ebivilapaula/backend/core/report"
)

type reportRepository struct {
	db *DB
}

var _ report.Repository = (*reportRepository)(nil) // interface compliance check

func NewReportRepository(db *DB) *reportRepository {
	return &reportRepository{db: db}
}

func (repo *reportRepository) ListPeople(ctx context.Context) ([]report.Person, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	people := make([]report.Person, 0, len(repo.db.users))
	for _, u := range repo.db.users {
		people = append(people, report.Person{FullName: u.FullName, Role: u.Role})
	}
	sort.Slice(people, func(i, j int) bool { return people[i].FullName < people[j].FullName })
	return people, nil
}

func (repo *reportRepository) CountUsersByRole(ctx context.Context, role string) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	n := 0
	for _, u := range repo.db.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

func (repo *reportRepository) CountUsersByGroup(ctx context.Context, group int) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	n := 0
	for _, u := range repo.db.users {
		if u.GroupNumber == group {
			n++
		}
	}
	return n, nil
}

func (repo *reportRepository) CountSessions(ctx context.Context, from, to time.Time) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	n := 0
	for _, s := range repo.db.sessions {
		if inWindow(s.EbiDate.Time, from, to) {
			n++
		}
	}
	return n, nil
}

func (repo *reportRepository) CountPresences(ctx context.Context, from, to time.Time) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	n := 0
	for _, p := range repo.db.presences {
		s, ok := repo.db.sessions[p.SessionID]
		if ok && inWindow(s.EbiDate.Time, from, to) {
			n++
		}
	}
	return n, nil
}

func (repo *reportRepository) GetSessionReport(ctx context.Context, sessionID string) (report.Session, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	s, ok := repo.db.sessions[sessionID]
	if !ok {
		return report.Session{}, ebi.ErrSessionNotFound
	}

	rpt := report.Session{
		EbiID:         s.ID,
		EbiDate:       s.EbiDate.Format("2006-01-02"),
		GroupNumber:   s.GroupNumber,
		Collaborators: make([]string, 0),
		Presences:     make([]report.PresenceLine, 0),
	}
	if coord, ok := repo.db.users[s.CoordinatorID]; ok {
		rpt.CoordinatorName = coord.FullName
	}
	for _, id := range s.CollaboratorIDs {
		if u, ok := repo.db.users[id]; ok {
			rpt.Collaborators = append(rpt.Collaborators, u.FullName)
		}
	}
	sort.Strings(rpt.Collaborators)

	for _, p := range repo.db.presences {
		if p.SessionID != sessionID {
			continue
		}
		rpt.Presences = append(rpt.Presences, report.PresenceLine{
			ChildName:        p.ChildName,
			GuardianNameDay:  p.GuardianNameDay,
			GuardianPhoneDay: p.GuardianPhoneDay,
			EntryAt:          p.EntryAt,
			ExitAt:           p.ExitAt,
		})
	}
	sort.Slice(rpt.Presences, func(i, j int) bool { return rpt.Presences[i].EntryAt.Before(rpt.Presences[j].EntryAt) })
	return rpt, nil
}

func inWindow(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}
