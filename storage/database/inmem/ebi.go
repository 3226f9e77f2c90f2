package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ebivilapaula/backend/core/ebi"
)

type ebiRepository struct {
	db *DB
}

var _ ebi.Repository = (*ebiRepository)(nil) // interface compliance check

func NewEbiRepository(db *DB) *ebiRepository {
	return &ebiRepository{db: db}
}

func (repo *ebiRepository) CreateSession(ctx context.Context, s ebi.Session) (ebi.Session, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	s.ID = uuid.New().String()
	repo.db.sessions[s.ID] = &s
	return s, nil
}

func (repo *ebiRepository) GetSession(ctx context.Context, id string) (ebi.Session, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if s, ok := repo.db.sessions[id]; ok {
		return *s, nil
	}
	return ebi.Session{}, ebi.ErrSessionNotFound
}

func (repo *ebiRepository) QuerySessions(ctx context.Context, filter *ebi.QueryFilter) ([]ebi.Session, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	matched := make([]ebi.Session, 0, len(repo.db.sessions))
	for _, s := range repo.db.sessions {
		if filter != nil && filter.Search != "" {
			if !strings.Contains(s.EbiDate.Format("2006-01-02"), filter.Search) {
				continue
			}
		}
		matched = append(matched, *s)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].EbiDate.After(matched[j].EbiDate.Time) })

	total := len(matched)
	if filter != nil {
		offset, limit := filter.Offset(), filter.PageSize
		if offset >= len(matched) {
			matched = []ebi.Session{}
		} else {
			end := offset + limit
			if end > len(matched) {
				end = len(matched)
			}
			matched = matched[offset:end]
		}
	}
	return matched, total, nil
}

func (repo *ebiRepository) UpdateSession(ctx context.Context, s ebi.Session) (ebi.Session, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.sessions[s.ID]; !ok {
		return ebi.Session{}, ebi.ErrSessionNotFound
	}
	repo.db.sessions[s.ID] = &s
	return s, nil
}

func (repo *ebiRepository) CloseSession(ctx context.Context, id string, finishedAt time.Time) (ebi.Session, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	s, ok := repo.db.sessions[id]
	if !ok {
		return ebi.Session{}, ebi.ErrSessionNotFound
	}
	if s.IsClosed() {
		return *s, nil
	}
	for _, p := range repo.db.presences {
		if p.SessionID == id && p.ExitAt == nil {
			return ebi.Session{}, ebi.ErrPresencesStillOpen
		}
	}

	now := finishedAt.UTC()
	s.Status = ebi.StatusClosed
	s.FinishedAt = &now
	s.UpdatedAt = now
	return *s, nil
}

func (repo *ebiRepository) ReopenSession(ctx context.Context, id, performedBy string) (ebi.Session, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	s, ok := repo.db.sessions[id]
	if !ok {
		return ebi.Session{}, ebi.ErrSessionNotFound
	}
	if !s.IsClosed() {
		return ebi.Session{}, ebi.ErrSessionNotClosed
	}

	now := time.Now().UTC()
	s.Status = ebi.StatusOpen
	s.FinishedAt = nil
	s.UpdatedAt = now

	audit := ebi.Audit{
		ID:          uuid.New().String(),
		SessionID:   id,
		Action:      ebi.AuditActionReopen,
		PerformedBy: performedBy,
		CreatedAt:   now,
	}
	repo.db.audits[audit.ID] = &audit
	return *s, nil
}

func (repo *ebiRepository) CreatePresence(ctx context.Context, p ebi.Presence) (ebi.Presence, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, existing := range repo.db.presences {
		if existing.SessionID == p.SessionID && existing.ChildID == p.ChildID {
			return ebi.Presence{}, ebi.ErrDuplicatePresence
		}
	}
	p.ID = uuid.New().String()
	repo.db.presences[p.ID] = &p
	return p, nil
}

func (repo *ebiRepository) GetPresence(ctx context.Context, id string) (ebi.Presence, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if p, ok := repo.db.presences[id]; ok {
		return *p, nil
	}
	return ebi.Presence{}, ebi.ErrPresenceNotFound
}

func (repo *ebiRepository) QueryPresences(ctx context.Context, sessionID string) ([]ebi.Presence, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	presences := make([]ebi.Presence, 0)
	for _, p := range repo.db.presences {
		if p.SessionID == sessionID {
			presences = append(presences, *p)
		}
	}
	sort.Slice(presences, func(i, j int) bool { return presences[i].EntryAt.Before(presences[j].EntryAt) })
	return presences, nil
}

func (repo *ebiRepository) CheckoutPresence(ctx context.Context, id string, exitAt time.Time, justification string) (ebi.Presence, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	p, ok := repo.db.presences[id]
	if !ok {
		return ebi.Presence{}, ebi.ErrPresenceNotFound
	}
	if p.ExitAt != nil {
		return ebi.Presence{}, ebi.ErrAlreadyCheckedOut
	}

	t := exitAt.UTC()
	p.ExitAt = &t
	p.Justification = justification
	return *p, nil
}

func (repo *ebiRepository) RecordPinFailure(ctx context.Context, id string) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	p, ok := repo.db.presences[id]
	if !ok {
		return 0, ebi.ErrPresenceNotFound
	}
	p.PinAttempts++
	return p.PinAttempts, nil
}

func (repo *ebiRepository) QueryAudits(ctx context.Context, sessionID string) ([]ebi.Audit, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	audits := make([]ebi.Audit, 0)
	for _, a := range repo.db.audits {
		if a.SessionID == sessionID {
			audits = append(audits, *a)
		}
	}
	sort.Slice(audits, func(i, j int) bool { return audits[i].CreatedAt.Before(audits[j].CreatedAt) })
	return audits, nil
}
