package report

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/ebivilapaula/backend/core"
	"github.com/ebivilapaula/backend/core/ebi"
	"github.com/ebivilapaula/backend/core/user"
)

const minGroup, maxGroup = 1, 4

var errForbidden = errors.New("permission denied")

// NowFunc returns the current time; swap it out in tests.
var NowFunc = time.Now

type (
	Repository interface {
		// ListPeople returns every staff member, name and role only,
		// ordered by name.
		ListPeople(ctx context.Context) ([]Person, error)
		CountUsersByRole(ctx context.Context, role string) (int, error)
		CountUsersByGroup(ctx context.Context, group int) (int, error)
		// CountSessions counts sessions dated within [from, to).
		CountSessions(ctx context.Context, from, to time.Time) (int, error)
		// CountPresences counts attendance rows of sessions dated within
		// [from, to).
		CountPresences(ctx context.Context, from, to time.Time) (int, error)
		// GetSessionReport loads a session's header, staff names and all
		// attendance rows; ebi.ErrSessionNotFound when absent.
		GetSessionReport(ctx context.Context, sessionID string) (Session, error)
	}

	ServiceInterface interface {
		General(actor user.Actor) (General, error)
		Session(actor user.Actor, sessionID string) (Session, error)
	}

	Service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func authorize(actor user.Actor) error {
	if !actor.CanManageSessions() {
		return core.NewAuthorizationError(errForbidden)
	}
	return nil
}

func (svc *Service) General(actor user.Actor) (General, error) {
	if err := authorize(actor); err != nil {
		return General{}, err
	}
	ctx := context.Background()

	rpt := General{ByGroup: make(map[string]int, maxGroup)}

	var err error
	if rpt.People, err = svc.repo.ListPeople(ctx); err != nil {
		return General{}, errors.Wrap(err, "listing people")
	}
	if rpt.TotalCoordinators, err = svc.repo.CountUsersByRole(ctx, user.RoleCoordinator); err != nil {
		return General{}, errors.Wrap(err, "counting coordinators")
	}
	if rpt.TotalCollaborators, err = svc.repo.CountUsersByRole(ctx, user.RoleCollaborator); err != nil {
		return General{}, errors.Wrap(err, "counting collaborators")
	}
	for g := minGroup; g <= maxGroup; g++ {
		n, err := svc.repo.CountUsersByGroup(ctx, g)
		if err != nil {
			return General{}, errors.Wrap(err, "counting group members")
		}
		rpt.ByGroup[groupKey(g)] = n
	}

	now := NowFunc().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	yearStart := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)

	if rpt.AveragePresenceMonth, err = svc.averagePresence(ctx, monthStart, monthEnd); err != nil {
		return General{}, err
	}
	if rpt.AveragePresenceYear, err = svc.averagePresence(ctx, yearStart, monthEnd); err != nil {
		return General{}, err
	}

	// Month buckets walk backwards from the current month, then get
	// reversed so charts read oldest to newest.
	counts := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		start := monthStart.AddDate(0, -i, 0)
		n, err := svc.repo.CountPresences(ctx, start, start.AddDate(0, 1, 0))
		if err != nil {
			return General{}, errors.Wrap(err, "counting monthly presences")
		}
		counts = append(counts, n)
	}
	avgs := make([]float64, 0, 12)
	for i := 0; i < 12; i++ {
		start := monthStart.AddDate(0, -i, 0)
		avg, err := svc.averagePresence(ctx, start, start.AddDate(0, 1, 0))
		if err != nil {
			return General{}, err
		}
		avgs = append(avgs, avg)
	}
	rpt.Last3MonthsCounts = reverseInts(counts)
	rpt.Last12MonthsAvg = reverseFloats(avgs)
	return rpt, nil
}

func (svc *Service) Session(actor user.Actor, sessionID string) (Session, error) {
	if err := authorize(actor); err != nil {
		return Session{}, err
	}

	rpt, err := svc.repo.GetSessionReport(context.Background(), sessionID)
	if err != nil {
		if errors.Cause(err) == ebi.ErrSessionNotFound {
			return Session{}, core.NewNotFoundError(ebi.ErrSessionNotFound)
		}
		return Session{}, errors.Wrap(err, "loading session report")
	}
	return rpt, nil
}

// averagePresence is presences per session over [from, to); zero when no
// session fell in the window.
func (svc *Service) averagePresence(ctx context.Context, from, to time.Time) (float64, error) {
	sessions, err := svc.repo.CountSessions(ctx, from, to)
	if err != nil {
		return 0, errors.Wrap(err, "counting sessions")
	}
	if sessions == 0 {
		return 0, nil
	}
	presences, err := svc.repo.CountPresences(ctx, from, to)
	if err != nil {
		return 0, errors.Wrap(err, "counting presences")
	}
	return float64(presences) / float64(sessions), nil
}

func groupKey(g int) string {
	return strconv.Itoa(g)
}

func reverseInts(s []int) []int {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
	return s
}

func reverseFloats(s []float64) []float64 {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
	return s
}
