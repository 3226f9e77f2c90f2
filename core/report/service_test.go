package report_test

import (
	"errors"
	"testing"
	"time"

	"github.com/ebivilapaula/backend/core"
	"github.com/ebivilapaula/backend/core/ebi"
	"github.com/ebivilapaula/backend/core/report"
	"github.com/ebivilapaula/backend/core/user"
	inmemdb "github.com/ebivilapaula/backend/storage/database/inmem"
	testutil "github.com/ebivilapaula/backend/tests"
)

func TestService_General(t *testing.T) {
	db := inmemdb.NewDB()
	usrRepo := inmemdb.NewUserRepository(db)
	chdRepo := inmemdb.NewChildRepository(db)
	ebiRepo := inmemdb.NewEbiRepository(db)
	svc := report.NewService(inmemdb.NewReportRepository(db))

	// pin "now" to mid-March so month windows are deterministic
	report.NowFunc = func() time.Time { return time.Date(2026, time.March, 15, 10, 0, 0, 0, time.UTC) }
	defer func() { report.NowFunc = time.Now }()

	coord := testutil.CreateUser(t, usrRepo, "Coord", "coord@test.br", "", user.RoleCoordinator, 1)
	collab := testutil.CreateUser(t, usrRepo, "Collab", "collab@test.br", "", user.RoleCollaborator, 2)
	chd1 := testutil.CreateChild(t, chdRepo, "Maria", "Joana", "+5511999990000")
	chd2 := testutil.CreateChild(t, chdRepo, "Pedro", "Carla", "+5511888880000")

	// March: one session with two presences; February: one session with one
	sMar := testutil.CreateSession(t, ebiRepo, ebi.NewDate(2026, time.March, 8), 1, coord.ID)
	testutil.CreatePresence(t, ebiRepo, sMar.ID, chd1, "1111")
	testutil.CreatePresence(t, ebiRepo, sMar.ID, chd2, "2222")
	sFeb := testutil.CreateSession(t, ebiRepo, ebi.NewDate(2026, time.February, 8), 1, coord.ID)
	testutil.CreatePresence(t, ebiRepo, sFeb.ID, chd1, "3333")

	t.Run("collaborator may not view", func(t *testing.T) {
		_, err := svc.General(collab.Actor())
		var aErr *core.AuthorizationError
		if !errors.As(err, &aErr) {
			t.Fatalf("error = %v, want AuthorizationError", err)
		}
	})

	t.Run("aggregates", func(t *testing.T) {
		rpt, err := svc.General(coord.Actor())
		if err != nil {
			t.Fatalf("General() failed: %v", err)
		}

		if len(rpt.People) != 2 {
			t.Errorf("People = %d, want 2", len(rpt.People))
		}
		if rpt.TotalCoordinators != 1 {
			t.Errorf("TotalCoordinators = %d, want 1", rpt.TotalCoordinators)
		}
		if rpt.TotalCollaborators != 1 {
			t.Errorf("TotalCollaborators = %d, want 1", rpt.TotalCollaborators)
		}
		if got := rpt.ByGroup["1"]; got != 1 {
			t.Errorf("ByGroup[1] = %d, want 1", got)
		}
		if got := rpt.ByGroup["2"]; got != 1 {
			t.Errorf("ByGroup[2] = %d, want 1", got)
		}
		if got := rpt.ByGroup["3"]; got != 0 {
			t.Errorf("ByGroup[3] = %d, want 0", got)
		}

		// March: 2 presences over 1 session
		if rpt.AveragePresenceMonth != 2 {
			t.Errorf("AveragePresenceMonth = %v, want 2", rpt.AveragePresenceMonth)
		}
		// year to date: 3 presences over 2 sessions
		if rpt.AveragePresenceYear != 1.5 {
			t.Errorf("AveragePresenceYear = %v, want 1.5", rpt.AveragePresenceYear)
		}

		// oldest to newest: January, February, March
		wantCounts := []int{0, 1, 2}
		if len(rpt.Last3MonthsCounts) != 3 {
			t.Fatalf("Last3MonthsCounts = %v, want 3 entries", rpt.Last3MonthsCounts)
		}
		for i, want := range wantCounts {
			if rpt.Last3MonthsCounts[i] != want {
				t.Errorf("Last3MonthsCounts[%d] = %d, want %d", i, rpt.Last3MonthsCounts[i], want)
			}
		}

		if len(rpt.Last12MonthsAvg) != 12 {
			t.Fatalf("Last12MonthsAvg = %v, want 12 entries", rpt.Last12MonthsAvg)
		}
		if got := rpt.Last12MonthsAvg[11]; got != 2 {
			t.Errorf("Last12MonthsAvg[11] = %v, want 2", got)
		}
		if got := rpt.Last12MonthsAvg[10]; got != 1 {
			t.Errorf("Last12MonthsAvg[10] = %v, want 1", got)
		}
		if got := rpt.Last12MonthsAvg[0]; got != 0 {
			t.Errorf("Last12MonthsAvg[0] = %v, want 0", got)
		}
	})
}

func TestService_Session(t *testing.T) {
	db := inmemdb.NewDB()
	usrRepo := inmemdb.NewUserRepository(db)
	chdRepo := inmemdb.NewChildRepository(db)
	ebiRepo := inmemdb.NewEbiRepository(db)
	svc := report.NewService(inmemdb.NewReportRepository(db))

	coord := testutil.CreateUser(t, usrRepo, "Coord", "coord@test.br", "", user.RoleCoordinator, 1)
	collab := testutil.CreateUser(t, usrRepo, "Collab", "collab@test.br", "", user.RoleCollaborator, 1)
	chd := testutil.CreateChild(t, chdRepo, "Maria", "Joana", "+5511999990000")

	s := testutil.CreateSession(t, ebiRepo, ebi.NewDate(2026, time.March, 8), 2, coord.ID, collab.ID)
	testutil.CreatePresence(t, ebiRepo, s.ID, chd, "1234")

	t.Run("collaborator may not view", func(t *testing.T) {
		_, err := svc.Session(collab.Actor(), s.ID)
		var aErr *core.AuthorizationError
		if !errors.As(err, &aErr) {
			t.Fatalf("error = %v, want AuthorizationError", err)
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		_, err := svc.Session(coord.Actor(), "404")
		var nfErr *core.NotFoundError
		if !errors.As(err, &nfErr) {
			t.Fatalf("error = %v, want NotFoundError", err)
		}
	})

	t.Run("session report", func(t *testing.T) {
		rpt, err := svc.Session(coord.Actor(), s.ID)
		if err != nil {
			t.Fatalf("Session() failed: %v", err)
		}
		if rpt.EbiDate != "2026-03-08" {
			t.Errorf("EbiDate = %s, want 2026-03-08", rpt.EbiDate)
		}
		if rpt.GroupNumber != 2 {
			t.Errorf("GroupNumber = %d, want 2", rpt.GroupNumber)
		}
		if rpt.CoordinatorName != coord.FullName {
			t.Errorf("CoordinatorName = %s, want %s", rpt.CoordinatorName, coord.FullName)
		}
		if len(rpt.Collaborators) != 1 || rpt.Collaborators[0] != collab.FullName {
			t.Errorf("Collaborators = %v, want [%s]", rpt.Collaborators, collab.FullName)
		}
		if len(rpt.Presences) != 1 {
			t.Fatalf("Presences = %d, want 1", len(rpt.Presences))
		}
		if line := rpt.Presences[0]; line.ChildName != chd.Name || line.GuardianNameDay != chd.GuardianName {
			t.Errorf("PresenceLine = %+v", line)
		}
	})
}
