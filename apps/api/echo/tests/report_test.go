package tests

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/ebivilapaula/backend/core/ebi"
	"github.com/ebivilapaula/backend/core/report"
	testutil "github.com/ebivilapaula/backend/tests"
)

func Test_reportApi(t *testing.T) {
	app := setup(t)
	_, coordinator, collaborator := createStaff(t)
	chd := createChild(t, "Maria", "Joana", "+55 11 99999-0000")

	s := testutil.CreateSession(t, ebiRepo, ebi.NewDate(2026, time.March, 8), 1, coordinator.ID, collaborator.ID)
	testutil.CreatePresence(t, ebiRepo, s.ID, chd, "1234")

	coordToken := getToken(t, coordinator)
	collabToken := getToken(t, collaborator)

	t.Run("general denied to collaborators", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/reports/general", collabToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)
	})

	t.Run("general", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/reports/general", coordToken)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var rpt report.General
		if err := json.Unmarshal(rec.Body.Bytes(), &rpt); err != nil {
			t.Fatalf("json.Unmarshal() failed: %v", err)
		}
		if len(rpt.People) != 3 {
			t.Errorf("people = %d, want 3", len(rpt.People))
		}
		if rpt.TotalCoordinators != 1 || rpt.TotalCollaborators != 1 {
			t.Errorf("totals = %d/%d, want 1/1", rpt.TotalCoordinators, rpt.TotalCollaborators)
		}
		if len(rpt.Last12MonthsAvg) != 12 || len(rpt.Last3MonthsCounts) != 3 {
			t.Errorf("series lengths = %d/%d, want 12/3", len(rpt.Last12MonthsAvg), len(rpt.Last3MonthsCounts))
		}
	})

	t.Run("session report", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/reports/ebi/"+s.ID, coordToken)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var rpt report.Session
		if err := json.Unmarshal(rec.Body.Bytes(), &rpt); err != nil {
			t.Fatalf("json.Unmarshal() failed: %v", err)
		}
		if rpt.EbiDate != "2026-03-08" {
			t.Errorf("ebi_date = %s, want 2026-03-08", rpt.EbiDate)
		}
		if rpt.CoordinatorName != coordinator.FullName {
			t.Errorf("coordinator = %s, want %s", rpt.CoordinatorName, coordinator.FullName)
		}
		if len(rpt.Presences) != 1 {
			t.Errorf("presences = %d, want 1", len(rpt.Presences))
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/reports/ebi/404", coordToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusNotFound)
		}
	})
}
