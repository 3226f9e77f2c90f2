package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/ebivilapaula/backend/apps/api/echo"
	"github.com/ebivilapaula/backend/core/child"
	"github.com/ebivilapaula/backend/core/ebi"
	"github.com/ebivilapaula/backend/core/report"
	"github.com/ebivilapaula/backend/core/user"
	emailsvc "github.com/ebivilapaula/backend/services/email"
	notifysvc "github.com/ebivilapaula/backend/services/notify"
	inmemdb "github.com/ebivilapaula/backend/storage/database/inmem"
)

var (
	usrRepo  user.Repository
	chdRepo  child.Repository
	ebiRepo  ebi.Repository
	notifier *notifysvc.NotifierMock

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
)

func setup(t *testing.T) Server {
	t.Helper()

	// set up DB & repos
	db := inmemdb.NewDB()
	usrRepo = inmemdb.NewUserRepository(db)
	chdRepo = inmemdb.NewChildRepository(db)
	ebiRepo = inmemdb.NewEbiRepository(db)
	notifier = notifysvc.NewNotifierMock()

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock()
	usrSvc := user.NewService(usrRepo, mailSvc)
	chdSvc := child.NewService(chdRepo)
	ebiSvc := ebi.NewService(ebiRepo, usrRepo, chdRepo, notifier)
	rptSvc := report.NewService(inmemdb.NewReportRepository(db))

	// set up server
	return NewServer(
		&Options{
			DisableReqLogs: true,
			Logger:         logger,
			Validate:       validate,
			UserSvc:        usrSvc,
			ChildSvc:       chdSvc,
			EbiSvc:         ebiSvc,
			ReportSvc:      rptSvc,
		},
	)
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User) string {
	claims := GetUserClaims(usr)
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ObjectsAreEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func testCtx() context.Context { return context.Background() }

// createStaff seeds the three usual actors.
func createStaff(t *testing.T) (admin, coordinator, collaborator user.User) {
	t.Helper()
	admin = createUser(t, "Admin", "admin@test.br", "s3cret", user.RoleAdministrator, 0)
	coordinator = createUser(t, "Coord", "coord@test.br", "s3cret", user.RoleCoordinator, 1)
	collaborator = createUser(t, "Collab", "collab@test.br", "s3cret", user.RoleCollaborator, 1)
	return
}

func createUser(t *testing.T, name, email, pwd, role string, group int) user.User {
	t.Helper()
	usr := user.User{FullName: name, Email: email, Role: role, GroupNumber: group}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := usrRepo.CreateUser(testCtx(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

func createChild(t *testing.T, name, guardianName, guardianPhone string) child.Child {
	t.Helper()
	chd, err := chdRepo.CreateChild(testCtx(), child.Child{
		Name:          name,
		GuardianName:  guardianName,
		GuardianPhone: guardianPhone,
		Guardians:     []child.Guardian{{Name: guardianName, Phone: guardianPhone}},
	})
	if err != nil {
		t.Fatalf("createChild() failed: %v", err)
	}
	return chd
}
