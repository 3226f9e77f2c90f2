package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/ebivilapaula/backend/core/user"
)

func Test_userApi_query(t *testing.T) {
	app := setup(t)
	admin, coordinator, collaborator := createStaff(t)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Collaborator denied", token: getToken(t, collaborator),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{name: "Coordinator allowed", token: getToken(t, coordinator), wantCode: http.StatusOK, extra: 3},
		{name: "Admin allowed", token: getToken(t, admin), wantCode: http.StatusOK, extra: 3},
		{name: "Search by name", path: "/v1/users?search=collab", token: getToken(t, admin), wantCode: http.StatusOK, extra: 1},
		{name: "Search miss", path: "/v1/users?search=lol", token: getToken(t, admin), wantCode: http.StatusOK, extra: 0},
	}
	for _, tt := range tests {
		if tt.path == "" {
			tt.path = "/v1/users"
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			app.ServeHTTP(rec, req)

			if tt.wantCode != http.StatusOK {
				checkCodeAndData(t, tt, rec)
				return
			}
			if rec.Code != tt.wantCode {
				t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			var resp struct {
				Items []user.User `json:"items"`
				Total int         `json:"total"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("json.Unmarshal() failed: %v", err)
			}
			if want := tt.extra.(int); len(resp.Items) != want {
				t.Errorf("items = %d, want %d", len(resp.Items), want)
			}
		})
	}
}

func Test_userApi_create(t *testing.T) {
	app := setup(t)
	admin, _, collaborator := createStaff(t)
	adminToken := getToken(t, admin)

	newUser := func(email string) []byte {
		return marchallObj(t, user.NewUser{
			FullName:    "Nova Colaboradora",
			Email:       email,
			Phone:       "+55 11 97777-0000",
			Role:        user.RoleCollaborator,
			GroupNumber:     2,
			Password:        "s3cr3tpwd",
			PasswordConfirm: "s3cr3tpwd",
		})
	}

	tests := []httpTest{
		{name: "Collaborator denied", token: getToken(t, collaborator), body: newUser("nova@test.br"), wantCode: http.StatusForbidden},
		{name: "Created", token: adminToken, body: newUser("nova@test.br"), wantCode: http.StatusCreated},
		{name: "Duplicate email rejected", token: adminToken, body: newUser("nova@test.br"), wantCode: http.StatusBadRequest},
		{name: "Unknown role rejected", token: adminToken, body: []byte(`{"full_name":"X","email":"x@test.br","phone":"+5511977770000","role":"PASTORA","group_number":1,"password":"s3cr3tpwd"}`), wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/users", tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantCode == http.StatusCreated {
				var usr user.User
				if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
					t.Fatalf("json.Unmarshal() failed: %v", err)
				}
				if usr.ID == "" || usr.Role != user.RoleCollaborator {
					t.Errorf("user = %+v", usr)
				}
			}
		})
	}
}

func Test_profileApi(t *testing.T) {
	app := setup(t)
	_, _, collaborator := createStaff(t)
	token := getToken(t, collaborator)

	t.Run("me", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/profile/me", token)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var usr user.User
		if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
			t.Fatalf("json.Unmarshal() failed: %v", err)
		}
		if usr.ID != collaborator.ID {
			t.Errorf("ID = %s, want %s", usr.ID, collaborator.ID)
		}
	})

	t.Run("update own personal data", func(t *testing.T) {
		body := marchallObj(t, user.UpdateProfile{
			CPF:  "123.456.789-09",
			City: "São Paulo",
		})
		req, rec := newAuthRequest(http.MethodPut, "/v1/profile/me", token, body)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var usr user.User
		if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
			t.Fatalf("json.Unmarshal() failed: %v", err)
		}
		if usr.CPF != "123.456.789-09" || usr.City != "São Paulo" {
			t.Errorf("user = %+v, want updated CPF and city", usr)
		}
	})
}
