package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	echoapi "github.com/tmdiniz/atende/apps/api/echo"
	"github.com/tmdiniz/atende/core/user"
	testutil "github.com/tmdiniz/atende/tests"
)

func TestUserApi_login(t *testing.T) {
	db.Reset()
	createAttendant(t)
	testutil.CreateUser(t, usrRepo, "Gone", "goneuser", "gone@test.cc", "LePassword", user.AttendantRoles, false)

	tests := []httpTest{
		{
			name:     "unknown user",
			body:     marchallObj(t, echoapi.LoginRequest{Username: "whodis", Password: "LePassword"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name:     "wrong password",
			body:     marchallObj(t, echoapi.LoginRequest{Username: "attyone", Password: "nope"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name:     "deactivated account",
			body:     marchallObj(t, echoapi.LoginRequest{Username: "goneuser", Password: "LePassword"}),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name:     "required fields",
			body:     marchallObj(t, echoapi.LoginRequest{}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"username": "this field is required",
				"password": "this field is required",
			}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/login", tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("login by username or email", func(t *testing.T) {
		for _, uname := range []string{"attyone", "Atty@Test.CC"} {
			body := marchallObj(t, echoapi.LoginRequest{Username: uname, Password: "LePassword"})
			req, rec := newRequest(http.MethodPost, "/v1/users/login", body)
			app.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("failed! code = %v; want %v: %s", rec.Code, http.StatusOK, rec.Body.String())
			}
			var resp echoapi.LoginResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("json.Unmarshal(): %v", err)
			}
			if resp.Token == "" {
				t.Error("login returned an empty token")
			}
		}
	})
}

func TestUserApi_register(t *testing.T) {
	db.Reset()
	attendant := createAttendant(t)
	admin := createAdmin(t)
	plainAdmin := testutil.CreateUser(
		t, usrRepo, "Plain Admin", "plainadmin", "plain@test.cc", "LePassword", []string{user.RoleAdmin}, true)

	newUser := user.NewUser{
		Name:            "New Atty",
		Username:        "attytwo",
		Email:           "atty2@test.cc",
		Password:        "LePassword",
		PasswordConfirm: "LePassword",
		Roles:           user.AttendantRoles,
	}

	tests := []httpTest{
		{
			name:     "Auth required",
			body:     marchallObj(t, newUser),
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "admin only",
			token:    getToken(t, attendant),
			body:     marchallObj(t, newUser),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		},
		{
			name:  "username is unique",
			token: getToken(t, admin),
			body: marchallObj(t, user.NewUser{
				Name: "Copycat", Username: "attyone", Email: "cat@test.cc",
				Password: "LePassword", PasswordConfirm: "LePassword",
			}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"username": "a user with this username already exists"}),
		},
		{
			name:  "roles are bounded by the creator's own",
			token: getToken(t, plainAdmin),
			body: marchallObj(t, user.NewUser{
				Name: "Usurper", Username: "usurper", Email: "u@test.cc",
				Password: "LePassword", PasswordConfirm: "LePassword",
				Roles: []string{user.RoleAdminOwner},
			}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"roles": "not enough rights to set these roles"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/users/register", tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("admin registers an attendant", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/register", getToken(t, admin), marchallObj(t, newUser))
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; want %v: %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		var usr user.User
		if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if !usr.IsActive || usr.Username != "attytwo" {
			t.Errorf("registered user = %+v", usr)
		}
	})
}

func TestUserApi_update(t *testing.T) {
	db.Reset()
	attendant := createAttendant(t)
	admin := createAdmin(t)
	deactivate := false

	t.Run("attendants cannot touch their own roles or activity", func(t *testing.T) {
		tt := httpTest{
			token:    getToken(t, attendant),
			body:     marchallObj(t, user.UpdateUser{IsActive: &deactivate}),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		}
		req, rec := newAuthRequest(http.MethodPut, "/v1/users/"+attendant.ID, tt.token, tt.body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("attendants cannot reach other accounts", func(t *testing.T) {
		tt := httpTest{
			token:    getToken(t, attendant),
			body:     marchallObj(t, user.UpdateUser{Name: "Hacked"}),
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, errNotFound),
		}
		req, rec := newAuthRequest(http.MethodPut, "/v1/users/"+admin.ID, tt.token, tt.body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("admin deactivates an account", func(t *testing.T) {
		body := marchallObj(t, user.UpdateUser{IsActive: &deactivate})
		req, rec := newAuthRequest(http.MethodPut, "/v1/users/"+attendant.ID, getToken(t, admin), body)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; want %v: %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var usr user.User
		if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if usr.IsActive {
			t.Error("account still active")
		}
	})
}

func TestUserApi_destroy(t *testing.T) {
	db.Reset()
	attendant := createAttendant(t)
	admin := createAdmin(t)
	adminToken := getToken(t, admin)

	t.Run("self-deletion is refused", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		}
		req, rec := newAuthRequest(http.MethodDelete, "/v1/users/"+admin.ID, adminToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("admin deletes another account", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/users/"+attendant.ID, adminToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Errorf("failed! code = %v; want %v", rec.Code, http.StatusNoContent)
		}
	})
}
