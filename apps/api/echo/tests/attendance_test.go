package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/tmdiniz/atende/core/attendance"
	"github.com/tmdiniz/atende/core/form"
	"github.com/tmdiniz/atende/core/user"
	testutil "github.com/tmdiniz/atende/tests"
)

func TestAttendanceApi_create(t *testing.T) {
	db.Reset()
	attendant := createAttendant(t)
	token := getToken(t, attendant)
	clt := testutil.CreateClient(t, cltRepo, "Ana", "Silva", "52998224725", "", true)
	schema := createSchema(t)

	tests := []httpTest{
		{
			name:     "Auth required",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:  "required questions must be answered",
			token: token,
			body: marchallObj(t, attendance.NewAttendance{
				ClientID: clt.ID, SchemaID: schema.ID, Responses: form.ResponseMap{"Complaint": ""},
			}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]interface{}{
				"error":  "missing required fields",
				"fields": []string{"Complaint"},
			}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/attendances", tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("opens in progress", func(t *testing.T) {
		body := marchallObj(t, attendance.NewAttendance{
			ClientID: clt.ID, SchemaID: schema.ID, Responses: form.ResponseMap{"Complaint": "acne"},
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/attendances", token, body)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; want %v: %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		var att attendance.Attendance
		if err := json.Unmarshal(rec.Body.Bytes(), &att); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if att.Status != attendance.StatusInProgress {
			t.Errorf("Status = %v; want %v", att.Status, attendance.StatusInProgress)
		}
		if att.OwnerID != attendant.ID {
			t.Errorf("OwnerID = %v; want %v", att.OwnerID, attendant.ID)
		}
	})

	t.Run("a client has one open attendance", func(t *testing.T) {
		tt := httpTest{
			token: token,
			body: marchallObj(t, attendance.NewAttendance{
				ClientID: clt.ID, SchemaID: schema.ID, Responses: form.ResponseMap{"Complaint": "again"},
			}),
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: "client already has an attendance in progress"}),
		}
		req, rec := newAuthRequest(http.MethodPost, "/v1/attendances", tt.token, tt.body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})
}

func TestAttendanceApi_finalize(t *testing.T) {
	db.Reset()
	attendant := createAttendant(t)
	other := testutil.CreateUser(t, usrRepo, "Other", "othery", "other@test.cc", "LePassword",
		user.AttendantRoles, true)
	clt := testutil.CreateClient(t, cltRepo, "Ana", "Silva", "52998224725", "", true)
	schema := createSchema(t)

	att := testutil.CreateAttendance(t, attRepo, clt.ID, attendant.ID, schema.ID,
		form.ResponseMap{"Complaint": "acne"}, attendance.StatusInProgress)

	t.Run("owner only", func(t *testing.T) {
		tt := httpTest{
			token:    getToken(t, other),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "insufficient permissions"}),
		}
		req, rec := newAuthRequest(http.MethodPost, "/v1/attendances/"+att.ID+"/finalize", tt.token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("owner completes the visit", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/attendances/"+att.ID+"/finalize", getToken(t, attendant))
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; want %v: %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var done attendance.Attendance
		if err := json.Unmarshal(rec.Body.Bytes(), &done); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if done.Status != attendance.StatusCompleted {
			t.Errorf("Status = %v; want %v", done.Status, attendance.StatusCompleted)
		}
	})

	t.Run("completion is final", func(t *testing.T) {
		tt := httpTest{
			token:    getToken(t, attendant),
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: "attendance already finalized"}),
		}
		req, rec := newAuthRequest(http.MethodPost, "/v1/attendances/"+att.ID+"/finalize", tt.token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})
}

func TestAttendanceApi_query(t *testing.T) {
	db.Reset()
	attendant := createAttendant(t)
	other := testutil.CreateUser(t, usrRepo, "Other", "othery", "other@test.cc", "LePassword",
		user.AttendantRoles, true)
	admin := createAdmin(t)
	clt := testutil.CreateClient(t, cltRepo, "Ana", "Silva", "52998224725", "", true)
	schema := createSchema(t)

	mine := createCompletedAttendance(t, clt, attendant, schema)
	createCompletedAttendance(t, clt, other, schema)

	t.Run("attendants see their own records", func(t *testing.T) {
		tt := httpTest{
			token:    getToken(t, attendant),
			wantCode: http.StatusOK,
			wantData: marchallList(t, mine),
		}
		req, rec := newAuthRequest(http.MethodGet, "/v1/attendances", tt.token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("admin sees everything", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/attendances", getToken(t, admin))
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; want %v: %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var attendances []attendance.Attendance
		if err := json.Unmarshal(rec.Body.Bytes(), &attendances); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if len(attendances) != 2 {
			t.Errorf("got %d records; want 2", len(attendances))
		}
	})
}
