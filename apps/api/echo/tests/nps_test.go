package tests

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tmdiniz/atende/core/nps"
	testutil "github.com/tmdiniz/atende/tests"
)

func TestNPSApi_submit(t *testing.T) {
	db.Reset()
	attendant := createAttendant(t)
	clt := testutil.CreateClient(t, cltRepo, "Ana", "Silva", "52998224725", "ana@test.cc", true)
	att := createCompletedAttendance(t, clt, attendant, createSchema(t))

	t.Run("rating from the emailed link needs no account", func(t *testing.T) {
		body := marchallObj(t, nps.NewRating{AttendanceID: att.ID, Score: 9, Comment: "great service"})
		req, rec := newRequest(http.MethodPost, "/v1/nps/ratings", body)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; want %v: %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		var rtg nps.Rating
		if err := json.Unmarshal(rec.Body.Bytes(), &rtg); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if rtg.Category != nps.CategoryPromoter {
			t.Errorf("Category = %v; want %v", rtg.Category, nps.CategoryPromoter)
		}
		if rtg.ClientID != clt.ID {
			t.Errorf("ClientID = %v; want %v", rtg.ClientID, clt.ID)
		}
	})

	tests := []httpTest{
		{
			name:     "an attendance is rated once",
			body:     marchallObj(t, nps.NewRating{AttendanceID: att.ID, Score: 2}),
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: "attendance already has a rating"}),
		},
		{
			name:     "unknown attendance",
			body:     marchallObj(t, nps.NewRating{AttendanceID: uuid.New().String(), Score: 9}),
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "attendance not found"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/nps/ratings", tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("score is bounded", func(t *testing.T) {
		body := marchallObj(t, nps.NewRating{AttendanceID: att.ID, Score: 11})
		req, rec := newRequest(http.MethodPost, "/v1/nps/ratings", body)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("failed! code = %v; want %v", rec.Code, http.StatusBadRequest)
		}
		if !strings.Contains(rec.Body.String(), "score") {
			t.Errorf("failed! data = %v; want a score field error", rec.Body.String())
		}
	})
}

func TestNPSApi_retrieve(t *testing.T) {
	db.Reset()
	attendant := createAttendant(t)
	clt := testutil.CreateClient(t, cltRepo, "Ana", "Silva", "52998224725", "", true)
	att := createCompletedAttendance(t, clt, attendant, createSchema(t))
	rtg := testutil.CreateRating(t, npsRepo, att.ID, clt.ID, 8)

	tests := []httpTest{
		{
			name:     "Auth required",
			path:     "/v1/nps/ratings/" + att.ID,
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "retrieve by attendance",
			path:     "/v1/nps/ratings/" + att.ID,
			token:    getToken(t, attendant),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, rtg),
		},
		{
			name:     "unrated attendance",
			path:     "/v1/nps/ratings/" + uuid.New().String(),
			token:    getToken(t, attendant),
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "rating not found"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func TestNPSApi_statistics(t *testing.T) {
	db.Reset()
	attendant := createAttendant(t)
	clt := testutil.CreateClient(t, cltRepo, "Ana", "Silva", "52998224725", "", true)
	schema := createSchema(t)

	// 2 promoters, 1 detractor
	for _, score := range []int{10, 9, 2} {
		att := createCompletedAttendance(t, clt, attendant, schema)
		testutil.CreateRating(t, npsRepo, att.ID, clt.ID, score)
	}

	req, rec := newAuthRequest(http.MethodGet, "/v1/nps/statistics", getToken(t, attendant))
	app.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("failed! code = %v; want %v: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var stats nps.Statistics
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("json.Unmarshal(): %v", err)
	}
	if stats.Total != 3 || stats.Promoters != 2 || stats.Detractors != 1 {
		t.Errorf("stats = %+v; want 3 total, 2 promoters, 1 detractor", stats)
	}
	if stats.NPSScore != 34 { // 67 - 33
		t.Errorf("NPSScore = %d; want 34", stats.NPSScore)
	}
}

func TestNPSApi_byCategory(t *testing.T) {
	db.Reset()
	attendant := createAttendant(t)
	token := getToken(t, attendant)
	clt := testutil.CreateClient(t, cltRepo, "Ana", "Silva", "52998224725", "", true)
	schema := createSchema(t)

	now := time.Now()
	attOld := createCompletedAttendance(t, clt, attendant, schema, now.Add(-time.Hour))
	attNew := createCompletedAttendance(t, clt, attendant, schema, now)
	testutil.CreateRating(t, npsRepo, attOld.ID, clt.ID, 10, now.Add(-time.Hour))
	testutil.CreateRating(t, npsRepo, attNew.ID, clt.ID, 9, now)

	t.Run("category match is case-insensitive, newest first", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/nps/categories/promoter", token)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; want %v: %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var rated []nps.RatedAttendance
		if err := json.Unmarshal(rec.Body.Bytes(), &rated); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if len(rated) != 2 {
			t.Fatalf("got %d records; want 2", len(rated))
		}
		if rated[0].Attendance.ID != attNew.ID {
			t.Errorf("first record = %v; want %v", rated[0].Attendance.ID, attNew.ID)
		}
		if rated[0].Client.Name != "Ana Silva" {
			t.Errorf("client summary = %+v", rated[0].Client)
		}
	})

	tests := []httpTest{
		{
			name:     "empty category is an empty list",
			path:     "/v1/nps/categories/detractor",
			token:    token,
			wantCode: http.StatusOK,
			wantData: []byte("[]"),
		},
		{
			name:     "unknown category",
			path:     "/v1/nps/categories/fans",
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"category": "unknown category"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
