package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/tmdiniz/atende/core/dashboard"
	testutil "github.com/tmdiniz/atende/tests"
)

func TestDashboardApi(t *testing.T) {
	db.Reset()
	attendant := createAttendant(t)
	admin := createAdmin(t)

	clt := testutil.CreateClient(t, cltRepo, "Ana", "Silva", "52998224725", "", true)
	schema := createSchema(t)
	att := createCompletedAttendance(t, clt, attendant, schema)
	testutil.CreateRating(t, npsRepo, att.ID, clt.ID, 9)

	tests := []httpTest{
		{
			name:     "Auth required",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "admin only",
			token:    getToken(t, attendant),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/dashboard", tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("overview rollup", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/dashboard", getToken(t, admin))
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; want %v: %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var ov dashboard.Overview
		if err := json.Unmarshal(rec.Body.Bytes(), &ov); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if ov.Clients != 1 || ov.ActiveClients != 1 || ov.Schemas != 1 || ov.Attendances != 1 {
			t.Errorf("overview = %+v", ov)
		}
		if ov.NPS.Total != 1 || ov.NPS.Promoters != 1 {
			t.Errorf("NPS = %+v; want 1 promoter", ov.NPS)
		}
		if len(ov.TopClients) != 1 || ov.TopClients[0].Name != "Ana Silva" {
			t.Errorf("TopClients = %+v", ov.TopClients)
		}
	})
}
