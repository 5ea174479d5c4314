package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/tmdiniz/atende/core/form"
	testutil "github.com/tmdiniz/atende/tests"
)

func TestFormApi_create(t *testing.T) {
	db.Reset()
	attendant := createAttendant(t)
	admin := createAdmin(t)
	adminToken := getToken(t, admin)
	testutil.CreateSchema(t, formRepo, "Anamnesis", true)

	newSchema := form.NewSchema{
		Name: "Hair Intake",
		Fields: []form.NewField{
			{Label: "Length", Type: form.TypeText, Required: true},
			{Label: "Treatments", Type: form.TypeCheckbox, Options: []string{"Color", "Keratin"}},
		},
	}

	tests := []httpTest{
		{
			name:     "Auth required",
			body:     marchallObj(t, newSchema),
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "admin only",
			token:    getToken(t, attendant),
			body:     marchallObj(t, newSchema),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		},
		{
			name:     "active schema names are unique",
			token:    adminToken,
			body:     marchallObj(t, form.NewSchema{Name: "ANAMNESIS", Fields: newSchema.Fields}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"name": "an active form schema with this name already exists"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/form-schemas", tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("fields get positional orders", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/form-schemas", adminToken, marchallObj(t, newSchema))
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; want %v: %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		var schema form.Schema
		if err := json.Unmarshal(rec.Body.Bytes(), &schema); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if len(schema.Fields) != 2 {
			t.Fatalf("fields = %d; want 2", len(schema.Fields))
		}
		if schema.Fields[0].Order != 1 || schema.Fields[1].Order != 2 {
			t.Errorf("orders = %d/%d; want 1/2", schema.Fields[0].Order, schema.Fields[1].Order)
		}
	})
}

func TestFormApi_read(t *testing.T) {
	db.Reset()
	attendant := createAttendant(t)
	token := getToken(t, attendant)
	schema := createSchema(t)

	tests := []httpTest{
		{
			name:     "reading is open to all authed users",
			path:     "/v1/form-schemas",
			token:    token,
			wantCode: http.StatusOK,
			wantData: marchallList(t, schema),
		},
		{
			name:     "retrieve",
			path:     "/v1/form-schemas/" + schema.ID,
			token:    token,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, schema),
		},
		{
			name:     "field types",
			path:     "/v1/form-schemas/field-types",
			token:    token,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, form.AllFieldTypes),
		},
		{
			name:     "retrieve unknown",
			path:     "/v1/form-schemas/nope",
			token:    token,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, errNotFound),
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

func TestFormApi_deactivate(t *testing.T) {
	db.Reset()
	attendant := createAttendant(t)
	admin := createAdmin(t)
	clt := testutil.CreateClient(t, cltRepo, "Ana", "Silva", "52998224725", "", true)
	schema := createSchema(t)

	t.Run("referenced schemas are protected", func(t *testing.T) {
		createCompletedAttendance(t, clt, attendant, schema)

		tt := httpTest{
			token:    getToken(t, admin),
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, map[string]interface{}{
				"error":       "form schema is referenced by 1 attendance(s)",
				"attendances": 1,
			}),
		}
		req, rec := newAuthRequest(http.MethodPost, "/v1/form-schemas/"+schema.ID+"/deactivate", tt.token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("unreferenced schemas deactivate", func(t *testing.T) {
		other := testutil.CreateSchema(t, formRepo, "Hair Intake", true)
		req, rec := newAuthRequest(http.MethodPost, "/v1/form-schemas/"+other.ID+"/deactivate", getToken(t, admin))
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("failed! code = %v; want %v: %s", rec.Code, http.StatusNoContent, rec.Body.String())
		}
	})
}

func TestFormApi_duplicate(t *testing.T) {
	db.Reset()
	admin := createAdmin(t)
	schema := createSchema(t)

	body := marchallObj(t, form.DuplicateSchema{Name: "Anamnesis v2"})
	req, rec := newAuthRequest(http.MethodPost, "/v1/form-schemas/"+schema.ID+"/duplicate", getToken(t, admin), body)
	app.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("failed! code = %v; want %v: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var copied form.Schema
	if err := json.Unmarshal(rec.Body.Bytes(), &copied); err != nil {
		t.Fatalf("json.Unmarshal(): %v", err)
	}
	if copied.ID == schema.ID || copied.Name != "Anamnesis v2" {
		t.Errorf("duplicate = %+v", copied)
	}
	if len(copied.Fields) != len(schema.Fields) {
		t.Errorf("fields = %d; want %d", len(copied.Fields), len(schema.Fields))
	}
}
