package attendance_test

import (
	"strings"
	"sync"
	"testing"

	"github.com/pkg/errors"

	"github.com/tmdiniz/atende/core"
	"github.com/tmdiniz/atende/core/attendance"
	"github.com/tmdiniz/atende/core/client"
	"github.com/tmdiniz/atende/core/form"
	"github.com/tmdiniz/atende/core/user"
	emailsvc "github.com/tmdiniz/atende/services/email"
	dummydb "github.com/tmdiniz/atende/storage/database/dummy"
	testutil "github.com/tmdiniz/atende/tests"
)

type testEnv struct {
	db      *dummydb.DB
	svc     *attendance.Service
	attRepo attendance.Repository
	cltRepo client.Repository
	usrRepo user.Repository

	admin     user.User
	attendant user.User
	schema    form.Schema
}

func setup(t *testing.T) *testEnv {
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}

	env := &testEnv{
		db:      db,
		attRepo: dummydb.NewAttendanceRepository(db),
		cltRepo: dummydb.NewClientRepository(db),
		usrRepo: dummydb.NewUserRepository(db),
	}
	env.svc = attendance.NewService(
		env.attRepo, env.cltRepo, dummydb.NewFormRepository(db), emailsvc.NewConsoleServiceMock(), core.Conf)

	env.admin = testutil.CreateUser(t, env.usrRepo, "Admin", "awesome", "admin@test.cc", "", user.AdminRoles, true)
	env.attendant = testutil.CreateUser(t, env.usrRepo, "Atty", "attyone", "atty@test.cc", "", user.AttendantRoles, true)
	env.schema = testutil.CreateSchema(t, dummydb.NewFormRepository(db), "Anamnesis", true,
		form.Field{Label: "Complaint", Type: form.TypeText, Required: true, Order: 1, IsActive: true},
		form.Field{Label: "Allergies", Type: form.TypeTextarea, Order: 2, IsActive: true},
	)
	return env
}

func (env *testEnv) createClient(t *testing.T, cpf, email string, isActive bool) client.Client {
	return testutil.CreateClient(t, env.cltRepo, "Ana", "Silva", cpf, email, isActive)
}

func TestService_Create(t *testing.T) {
	env := setup(t)
	clt := env.createClient(t, "52998224725", "ana@test.cc", true)
	inactiveClt := env.createClient(t, "11144477735", "", false)
	inactiveSchema := testutil.CreateSchema(t, dummydb.NewFormRepository(env.db), "Retired", false)

	responses := form.ResponseMap{"Complaint": "acne"}

	t.Run("unknown client", func(t *testing.T) {
		na := attendance.NewAttendance{ClientID: "nope", SchemaID: env.schema.ID, Responses: responses}
		if _, err := env.svc.Create(na, env.attendant); errors.Cause(err) != client.ErrNotFound {
			t.Errorf("Create() error = %v; want %v", err, client.ErrNotFound)
		}
	})

	t.Run("deactivated client", func(t *testing.T) {
		na := attendance.NewAttendance{ClientID: inactiveClt.ID, SchemaID: env.schema.ID, Responses: responses}
		_, err := env.svc.Create(na, env.attendant)
		var vErr *core.ValidationError
		if !errors.As(err, &vErr) {
			t.Errorf("Create() error = %v; want ValidationError", err)
		}
	})

	t.Run("deactivated schema", func(t *testing.T) {
		na := attendance.NewAttendance{ClientID: clt.ID, SchemaID: inactiveSchema.ID, Responses: responses}
		_, err := env.svc.Create(na, env.attendant)
		var vErr *core.ValidationError
		if !errors.As(err, &vErr) {
			t.Errorf("Create() error = %v; want ValidationError", err)
		}
	})

	t.Run("missing required responses", func(t *testing.T) {
		na := attendance.NewAttendance{ClientID: clt.ID, SchemaID: env.schema.ID, Responses: form.ResponseMap{"Complaint": ""}}
		_, err := env.svc.Create(na, env.attendant)
		var mfErr *form.MissingFieldsError
		if !errors.As(err, &mfErr) {
			t.Fatalf("Create() error = %v; want MissingFieldsError", err)
		}
		if len(mfErr.Fields) != 1 || mfErr.Fields[0] != "Complaint" {
			t.Errorf("Create() missing fields = %v; want [Complaint]", mfErr.Fields)
		}
	})

	t.Run("status defaults to in progress", func(t *testing.T) {
		na := attendance.NewAttendance{ClientID: clt.ID, SchemaID: env.schema.ID, Responses: responses}
		att, err := env.svc.Create(na, env.attendant)
		if err != nil {
			t.Fatalf("Create() failed: %v", err)
		}
		if att.Status != attendance.StatusInProgress {
			t.Errorf("Create() status = %v; want %v", att.Status, attendance.StatusInProgress)
		}
		if att.OwnerID != env.attendant.ID {
			t.Errorf("Create() owner = %v; want %v", att.OwnerID, env.attendant.ID)
		}
	})

	t.Run("one open attendance per client", func(t *testing.T) {
		na := attendance.NewAttendance{ClientID: clt.ID, SchemaID: env.schema.ID, Responses: responses}
		if _, err := env.svc.Create(na, env.attendant); errors.Cause(err) != attendance.ErrClientInProgress {
			t.Errorf("Create() error = %v; want %v", err, attendance.ErrClientInProgress)
		}
	})

	t.Run("completed records do not conflict", func(t *testing.T) {
		na := attendance.NewAttendance{
			ClientID: clt.ID, SchemaID: env.schema.ID, Responses: responses, Status: attendance.StatusCompleted,
		}
		if _, err := env.svc.Create(na, env.attendant); err != nil {
			t.Errorf("Create() failed: %v", err)
		}
	})
}

func TestService_GetAndQuery(t *testing.T) {
	env := setup(t)
	other := testutil.CreateUser(t, env.usrRepo, "Other", "othery", "other@test.cc", "", user.AttendantRoles, true)
	clt := env.createClient(t, "52998224725", "", true)

	mine := testutil.CreateAttendance(t, env.attRepo, clt.ID, env.attendant.ID, env.schema.ID, nil, attendance.StatusCompleted)
	theirs := testutil.CreateAttendance(t, env.attRepo, clt.ID, other.ID, env.schema.ID, nil, attendance.StatusCompleted)

	t.Run("owner reads own record", func(t *testing.T) {
		if _, err := env.svc.Get(mine.ID, env.attendant); err != nil {
			t.Errorf("Get() failed: %v", err)
		}
	})

	t.Run("other attendants are denied", func(t *testing.T) {
		if _, err := env.svc.Get(theirs.ID, env.attendant); errors.Cause(err) != attendance.ErrPermissionDenied {
			t.Errorf("Get() error = %v; want %v", err, attendance.ErrPermissionDenied)
		}
	})

	t.Run("admin reads any record", func(t *testing.T) {
		if _, err := env.svc.Get(theirs.ID, env.admin); err != nil {
			t.Errorf("Get() failed: %v", err)
		}
	})

	t.Run("unknown record", func(t *testing.T) {
		if _, err := env.svc.Get("nope", env.admin); errors.Cause(err) != attendance.ErrNotFound {
			t.Errorf("Get() error = %v; want %v", err, attendance.ErrNotFound)
		}
	})

	t.Run("attendants only see their own records", func(t *testing.T) {
		attendances, err := env.svc.Query(nil, env.attendant)
		if err != nil {
			t.Fatalf("Query() failed: %v", err)
		}
		if len(attendances) != 1 || attendances[0].ID != mine.ID {
			t.Errorf("Query() = %v; want just %v", attendances, mine.ID)
		}
	})

	t.Run("attendants cannot widen the filter", func(t *testing.T) {
		attendances, err := env.svc.Query(&attendance.QueryFilter{OwnerID: other.ID}, env.attendant)
		if err != nil {
			t.Fatalf("Query() failed: %v", err)
		}
		if len(attendances) != 1 || attendances[0].ID != mine.ID {
			t.Errorf("Query() = %v; want just %v", attendances, mine.ID)
		}
	})

	t.Run("admin sees everything", func(t *testing.T) {
		attendances, err := env.svc.Query(nil, env.admin)
		if err != nil {
			t.Fatalf("Query() failed: %v", err)
		}
		if len(attendances) != 2 {
			t.Errorf("Query() = %d records; want 2", len(attendances))
		}
	})
}

func TestService_Update(t *testing.T) {
	env := setup(t)
	other := testutil.CreateUser(t, env.usrRepo, "Other", "othery", "other@test.cc", "", user.AttendantRoles, true)
	clt := env.createClient(t, "52998224725", "", true)
	att := testutil.CreateAttendance(t, env.attRepo, clt.ID, env.attendant.ID, env.schema.ID,
		form.ResponseMap{"Complaint": "acne"}, attendance.StatusInProgress)

	t.Run("non-owner is denied", func(t *testing.T) {
		if _, err := env.svc.Update(att.ID, attendance.UpdateAttendance{}, other); errors.Cause(err) != attendance.ErrPermissionDenied {
			t.Errorf("Update() error = %v; want %v", err, attendance.ErrPermissionDenied)
		}
	})

	t.Run("replacement responses are revalidated", func(t *testing.T) {
		ua := attendance.UpdateAttendance{Responses: form.ResponseMap{"Allergies": "none"}}
		_, err := env.svc.Update(att.ID, ua, env.attendant)
		var mfErr *form.MissingFieldsError
		if !errors.As(err, &mfErr) {
			t.Errorf("Update() error = %v; want MissingFieldsError", err)
		}
	})

	t.Run("partial update leaves the rest untouched", func(t *testing.T) {
		notes := "client mentioned sensitivity"
		updated, err := env.svc.Update(att.ID, attendance.UpdateAttendance{Notes: &notes}, env.attendant)
		if err != nil {
			t.Fatalf("Update() failed: %v", err)
		}
		if updated.Notes != notes {
			t.Errorf("Update() notes = %q; want %q", updated.Notes, notes)
		}
		if updated.Responses["Complaint"] != "acne" {
			t.Errorf("Update() responses = %v; want original kept", updated.Responses)
		}
	})
}

func TestService_Finalize(t *testing.T) {
	env := setup(t)
	clt := env.createClient(t, "52998224725", "ana@test.cc", true)
	att := testutil.CreateAttendance(t, env.attRepo, clt.ID, env.attendant.ID, env.schema.ID, nil, attendance.StatusInProgress)

	sentBefore := len(emailsvc.SentMessages)

	finalized, err := env.svc.Finalize(att.ID, env.attendant)
	if err != nil {
		t.Fatalf("Finalize() failed: %v", err)
	}
	if finalized.Status != attendance.StatusCompleted {
		t.Errorf("Finalize() status = %v; want %v", finalized.Status, attendance.StatusCompleted)
	}

	// the client is invited to rate the visit
	if len(emailsvc.SentMessages) != sentBefore+1 {
		t.Fatalf("Finalize() sent %d emails; want 1", len(emailsvc.SentMessages)-sentBefore)
	}
	invite := emailsvc.SentMessages[len(emailsvc.SentMessages)-1]
	if invite.To[0].Address != clt.Email {
		t.Errorf("Finalize() invite sent to %q; want %q", invite.To[0].Address, clt.Email)
	}
	if !strings.Contains(invite.TextContent, "/feedback/"+att.ID) {
		t.Errorf("Finalize() invite body misses the feedback link: %q", invite.TextContent)
	}

	t.Run("completed records cannot be finalized again", func(t *testing.T) {
		if _, err := env.svc.Finalize(att.ID, env.attendant); errors.Cause(err) != attendance.ErrAlreadyFinalized {
			t.Errorf("Finalize() error = %v; want %v", err, attendance.ErrAlreadyFinalized)
		}
	})

	t.Run("no invite without a client email", func(t *testing.T) {
		quiet := env.createClient(t, "11144477735", "", true)
		att := testutil.CreateAttendance(t, env.attRepo, quiet.ID, env.attendant.ID, env.schema.ID, nil, attendance.StatusInProgress)

		sentBefore := len(emailsvc.SentMessages)
		if _, err := env.svc.Finalize(att.ID, env.attendant); err != nil {
			t.Fatalf("Finalize() failed: %v", err)
		}
		if len(emailsvc.SentMessages) != sentBefore {
			t.Error("Finalize() sent an invite to a client without an email")
		}
	})
}

func TestService_Finalize_concurrent(t *testing.T) {
	env := setup(t)
	clt := env.createClient(t, "52998224725", "", true)
	att := testutil.CreateAttendance(t, env.attRepo, clt.ID, env.attendant.ID, env.schema.ID, nil, attendance.StatusInProgress)

	const workers = 10
	errs := make([]error, workers)

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.svc.Finalize(att.ID, env.attendant)
		}(i)
	}
	wg.Wait()

	var successes int
	for _, err := range errs {
		switch errors.Cause(err) {
		case nil:
			successes++
		case attendance.ErrAlreadyFinalized:
		default:
			t.Errorf("Finalize() unexpected error: %v", err)
		}
	}
	if successes != 1 {
		t.Errorf("Finalize() succeeded %d times; want exactly 1", successes)
	}
}

func TestService_Delete(t *testing.T) {
	env := setup(t)
	other := testutil.CreateUser(t, env.usrRepo, "Other", "othery", "other@test.cc", "", user.AttendantRoles, true)
	clt := env.createClient(t, "52998224725", "", true)
	att := testutil.CreateAttendance(t, env.attRepo, clt.ID, env.attendant.ID, env.schema.ID, nil, attendance.StatusCompleted)

	t.Run("non-owner is denied", func(t *testing.T) {
		if err := env.svc.Delete(att.ID, other); errors.Cause(err) != attendance.ErrPermissionDenied {
			t.Errorf("Delete() error = %v; want %v", err, attendance.ErrPermissionDenied)
		}
	})

	t.Run("owner deletes own record", func(t *testing.T) {
		if err := env.svc.Delete(att.ID, env.attendant); err != nil {
			t.Fatalf("Delete() failed: %v", err)
		}
		if _, err := env.attRepo.GetAttendanceByID(att.ID); errors.Cause(err) != attendance.ErrNotFound {
			t.Errorf("GetAttendanceByID() error = %v; want %v", err, attendance.ErrNotFound)
		}
	})
}
