package dashboard_test

import (
	"reflect"
	"testing"
	"time"

	"github.com/tmdiniz/atende/core/attendance"
	"github.com/tmdiniz/atende/core/client"
	"github.com/tmdiniz/atende/core/dashboard"
	"github.com/tmdiniz/atende/core/nps"
	dummydb "github.com/tmdiniz/atende/storage/database/dummy"
	testutil "github.com/tmdiniz/atende/tests"
)

func at(month time.Month, day int) time.Time {
	return time.Date(2026, month, day, 12, 0, 0, 0, time.UTC)
}

func TestService_Overview(t *testing.T) {
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed, %v", err)
	}
	cltRepo := dummydb.NewClientRepository(db)
	formRepo := dummydb.NewFormRepository(db)
	attRepo := dummydb.NewAttendanceRepository(db)
	npsRepo := dummydb.NewNPSRepository(db)
	svc := dashboard.NewService(cltRepo, formRepo, attRepo, nps.NewService(npsRepo, attRepo, cltRepo))

	// empty state
	ov, err := svc.Overview()
	if err != nil {
		t.Fatalf("Overview() failed, %v", err)
	}
	if ov.Clients != 0 || ov.Attendances != 0 || ov.NPS.Total != 0 {
		t.Errorf("Overview() not empty: %+v", ov)
	}
	if len(ov.TopClients) != 0 || len(ov.MonthlyAttendances) != 0 {
		t.Errorf("Overview() series not empty: %+v", ov)
	}

	owner := testutil.CreateUser(t, dummydb.NewUserRepository(db), "Atty", "atty", "atty@test.cc", "", nil, true)
	schema := testutil.CreateSchema(t, formRepo, "Anamnesis", true)

	cltA := testutil.CreateClient(t, cltRepo, "Ana", "Alves", "10000000001", "", true)
	cltB := testutil.CreateClient(t, cltRepo, "Bia", "Brito", "10000000002", "", true)
	cltC := testutil.CreateClient(t, cltRepo, "Caio", "Cruz", "10000000003", "", true)
	cltD := testutil.CreateClient(t, cltRepo, "Alba", "Dias", "10000000004", "", true)
	cltE := testutil.CreateClient(t, cltRepo, "Caue", "Edo", "10000000005", "", true)
	cltF := testutil.CreateClient(t, cltRepo, "Duda", "Faro", "10000000006", "", false)

	mk := func(clt client.Client, status attendance.Status, createdAt time.Time) attendance.Attendance {
		return testutil.CreateAttendance(t, attRepo, clt.ID, owner.ID, schema.ID, nil, status, createdAt)
	}
	attA1 := mk(cltA, attendance.StatusCompleted, at(time.May, 3))
	mk(cltA, attendance.StatusCompleted, at(time.June, 10))
	mk(cltA, attendance.StatusCompleted, at(time.July, 1))
	mk(cltA, attendance.StatusCompleted, at(time.August, 20))
	mk(cltB, attendance.StatusCompleted, at(time.June, 4))
	mk(cltB, attendance.StatusCompleted, at(time.July, 15))
	mk(cltB, attendance.StatusCompleted, at(time.August, 2))
	mk(cltC, attendance.StatusCompleted, at(time.July, 22))
	mk(cltC, attendance.StatusInProgress, at(time.August, 30))
	attD1 := mk(cltD, attendance.StatusCancelled, at(time.May, 9))
	mk(cltE, attendance.StatusCompleted, at(time.June, 18))
	mk(cltF, attendance.StatusCompleted, at(time.August, 11))

	testutil.CreateRating(t, npsRepo, attA1.ID, cltA.ID, 10)
	testutil.CreateRating(t, npsRepo, attD1.ID, cltD.ID, 3)

	ov, err = svc.Overview()
	if err != nil {
		t.Fatalf("Overview() failed, %v", err)
	}

	if ov.Clients != 6 {
		t.Errorf("Clients = %d, want 6", ov.Clients)
	}
	if ov.ActiveClients != 5 {
		t.Errorf("ActiveClients = %d, want 5", ov.ActiveClients)
	}
	if ov.Schemas != 1 {
		t.Errorf("Schemas = %d, want 1", ov.Schemas)
	}
	if ov.Attendances != 12 {
		t.Errorf("Attendances = %d, want 12", ov.Attendances)
	}

	wantByStatus := map[attendance.Status]int{
		attendance.StatusCompleted:  10,
		attendance.StatusInProgress: 1,
		attendance.StatusCancelled:  1,
	}
	if !reflect.DeepEqual(ov.AttendancesByStatus, wantByStatus) {
		t.Errorf("AttendancesByStatus = %v, want %v", ov.AttendancesByStatus, wantByStatus)
	}

	// top 5 by count, ties broken by name; Duda Faro falls off
	wantTop := []dashboard.ClientCount{
		{ClientID: cltA.ID, Name: "Ana Alves", Count: 4},
		{ClientID: cltB.ID, Name: "Bia Brito", Count: 3},
		{ClientID: cltC.ID, Name: "Caio Cruz", Count: 2},
		{ClientID: cltD.ID, Name: "Alba Dias", Count: 1},
		{ClientID: cltE.ID, Name: "Caue Edo", Count: 1},
	}
	if !reflect.DeepEqual(ov.TopClients, wantTop) {
		t.Errorf("TopClients = %v, want %v", ov.TopClients, wantTop)
	}

	wantMonthly := []dashboard.MonthCount{
		{Month: "2026-05", Count: 2},
		{Month: "2026-06", Count: 3},
		{Month: "2026-07", Count: 3},
		{Month: "2026-08", Count: 4},
	}
	if !reflect.DeepEqual(ov.MonthlyAttendances, wantMonthly) {
		t.Errorf("MonthlyAttendances = %v, want %v", ov.MonthlyAttendances, wantMonthly)
	}

	if ov.NPS.Total != 2 {
		t.Errorf("NPS.Total = %d, want 2", ov.NPS.Total)
	}
	if ov.NPS.Promoters != 1 || ov.NPS.Detractors != 1 {
		t.Errorf("NPS promoters/detractors = %d/%d, want 1/1", ov.NPS.Promoters, ov.NPS.Detractors)
	}
	if ov.NPS.NPSScore != 0 {
		t.Errorf("NPS.NPSScore = %d, want 0", ov.NPS.NPSScore)
	}
}
