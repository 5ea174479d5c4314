package testutil

import (
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/tmdiniz/atende/core"
	"github.com/tmdiniz/atende/core/attendance"
	"github.com/tmdiniz/atende/core/client"
	"github.com/tmdiniz/atende/core/form"
	"github.com/tmdiniz/atende/core/nps"
	"github.com/tmdiniz/atende/core/user"
)

// NewValidator returns a validator and translator with all the application's
// custom validations registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")

	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	client.InitValidators(validate, translator)
	form.InitValidators(validate, translator)
	attendance.InitValidators(validate, translator)
	return validate, translator
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateClient(
	t *testing.T,
	repo client.Repository,
	firstName, lastName, cpf, email string,
	isActive bool,
	createdAt ...time.Time,
) client.Client {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	clt := client.Client{
		FirstName: firstName,
		LastName:  lastName,
		CPF:       cpf,
		Email:     email,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	clt, err := repo.CreateClient(clt)
	if err != nil {
		t.Fatalf("CreateClient() failed: %v", err)
	}
	return clt
}

func CreateSchema(
	t *testing.T,
	repo form.Repository,
	name string,
	isActive bool,
	fields ...form.Field,
) form.Schema {
	tstamp := time.Now().UTC()
	schema := form.Schema{
		Name:      name,
		Fields:    fields,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	schema, err := repo.CreateSchema(schema)
	if err != nil {
		t.Fatalf("CreateSchema() failed: %v", err)
	}
	return schema
}

func CreateAttendance(
	t *testing.T,
	repo attendance.Repository,
	clientID, ownerID, schemaID string,
	responses form.ResponseMap,
	status attendance.Status,
	createdAt ...time.Time,
) attendance.Attendance {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	att := attendance.Attendance{
		ClientID:  clientID,
		OwnerID:   ownerID,
		SchemaID:  schemaID,
		Responses: responses,
		Status:    status,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	att, err := repo.CreateAttendance(att)
	if err != nil {
		t.Fatalf("CreateAttendance() failed: %v", err)
	}
	return att
}

func CreateRating(
	t *testing.T,
	repo nps.Repository,
	attendanceID, clientID string,
	score int,
	createdAt ...time.Time,
) nps.Rating {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	rtg := nps.Rating{
		AttendanceID: attendanceID,
		ClientID:     clientID,
		Score:        score,
		Category:     nps.CategoryForScore(score),
		CreatedAt:    tstamp,
	}
	rtg, err := repo.CreateRating(rtg)
	if err != nil {
		t.Fatalf("CreateRating() failed: %v", err)
	}
	return rtg
}
