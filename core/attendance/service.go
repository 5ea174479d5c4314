package attendance

import (
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/tmdiniz/atende/core"
	"github.com/tmdiniz/atende/core/client"
	"github.com/tmdiniz/atende/core/form"
	"github.com/tmdiniz/atende/core/user"
)

var (
	// errors
	ErrNotFound         = errors.New("attendance not found")
	ErrPermissionDenied = errors.New("insufficient permissions")
	ErrAlreadyFinalized = errors.New("attendance already finalized")
	ErrClientInProgress = errors.New("client already has an attendance in progress")

	errClientInactive = errors.New("client is deactivated")
	errSchemaInactive = errors.New("form schema is deactivated")

	// NowFunc returns the current time; mockable for tests.
	NowFunc = time.Now

	ratingInviteTemplate = "Hi {{.Data.ClientName}},\n\n" +
		"Thank you for your visit! We would love to hear how it went.\n" +
		"On a scale of 0 to 10, how likely are you to recommend us?\n\n" +
		"{{.FrontendBaseURL}}/feedback/{{.Data.AttendanceID}}\n\n" +
		"It only takes a few seconds."
)

type (
	Repository interface {
		// CreateAttendance persists the record. It enforces at most one
		// IN_PROGRESS attendance per client, failing with ErrClientInProgress.
		CreateAttendance(att Attendance) (Attendance, error)
		GetAttendanceByID(id string) (Attendance, error)
		// FilterAttendances applies AND operation on available QueryFilter
		// fields, newest first by default.
		FilterAttendances(filter QueryFilter, orderings ...core.DBOrdering) ([]Attendance, error)
		// UpdateAttendance persists only the supplied parts: a non-nil
		// responses map replaces the stored one, non-nil notes/signature
		// replace theirs.
		UpdateAttendance(id string, responses form.ResponseMap, notes, signature *string, updatedAt time.Time) (Attendance, error)
		// FinalizeAttendance transitions IN_PROGRESS -> COMPLETED as an atomic
		// conditional update. It fails with ErrAlreadyFinalized when the
		// record exists but is not IN_PROGRESS, so two concurrent calls can
		// never both succeed.
		FinalizeAttendance(id string, updatedAt time.Time) (Attendance, error)
		DeleteAttendancesByID(ids ...string) error
	}

	ServiceInterface interface {
		Create(na NewAttendance, actor user.User) (Attendance, error)
		Get(id string, actor user.User) (Attendance, error)
		Query(filter *QueryFilter, actor user.User, orderings ...core.DBOrdering) ([]Attendance, error)
		Update(id string, ua UpdateAttendance, actor user.User) (Attendance, error)
		Finalize(id string, actor user.User) (Attendance, error)
		Delete(id string, actor user.User) error
	}

	Service struct {
		repo    Repository
		clients client.Repository
		schemas form.Repository
		mailSvc core.EmailService
		conf    *core.Config
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(
	repo Repository,
	clients client.Repository,
	schemas form.Repository,
	mailSvc core.EmailService,
	conf *core.Config,
) *Service {
	return &Service{repo: repo, clients: clients, schemas: schemas, mailSvc: mailSvc, conf: conf}
}

// authorize applies the single ownership policy shared by every mutation:
// a record may be acted upon by its creator or by an admin, and by no one else.
func authorize(actor user.User, att Attendance) error {
	if actor.IsAdmin() || att.OwnerID == actor.ID {
		return nil
	}
	return ErrPermissionDenied
}

func (svc *Service) Create(na NewAttendance, actor user.User) (Attendance, error) {
	clt, err := svc.clients.GetClientByID(na.ClientID)
	if err != nil {
		return Attendance{}, err
	}
	if !clt.IsActive {
		return Attendance{}, core.NewValidationError(errClientInactive, core.FieldError{Field: "client_id", Error: errClientInactive.Error()})
	}

	schema, err := svc.schemas.GetSchemaByID(na.SchemaID, false)
	if err != nil {
		return Attendance{}, err
	}
	if !schema.IsActive {
		return Attendance{}, core.NewValidationError(errSchemaInactive, core.FieldError{Field: "schema_id", Error: errSchemaInactive.Error()})
	}

	if result := form.Validate(schema, na.Responses); !result.Valid() {
		return Attendance{}, &form.MissingFieldsError{Fields: result.MissingFields}
	}

	status := na.Status
	if status == "" {
		status = StatusInProgress
	}

	now := NowFunc().UTC()
	att := Attendance{
		ClientID:  na.ClientID,
		OwnerID:   actor.ID,
		SchemaID:  na.SchemaID,
		Responses: na.Responses,
		Notes:     na.Notes,
		Signature: na.Signature,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateAttendance(att)
}

func (svc *Service) Get(id string, actor user.User) (Attendance, error) {
	att, err := svc.repo.GetAttendanceByID(id)
	if err != nil {
		return Attendance{}, err
	}
	if err = authorize(actor, att); err != nil {
		return Attendance{}, err
	}
	return att, nil
}

// Query returns matching attendances; non-admins only ever see their own records.
func (svc *Service) Query(filter *QueryFilter, actor user.User, orderings ...core.DBOrdering) ([]Attendance, error) {
	var f QueryFilter
	if filter != nil {
		f = *filter
	}
	if !actor.IsAdmin() {
		f.OwnerID = actor.ID
	}
	return svc.repo.FilterAttendances(f, orderings...)
}

func (svc *Service) Update(id string, ua UpdateAttendance, actor user.User) (Attendance, error) {
	att, err := svc.repo.GetAttendanceByID(id)
	if err != nil {
		return Attendance{}, err
	}
	if err = authorize(actor, att); err != nil {
		return Attendance{}, err
	}

	if ua.Responses != nil {
		schema, err := svc.schemas.GetSchemaByID(att.SchemaID, false)
		if err != nil {
			return Attendance{}, errors.Wrap(err, "loading attendance schema")
		}
		if result := form.Validate(schema, ua.Responses); !result.Valid() {
			return Attendance{}, &form.MissingFieldsError{Fields: result.MissingFields}
		}
	}

	return svc.repo.UpdateAttendance(id, ua.Responses, ua.Notes, ua.Signature, NowFunc().UTC())
}

// Finalize completes an IN_PROGRESS attendance. This is the only transition
// into COMPLETED and it is irreversible; on success the client is invited to
// rate the visit.
func (svc *Service) Finalize(id string, actor user.User) (Attendance, error) {
	att, err := svc.repo.GetAttendanceByID(id)
	if err != nil {
		return Attendance{}, err
	}
	if err = authorize(actor, att); err != nil {
		return Attendance{}, err
	}

	att, err = svc.repo.FinalizeAttendance(id, NowFunc().UTC())
	if err != nil {
		return Attendance{}, err
	}

	svc.sendRatingInvite(att)
	return att, nil
}

func (svc *Service) Delete(id string, actor user.User) error {
	att, err := svc.repo.GetAttendanceByID(id)
	if err != nil {
		return err
	}
	if err = authorize(actor, att); err != nil {
		return err
	}
	return svc.repo.DeleteAttendancesByID(id)
}

func (svc *Service) sendRatingInvite(att Attendance) {
	clt, err := svc.clients.GetClientByID(att.ClientID)
	if err != nil || clt.Email == "" {
		return
	}

	msg := &core.EmailMessage{
		To:          []mail.Address{{Name: clt.FullName(), Address: clt.Email}},
		Subject:     fmt.Sprintf("%s - How was your visit?", svc.conf.AppName),
		TemplateStr: ratingInviteTemplate,
		TemplateData: struct {
			ClientName, AttendanceID string
		}{clt.FirstName, att.ID},
	}
	svc.mailSvc.SendMessages(msg)
}
