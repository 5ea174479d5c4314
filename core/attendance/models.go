package attendance

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/tmdiniz/atende/core"
	"github.com/tmdiniz/atende/core/form"
)

// Status is an attendance record's lifecycle state.
type Status string

const (
	StatusScheduled  Status = "SCHEDULED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	// StatusCancelled is representable and filterable, but no operation
	// transitions into it; it exists for records imported from elsewhere.
	StatusCancelled Status = "CANCELLED"
)

var AllStatuses = []Status{StatusScheduled, StatusInProgress, StatusCompleted, StatusCancelled}

func (s Status) Valid() bool {
	for _, st := range AllStatuses {
		if s == st {
			return true
		}
	}
	return false
}

// Attendance is one recorded visit linking a client, the attending user, a
// form schema and the submitted responses.
type Attendance struct {
	ID        string           `json:"id"`
	ClientID  string           `json:"client_id"`
	OwnerID   string           `json:"owner_id"` // creating user
	SchemaID  string           `json:"schema_id"`
	Responses form.ResponseMap `json:"responses"`
	Notes     string           `json:"notes,omitempty"`
	Signature string           `json:"signature,omitempty"` // encoded signature payload
	Status    Status           `json:"status"`
	CreatedAt time.Time        `json:"created_at"` // UTC
	UpdatedAt time.Time        `json:"updated_at"` // UTC
}

// NewAttendance contains information needed to create a new Attendance.
// Status defaults to IN_PROGRESS when not supplied.
type NewAttendance struct {
	ClientID  string           `json:"client_id" validate:"required,uuid4"`
	SchemaID  string           `json:"schema_id" validate:"required,uuid4"`
	Responses form.ResponseMap `json:"responses"`
	Notes     string           `json:"notes"`
	Signature string           `json:"signature"`
	Status    Status           `json:"status" validate:"omitempty,attendancestatus"`
}

func (na *NewAttendance) Validate(validate *validator.Validate) error {
	na.Notes = core.CleanString(na.Notes)
	if na.Status == "" {
		na.Status = StatusInProgress
	}
	return validate.Struct(na)
}

// UpdateAttendance defines what may be modified on an existing Attendance.
// Nil fields are left unchanged; a non-nil Responses map replaces the
// submitted answers wholesale after re-validation.
type UpdateAttendance struct {
	Responses form.ResponseMap `json:"responses"`
	Notes     *string          `json:"notes"`
	Signature *string          `json:"signature"`
}

func (ua *UpdateAttendance) Validate(validate *validator.Validate) error {
	if ua.Notes != nil {
		notes := core.CleanString(*ua.Notes)
		ua.Notes = &notes
	}
	return validate.Struct(ua)
}

type QueryFilter struct {
	ClientID    string    `query:"client_id"`
	OwnerID     string    `query:"owner_id"`
	SchemaID    string    `query:"schema_id"`
	Status      Status    `query:"status"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.ClientID == "" && qf.OwnerID == "" && qf.SchemaID == "" && qf.Status == "" &&
		qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}
