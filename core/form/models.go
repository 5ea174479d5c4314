package form

import (
	"sort"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/tmdiniz/atende/core"
)

// FieldType determines the shape of the answer a Field accepts.
type FieldType string

const (
	TypeText     FieldType = "TEXT"
	TypeTextarea FieldType = "TEXTAREA"
	TypeSelect   FieldType = "SELECT"
	TypeCheckbox FieldType = "CHECKBOX"
	TypeRadio    FieldType = "RADIO"
	TypeNumber   FieldType = "NUMBER"
	TypeDate     FieldType = "DATE"
	TypeTime     FieldType = "TIME"
	TypeEmail    FieldType = "EMAIL"
	TypePhone    FieldType = "PHONE"
)

var AllFieldTypes = []FieldType{
	TypeText, TypeTextarea, TypeSelect, TypeCheckbox, TypeRadio,
	TypeNumber, TypeDate, TypeTime, TypeEmail, TypePhone,
}

// RequiresOptions reports whether the type only accepts answers from a choice list.
func (t FieldType) RequiresOptions() bool {
	return t == TypeSelect || t == TypeRadio || t == TypeCheckbox
}

func (t FieldType) Valid() bool {
	for _, ft := range AllFieldTypes {
		if t == ft {
			return true
		}
	}
	return false
}

// Field is one question within a Schema. Label doubles as the response key.
type Field struct {
	ID       string    `json:"id"`
	SchemaID string    `json:"schema_id"`
	Label    string    `json:"label"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required"`
	Options  []string  `json:"options,omitempty"` // SELECT/RADIO/CHECKBOX only
	Order    int       `json:"order"`
	IsActive bool      `json:"is_active"`
}

// Schema is a named, versionless definition of an attendance questionnaire.
type Schema struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"` // unique among active schemas, case-insensitive
	Description string    `json:"description,omitempty"`
	Fields      []Field   `json:"fields"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

// ActiveFields returns the schema's active fields ordered by Order ascending.
func (s *Schema) ActiveFields() []Field {
	fields := make([]Field, 0, len(s.Fields))
	for _, f := range s.Fields {
		if f.IsActive {
			fields = append(fields, f)
		}
	}
	sort.SliceStable(fields, func(i, j int) bool { return fields[i].Order < fields[j].Order })
	return fields
}

// ResponseMap holds submitted answers keyed by Field.Label. The answer shape
// depends on the declared field type: string, string slice (multi-select),
// boolean or number.
type ResponseMap map[string]interface{}

// NewField describes one field of a schema being created or replaced.
type NewField struct {
	Label    string    `json:"label" validate:"required"`
	Type     FieldType `json:"type" validate:"required,fieldtype"`
	Required bool      `json:"required"`
	Options  []string  `json:"options"`
	Order    int       `json:"order"` // 0 = assign from position
}

// NewSchema contains information needed to create a new Schema.
type NewSchema struct {
	Name        string     `json:"name" validate:"required"`
	Description string     `json:"description"`
	Fields      []NewField `json:"fields" validate:"required,min=1,dive"`
}

func (ns *NewSchema) Validate(validate *validator.Validate, svc ServiceInterface) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Description = core.CleanString(ns.Description)
	for i := range ns.Fields {
		ns.Fields[i].Label = core.CleanString(ns.Fields[i].Label)
	}

	if err := validate.Struct(ns); err != nil {
		return err
	}
	return svc.CheckNameUniqueness(ns.Name)
}

// UpdateSchema defines what may be modified on an existing Schema.
// A non-nil Fields slice replaces the entire field set atomically.
type UpdateSchema struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Fields      []NewField `json:"fields" validate:"omitempty,min=1,dive"`
}

func (us *UpdateSchema) Validate(validate *validator.Validate, origSchema Schema, svc ServiceInterface) error {
	if name := core.CleanString(us.Name); name != "" {
		us.Name = name
	} else {
		us.Name = origSchema.Name
	}

	if desc := core.CleanString(us.Description); desc != "" {
		us.Description = desc
	} else {
		us.Description = origSchema.Description
	}

	for i := range us.Fields {
		us.Fields[i].Label = core.CleanString(us.Fields[i].Label)
	}

	if err := validate.Struct(us); err != nil {
		return err
	}
	return svc.CheckNameUniqueness(us.Name, origSchema)
}

// DuplicateSchema names the copy of an existing Schema.
type DuplicateSchema struct {
	Name string `json:"name" validate:"required"`
}

func (ds *DuplicateSchema) Validate(validate *validator.Validate, svc ServiceInterface) error {
	ds.Name = core.CleanString(ds.Name)

	if err := validate.Struct(ds); err != nil {
		return err
	}
	return svc.CheckNameUniqueness(ds.Name)
}

type QueryFilter struct {
	Search   string `query:"search"`
	IsActive *bool  `query:"is_active"`
	// WithInactiveFields includes deactivated fields in the returned schemas.
	WithInactiveFields bool `query:"with_inactive_fields"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.IsActive == nil && !qf.WithInactiveFields
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
