package form

import (
	"time"

	"github.com/pkg/errors"

	"github.com/tmdiniz/atende/core"
)

// NowFunc returns the current time; mockable for tests.
var NowFunc = time.Now

type (
	Repository interface {
		// CheckNameUniqueness matches names case-insensitively among active schemas.
		CheckNameUniqueness(name string, excludedSchemas ...Schema) error
		// CreateSchema persists the schema and its fields as a single transaction.
		CreateSchema(s Schema) (Schema, error)
		GetSchemaByID(id string, withInactiveFields bool) (Schema, error)
		// FilterSchemas applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on Schema.Name.
		FilterSchemas(filter QueryFilter, orderings ...core.DBOrdering) ([]Schema, error)
		// UpdateSchema persists the schema attributes; a non-nil `fields` slice
		// supersedes the entire existing field set in the same transaction so a
		// schema with zero fields is never visible mid-update.
		UpdateSchema(s Schema, fields []Field) (Schema, error)
		DeactivateSchema(id string, updatedAt time.Time) error
		// CountAttendances counts the attendance records referencing the schema.
		CountAttendances(schemaID string) (int, error)
	}

	ServiceInterface interface {
		CheckNameUniqueness(name string, exclSchemas ...Schema) error
		Create(ns NewSchema) (Schema, error)
		GetByID(id string, withInactiveFields ...bool) (Schema, error)
		Query(filter *QueryFilter, orderings ...core.DBOrdering) ([]Schema, error)
		Update(id string, us UpdateSchema) (Schema, error)
		Duplicate(id string, ds DuplicateSchema) (Schema, error)
		Deactivate(id string) error
	}

	Service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) CheckNameUniqueness(name string, exclSchemas ...Schema) error {
	if err := svc.repo.CheckNameUniqueness(name, exclSchemas...); err != nil {
		if errors.Cause(err) == ErrNameExists {
			return core.NewValidationError(err, core.FieldError{Field: "name", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) Create(ns NewSchema) (Schema, error) {
	now := NowFunc().UTC()
	schema := Schema{
		Name:        ns.Name,
		Description: ns.Description,
		Fields:      buildFields(ns.Fields),
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateSchema(schema)
}

func (svc *Service) GetByID(id string, withInactiveFields ...bool) (Schema, error) {
	var withInactive bool
	if len(withInactiveFields) > 0 {
		withInactive = withInactiveFields[0]
	}
	return svc.repo.GetSchemaByID(id, withInactive)
}

func (svc *Service) Query(filter *QueryFilter, orderings ...core.DBOrdering) ([]Schema, error) {
	if filter == nil {
		return svc.repo.FilterSchemas(QueryFilter{}, orderings...)
	}
	return svc.repo.FilterSchemas(*filter, orderings...)
}

// Update modifies the schema's attributes. A supplied field set replaces the
// existing one wholesale: old fields are discarded and the new ones get fresh
// identities.
func (svc *Service) Update(id string, us UpdateSchema) (Schema, error) {
	orig, err := svc.repo.GetSchemaByID(id, true)
	if err != nil {
		return Schema{}, err
	}
	if !orig.IsActive {
		return Schema{}, ErrNotFound
	}

	schema := Schema{
		ID:          orig.ID,
		Name:        us.Name,
		Description: us.Description,
		IsActive:    true,
		CreatedAt:   orig.CreatedAt,
		UpdatedAt:   NowFunc().UTC(),
	}

	var fields []Field
	if us.Fields != nil {
		fields = buildFields(us.Fields)
	}
	return svc.repo.UpdateSchema(schema, fields)
}

// Duplicate copies an existing schema's active fields into a new schema.
func (svc *Service) Duplicate(id string, ds DuplicateSchema) (Schema, error) {
	orig, err := svc.repo.GetSchemaByID(id, false)
	if err != nil {
		return Schema{}, err
	}
	if !orig.IsActive {
		return Schema{}, ErrNotFound
	}

	now := NowFunc().UTC()
	copied := Schema{
		Name:        ds.Name,
		Description: orig.Description,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, fld := range orig.ActiveFields() {
		copied.Fields = append(copied.Fields, Field{
			Label:    fld.Label,
			Type:     fld.Type,
			Required: fld.Required,
			Options:  append([]string(nil), fld.Options...),
			Order:    fld.Order,
			IsActive: true,
		})
	}
	return svc.repo.CreateSchema(copied)
}

// Deactivate flips the schema inactive. It fails with HasAttendancesError while
// any attendance references the schema; the fields remain but the schema is
// invisible to new attendances.
func (svc *Service) Deactivate(id string) error {
	if _, err := svc.repo.GetSchemaByID(id, false); err != nil {
		return err
	}

	count, err := svc.repo.CountAttendances(id)
	if err != nil {
		return errors.Wrap(err, "counting schema attendances")
	}
	if count > 0 {
		return &HasAttendancesError{Count: count}
	}
	return svc.repo.DeactivateSchema(id, NowFunc().UTC())
}

// buildFields converts the request fields, assigning each an explicit order
// (the given value, or its position+1 when omitted).
func buildFields(newFields []NewField) []Field {
	fields := make([]Field, 0, len(newFields))
	for i, nf := range newFields {
		order := nf.Order
		if order == 0 {
			order = i + 1
		}
		fields = append(fields, Field{
			Label:    nf.Label,
			Type:     nf.Type,
			Required: nf.Required,
			Options:  nf.Options,
			Order:    order,
			IsActive: true,
		})
	}
	return fields
}
