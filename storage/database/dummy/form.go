package dummydb

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tmdiniz/atende/core"
	"github.com/tmdiniz/atende/core/form"
)

type formRepository struct {
	db          *schemaTable
	attendances *attendanceTable
}

var _ form.Repository = (*formRepository)(nil) // interface compliance check

func NewFormRepository(db *DB) form.Repository {
	return &formRepository{db: db.schema, attendances: db.attendance}
}

func (repo *formRepository) query() []form.Schema {
	schemas := make([]form.Schema, 0, len(repo.db.table))
	for _, s := range repo.db.table {
		schemas = append(schemas, *s)
	}
	return schemas
}

func (repo *formRepository) CheckNameUniqueness(name string, excludedSchemas ...form.Schema) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	excluded := make(map[string]bool, len(excludedSchemas))
	for _, s := range excludedSchemas {
		excluded[s.ID] = true
	}

	lname := strings.ToLower(name)
	for _, s := range repo.query() {
		if s.IsActive && strings.ToLower(s.Name) == lname && !excluded[s.ID] {
			return form.ErrNameExists
		}
	}
	return nil
}

func (repo *formRepository) CreateSchema(s form.Schema) (form.Schema, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	s.ID = uuid.New().String()
	for i := range s.Fields {
		s.Fields[i].ID = uuid.New().String()
		s.Fields[i].SchemaID = s.ID
	}
	repo.db.table[s.ID] = &s
	return presentSchema(s, false), nil
}

func (repo *formRepository) GetSchemaByID(id string, withInactiveFields bool) (form.Schema, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.table[id]; ok {
		return presentSchema(*s, withInactiveFields), nil
	}
	return form.Schema{}, form.ErrNotFound
}

func (repo *formRepository) FilterSchemas(filter form.QueryFilter, orderings ...core.DBOrdering) ([]form.Schema, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	schemas := repo.query()

	if filter.Search != "" {
		var filtered []form.Schema
		search := strings.ToLower(filter.Search)
		for _, s := range schemas {
			if strings.Contains(strings.ToLower(s.Name), search) {
				filtered = append(filtered, s)
			}
		}
		schemas = filtered
	}
	if schemas != nil && filter.IsActive != nil {
		var filtered []form.Schema
		for _, s := range schemas {
			if s.IsActive == *filter.IsActive {
				filtered = append(filtered, s)
			}
		}
		schemas = filtered
	}

	for i := range schemas {
		schemas[i] = presentSchema(schemas[i], filter.WithInactiveFields)
	}
	sort.Slice(schemas, func(i, j int) bool { return schemas[i].Name < schemas[j].Name })
	return schemas, nil
}

func (repo *formRepository) UpdateSchema(s form.Schema, fields []form.Field) (form.Schema, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[s.ID]
	if !ok {
		return form.Schema{}, form.ErrNotFound
	}
	if s.Name != "" {
		orig.Name = s.Name
	}
	orig.Description = s.Description
	if !s.UpdatedAt.IsZero() {
		orig.UpdatedAt = s.UpdatedAt
	}
	// the whole field set is superseded in one step; callers never observe a
	// schema with zero fields mid-update
	if fields != nil {
		for i := range fields {
			fields[i].ID = uuid.New().String()
			fields[i].SchemaID = orig.ID
		}
		orig.Fields = fields
	}

	repo.db.table[orig.ID] = orig
	return presentSchema(*orig, false), nil
}

func (repo *formRepository) DeactivateSchema(id string, updatedAt time.Time) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	s, ok := repo.db.table[id]
	if !ok {
		return form.ErrNotFound
	}
	s.IsActive = false
	s.UpdatedAt = updatedAt
	return nil
}

func (repo *formRepository) CountAttendances(schemaID string) (int, error) {
	repo.attendances.RLock()
	defer repo.attendances.RUnlock()

	var count int
	for _, att := range repo.attendances.table {
		if att.SchemaID == schemaID {
			count++
		}
	}
	return count, nil
}

// presentSchema returns a copy with fields ordered by Order ascending,
// optionally hiding inactive fields.
func presentSchema(s form.Schema, withInactiveFields bool) form.Schema {
	fields := make([]form.Field, 0, len(s.Fields))
	for _, f := range s.Fields {
		if withInactiveFields || f.IsActive {
			fields = append(fields, f)
		}
	}
	sort.SliceStable(fields, func(i, j int) bool { return fields[i].Order < fields[j].Order })
	s.Fields = fields
	return s
}
