package sqlxrepos

import (
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/tmdiniz/atende/core"
	"github.com/tmdiniz/atende/core/form"
)

type schemaRow struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	IsActive    bool      `db:"is_active"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (row schemaRow) schema() form.Schema {
	return form.Schema{
		ID:          row.ID,
		Name:        row.Name,
		Description: row.Description,
		IsActive:    row.IsActive,
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
	}
}

type fieldRow struct {
	ID       string         `db:"id"`
	SchemaID string         `db:"schema_id"`
	Label    string         `db:"label"`
	Type     string         `db:"type"`
	Required bool           `db:"required"`
	Options  pq.StringArray `db:"options"`
	Order    int            `db:"order"`
	IsActive bool           `db:"is_active"`
}

func (row fieldRow) field() form.Field {
	return form.Field{
		ID:       row.ID,
		SchemaID: row.SchemaID,
		Label:    row.Label,
		Type:     form.FieldType(row.Type),
		Required: row.Required,
		Options:  row.Options,
		Order:    row.Order,
		IsActive: row.IsActive,
	}
}

type formRepository struct {
	db *sqlx.DB
}

var _ form.Repository = (*formRepository)(nil) // interface compliance check

func NewFormRepository(db *sqlx.DB) *formRepository {
	return &formRepository{db: db}
}

// trapNoRowsErr maps psql "no rows" err to form.ErrNotFound
func (repo *formRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return form.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo *formRepository) CheckNameUniqueness(name string, excludedSchemas ...form.Schema) error {
	q := "SELECT EXISTS (SELECT 1 FROM form_schemas WHERE is_active AND LOWER(name) = LOWER(?)"
	args := []interface{}{name}
	if len(excludedSchemas) > 0 {
		ids := make([]string, 0, len(excludedSchemas))
		for _, s := range excludedSchemas {
			ids = append(ids, s.ID)
		}
		inQ, inArgs, err := sqlx.In(" AND id NOT IN (?)", ids)
		if err != nil {
			return errors.Wrap(err, "checking schema name uniqueness")
		}
		q += inQ
		args = append(args, inArgs...)
	}
	q += ")"

	var exists bool
	if err := repo.db.Get(&exists, repo.db.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "checking schema name uniqueness")
	}
	if exists {
		return form.ErrNameExists
	}
	return nil
}

func (repo *formRepository) CreateSchema(s form.Schema) (form.Schema, error) {
	s.ID = uuid.New().String()
	for i := range s.Fields {
		s.Fields[i].ID = uuid.New().String()
		s.Fields[i].SchemaID = s.ID
	}

	tx, err := repo.db.Beginx()
	if err != nil {
		return form.Schema{}, errors.Wrap(err, "inserting schema")
	}
	defer func() { _ = tx.Rollback() }()

	const q = `
INSERT INTO form_schemas (id, name, description, is_active, created_at, updated_at)
VALUES (:id, :name, :description, :is_active, :created_at, :updated_at)`
	row := schemaRow{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
		IsActive:    s.IsActive,
		CreatedAt:   s.CreatedAt.UTC(),
		UpdatedAt:   s.UpdatedAt.UTC(),
	}
	if _, err = tx.NamedExec(q, row); err != nil {
		if isUniqueViolation(err, "form_schemas_name_key") {
			return form.Schema{}, form.ErrNameExists
		}
		return form.Schema{}, errors.Wrap(err, "inserting schema")
	}

	if err = insertFields(tx, s.Fields); err != nil {
		return form.Schema{}, err
	}
	if err = tx.Commit(); err != nil {
		return form.Schema{}, errors.Wrap(err, "inserting schema")
	}
	return s, nil
}

func insertFields(tx *sqlx.Tx, fields []form.Field) error {
	const q = `
INSERT INTO form_fields (id, schema_id, label, type, required, options, "order", is_active)
VALUES (:id, :schema_id, :label, :type, :required, :options, :order, :is_active)`

	for _, f := range fields {
		row := fieldRow{
			ID:       f.ID,
			SchemaID: f.SchemaID,
			Label:    f.Label,
			Type:     string(f.Type),
			Required: f.Required,
			Options:  f.Options,
			Order:    f.Order,
			IsActive: f.IsActive,
		}
		if row.Options == nil {
			row.Options = pq.StringArray{}
		}
		if _, err := tx.NamedExec(q, row); err != nil {
			return errors.Wrap(err, "inserting schema field")
		}
	}
	return nil
}

func (repo *formRepository) getFields(schemaIDs []string, withInactive bool) (map[string][]form.Field, error) {
	q := `SELECT * FROM form_fields WHERE schema_id IN (?)`
	if !withInactive {
		q += " AND is_active"
	}
	q += ` ORDER BY "order"`

	q, args, err := sqlx.In(q, schemaIDs)
	if err != nil {
		return nil, errors.Wrap(err, "getting schema fields")
	}
	var rows []fieldRow
	if err = repo.db.Select(&rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "getting schema fields")
	}

	fields := make(map[string][]form.Field, len(schemaIDs))
	for _, row := range rows {
		fields[row.SchemaID] = append(fields[row.SchemaID], row.field())
	}
	return fields, nil
}

func (repo *formRepository) GetSchemaByID(id string, withInactiveFields bool) (form.Schema, error) {
	var row schemaRow
	q := repo.db.Rebind("SELECT * FROM form_schemas WHERE id = ?")
	if err := repo.db.Get(&row, q, id); err != nil {
		return form.Schema{}, repo.trapNoRowsErr(err, "getting schema")
	}

	fields, err := repo.getFields([]string{id}, withInactiveFields)
	if err != nil {
		return form.Schema{}, err
	}
	s := row.schema()
	s.Fields = fields[id]
	if s.Fields == nil {
		s.Fields = []form.Field{}
	}
	return s, nil
}

func (repo *formRepository) FilterSchemas(filter form.QueryFilter, orderings ...core.DBOrdering) ([]form.Schema, error) {
	q := "SELECT * FROM form_schemas"
	var conds []string
	var args []interface{}

	if filter.Search != "" {
		conds = append(conds, "name ILIKE ?")
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.IsActive != nil {
		conds = append(conds, "is_active = ?")
		args = append(args, *filter.IsActive)
	}

	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += orderClause(orderings, "name ASC")

	var rows []schemaRow
	if err := repo.db.Select(&rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "filtering schemas")
	}
	if len(rows) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	fields, err := repo.getFields(ids, filter.WithInactiveFields)
	if err != nil {
		return nil, err
	}

	schemas := make([]form.Schema, 0, len(rows))
	for _, row := range rows {
		s := row.schema()
		s.Fields = fields[s.ID]
		if s.Fields == nil {
			s.Fields = []form.Field{}
		}
		schemas = append(schemas, s)
	}
	return schemas, nil
}

// UpdateSchema persists the set schema attributes; a non-nil fields slice
// supersedes the entire existing field set within the same transaction.
func (repo *formRepository) UpdateSchema(s form.Schema, fields []form.Field) (form.Schema, error) {
	tx, err := repo.db.Beginx()
	if err != nil {
		return form.Schema{}, errors.Wrap(err, "updating schema")
	}
	defer func() { _ = tx.Rollback() }()

	var sets []string
	var args []interface{}
	set := func(col string, val interface{}) {
		sets = append(sets, col+" = ?")
		args = append(args, val)
	}
	if s.Name != "" {
		set("name", s.Name)
	}
	set("description", s.Description)
	if !s.UpdatedAt.IsZero() {
		set("updated_at", s.UpdatedAt.UTC())
	}

	q := "UPDATE form_schemas SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	args = append(args, s.ID)

	res, err := tx.Exec(tx.Rebind(q), args...)
	if err != nil {
		if isUniqueViolation(err, "form_schemas_name_key") {
			return form.Schema{}, form.ErrNameExists
		}
		return form.Schema{}, errors.Wrap(err, "updating schema")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return form.Schema{}, form.ErrNotFound
	}

	if fields != nil {
		for i := range fields {
			fields[i].ID = uuid.New().String()
			fields[i].SchemaID = s.ID
		}
		if _, err = tx.Exec(tx.Rebind("DELETE FROM form_fields WHERE schema_id = ?"), s.ID); err != nil {
			return form.Schema{}, errors.Wrap(err, "replacing schema fields")
		}
		if err = insertFields(tx, fields); err != nil {
			return form.Schema{}, err
		}
	}

	if err = tx.Commit(); err != nil {
		return form.Schema{}, errors.Wrap(err, "updating schema")
	}
	return repo.GetSchemaByID(s.ID, false)
}

func (repo *formRepository) DeactivateSchema(id string, updatedAt time.Time) error {
	q := repo.db.Rebind("UPDATE form_schemas SET is_active = FALSE, updated_at = ? WHERE id = ?")
	res, err := repo.db.Exec(q, updatedAt.UTC(), id)
	if err != nil {
		return errors.Wrap(err, "deactivating schema")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return form.ErrNotFound
	}
	return nil
}

func (repo *formRepository) CountAttendances(schemaID string) (int, error) {
	var count int
	q := repo.db.Rebind("SELECT COUNT(*) FROM attendances WHERE schema_id = ?")
	if err := repo.db.Get(&count, q, schemaID); err != nil {
		return 0, errors.Wrap(err, "counting schema attendances")
	}
	return count, nil
}
