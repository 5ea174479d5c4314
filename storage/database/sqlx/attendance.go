package sqlxrepos

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/tmdiniz/atende/core"
	"github.com/tmdiniz/atende/core/attendance"
	"github.com/tmdiniz/atende/core/form"
)

// responsesJSON maps form.ResponseMap to a JSONB column.
type responsesJSON form.ResponseMap

func (r responsesJSON) Value() (driver.Value, error) {
	if r == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(r)
}

func (r *responsesJSON) Scan(src interface{}) error {
	if src == nil {
		*r = nil
		return nil
	}
	data, ok := src.([]byte)
	if !ok {
		return errors.Errorf("unsupported responses type %T", src)
	}
	return json.Unmarshal(data, r)
}

type attendanceRow struct {
	ID        string        `db:"id"`
	ClientID  string        `db:"client_id"`
	OwnerID   string        `db:"owner_id"`
	SchemaID  string        `db:"schema_id"`
	Responses responsesJSON `db:"responses"`
	Notes     string        `db:"notes"`
	Signature string        `db:"signature"`
	Status    string        `db:"status"`
	CreatedAt time.Time     `db:"created_at"`
	UpdatedAt time.Time     `db:"updated_at"`
}

func (row attendanceRow) attendance() attendance.Attendance {
	return attendance.Attendance{
		ID:        row.ID,
		ClientID:  row.ClientID,
		OwnerID:   row.OwnerID,
		SchemaID:  row.SchemaID,
		Responses: form.ResponseMap(row.Responses),
		Notes:     row.Notes,
		Signature: row.Signature,
		Status:    attendance.Status(row.Status),
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
}

type attendanceRepository struct {
	db *sqlx.DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *sqlx.DB) *attendanceRepository {
	return &attendanceRepository{db: db}
}

// trapNoRowsErr maps psql "no rows" err to attendance.ErrNotFound
func (repo *attendanceRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return attendance.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo *attendanceRepository) CreateAttendance(att attendance.Attendance) (attendance.Attendance, error) {
	att.ID = uuid.New().String()
	const q = `
INSERT INTO attendances (id, client_id, owner_id, schema_id, responses, notes, signature, status, created_at, updated_at)
VALUES (:id, :client_id, :owner_id, :schema_id, :responses, :notes, :signature, :status, :created_at, :updated_at)`

	row := attendanceRow{
		ID:        att.ID,
		ClientID:  att.ClientID,
		OwnerID:   att.OwnerID,
		SchemaID:  att.SchemaID,
		Responses: responsesJSON(att.Responses),
		Notes:     att.Notes,
		Signature: att.Signature,
		Status:    string(att.Status),
		CreatedAt: att.CreatedAt.UTC(),
		UpdatedAt: att.UpdatedAt.UTC(),
	}
	if _, err := repo.db.NamedExec(q, row); err != nil {
		// the partial unique index rejects a second open attendance per client
		if isUniqueViolation(err, "attendances_client_in_progress_key") {
			return attendance.Attendance{}, attendance.ErrClientInProgress
		}
		return attendance.Attendance{}, errors.Wrap(err, "inserting attendance")
	}
	return att, nil
}

func (repo *attendanceRepository) GetAttendanceByID(id string) (attendance.Attendance, error) {
	var row attendanceRow
	q := repo.db.Rebind("SELECT * FROM attendances WHERE id = ?")
	if err := repo.db.Get(&row, q, id); err != nil {
		return attendance.Attendance{}, repo.trapNoRowsErr(err, "getting attendance")
	}
	return row.attendance(), nil
}

func (repo *attendanceRepository) FilterAttendances(filter attendance.QueryFilter, orderings ...core.DBOrdering) ([]attendance.Attendance, error) {
	q := "SELECT * FROM attendances"
	var conds []string
	var args []interface{}

	if filter.ClientID != "" {
		conds = append(conds, "client_id = ?")
		args = append(args, filter.ClientID)
	}
	if filter.OwnerID != "" {
		conds = append(conds, "owner_id = ?")
		args = append(args, filter.OwnerID)
	}
	if filter.SchemaID != "" {
		conds = append(conds, "schema_id = ?")
		args = append(args, filter.SchemaID)
	}
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(filter.Status))
	}
	if !filter.CreatedFrom.IsZero() {
		conds = append(conds, "created_at >= ?")
		args = append(args, filter.CreatedFrom)
	}
	if !filter.CreatedTo.IsZero() {
		conds = append(conds, "created_at <= ?")
		args = append(args, filter.CreatedTo)
	}

	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += orderClause(orderings, "created_at DESC")

	var rows []attendanceRow
	if err := repo.db.Select(&rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "filtering attendances")
	}
	atts := make([]attendance.Attendance, 0, len(rows))
	for _, row := range rows {
		atts = append(atts, row.attendance())
	}
	return atts, nil
}

func (repo *attendanceRepository) UpdateAttendance(
	id string,
	responses form.ResponseMap,
	notes, signature *string,
	updatedAt time.Time,
) (attendance.Attendance, error) {
	var sets []string
	var args []interface{}
	set := func(col string, val interface{}) {
		sets = append(sets, col+" = ?")
		args = append(args, val)
	}

	if responses != nil {
		set("responses", responsesJSON(responses))
	}
	if notes != nil {
		set("notes", *notes)
	}
	if signature != nil {
		set("signature", *signature)
	}
	set("updated_at", updatedAt.UTC())

	q := "UPDATE attendances SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	args = append(args, id)

	res, err := repo.db.Exec(repo.db.Rebind(q), args...)
	if err != nil {
		return attendance.Attendance{}, errors.Wrap(err, "updating attendance")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return attendance.Attendance{}, attendance.ErrNotFound
	}
	return repo.GetAttendanceByID(id)
}

// FinalizeAttendance runs the IN_PROGRESS -> COMPLETED transition as a single
// conditional UPDATE; of two concurrent calls only one can match the row.
func (repo *attendanceRepository) FinalizeAttendance(id string, updatedAt time.Time) (attendance.Attendance, error) {
	q := repo.db.Rebind("UPDATE attendances SET status = ?, updated_at = ? WHERE id = ? AND status = ?")
	res, err := repo.db.Exec(q, string(attendance.StatusCompleted), updatedAt.UTC(), id, string(attendance.StatusInProgress))
	if err != nil {
		return attendance.Attendance{}, errors.Wrap(err, "finalizing attendance")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		if _, err = repo.GetAttendanceByID(id); err != nil {
			return attendance.Attendance{}, err
		}
		return attendance.Attendance{}, attendance.ErrAlreadyFinalized
	}
	return repo.GetAttendanceByID(id)
}

func (repo *attendanceRepository) DeleteAttendancesByID(ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	// nps_ratings cascade on attendance deletion
	q, args, err := sqlx.In("DELETE FROM attendances WHERE id IN (?)", ids)
	if err != nil {
		return errors.Wrap(err, "deleting attendances")
	}
	if _, err = repo.db.Exec(repo.db.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "deleting attendances")
	}
	return nil
}
