package dummydb

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/tmdiniz/atende/core"
	"github.com/tmdiniz/atende/core/attendance"
	"github.com/tmdiniz/atende/core/form"
)

type attendanceRepository struct {
	db      *attendanceTable
	ratings *ratingTable
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) attendance.Repository {
	return &attendanceRepository{db: db.attendance, ratings: db.rating}
}

func (repo *attendanceRepository) query() []attendance.Attendance {
	attendances := make([]attendance.Attendance, 0, len(repo.db.table))
	for _, a := range repo.db.table {
		attendances = append(attendances, *a)
	}
	return attendances
}

func (repo *attendanceRepository) CreateAttendance(att attendance.Attendance) (attendance.Attendance, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	// the SQL store enforces this with a partial unique index on
	// (client_id) where status = 'IN_PROGRESS'
	if att.Status == attendance.StatusInProgress {
		for _, existing := range repo.db.table {
			if existing.ClientID == att.ClientID && existing.Status == attendance.StatusInProgress {
				return attendance.Attendance{}, attendance.ErrClientInProgress
			}
		}
	}

	att.ID = uuid.New().String()
	repo.db.table[att.ID] = &att
	return att, nil
}

func (repo *attendanceRepository) GetAttendanceByID(id string) (attendance.Attendance, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if att, ok := repo.db.table[id]; ok {
		return *att, nil
	}
	return attendance.Attendance{}, attendance.ErrNotFound
}

func (repo *attendanceRepository) FilterAttendances(filter attendance.QueryFilter, orderings ...core.DBOrdering) ([]attendance.Attendance, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	attendances := repo.query()

	match := func(att attendance.Attendance) bool {
		if filter.ClientID != "" && att.ClientID != filter.ClientID {
			return false
		}
		if filter.OwnerID != "" && att.OwnerID != filter.OwnerID {
			return false
		}
		if filter.SchemaID != "" && att.SchemaID != filter.SchemaID {
			return false
		}
		if filter.Status != "" && att.Status != filter.Status {
			return false
		}
		if !filter.CreatedFrom.IsZero() && att.CreatedAt.Before(filter.CreatedFrom.UTC()) {
			return false
		}
		if !filter.CreatedTo.IsZero() && att.CreatedAt.After(filter.CreatedTo.UTC()) {
			return false
		}
		return true
	}

	var filtered []attendance.Attendance
	for _, att := range attendances {
		if match(att) {
			filtered = append(filtered, att)
		}
	}

	// newest first by default
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
	})
	return filtered, nil
}

func (repo *attendanceRepository) UpdateAttendance(
	id string,
	responses form.ResponseMap,
	notes, signature *string,
	updatedAt time.Time,
) (attendance.Attendance, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	att, ok := repo.db.table[id]
	if !ok {
		return attendance.Attendance{}, attendance.ErrNotFound
	}
	if responses != nil {
		att.Responses = responses
	}
	if notes != nil {
		att.Notes = *notes
	}
	if signature != nil {
		att.Signature = *signature
	}
	att.UpdatedAt = updatedAt

	repo.db.table[id] = att
	return *att, nil
}

func (repo *attendanceRepository) FinalizeAttendance(id string, updatedAt time.Time) (attendance.Attendance, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	att, ok := repo.db.table[id]
	if !ok {
		return attendance.Attendance{}, attendance.ErrNotFound
	}
	// conditional update under the table lock: the SQL store does
	// "UPDATE ... WHERE status = 'IN_PROGRESS'" and checks affected rows
	if att.Status != attendance.StatusInProgress {
		return attendance.Attendance{}, attendance.ErrAlreadyFinalized
	}
	att.Status = attendance.StatusCompleted
	att.UpdatedAt = updatedAt

	repo.db.table[id] = att
	return *att, nil
}

func (repo *attendanceRepository) DeleteAttendancesByID(ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.ratings.Lock()
	defer repo.ratings.Unlock()

	for _, id := range ids {
		delete(repo.db.table, id)
		// ratings cascade with their attendance
		for rid, rtg := range repo.ratings.table {
			if rtg.AttendanceID == id {
				delete(repo.ratings.table, rid)
			}
		}
	}
	return nil
}
