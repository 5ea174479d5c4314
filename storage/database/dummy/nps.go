package dummydb

import (
	"sort"

	"github.com/google/uuid"

	"github.com/tmdiniz/atende/core"
	"github.com/tmdiniz/atende/core/nps"
)

type npsRepository struct {
	db *ratingTable
}

var _ nps.Repository = (*npsRepository)(nil) // interface compliance check

func NewNPSRepository(db *DB) nps.Repository {
	return &npsRepository{db: db.rating}
}

func (repo *npsRepository) query() []nps.Rating {
	ratings := make([]nps.Rating, 0, len(repo.db.table))
	for _, r := range repo.db.table {
		ratings = append(ratings, *r)
	}
	return ratings
}

func (repo *npsRepository) CreateRating(rtg nps.Rating) (nps.Rating, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	// the SQL store enforces this with a unique index on attendance_id;
	// checking under the write lock gives the same one-winner guarantee
	for _, existing := range repo.db.table {
		if existing.AttendanceID == rtg.AttendanceID {
			return nps.Rating{}, nps.ErrAlreadyRated
		}
	}

	rtg.ID = uuid.New().String()
	repo.db.table[rtg.ID] = &rtg
	return rtg, nil
}

func (repo *npsRepository) GetRatingByAttendanceID(attendanceID string) (nps.Rating, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, rtg := range repo.query() {
		if rtg.AttendanceID == attendanceID {
			return rtg, nil
		}
	}
	return nps.Rating{}, nps.ErrRatingNotFound
}

func (repo *npsRepository) FilterRatings(filter nps.QueryFilter, orderings ...core.DBOrdering) ([]nps.Rating, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	match := func(rtg nps.Rating) bool {
		if filter.ClientID != "" && rtg.ClientID != filter.ClientID {
			return false
		}
		if filter.MinScore != nil && rtg.Score < *filter.MinScore {
			return false
		}
		if filter.MaxScore != nil && rtg.Score > *filter.MaxScore {
			return false
		}
		if !filter.CreatedFrom.IsZero() && rtg.CreatedAt.Before(filter.CreatedFrom.UTC()) {
			return false
		}
		if !filter.CreatedTo.IsZero() && rtg.CreatedAt.After(filter.CreatedTo.UTC()) {
			return false
		}
		return true
	}

	var filtered []nps.Rating
	for _, rtg := range repo.query() {
		if match(rtg) {
			filtered = append(filtered, rtg)
		}
	}

	// newest first by default
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
	})
	return filtered, nil
}
