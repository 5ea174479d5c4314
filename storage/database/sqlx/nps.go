package sqlxrepos

import (
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/tmdiniz/atende/core"
	"github.com/tmdiniz/atende/core/nps"
)

type ratingRow struct {
	ID           string    `db:"id"`
	AttendanceID string    `db:"attendance_id"`
	ClientID     string    `db:"client_id"`
	Score        int       `db:"score"`
	Comment      string    `db:"comment"`
	Category     string    `db:"category"`
	CreatedAt    time.Time `db:"created_at"`
}

func (row ratingRow) rating() nps.Rating {
	return nps.Rating{
		ID:           row.ID,
		AttendanceID: row.AttendanceID,
		ClientID:     row.ClientID,
		Score:        row.Score,
		Comment:      row.Comment,
		Category:     nps.Category(row.Category),
		CreatedAt:    row.CreatedAt.UTC(),
	}
}

type npsRepository struct {
	db *sqlx.DB
}

var _ nps.Repository = (*npsRepository)(nil) // interface compliance check

func NewNPSRepository(db *sqlx.DB) *npsRepository {
	return &npsRepository{db: db}
}

func (repo *npsRepository) CreateRating(rtg nps.Rating) (nps.Rating, error) {
	rtg.ID = uuid.New().String()
	const q = `
INSERT INTO nps_ratings (id, attendance_id, client_id, score, comment, category, created_at)
VALUES (:id, :attendance_id, :client_id, :score, :comment, :category, :created_at)`

	row := ratingRow{
		ID:           rtg.ID,
		AttendanceID: rtg.AttendanceID,
		ClientID:     rtg.ClientID,
		Score:        rtg.Score,
		Comment:      rtg.Comment,
		Category:     string(rtg.Category),
		CreatedAt:    rtg.CreatedAt.UTC(),
	}
	if _, err := repo.db.NamedExec(q, row); err != nil {
		// the unique index decides the winner between concurrent submits
		if isUniqueViolation(err, "nps_ratings_attendance_id_key") {
			return nps.Rating{}, nps.ErrAlreadyRated
		}
		return nps.Rating{}, errors.Wrap(err, "inserting rating")
	}
	return rtg, nil
}

func (repo *npsRepository) GetRatingByAttendanceID(attendanceID string) (nps.Rating, error) {
	var row ratingRow
	q := repo.db.Rebind("SELECT * FROM nps_ratings WHERE attendance_id = ?")
	if err := repo.db.Get(&row, q, attendanceID); err != nil {
		if err == sql.ErrNoRows {
			return nps.Rating{}, nps.ErrRatingNotFound
		}
		return nps.Rating{}, errors.Wrap(err, "getting rating")
	}
	return row.rating(), nil
}

func (repo *npsRepository) FilterRatings(filter nps.QueryFilter, orderings ...core.DBOrdering) ([]nps.Rating, error) {
	q := "SELECT * FROM nps_ratings"
	var conds []string
	var args []interface{}

	if filter.ClientID != "" {
		conds = append(conds, "client_id = ?")
		args = append(args, filter.ClientID)
	}
	if filter.MinScore != nil {
		conds = append(conds, "score >= ?")
		args = append(args, *filter.MinScore)
	}
	if filter.MaxScore != nil {
		conds = append(conds, "score <= ?")
		args = append(args, *filter.MaxScore)
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

	var rows []ratingRow
	if err := repo.db.Select(&rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "filtering ratings")
	}
	ratings := make([]nps.Rating, 0, len(rows))
	for _, row := range rows {
		ratings = append(ratings, row.rating())
	}
	return ratings, nil
}
