package nps

import (
	"math"
	"time"

	"github.com/pkg/errors"

	"github.com/tmdiniz/atende/core"
	"github.com/tmdiniz/atende/core/attendance"
	"github.com/tmdiniz/atende/core/client"
)

var (
	// errors
	ErrInvalidScore       = errors.New("score must be between 0 and 10")
	ErrAlreadyRated       = errors.New("attendance already has a rating")
	ErrAttendanceNotFound = errors.New("attendance not found")
	ErrRatingNotFound     = errors.New("rating not found")

	// NowFunc returns the current time; mockable for tests.
	NowFunc = time.Now
)

type (
	Repository interface {
		// CreateRating persists the rating. The at-most-one-rating-per-attendance
		// rule is enforced by the store as a uniqueness constraint, not a prior
		// existence check: a concurrent duplicate fails with ErrAlreadyRated.
		CreateRating(rtg Rating) (Rating, error)
		GetRatingByAttendanceID(attendanceID string) (Rating, error)
		// FilterRatings applies AND operation on available QueryFilter fields,
		// newest first by default.
		FilterRatings(filter QueryFilter, orderings ...core.DBOrdering) ([]Rating, error)
	}

	ServiceInterface interface {
		Submit(nr NewRating) (Rating, error)
		GetByAttendanceID(attendanceID string) (Rating, error)
		Statistics(filter *QueryFilter) (Statistics, error)
		ByCategory(category Category, filter *QueryFilter) ([]RatedAttendance, error)
	}

	Service struct {
		repo        Repository
		attendances attendance.Repository
		clients     client.Repository
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, attendances attendance.Repository, clients client.Repository) *Service {
	return &Service{repo: repo, attendances: attendances, clients: clients}
}

// Submit records the one rating an attendance may receive, classifying the
// score into its category.
func (svc *Service) Submit(nr NewRating) (Rating, error) {
	if nr.Score < MinScore || nr.Score > MaxScore {
		return Rating{}, ErrInvalidScore
	}

	att, err := svc.attendances.GetAttendanceByID(nr.AttendanceID)
	if err != nil {
		if errors.Cause(err) == attendance.ErrNotFound {
			return Rating{}, ErrAttendanceNotFound
		}
		return Rating{}, err
	}

	rtg := Rating{
		AttendanceID: nr.AttendanceID,
		ClientID:     att.ClientID,
		Score:        nr.Score,
		Comment:      nr.Comment,
		Category:     CategoryForScore(nr.Score),
		CreatedAt:    NowFunc().UTC(),
	}
	return svc.repo.CreateRating(rtg)
}

func (svc *Service) GetByAttendanceID(attendanceID string) (Rating, error) {
	return svc.repo.GetRatingByAttendanceID(attendanceID)
}

// Statistics aggregates the matching ratings into the NPS payload:
// per-category counts, integer-rounded percentages, the mean score, the
// 0-10 histogram and npsScore = round(100p/n) - round(100d/n).
func (svc *Service) Statistics(filter *QueryFilter) (Statistics, error) {
	var f QueryFilter
	if filter != nil {
		f = *filter
	}
	ratings, err := svc.repo.FilterRatings(f)
	if err != nil {
		return Statistics{}, err
	}

	stats := Statistics{ScoreDistribution: make([]ScoreCount, MaxScore-MinScore+1)}
	for i := range stats.ScoreDistribution {
		stats.ScoreDistribution[i].Score = MinScore + i
	}

	var scoreSum int
	for _, rtg := range ratings {
		stats.Total++
		scoreSum += rtg.Score
		stats.ScoreDistribution[rtg.Score-MinScore].Count++

		switch rtg.Category {
		case CategoryDetractor:
			stats.Detractors++
		case CategoryNeutral:
			stats.Neutrals++
		case CategoryPromoter:
			stats.Promoters++
		}
	}

	if stats.Total > 0 {
		stats.AverageScore = float64(scoreSum) / float64(stats.Total)
		stats.DetractorPercentage = roundPercentage(stats.Detractors, stats.Total)
		stats.NeutralPercentage = roundPercentage(stats.Neutrals, stats.Total)
		stats.PromoterPercentage = roundPercentage(stats.Promoters, stats.Total)
		stats.NPSScore = stats.PromoterPercentage - stats.DetractorPercentage
	}
	return stats, nil
}

// ByCategory returns the attendances whose rating falls in the category,
// newest first, each with its rating and a client summary.
func (svc *Service) ByCategory(category Category, filter *QueryFilter) ([]RatedAttendance, error) {
	var f QueryFilter
	if filter != nil {
		f = *filter
	}
	min, max := category.ScoreRange()
	f.MinScore = &min
	f.MaxScore = &max

	ratings, err := svc.repo.FilterRatings(f)
	if err != nil {
		return nil, err
	}

	rated := make([]RatedAttendance, 0, len(ratings))
	for _, rtg := range ratings {
		att, err := svc.attendances.GetAttendanceByID(rtg.AttendanceID)
		if err != nil {
			if errors.Cause(err) == attendance.ErrNotFound {
				continue
			}
			return nil, err
		}
		clt, err := svc.clients.GetClientByID(rtg.ClientID)
		if err != nil {
			if errors.Cause(err) == client.ErrNotFound {
				continue
			}
			return nil, err
		}
		rated = append(rated, RatedAttendance{Rating: rtg, Attendance: att, Client: newClientSummary(clt)})
	}
	return rated, nil
}

func roundPercentage(part, total int) int {
	return int(math.Round(100 * float64(part) / float64(total)))
}
