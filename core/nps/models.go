package nps

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/tmdiniz/atende/core"
	"github.com/tmdiniz/atende/core/attendance"
	"github.com/tmdiniz/atende/core/client"
)

// Category classifies a score per the standard NPS thresholds.
type Category string

const (
	CategoryDetractor Category = "DETRACTOR" // 0-6
	CategoryNeutral   Category = "NEUTRAL"   // 7-8
	CategoryPromoter  Category = "PROMOTER"  // 9-10
)

const (
	MinScore = 0
	MaxScore = 10

	// category thresholds
	detractorMaxScore = 6
	neutralMaxScore   = 8
)

// CategoryForScore is a total function of score over [MinScore, MaxScore].
func CategoryForScore(score int) Category {
	switch {
	case score <= detractorMaxScore:
		return CategoryDetractor
	case score <= neutralMaxScore:
		return CategoryNeutral
	default:
		return CategoryPromoter
	}
}

func (c Category) Valid() bool {
	return c == CategoryDetractor || c == CategoryNeutral || c == CategoryPromoter
}

// ScoreRange returns the inclusive score bounds covered by the category.
func (c Category) ScoreRange() (min, max int) {
	switch c {
	case CategoryDetractor:
		return MinScore, detractorMaxScore
	case CategoryNeutral:
		return detractorMaxScore + 1, neutralMaxScore
	default:
		return neutralMaxScore + 1, MaxScore
	}
}

// Rating is a client's 0-10 score for one attendance. Immutable once created.
type Rating struct {
	ID           string    `json:"id"`
	AttendanceID string    `json:"attendance_id"` // at most one rating per attendance
	ClientID     string    `json:"client_id"`     // denormalized from the attendance
	Score        int       `json:"score"`
	Comment      string    `json:"comment,omitempty"`
	Category     Category  `json:"category"`
	CreatedAt    time.Time `json:"created_at"` // UTC
}

// NewRating contains information needed to submit a rating.
type NewRating struct {
	AttendanceID string `json:"attendance_id" validate:"required,uuid4"`
	Score        int    `json:"score" validate:"min=0,max=10"`
	Comment      string `json:"comment"`
}

func (nr *NewRating) Validate(validate *validator.Validate) error {
	nr.Comment = core.CleanString(nr.Comment)
	return validate.Struct(nr)
}

// ScoreCount is one bucket of the score histogram.
type ScoreCount struct {
	Score int `json:"score"`
	Count int `json:"count"`
}

// Statistics is the aggregate NPS payload for a rating set.
type Statistics struct {
	Total               int          `json:"total"`
	Detractors          int          `json:"detractors"`
	Neutrals            int          `json:"neutrals"`
	Promoters           int          `json:"promoters"`
	NPSScore            int          `json:"nps_score"` // -100..100
	AverageScore        float64      `json:"average_score"`
	DetractorPercentage int          `json:"detractor_percentage"`
	NeutralPercentage   int          `json:"neutral_percentage"`
	PromoterPercentage  int          `json:"promoter_percentage"`
	ScoreDistribution   []ScoreCount `json:"score_distribution"` // one bucket per score, ascending
}

// RatedAttendance pairs a rating with its attendance and a client summary.
type RatedAttendance struct {
	Rating     Rating                `json:"rating"`
	Attendance attendance.Attendance `json:"attendance"`
	Client     ClientSummary         `json:"client"`
}

type ClientSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	CPF  string `json:"cpf"`
}

func newClientSummary(clt client.Client) ClientSummary {
	return ClientSummary{ID: clt.ID, Name: clt.FullName(), CPF: clt.CPF}
}

type QueryFilter struct {
	ClientID    string    `query:"client_id"`
	MinScore    *int      `query:"min_score"`
	MaxScore    *int      `query:"max_score"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.ClientID == "" && qf.MinScore == nil && qf.MaxScore == nil &&
		qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}
