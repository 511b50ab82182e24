// Package report turns three uploaded exports into one statistics record per
// officer.
package report

import (
	"time"

	"github.com/worldsofmind/lab-newsletter-generator/internal/ratings"
	"github.com/worldsofmind/lab-newsletter-generator/pkg/contracts/domain"
)

// Parts are the independently computed pieces of one officer's report.
type Parts struct {
	RunID       string
	GeneratedAt time.Time
	Identity    domain.Identity
	Period      domain.ReportingPeriod
	Own         domain.Figures
	Peer        domain.PeerFigures
	Ratings     ratings.Result
}

// Assemble merges the parts into a report. Slices are copied so the report
// shares no backing arrays with its inputs.
func Assemble(p Parts) domain.Report {
	return domain.Report{
		RunID:         p.RunID,
		GeneratedAt:   p.GeneratedAt,
		Identity:      p.Identity,
		Period:        p.Period,
		Own:           p.Own,
		Peer:          p.Peer,
		SurveyRatings: append([]domain.QuestionScore{}, p.Ratings.Survey...),
		InHouseCases:  append([]domain.CaseRating{}, p.Ratings.InHouse...),
		AssignedCases: append([]domain.CaseRating{}, p.Ratings.Assigned...),
	}
}
