package domain

import (
	"time"
)

// Report is the per-officer statistics record handed to renderers.
// It is assembled once per officer per run and never mutated afterwards.
type Report struct {
	RunID         string          `json:"run_id" validate:"required,uuid"`
	GeneratedAt   time.Time       `json:"generated_at"`
	Identity      Identity        `json:"identity"`
	Period        ReportingPeriod `json:"period"`
	Own           Figures         `json:"own"`
	Peer          PeerFigures     `json:"peer"`
	SurveyRatings []QuestionScore `json:"survey_ratings"`
	InHouseCases  []CaseRating    `json:"inhouse_case_ratings"`
	AssignedCases []CaseRating    `json:"assigned_case_ratings"`
}

// Identity identifies a staff member as listed on the roster.
type Identity struct {
	Name         string `json:"name" validate:"required"`
	Abbreviation string `json:"abbreviation,omitempty"`
	Role         string `json:"role"`
}

// Label returns the abbreviation when present, otherwise the name.
func (i Identity) Label() string {
	if i.Abbreviation != "" {
		return i.Abbreviation
	}
	return i.Name
}

// QuestionScore is the mean survey score for one question.
type QuestionScore struct {
	Question  string  `json:"question"`
	Mean      float64 `json:"mean"`
	Responses int     `json:"responses"`
}

// CaseRating is the mean survey score of a single rated case.
type CaseRating struct {
	CaseRef   string  `json:"case_ref"`
	Applicant string  `json:"applicant"`
	Score     float64 `json:"score"`
}

// SurveyMean looks up the mean score of a question by its label.
func (r Report) SurveyMean(question string) (float64, bool) {
	for _, q := range r.SurveyRatings {
		if q.Question == question {
			return q.Mean, true
		}
	}
	return 0, false
}
