package core

import "time"

// ScoreBreakdown keeps the per-component contributions for explainability.
// It is an audit trail only, recomputed every cycle.
type ScoreBreakdown struct {
	Skills   int `json:"skills"`
	Title    int `json:"title"`
	Location int `json:"location"`
	Salary   int `json:"salary"`
}

// ScoredJob annotates a listing with its compatibility score for the
// current cycle.
type ScoredJob struct {
	Job       *Job           `json:"job"`
	Score     int            `json:"score"`
	Breakdown ScoreBreakdown `json:"breakdown"`
}

// ApplicationResult is the append-only record of one submission attempt.
// Once created it is immutable history.
type ApplicationResult struct {
	Job           *Job      `json:"job"`
	Platform      string    `json:"platform"`
	Success       bool      `json:"success"`
	ApplicationID string    `json:"application_id,omitempty"`
	Error         string    `json:"error,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}
