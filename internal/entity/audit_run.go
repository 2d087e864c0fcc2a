package entity

import (
	"math"
	"time"
)

type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunCancelled RunStatus = "cancelled"
)

// Progress is a point-in-time view of an audit run's counters.
type Progress struct {
	Processed int `json:"processed"`
	Total     int `json:"total"`
	Errors    int `json:"errors"`
	Warnings  int `json:"warnings"`
	Other     int `json:"other"`
}

// Percent returns the rounded completion percentage.
func (p Progress) Percent() int {
	if p.Total == 0 {
		return 100
	}
	return int(math.Round(float64(p.Processed) / float64(p.Total) * 100))
}

// AuditRun mirrors the run snapshot kept in Redis while an audit is polled.
type AuditRun struct {
	ID              string     `json:"id"`
	Status          RunStatus  `json:"status"`
	FollowRedirects bool       `json:"follow_redirects"`
	StartedAt       time.Time  `json:"started_at"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
	Progress        Progress   `json:"progress"`
}
