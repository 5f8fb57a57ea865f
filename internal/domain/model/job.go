package model

import "time"

// JobStatus is the lifecycle state of an import job.
type JobStatus string

// Job states.
const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// ImportJob asks for one source file to be imported with a named profile.
type ImportJob struct {
	ID          string    `json:"id"`
	Path        string    `json:"path"`
	Profile     string    `json:"profile"`
	OurTeam     string    `json:"our_team,omitempty"`
	Opponent    string    `json:"opponent,omitempty"`
	Digest      string    `json:"digest"`
	SubmittedAt time.Time `json:"submitted_at"`
}
