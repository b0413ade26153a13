package storage

import (
	stderrors "errors"
	"time"

	"github.com/adverant/nexus/pdfocr/internal/extract"
)

// ErrJobNotFound is returned when no record exists for a job id.
var ErrJobNotFound = stderrors.New("job not found")

// Status is the lifecycle state of an asynchronous extraction.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transitions happen.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job is the externally visible record of one asynchronous extraction.
type Job struct {
	ID        string          `json:"job_id"`
	Filename  string          `json:"filename"`
	Status    Status          `json:"status"`
	Progress  int             `json:"progress"`
	Pages     int             `json:"pages,omitempty"`
	Crops     int             `json:"crops,omitempty"`
	ErrorCode string          `json:"error_code,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Result    *extract.Result `json:"result,omitempty"`
}

// JobUpdate represents a job status update
type JobUpdate struct {
	JobID            string
	Filename         string
	Status           Status
	Progress         int
	Pages            int
	Crops            int
	ProcessingTimeMs int64
	ErrorCode        string
	ErrorMessage     string
	Metadata         map[string]interface{}
}

// apply folds an update into the job record.
func (j *Job) apply(u *JobUpdate, now time.Time) {
	if u.Filename != "" {
		j.Filename = u.Filename
	}
	j.Status = u.Status
	j.Progress = u.Progress
	if u.Pages > 0 {
		j.Pages = u.Pages
	}
	if u.Crops > 0 {
		j.Crops = u.Crops
	}
	j.ErrorCode = u.ErrorCode
	j.Error = u.ErrorMessage
	j.UpdatedAt = now
}
