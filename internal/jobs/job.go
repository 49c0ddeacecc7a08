package jobs

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrJobNotFound = errors.New("job not found")
	ErrJobRunning  = errors.New("job is already running")
)

type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// Job is a script run periodically on the application runtime.
type Job struct {
	Name        string        `json:"name"`
	Group       string        `json:"group"`
	Description string        `json:"description"`
	Script      string        `json:"script"`
	Args        []string      `json:"args"`
	Every       time.Duration `json:"every"`
	Singleton   bool          `json:"singleton"`
	Timeout     time.Duration `json:"timeout"`
}

func (j Job) Validate() error {
	if j.Name == "" {
		return errors.New("job name is required")
	}
	if j.Script == "" {
		return fmt.Errorf("job %s: script is required", j.Name)
	}
	if j.Every <= 0 {
		return fmt.Errorf("job %s: interval must be greater than 0", j.Name)
	}

	return nil
}

// Run is one execution of a job.
type Run struct {
	ID         string     `json:"id"`
	App        string     `json:"app"`
	Job        string     `json:"job"`
	Status     Status     `json:"status"`
	Output     string     `json:"output"`
	Error      string     `json:"error"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}
