package domain

import (
	"context"
	"time"
)

// JobState represents the lifecycle state of a remote job.
type JobState string

// Remote job lifecycle states.
const (
	JobStatePending JobState = "PENDING"
	JobStateRunning JobState = "RUNNING"
	JobStateDone    JobState = "DONE"
)

// JobStatus is a snapshot of a remote job. Err is non-nil when the job
// reached DONE with an execution error.
type JobStatus struct {
	State     JobState
	Err       error
	StartTime time.Time
	EndTime   time.Time
}

// Done reports whether the job reached a terminal state.
func (s *JobStatus) Done() bool { return s != nil && s.State == JobStateDone }

// JobError is the remote-reported error detail of a failed job.
type JobError struct {
	Reason   string
	Location string
	Message  string
}

func (e *JobError) Error() string {
	if e.Location == "" {
		return e.Reason + ": " + e.Message
	}
	return e.Reason + " at " + e.Location + ": " + e.Message
}

// Job is a handle to a submitted remote job.
type Job interface {
	ID() string
	Status(ctx context.Context) (*JobStatus, error)
}

// JobSpec describes a query job to submit.
type JobSpec struct {
	Query        string
	Destination  *TableID
	UseLegacySQL bool
	Labels       map[string]string
}

// RetryPolicy bounds a wait on a remote job. A zero TotalTimeout waits
// until the job finishes or the caller's context ends.
type RetryPolicy struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	TotalTimeout time.Duration
}

// QueryResult holds the rows of a synchronous query.
type QueryResult struct {
	Columns []string
	Rows    [][]any
}
