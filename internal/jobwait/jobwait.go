// Package jobwait blocks on asynchronous warehouse jobs and turns their
// outcome into domain errors.
package jobwait

import (
	"context"
	"errors"
	"fmt"
	"time"

	gax "github.com/googleapis/gax-go/v2"

	"bq-bridge/internal/domain"
)

// Strict is the bounded wait used after overwrite and other mutating jobs:
// 1 second initial backoff, 3 minute ceiling.
func Strict() domain.RetryPolicy {
	return domain.RetryPolicy{
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2,
		TotalTimeout: 3 * time.Minute,
	}
}

// Unbounded waits until the job finishes or the caller's context ends.
func Unbounded() domain.RetryPolicy {
	p := Strict()
	p.TotalTimeout = 0
	return p
}

// WithTimeout returns p with a different total timeout.
func WithTimeout(p domain.RetryPolicy, d time.Duration) domain.RetryPolicy {
	p.TotalTimeout = d
	return p
}

func backoff(p domain.RetryPolicy) *gax.Backoff {
	b := &gax.Backoff{
		Initial:    p.InitialDelay,
		Max:        p.MaxDelay,
		Multiplier: p.Multiplier,
	}
	if b.Initial <= 0 {
		b.Initial = time.Second
	}
	if b.Max < b.Initial {
		b.Max = b.Initial
	}
	if b.Multiplier < 1 {
		b.Multiplier = 1
	}
	return b
}

// Poll reads job status until the job is done, sleeping between polls
// according to policy. A nil status ends the wait with (nil, nil). The
// returned error is the status or context error as-is; use Check to map it
// into domain errors.
func Poll(ctx context.Context, job domain.Job, policy domain.RetryPolicy) (*domain.JobStatus, error) {
	if policy.TotalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, policy.TotalTimeout)
		defer cancel()
	}

	bo := backoff(policy)
	for {
		status, err := job.Status(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("get status of job %s: %w", job.ID(), err)
		}
		if status == nil || status.Done() {
			return status, nil
		}
		if err := gax.Sleep(ctx, bo.Pause()); err != nil {
			return nil, err
		}
	}
}

// Check maps the result of a wait on job into the client's error model:
// a cancelled or expired context becomes *domain.InterruptedError, a job
// that ended without a status or with an execution error becomes
// *domain.RemoteJobError.
func Check(job domain.Job, status *domain.JobStatus, err error) (*domain.JobStatus, error) {
	id := ""
	if job != nil {
		id = job.ID()
	}
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, &domain.InterruptedError{JobID: id, Err: err}
		}
		return nil, err
	}
	if status == nil {
		return nil, &domain.RemoteJobError{JobID: id, Err: errors.New("job completion returned no status")}
	}
	if status.Err != nil {
		return status, &domain.RemoteJobError{JobID: id, Err: status.Err}
	}
	return status, nil
}
