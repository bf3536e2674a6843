// Package cron schedules the daemon's periodic maintenance: sweeping
// abandoned scratch space and checkpointing the offset database.
package cron

import "context"

// Job is a periodic background task.
type Job interface {
	// Name returns a unique identifier for this job, used for logging and
	// duplicate detection.
	Name() string

	// Schedule returns a 5-field cron expression (e.g. "*/30 * * * *").
	Schedule() string

	// Run executes the job. Implementations should honour ctx cancellation.
	Run(ctx context.Context) error
}
