package cron

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper is the subset of the media relay needed by the sweep job. Defined
// here to keep this package free of a relay dependency.
type Sweeper interface {
	Sweep(maxAge time.Duration) (int, error)
}

// ScratchSweepJob removes scratch directories left behind by crashes or
// kills. Normal operation releases scratch space inline; this job is the
// backstop.
type ScratchSweepJob struct {
	Relay        Sweeper
	MaxAge       time.Duration
	Logger       *slog.Logger
	ScheduleExpr string // empty = default "*/30 * * * *"
}

// Compile-time interface check.
var _ Job = (*ScratchSweepJob)(nil)

// Name implements Job.
func (j *ScratchSweepJob) Name() string { return "scratch_sweep" }

// Schedule implements Job.
func (j *ScratchSweepJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "*/30 * * * *"
}

// Run sweeps scratch entries older than MaxAge.
func (j *ScratchSweepJob) Run(_ context.Context) error {
	removed, err := j.Relay.Sweep(j.MaxAge)
	if err != nil {
		return err
	}
	if removed > 0 {
		j.Logger.Info("cron: swept stale scratch space", "removed", removed)
	}
	return nil
}

// Checkpointer is the subset of the offset store needed by the checkpoint
// job.
type Checkpointer interface {
	Checkpoint(ctx context.Context) error
}

// CheckpointJob truncates the offset database's write-ahead log so it does
// not grow without bound on a long-running daemon.
type CheckpointJob struct {
	Store        Checkpointer
	Logger       *slog.Logger
	ScheduleExpr string // empty = default "0 * * * *"
}

// Compile-time interface check.
var _ Job = (*CheckpointJob)(nil)

// Name implements Job.
func (j *CheckpointJob) Name() string { return "offset_checkpoint" }

// Schedule implements Job.
func (j *CheckpointJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "0 * * * *"
}

// Run checkpoints the offset database.
func (j *CheckpointJob) Run(ctx context.Context) error {
	if err := j.Store.Checkpoint(ctx); err != nil {
		return err
	}
	j.Logger.Debug("cron: offset database checkpointed")
	return nil
}
