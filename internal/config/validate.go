package config

import (
	"errors"
	"fmt"
	"net"

	"github.com/robfig/cron/v3"

	"github.com/mirrorgram/mirrorgram/internal/filter"
)

// cronParser accepts standard 5-field expressions, matching the scheduler.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Validate checks the structural validity of a Config. It collects every
// problem it finds so a broken file is reported in one pass.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	if cfg.Telegram.Token == "" {
		errs = append(errs, errors.New("config: telegram.token is required"))
	}

	if len(cfg.Pairs.From) == 0 {
		errs = append(errs, errors.New("config: pairs.from must list at least one chat"))
	} else if _, err := cfg.ParsePairs(); err != nil {
		errs = append(errs, fmt.Errorf("config: %w", err))
	}

	if _, err := filter.Compile(cfg.Filters.IgnoreFiles, cfg.Filters.Cleanup); err != nil {
		errs = append(errs, fmt.Errorf("config: %w", err))
	}

	if cfg.Retry.AttemptTimeout < 0 {
		errs = append(errs, errors.New("config: retry.attempt_timeout must not be negative"))
	}
	if cfg.Retry.InitialBackoff > cfg.Retry.MaxBackoff {
		errs = append(errs, errors.New("config: retry.initial_backoff exceeds retry.max_backoff"))
	}

	if cfg.Gateway.Listen != "" {
		if _, err := net.ResolveTCPAddr("tcp", cfg.Gateway.Listen); err != nil {
			errs = append(errs, fmt.Errorf("config: invalid gateway.listen address %q", cfg.Gateway.Listen))
		}
	}

	if s := cfg.Maintenance.SweepSchedule; s != "" {
		if _, err := cronParser.Parse(s); err != nil {
			errs = append(errs, fmt.Errorf("config: invalid maintenance.sweep_schedule: %w", err))
		}
	}
	if s := cfg.Maintenance.CheckpointSchedule; s != "" {
		if _, err := cronParser.Parse(s); err != nil {
			errs = append(errs, fmt.Errorf("config: invalid maintenance.checkpoint_schedule: %w", err))
		}
	}

	return errors.Join(errs...)
}
