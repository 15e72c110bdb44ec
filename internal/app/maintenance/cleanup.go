package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	iauth "github.com/harborlane/harborlane/internal/auth"
	"github.com/harborlane/harborlane/internal/services"
	"github.com/harborlane/harborlane/pkg/logger"
)

const (
	defaultSchedule       = "@hourly"
	defaultAuditRetention = 90 * 24 * time.Hour
)

// Cleaner coordinates background maintenance: purging expired sessions,
// removing lapsed invites, and pruning old audit log entries.
type Cleaner struct {
	sessions *iauth.SessionService
	invites  *services.InviteService
	audit    *services.AuditService

	cron      *cron.Cron
	now       func() time.Time
	log       *zap.Logger
	schedule  string
	retention time.Duration
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for retention comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithSchedule overrides the cron specification for the sweep.
func WithSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.schedule = spec
		}
	}
}

// WithAuditRetention adjusts how long audit logs are retained.
func WithAuditRetention(d time.Duration) Option {
	return func(cleaner *Cleaner) {
		if d > 0 {
			cleaner.retention = d
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults. Nil dependencies
// cause the corresponding sweep step to be skipped.
func NewCleaner(sessions *iauth.SessionService, invites *services.InviteService, audit *services.AuditService, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		sessions:  sessions,
		invites:   invites,
		audit:     audit,
		now:       time.Now,
		schedule:  defaultSchedule,
		retention: defaultAuditRetention,
		log:       logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

// Start registers the sweep with the cron scheduler and launches it.
func (c *Cleaner) Start() error {
	if c.sessions == nil && c.invites == nil && c.audit == nil {
		return nil
	}

	if _, err := c.cron.AddFunc(c.schedule, func() {
		if err := c.RunOnce(context.Background()); err != nil {
			c.log.Warn("maintenance sweep failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	c.cron.Start()
	return nil
}

// Stop halts the scheduler and waits for running jobs to finish.
func (c *Cleaner) Stop() {
	ctx := c.cron.Stop()
	<-ctx.Done()
}

// RunOnce performs a single maintenance sweep, accumulating step failures.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	var errs error

	if c.sessions != nil {
		if removed, err := c.sessions.CleanupExpired(); err != nil {
			errs = multierr.Append(errs, err)
		} else if removed > 0 {
			c.log.Info("expired sessions removed", zap.Int64("count", removed))
		}
	}

	if c.invites != nil {
		if removed, err := c.invites.CleanupExpired(ctx); err != nil {
			errs = multierr.Append(errs, err)
		} else if removed > 0 {
			c.log.Info("expired invites removed", zap.Int64("count", removed))
		}
	}

	if c.audit != nil && c.retention > 0 {
		cutoff := c.now().Add(-c.retention)
		if removed, err := c.audit.PruneBefore(ctx, cutoff); err != nil {
			errs = multierr.Append(errs, err)
		} else if removed > 0 {
			c.log.Info("old audit entries pruned", zap.Int64("count", removed))
		}
	}

	return errs
}
