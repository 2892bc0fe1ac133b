package worker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Reclassifier resubmits classification for tickets that never got one.
type Reclassifier interface {
	ReclassifyStale(ctx context.Context) (int, error)
}

// Sweep periodically triggers reclassification on a cron schedule.
type Sweep struct {
	cron   *cron.Cron
	logger *zap.Logger
}

var scheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// NewSweep parses schedule, a 5-field cron expression or descriptor such as
// "@every 10m". An empty schedule returns nil, meaning disabled.
func NewSweep(schedule string, target Reclassifier, timeout time.Duration, logger *zap.Logger) (*Sweep, error) {
	schedule = strings.TrimSpace(schedule)
	if schedule == "" {
		logger.Info("reclassification sweep disabled")
		return nil, nil
	}
	if _, err := scheduleParser.Parse(schedule); err != nil {
		return nil, fmt.Errorf("invalid reclassify schedule %q: %w", schedule, err)
	}

	c := cron.New(
		cron.WithParser(scheduleParser),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	s := &Sweep{cron: c, logger: logger}
	if _, err := c.AddFunc(schedule, func() { s.run(target, timeout) }); err != nil {
		return nil, fmt.Errorf("schedule reclassify sweep: %w", err)
	}
	logger.Info("reclassification sweep scheduled", zap.String("schedule", schedule))
	return s, nil
}

func (s *Sweep) run(target Reclassifier, timeout time.Duration) {
	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	n, err := target.ReclassifyStale(ctx)
	if err != nil {
		s.logger.Error("reclassification sweep failed", zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Info("reclassification sweep submitted tickets", zap.Int("count", n))
	}
}

// Start begins scheduling in the background.
func (s *Sweep) Start() {
	if s == nil {
		return
	}
	s.cron.Start()
}

// Stop halts scheduling and waits for a running sweep, up to ctx.
func (s *Sweep) Stop(ctx context.Context) {
	if s == nil {
		return
	}
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}
