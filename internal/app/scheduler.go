package app

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// Schedule runs the pipeline on a cron expression until ctx is done. A run
// still in progress when the next tick fires is not overlapped.
func (p *Pipeline) Schedule(ctx context.Context, expr string, opts RunOptions) error {
	scheduler := gocron.NewScheduler(time.UTC)
	scheduler.SingletonModeAll()

	job, err := scheduler.Cron(expr).Do(func() {
		p.logger.Info("Scheduled pipeline run starting")
		report, err := p.Run(ctx, opts)
		if err != nil {
			p.logger.Error("Scheduled pipeline run failed", zap.Error(err))
			return
		}
		p.logger.Info("Scheduled pipeline run succeeded",
			zap.String("run_id", report.RunID),
			zap.Duration("elapsed", report.Elapsed))
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", expr, err)
	}

	scheduler.StartAsync()
	p.logger.Info("Pipeline scheduler started",
		zap.String("schedule", expr),
		zap.Time("next_run", job.NextRun()))

	<-ctx.Done()
	scheduler.Stop()
	p.logger.Info("Pipeline scheduler stopped")
	return nil
}
