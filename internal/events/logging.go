package events

import (
	"go.uber.org/zap"

	"github.com/autovagas/autovagas/internal/core"
)

// LoggingListener mirrors every event into the structured log.
type LoggingListener struct {
	logger *zap.Logger
}

func NewLoggingListener(logger *zap.Logger) *LoggingListener {
	return &LoggingListener{logger: logger}
}

func (l *LoggingListener) OnStart() {
	l.logger.Info("auto-apply started")
}

func (l *LoggingListener) OnStop() {
	l.logger.Info("auto-apply stopped")
}

func (l *LoggingListener) OnJobFound(job *core.Job) {
	l.logger.Debug("job found",
		zap.String("platform", job.Platform),
		zap.String("job_id", job.ExternalID),
		zap.String("title", job.Title),
	)
}

func (l *LoggingListener) OnJobAnalyzed(job *core.ScoredJob) {
	l.logger.Debug("job scored",
		zap.String("platform", job.Job.Platform),
		zap.String("job_id", job.Job.ExternalID),
		zap.Int("score", job.Score),
		zap.Int("skills", job.Breakdown.Skills),
		zap.Int("title", job.Breakdown.Title),
		zap.Int("location", job.Breakdown.Location),
		zap.Int("salary", job.Breakdown.Salary),
	)
}

func (l *LoggingListener) OnJobApplied(result *core.ApplicationResult) {
	if !result.Success {
		l.logger.Warn("application failed",
			zap.String("platform", result.Platform),
			zap.String("job_id", result.Job.ExternalID),
			zap.String("error", result.Error),
		)
		return
	}

	l.logger.Info("successfully applied to job",
		zap.String("platform", result.Platform),
		zap.String("job_id", result.Job.ExternalID),
		zap.String("job_title", result.Job.Title),
		zap.String("application_id", result.ApplicationID),
	)
}

func (l *LoggingListener) OnError(err error) {
	l.logger.Error("cycle error", zap.Error(err))
}

func (l *LoggingListener) OnComplete(results []*core.ApplicationResult) {
	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}
	l.logger.Info("cycle complete",
		zap.Int("applications", len(results)),
		zap.Int("succeeded", succeeded),
	)
}
