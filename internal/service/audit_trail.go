package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/biblioteca-api/internal/models"
	"github.com/noah-isme/biblioteca-api/pkg/jobs"
)

const auditJobType = "log_entry"

type logWriter interface {
	Append(ctx context.Context, entry models.LogEntry) error
}

// AuditTrailConfig sizes the background writer.
type AuditTrailConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
}

// AuditTrail writes activity log entries off the request path. Failures are
// logged and never reach the caller.
type AuditTrail struct {
	writer logWriter
	queue  *jobs.Queue
	logger *zap.Logger
	now    func() time.Time
}

// NewAuditTrail wires a queue in front of writer. Call Start before Record.
func NewAuditTrail(writer logWriter, logger *zap.Logger, cfg AuditTrailConfig) *AuditTrail {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}
	trail := &AuditTrail{writer: writer, logger: logger, now: time.Now}
	trail.queue = jobs.NewQueue("audit", trail.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return trail
}

// Start launches the workers.
func (a *AuditTrail) Start(ctx context.Context) {
	a.queue.Start(ctx)
}

// Stop flushes pending entries and stops the workers.
func (a *AuditTrail) Stop() {
	a.queue.Stop()
}

// Record queues entry for writing.
func (a *AuditTrail) Record(_ context.Context, entry models.LogEntry) {
	if a == nil {
		return
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = a.now().UTC()
	}
	if err := a.queue.TryEnqueue(jobs.Job{Type: auditJobType, Payload: entry}); err != nil {
		a.logger.Warn("dropping log entry", zap.String("action", entry.Action), zap.String("usuario", entry.Usuario), zap.Error(err))
	}
}

func (a *AuditTrail) handle(ctx context.Context, job jobs.Job) error {
	entry, ok := job.Payload.(models.LogEntry)
	if !ok {
		a.logger.Error("unexpected audit payload", zap.String("job_id", job.ID), zap.String("type", fmt.Sprintf("%T", job.Payload)))
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return a.writer.Append(ctx, entry)
}
