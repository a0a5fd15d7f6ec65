package worker

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-sla/internal/domain"
	"github.com/spec-kit/helpdesk-sla/internal/repository"
	"github.com/spec-kit/helpdesk-sla/internal/service"
	"github.com/spec-kit/helpdesk-sla/internal/sla"
)

// Evaluator computes SLA state for loaded tickets and announces breaches.
type Evaluator interface {
	Evaluate(ctx context.Context, ticket *domain.Ticket) (*service.TicketSLA, error)
	PublishBreach(ctx context.Context, ticket *domain.Ticket, result *sla.Result)
}

// BreachMarker remembers which breaches were already announced.
type BreachMarker interface {
	MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// BreachWatcherConfig configures the periodic breach scan.
type BreachWatcherConfig struct {
	// Schedule is a 5-field cron expression. Empty disables the watcher.
	Schedule  string
	Location  *time.Location
	BatchSize int
	DedupeTTL time.Duration
}

// RunSummary counts what a single scan did.
type RunSummary struct {
	Scanned  int
	Breached int
	Notified int
	Failed   int
}

// BreachWatcher scans open tickets and emits one sla_breached event per breached target.
type BreachWatcher struct {
	tickets   repository.TicketRepository
	evaluator Evaluator
	marker    BreachMarker
	logger    *zap.Logger
	cfg       BreachWatcherConfig

	mu   sync.Mutex
	cron *cron.Cron
}

// NewBreachWatcher builds the watcher.
func NewBreachWatcher(tickets repository.TicketRepository, evaluator Evaluator, marker BreachMarker, logger *zap.Logger, cfg BreachWatcherConfig) *BreachWatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 200
	}
	if cfg.DedupeTTL <= 0 {
		cfg.DedupeTTL = 24 * time.Hour
	}
	return &BreachWatcher{
		tickets:   tickets,
		evaluator: evaluator,
		marker:    marker,
		logger:    logger,
		cfg:       cfg,
	}
}

// Start schedules the scan. An empty schedule leaves the watcher disabled.
func (w *BreachWatcher) Start() error {
	schedule := strings.TrimSpace(w.cfg.Schedule)
	if schedule == "" {
		w.logger.Info("breach watcher disabled (SLA_WATCH_SCHEDULE not set)")
		return nil
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid SLA_WATCH_SCHEDULE %q: %w", schedule, err)
	}

	logAdapter := cronLogger{logger: w.logger.Sugar()}
	c := cron.New(
		cron.WithParser(parser),
		cron.WithLocation(w.cfg.Location),
		cron.WithLogger(logAdapter),
		cron.WithChain(cron.Recover(logAdapter), cron.SkipIfStillRunning(logAdapter)),
	)
	if _, err := c.AddFunc(schedule, w.run); err != nil {
		return fmt.Errorf("schedule breach watcher: %w", err)
	}

	w.mu.Lock()
	w.cron = c
	w.mu.Unlock()
	c.Start()
	w.logger.Info("breach watcher scheduled", zap.String("cron", schedule), zap.String("location", w.cfg.Location.String()))
	return nil
}

// Stop halts scheduling and waits for a running scan to finish or ctx to expire.
func (w *BreachWatcher) Stop(ctx context.Context) {
	w.mu.Lock()
	c := w.cron
	w.cron = nil
	w.mu.Unlock()
	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
		w.logger.Warn("breach watcher stop timed out")
	}
}

func (w *BreachWatcher) run() {
	started := time.Now()
	summary, err := w.RunOnce(context.Background())
	if err != nil {
		w.logger.Error("breach scan failed", zap.Error(err))
		return
	}
	w.logger.Info("breach scan finished",
		zap.Int("scanned", summary.Scanned),
		zap.Int("breached", summary.Breached),
		zap.Int("notified", summary.Notified),
		zap.Int("failed", summary.Failed),
		zap.Duration("took", time.Since(started)))
}

// RunOnce pages through every open ticket. Tickets that fail to evaluate are logged and skipped;
// only a failure to list tickets aborts the scan.
func (w *BreachWatcher) RunOnce(ctx context.Context) (RunSummary, error) {
	var summary RunSummary
	for offset := 0; ; offset += w.cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		batch, err := w.tickets.ListOpen(ctx, w.cfg.BatchSize, offset)
		if err != nil {
			return summary, fmt.Errorf("list open tickets: %w", err)
		}
		for i := range batch {
			w.check(ctx, &batch[i], &summary)
		}
		if len(batch) < w.cfg.BatchSize {
			return summary, nil
		}
	}
}

func (w *BreachWatcher) check(ctx context.Context, ticket *domain.Ticket, summary *RunSummary) {
	summary.Scanned++
	evaluated, err := w.evaluator.Evaluate(ctx, ticket)
	if err != nil {
		summary.Failed++
		w.logger.Warn("evaluate ticket failed",
			zap.String("tenant_id", ticket.TenantID),
			zap.String("ticket_id", ticket.ID),
			zap.Error(err))
		return
	}

	evaluated.Results.Each(func(result *sla.Result) {
		if !result.Breached {
			return
		}
		summary.Breached++
		first, err := w.marker.MarkOnce(ctx, breachKey(ticket, result.Target), w.cfg.DedupeTTL)
		if err != nil {
			w.logger.Warn("breach dedupe failed",
				zap.String("ticket_id", ticket.ID),
				zap.String("target", string(result.Target)),
				zap.Error(err))
			return
		}
		if !first {
			return
		}
		w.evaluator.PublishBreach(ctx, ticket, result)
		summary.Notified++
	})
}

func breachKey(ticket *domain.Ticket, target sla.Target) string {
	return fmt.Sprintf("sla:breach:%s:%s:%s", ticket.TenantID, ticket.ID, target)
}

// cronLogger routes cron's internal logging through zap.
type cronLogger struct {
	logger *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Errorw(msg, append(keysAndValues, "error", err)...)
}
