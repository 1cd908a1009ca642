// Package worker runs confirmation sends off the request path. The api
// package holds a worker.Enqueuer and calls Enqueue — it never imports the
// concrete Runner. Each queued request is handled with a single attempt; the
// only "retry" in the system is the poller re-discovering completed payments
// that are still unmarked, and the workflow's idempotency guard makes that
// safe.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/infinity8co/booking-mailer/internal/confirmation"
	"github.com/infinity8co/booking-mailer/internal/db"
)

// ─── ENQUEUER INTERFACE ───────────────────────────────────────────────────────

// Request identifies one confirmation to send. FallbackEmail may be empty.
type Request struct {
	BookingID     string
	FallbackEmail string
}

// Enqueuer is the narrow interface the api package uses to hand off work
// after a payment event arrives. The concrete implementation is *Runner; in
// tests, any struct with an Enqueue method satisfies the interface.
type Enqueuer interface {
	Enqueue(ctx context.Context, req Request) error
}

// ConfirmationSender is what the Runner executes for each request. Satisfied
// by *confirmation.Sender.
type ConfirmationSender interface {
	Send(ctx context.Context, bookingID, fallbackEmail string) confirmation.Outcome
}

// ─── RUNNER ───────────────────────────────────────────────────────────────────

// RunnerConfig holds tuning parameters for the Runner. All fields have
// sensible defaults if zero-valued.
type RunnerConfig struct {
	// Workers is the number of concurrent send goroutines. Default: 3.
	Workers int

	// PollInterval is how often the fallback poller checks
	// ListUnconfirmedPayments for sends that were missed by the in-process
	// channel (e.g. after a crash or restart). Default: 60s.
	PollInterval time.Duration

	// JobTimeout is the per-send context deadline. Default: 1 minute —
	// comfortably above the email provider's timeout.
	JobTimeout time.Duration
}

// DefaultRunnerConfig returns safe production defaults.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		Workers:      3,
		PollInterval: 60 * time.Second,
		JobTimeout:   time.Minute,
	}
}

// Runner manages a pool of worker goroutines. It accepts requests via an
// in-process channel (fast path, used for fresh payment events) and also
// polls the database periodically to pick up confirmations that were
// in-flight when the process last restarted (recovery path).
type Runner struct {
	sender ConfirmationSender
	q      db.Querier
	cfg    RunnerConfig
	logger *slog.Logger

	queue chan Request
	wg    sync.WaitGroup
}

// NewRunner constructs a Runner. Call Start() to begin processing.
func NewRunner(
	sender ConfirmationSender,
	q db.Querier,
	cfg RunnerConfig,
	logger *slog.Logger,
) *Runner {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultRunnerConfig().Workers
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultRunnerConfig().PollInterval
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = DefaultRunnerConfig().JobTimeout
	}

	return &Runner{
		sender: sender,
		q:      q,
		cfg:    cfg,
		logger: logger,
		// Buffer = Workers*2 so Enqueue never blocks under normal load.
		queue: make(chan Request, cfg.Workers*2),
	}
}

// Enqueue pushes a request onto the in-process channel. It satisfies the
// Enqueuer interface. If the channel is full it returns an error rather than
// blocking the HTTP response; the poller will pick the payment up.
func (r *Runner) Enqueue(_ context.Context, req Request) error {
	select {
	case r.queue <- req:
		r.logger.Info("worker: enqueued confirmation", "booking_id", req.BookingID)
		return nil
	default:
		return errors.New("worker: queue is full, confirmation will be picked up by poller")
	}
}

// Start launches the worker pool and the fallback poller. It blocks until ctx
// is cancelled. Call it in a goroutine from main:
//
//	go runner.Start(ctx)
func (r *Runner) Start(ctx context.Context) {
	r.logger.Info("worker: starting", "workers", r.cfg.Workers, "poll_interval", r.cfg.PollInterval)

	for i := 0; i < r.cfg.Workers; i++ {
		r.wg.Add(1)
		go r.work(ctx, i)
	}

	r.wg.Add(1)
	go r.poll(ctx)

	r.wg.Wait()
	r.logger.Info("worker: stopped")
}

// work is the inner loop for each worker goroutine. One attempt per request:
// the workflow swallows its own failures, so Send always completes.
func (r *Runner) work(ctx context.Context, id int) {
	defer r.wg.Done()
	log := r.logger.With("worker_id", id)
	log.Info("worker: goroutine started")

	for {
		select {
		case <-ctx.Done():
			log.Info("worker: goroutine stopping")
			return
		case req := <-r.queue:
			sendCtx, cancel := context.WithTimeout(ctx, r.cfg.JobTimeout)
			outcome := r.sender.Send(sendCtx, req.BookingID, req.FallbackEmail)
			cancel()
			log.Info("worker: confirmation handled",
				"booking_id", req.BookingID,
				"outcome", string(outcome),
			)
		}
	}
}

// poll queries the database on PollInterval for completed payments that have
// not been marked sent (e.g. payments from before a restart, or enqueue
// overflow).
func (r *Runner) poll(ctx context.Context) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	// Run once immediately on startup to pick up anything from before restart.
	r.pollOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.pollOnce(ctx)
		}
	}
}

func (r *Runner) pollOnce(ctx context.Context) {
	payments, err := r.q.ListUnconfirmedPayments(ctx)
	if err != nil {
		r.logger.Error("worker: poll failed", "error", err)
		return
	}
	for _, p := range payments {
		select {
		case r.queue <- Request{BookingID: p.BookingID}:
			r.logger.Debug("worker: poller enqueued confirmation", "booking_id", p.BookingID)
		default:
			// Queue full — will be picked up next poll cycle.
		}
	}
}
