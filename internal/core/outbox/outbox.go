// Package outbox durably queues the transfer-out calls issued when an offer
// is released or cancelled, and drains them with exponential backoff until
// the registry or native ledger confirms each one.
package outbox

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/LeJamon/goSwapd/internal/metrics"
	"github.com/LeJamon/goSwapd/internal/registry"
	"github.com/LeJamon/goSwapd/internal/storage/database"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Config configures draining and retry behaviour
type Config struct {
	PollInterval   time.Duration
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffFactor  float64
	JitterFactor   float64

	// BatchSize bounds the due tasks attempted per drain.
	BatchSize int
	// Concurrency bounds the transfers in flight during a drain.
	Concurrency int
}

func DefaultConfig() Config {
	return Config{
		PollInterval:   time.Second,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     5 * time.Minute,
		BackoffFactor:  2.0,
		JitterFactor:   0.1,
		BatchSize:      64,
		Concurrency:    4,
	}
}

// Outbox is the transfer-out queue.
type Outbox struct {
	db      database.DB
	assets  registry.AssetRegistry
	native  registry.NativeLedger
	cfg     Config
	log     *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	kick    chan struct{}
	drainMu sync.Mutex

	randMu sync.Mutex
	rand   *rand.Rand
}

// Option customizes an Outbox.
type Option func(*Outbox)

func WithLogger(l *zap.Logger) Option {
	return func(o *Outbox) {
		if l != nil {
			o.log = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Outbox) { o.metrics = m }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *Outbox) { o.now = now }
}

func New(db database.DB, assets registry.AssetRegistry, native registry.NativeLedger, cfg Config, opts ...Option) *Outbox {
	def := DefaultConfig()
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = def.InitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = def.MaxBackoff
	}
	if cfg.BackoffFactor < 1 {
		cfg.BackoffFactor = def.BackoffFactor
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}

	o := &Outbox{
		db:     db,
		assets: assets,
		native: native,
		cfg:    cfg,
		log:    zap.NewNop(),
		now:    time.Now,
		kick:   make(chan struct{}, 1),
		rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.log = o.log.Named("outbox")
	return o
}

// Prepare assigns ids to tasks and returns the batch operations that persist
// them. The caller commits the operations together with its own state change
// and then calls Kick.
func (o *Outbox) Prepare(tasks []Task) ([]database.BatchOperation, error) {
	now := o.now()
	ops := make([]database.BatchOperation, 0, len(tasks))
	for i := range tasks {
		t := &tasks[i]
		if err := validateTask(*t); err != nil {
			return nil, err
		}
		if t.ID == "" {
			t.ID = newTaskID()
		}
		t.CreatedAt = now
		t.NextAttempt = now

		data, err := encodeTask(*t)
		if err != nil {
			return nil, err
		}
		ops = append(ops, database.Put(Key(t.ID), data))
		o.metrics.TransferEnqueued(string(t.Kind))
	}
	return ops, nil
}

// Enqueue persists tasks on their own and wakes the drain loop.
func (o *Outbox) Enqueue(ctx context.Context, tasks ...Task) error {
	ops, err := o.Prepare(tasks)
	if err != nil {
		return err
	}
	if err := o.db.Batch(ctx, ops); err != nil {
		return errors.Wrap(err, "persisting outbox tasks")
	}
	o.Kick()
	return nil
}

func validateTask(t Task) error {
	if t.To == "" {
		return errors.New("outbox task has no recipient")
	}
	switch t.Kind {
	case KindAsset:
		if t.Registry == "" || t.Item == "" {
			return errors.New("asset task needs registry and item")
		}
	case KindNative:
		if t.Amount.IsZero() {
			return errors.New("native task with zero amount")
		}
	default:
		return errors.Errorf("unknown task kind %q", t.Kind)
	}
	return nil
}

// Kick wakes the drain loop without blocking.
func (o *Outbox) Kick() {
	select {
	case o.kick <- struct{}{}:
	default:
	}
}

// Tasks returns every queued task, oldest first.
func (o *Outbox) Tasks(ctx context.Context) ([]Task, error) {
	var (
		tasks  []Task
		decErr error
	)
	err := database.ScanPrefix(ctx, o.db, Prefix(), func(_, value []byte) bool {
		t, err := decodeTask(value)
		if err != nil {
			decErr = err
			return false
		}
		tasks = append(tasks, t)
		return true
	})
	if err != nil {
		return nil, err
	}
	return tasks, decErr
}

// Drain attempts every due task once. It returns the number of tasks that
// were confirmed. Concurrent calls are serialized.
func (o *Outbox) Drain(ctx context.Context) (int, error) {
	o.drainMu.Lock()
	defer o.drainMu.Unlock()

	tasks, err := o.Tasks(ctx)
	if err != nil {
		return 0, err
	}

	now := o.now()
	due := make([]Task, 0, o.cfg.BatchSize)
	for _, t := range tasks {
		if len(due) == o.cfg.BatchSize {
			break
		}
		if !t.NextAttempt.After(now) {
			due = append(due, t)
		}
	}

	var (
		mu        sync.Mutex
		confirmed int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Concurrency)
	for _, t := range due {
		t := t
		g.Go(func() error {
			ok, err := o.attempt(gctx, t)
			if ok {
				mu.Lock()
				confirmed++
				mu.Unlock()
			}
			return err
		})
	}
	err = g.Wait()

	o.metrics.SetOutboxDepth(len(tasks) - confirmed)
	return confirmed, err
}

// attempt executes one task. A collaborator failure reschedules the task and
// is not returned; only storage failures are.
func (o *Outbox) attempt(ctx context.Context, t Task) (bool, error) {
	callErr := o.execute(ctx, t)
	if callErr == nil {
		if err := o.db.Delete(ctx, Key(t.ID)); err != nil {
			return false, errors.Wrapf(err, "removing task %s", t.ID)
		}
		o.metrics.TransferCompleted(string(t.Kind))
		o.log.Debug("Transfer confirmed",
			zap.String("task", t.ID),
			zap.String("offer", t.OfferID),
			zap.String("kind", string(t.Kind)),
			zap.String("to", t.To))
		return true, nil
	}

	if ctx.Err() != nil {
		return false, nil
	}

	t.Attempts++
	t.LastError = callErr.Error()
	backoff := o.backoff(t.Attempts - 1)
	t.NextAttempt = o.now().Add(backoff)

	o.metrics.TransferFailed(string(t.Kind))
	o.log.Warn("Transfer failed, retrying",
		zap.String("task", t.ID),
		zap.String("offer", t.OfferID),
		zap.String("purpose", string(t.Purpose)),
		zap.Int("attempt", t.Attempts),
		zap.Duration("backoff", backoff),
		zap.Error(callErr))

	data, err := encodeTask(t)
	if err != nil {
		return false, err
	}
	if err := o.db.Write(ctx, Key(t.ID), data); err != nil {
		return false, errors.Wrapf(err, "rescheduling task %s", t.ID)
	}
	return false, nil
}

func (o *Outbox) execute(ctx context.Context, t Task) error {
	switch t.Kind {
	case KindAsset:
		return o.assets.TransferItem(ctx, t.Registry, t.Item, t.To)
	case KindNative:
		return o.native.Transfer(ctx, t.To, t.Amount)
	}
	return errors.Errorf("unknown task kind %q", t.Kind)
}

// backoff returns the delay before retry number attempt (zero based).
func (o *Outbox) backoff(attempt int) time.Duration {
	base := float64(o.cfg.InitialBackoff) * math.Pow(o.cfg.BackoffFactor, float64(attempt))
	if base > float64(o.cfg.MaxBackoff) {
		base = float64(o.cfg.MaxBackoff)
	}

	o.randMu.Lock()
	jitter := base * o.cfg.JitterFactor * (o.rand.Float64()*2 - 1)
	o.randMu.Unlock()

	d := base + jitter
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

// Run drains the outbox every PollInterval, and immediately after Kick, until
// ctx is cancelled.
func (o *Outbox) Run(ctx context.Context) error {
	ticker := time.NewTicker(o.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if _, err := o.Drain(ctx); err != nil && ctx.Err() == nil {
			o.log.Error("Outbox drain failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-o.kick:
		}
	}
}
