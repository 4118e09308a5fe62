// Package swap implements the escrow engine for two-party multi-asset swaps:
// offer creation gated by a privilege query, deposit tracking through
// registry notifications, and atomic release or cancellation.
package swap

import (
	"context"
	"sync"
	"time"

	"github.com/LeJamon/goSwapd/internal/core/amount"
	"github.com/LeJamon/goSwapd/internal/core/outbox"
	"github.com/LeJamon/goSwapd/internal/metrics"
	"github.com/LeJamon/goSwapd/internal/storage/database"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	DefaultPendingTimeout = 30 * time.Second

	// resolvedHistory is how many finished pending creations PendingInfo
	// still reports.
	resolvedHistory = 4096
)

var ErrPendingNotFound = errors.New("pending creation not found")

// TransferQueue turns transfer-out tasks into batch operations that are
// committed together with the engine's own state change.
type TransferQueue interface {
	Prepare(tasks []outbox.Task) ([]database.BatchOperation, error)
	Kick()
}

// PaymentCollector takes attached payments from the caller's native balance.
// Nothing is refunded or paid out that was not collected first.
type PaymentCollector interface {
	Collect(ctx context.Context, from string, amt amount.Amount) error
}

// Options carries the optional collaborators of an Engine.
type Options struct {
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	Sinks   []EventSink

	// PendingTimeout bounds the wait for a privilege answer.
	PendingTimeout time.Duration
	// SweepInterval is how often Run looks for expired pending creations.
	SweepInterval time.Duration
	CacheSize     int

	Clock func() time.Time
	// Dispatch runs a privilege query. The default starts a goroutine.
	Dispatch func(func())
}

// Engine is the offer lifecycle manager. Every operation runs under the
// engine lock and commits its mutations in one batch before any transfer
// is attempted.
type Engine struct {
	mu sync.RWMutex

	store     *Store
	cfg       EngineConfig
	oracle    PrivilegeOracle
	payments  PaymentCollector
	transfers TransferQueue

	log        *zap.Logger
	metrics    *metrics.Metrics
	sinks      []EventSink
	now        func() time.Time
	dispatch   func(func())
	timeout    time.Duration
	sweepEvery time.Duration

	pending        map[string]*Pending
	pendingByOffer map[string]string
	resolved       *lru.Cache[string, PendingStatus]
	recovered      []*Pending
}

// New opens the engine over db. A configuration already persisted in db
// takes precedence over cfg; otherwise cfg is persisted. Pending creations
// left over from a previous run are reloaded and queried again by Run.
func New(ctx context.Context, db database.DB, cfg EngineConfig, oracle PrivilegeOracle, payments PaymentCollector, transfers TransferQueue, opts Options) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "engine config")
	}
	store, err := NewStore(db, opts.CacheSize)
	if err != nil {
		return nil, err
	}
	resolved, err := lru.New[string, PendingStatus](resolvedHistory)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		store:          store,
		cfg:            cfg,
		oracle:         oracle,
		payments:       payments,
		transfers:      transfers,
		log:            zap.NewNop(),
		metrics:        opts.Metrics,
		sinks:          opts.Sinks,
		now:            time.Now,
		dispatch:       func(f func()) { go f() },
		timeout:        opts.PendingTimeout,
		sweepEvery:     opts.SweepInterval,
		pending:        make(map[string]*Pending),
		pendingByOffer: make(map[string]string),
		resolved:       resolved,
	}
	if opts.Logger != nil {
		e.log = opts.Logger
	}
	e.log = e.log.Named("swap")
	if opts.Clock != nil {
		e.now = opts.Clock
	}
	if opts.Dispatch != nil {
		e.dispatch = opts.Dispatch
	}
	if e.timeout <= 0 {
		e.timeout = DefaultPendingTimeout
	}
	if e.sweepEvery <= 0 {
		e.sweepEvery = e.timeout / 4
		if e.sweepEvery > time.Second {
			e.sweepEvery = time.Second
		}
	}

	if err := e.loadConfig(ctx, cfg); err != nil {
		return nil, err
	}
	if err := e.loadPending(ctx); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) loadConfig(ctx context.Context, cfg EngineConfig) error {
	persisted, ok, err := e.store.LoadConfig(ctx)
	if err != nil {
		return err
	}
	if ok {
		if persisted != cfg {
			e.log.Warn("Persisted engine config differs from configured values, keeping persisted",
				zap.String("admin", persisted.Admin),
				zap.String("fee_collector", persisted.FeeCollector),
				zap.Stringer("base_fee", persisted.BaseFee),
				zap.String("privilege_registry", persisted.PrivilegeRegistry))
		}
		e.cfg = persisted
		return nil
	}

	t := e.store.begin(ctx)
	t.putConfig(cfg)
	return t.commit()
}

func (e *Engine) loadPending(ctx context.Context) error {
	recs, err := e.store.pendingRecords(ctx)
	if err != nil {
		return err
	}
	fallback := e.now().Add(e.timeout)
	for _, rec := range recs {
		p, err := pendingFromRecord(rec, fallback)
		if err != nil {
			return err
		}
		e.pending[p.ID] = p
		e.pendingByOffer[p.OfferID] = p.ID
		e.recovered = append(e.recovered, p)
	}
	if len(recs) > 0 {
		e.log.Info("Recovered pending offer creations", zap.Int("count", len(recs)))
	}
	e.metrics.SetPending(len(e.pending))
	return nil
}

// Run aborts recovered pending creations whose deadline passed while the
// engine was down, queries the privilege oracle again for the others and
// then aborts expired ones until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	e.Sweep(ctx)

	e.mu.Lock()
	var recovered []*Pending
	for _, p := range e.recovered {
		if _, ok := e.pending[p.ID]; ok {
			recovered = append(recovered, p)
		}
	}
	e.recovered = nil
	reg := e.cfg.PrivilegeRegistry
	e.mu.Unlock()

	for _, p := range recovered {
		e.dispatchQuery(p, reg)
	}

	ticker := time.NewTicker(e.sweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			e.Sweep(ctx)
		}
	}
}

// Sweep aborts every pending creation whose deadline has passed and returns
// how many it aborted.
func (e *Engine) Sweep(ctx context.Context) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	n := 0
	for _, p := range e.pending {
		if now.Before(p.Deadline) {
			continue
		}
		cause := failf(TefORACLE_TIMEOUT, "no privilege answer within %s", e.timeout)
		if err := e.abortPendingLocked(ctx, p, cause); err != nil {
			e.log.Error("Failed to abort expired creation", zap.String("pending", p.ID), zap.Error(err))
			continue
		}
		n++
	}
	return n
}

// Config returns the engine configuration in force.
func (e *Engine) Config() EngineConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg
}

// UpdateConfig replaces the configuration. Only the current admin may call
// it.
func (e *Engine) UpdateConfig(ctx context.Context, signer string, cfg EngineConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if signer != e.cfg.Admin {
		return failf(TecNO_PERMISSION, "%s is not the engine admin", signer)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	t := e.store.begin(ctx)
	t.putConfig(cfg)
	if err := t.commit(); err != nil {
		return err
	}
	e.cfg = cfg

	e.log.Info("Engine config updated",
		zap.String("admin", cfg.Admin),
		zap.String("fee_collector", cfg.FeeCollector),
		zap.Stringer("base_fee", cfg.BaseFee),
		zap.String("privilege_registry", cfg.PrivilegeRegistry))
	e.publish(Event{Type: EventConfigUpdated, Actor: signer})
	return nil
}

// Offer returns the live record id or an error wrapping ErrOfferNotFound.
func (e *Engine) Offer(ctx context.Context, id string) (*Offer, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store.Offer(ctx, id)
}

// OffersFor lists the live offers account takes part in.
func (e *Engine) OffersFor(ctx context.Context, account string) ([]string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store.OffersFor(ctx, account)
}

// EscrowedFor lists the assets held in escrow on behalf of account.
func (e *Engine) EscrowedFor(ctx context.Context, account string) ([]AssetRef, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store.EscrowedFor(ctx, account)
}

// PendingInfo reports a pending creation, or one resolved recently.
func (e *Engine) PendingInfo(id string) (PendingStatus, error) {
	e.mu.RLock()
	p, ok := e.pending[id]
	e.mu.RUnlock()
	if ok {
		return p.status(), nil
	}
	if st, ok := e.resolved.Get(id); ok {
		return st, nil
	}
	return PendingStatus{}, errors.Wrapf(ErrPendingNotFound, "%q", id)
}

// stage adds the outbox operations for tasks to t.
func (e *Engine) stage(t *txn, tasks []outbox.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	ops, err := e.transfers.Prepare(tasks)
	if err != nil {
		return errors.Wrap(err, "preparing transfers")
	}
	t.extra = append(t.extra, ops...)
	return nil
}

// collect takes amt from signer before any state depending on it is
// committed.
func (e *Engine) collect(ctx context.Context, signer string, amt amount.Amount) error {
	if amt.IsZero() {
		return nil
	}
	if err := e.payments.Collect(ctx, signer, amt); err != nil {
		return failf(TecUNFUNDED_PAYMENT, "collecting %s from %s: %v", amt, signer, err)
	}
	return nil
}

// giveBack returns a collected payment whose operation failed to commit.
func (e *Engine) giveBack(ctx context.Context, offerID, signer string, amt amount.Amount) {
	if amt.IsZero() {
		return
	}
	t := e.store.begin(ctx)
	err := e.stage(t, []outbox.Task{outbox.NativeTransfer(offerID, outbox.PurposeRefund, signer, amt)})
	if err == nil {
		err = t.commit()
	}
	if err != nil {
		e.log.Error("Collected payment could not be queued for return",
			zap.String("offer", offerID),
			zap.String("account", signer),
			zap.Stringer("amount", amt),
			zap.Error(err))
		return
	}
	e.transfers.Kick()
}

func (e *Engine) publish(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = e.now()
	}
	for _, s := range e.sinks {
		s.Publish(ev)
	}
}
