package cli

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/LeJamon/goSwapd/internal/config"
	"github.com/LeJamon/goSwapd/internal/core/amount"
	"github.com/LeJamon/goSwapd/internal/core/outbox"
	"github.com/LeJamon/goSwapd/internal/core/swap"
	"github.com/LeJamon/goSwapd/internal/metrics"
	"github.com/LeJamon/goSwapd/internal/registry"
	"github.com/LeJamon/goSwapd/internal/rpc"
	"github.com/LeJamon/goSwapd/internal/rpc/rpc_types"
	"github.com/LeJamon/goSwapd/internal/storage"
	"github.com/LeJamon/goSwapd/internal/storage/database"
	"github.com/LeJamon/goSwapd/internal/storage/journal"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// standaloneCustodian is the engine's account in the in-process registry
const standaloneCustodian = "swapd"

const shutdownTimeout = 5 * time.Second

// daemon is every long-running component of the server, wired together
type daemon struct {
	cfg *config.Config
	log *zap.Logger

	db      database.DB
	journal *journal.Journal
	outbox  *outbox.Outbox
	engine  *swap.Engine
	hub     *rpc.EventHub
	handler http.Handler

	// memory is set in standalone mode
	memory *registry.Memory

	addrMu sync.Mutex
	addr   net.Addr
	ready  chan struct{}
}

func newDaemon(ctx context.Context, cfg *config.Config, standalone bool, log *zap.Logger) (d *daemon, err error) {
	d = &daemon{cfg: cfg, log: log, ready: make(chan struct{})}
	defer func() {
		if err != nil {
			d.close()
		}
	}()

	engineCfg, err := cfg.Engine.Swap()
	if err != nil {
		return nil, err
	}

	d.db, err = storage.Open(cfg.Database.Backend, cfg.Database.Path, cfg.Database.CacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(promRegistry)

	var (
		assets registry.AssetRegistry
		native registry.NativeLedger
	)
	if standalone {
		d.memory = registry.NewMemory(standaloneCustodian)
		assets, native = d.memory, d.memory
	} else {
		client := registry.NewClient(cfg.Registry.Client())
		assets, native = client, client
	}

	d.outbox = outbox.New(d.db, assets, native, cfg.Outbox.Outbox(),
		outbox.WithLogger(log),
		outbox.WithMetrics(m))

	d.hub = rpc.NewEventHub(cfg.Server.SendQueueLimit, log)
	sinks := []swap.EventSink{d.hub}

	if cfg.Journal.Enabled() {
		d.journal, err = journal.Open(ctx, journal.Config{
			Driver:  cfg.Journal.Driver,
			DSN:     cfg.Journal.DSN,
			Buffer:  cfg.Journal.Buffer,
			Timeout: cfg.Journal.Timeout,
		}, log)
		if err != nil {
			return nil, errors.Wrap(err, "opening journal")
		}
		sinks = append(sinks, d.journal)
	}

	d.engine, err = swap.New(ctx, d.db, engineCfg, swap.NewRegistryOracle(assets), native, d.outbox, swap.Options{
		Logger:         log,
		Metrics:        m,
		Sinks:          sinks,
		PendingTimeout: cfg.Engine.PendingTimeout,
		CacheSize:      cfg.Engine.CacheSize,
	})
	if err != nil {
		return nil, errors.Wrap(err, "starting engine")
	}

	svc := &rpc_types.ServiceContainer{
		Engine:     d.engine,
		Transfers:  d.outbox,
		Version:    rootCmd.Version,
		Standalone: standalone,
		StartTime:  time.Now(),
	}
	if d.journal != nil {
		svc.History = d.journal
	}
	server := rpc.NewServer(svc,
		rpc.WithTokens(cfg.Auth.Accounts()),
		rpc.WithRegistries(cfg.Registry.Registries()...),
		rpc.WithTimeout(cfg.Server.WriteTimeout),
		rpc.WithLogger(log))
	d.handler = server.Handler(d.hub, promRegistry)
	return d, nil
}

// fund credits in-process accounts from "account=amount" specs so they can
// pay for offers in standalone mode
func (d *daemon) fund(specs []string) error {
	if len(specs) == 0 {
		return nil
	}
	if d.memory == nil {
		return errors.New("funding accounts requires --standalone")
	}
	for _, spec := range specs {
		account, raw, ok := strings.Cut(spec, "=")
		if !ok || account == "" {
			return errors.Errorf("invalid fund %q, want account=amount", spec)
		}
		amt, err := amount.Parse(raw)
		if err != nil {
			return errors.Wrapf(err, "fund %s", account)
		}
		if err := d.memory.Fund(account, amt); err != nil {
			return errors.Wrapf(err, "fund %s", account)
		}
		d.log.Info("Funded standalone account", zap.String("account", account), zap.Stringer("amount", amt))
	}
	return nil
}

// run serves until ctx is cancelled or a component fails
func (d *daemon) run(ctx context.Context) error {
	defer d.close()

	listener, err := net.Listen("tcp", d.cfg.Server.Addr())
	if err != nil {
		return errors.Wrapf(err, "listening on %s", d.cfg.Server.Addr())
	}
	d.addrMu.Lock()
	d.addr = listener.Addr()
	d.addrMu.Unlock()
	close(d.ready)

	httpServer := &http.Server{
		Handler:      d.handler,
		ReadTimeout:  d.cfg.Server.ReadTimeout,
		WriteTimeout: d.cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return d.engine.Run(gctx) })
	g.Go(func() error { return d.outbox.Run(gctx) })
	if d.journal != nil {
		g.Go(func() error { return d.journal.Run(gctx) })
	}
	g.Go(func() error {
		d.log.Info("Serving", zap.Stringer("addr", listener.Addr()))
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "http server")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		d.hub.Close()
		return httpServer.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	d.log.Info("Server stopped")
	return err
}

// Addr returns the bound listen address once run has started listening
func (d *daemon) Addr() net.Addr {
	d.addrMu.Lock()
	defer d.addrMu.Unlock()
	return d.addr
}

func (d *daemon) close() {
	if d.journal != nil {
		if err := d.journal.Close(); err != nil {
			d.log.Warn("Closing journal", zap.Error(err))
		}
	}
	if d.db != nil {
		if err := d.db.Close(); err != nil {
			d.log.Warn("Closing database", zap.Error(err))
		}
	}
}
