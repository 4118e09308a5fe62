// Package journal keeps an append-only SQL history of offer lifecycle
// events. It backs offer_history queries; the engine's own state never
// depends on it.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/LeJamon/goSwapd/internal/core/swap"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/pkg/errors"
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // SQLite driver
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var (
	ErrUnknownDriver = errors.New("unknown journal driver")
	ErrClosed        = errors.New("journal is closed")
)

// Config selects the SQL backend.
type Config struct {
	Driver string
	DSN    string

	// Buffer is the number of published events held before Run writes
	// them. Events published while the buffer is full are dropped.
	Buffer  int
	Timeout time.Duration
}

func DefaultConfig() Config {
	return Config{Driver: DriverSQLite, Buffer: 1024, Timeout: 5 * time.Second}
}

// Journal stores events in an offer_events table.
type Journal struct {
	db      *sql.DB
	driver  string
	timeout time.Duration
	log     *zap.Logger

	events  chan swap.Event
	dropped atomic.Uint64
}

var _ swap.EventSink = (*Journal)(nil)

// Open connects to the database and creates the schema if needed.
func Open(ctx context.Context, cfg Config, log *zap.Logger) (*Journal, error) {
	def := DefaultConfig()
	if cfg.Buffer <= 0 {
		cfg.Buffer = def.Buffer
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if log == nil {
		log = zap.NewNop()
	}

	var schema []string
	switch cfg.Driver {
	case DriverSQLite:
		schema = sqliteSchema
	case DriverPostgres:
		schema = postgresSchema
	default:
		return nil, errors.Wrapf(ErrUnknownDriver, "%q", cfg.Driver)
	}
	if cfg.DSN == "" {
		return nil, errors.New("journal dsn is required")
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open journal database")
	}
	if cfg.Driver == DriverSQLite {
		// One writer; sqlite serializes writes anyway.
		db.SetMaxOpenConns(1)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to ping journal database")
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, errors.Wrap(err, "failed to initialize journal schema")
		}
	}

	return &Journal{
		db:      db,
		driver:  cfg.Driver,
		timeout: cfg.Timeout,
		log:     log.Named("journal"),
		events:  make(chan swap.Event, cfg.Buffer),
	}, nil
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS offer_events (
		seq         INTEGER PRIMARY KEY AUTOINCREMENT,
		offer_id    TEXT NOT NULL,
		type        TEXT NOT NULL,
		actor       TEXT NOT NULL DEFAULT '',
		accounts    TEXT NOT NULL DEFAULT '[]',
		registry_id TEXT NOT NULL DEFAULT '',
		item_id     TEXT NOT NULL DEFAULT '',
		result      TEXT NOT NULL DEFAULT '',
		reason      TEXT NOT NULL DEFAULT '',
		created_at  BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS offer_events_offer ON offer_events (offer_id, seq)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS offer_events (
		seq         BIGSERIAL PRIMARY KEY,
		offer_id    TEXT NOT NULL,
		type        TEXT NOT NULL,
		actor       TEXT NOT NULL DEFAULT '',
		accounts    TEXT NOT NULL DEFAULT '[]',
		registry_id TEXT NOT NULL DEFAULT '',
		item_id     TEXT NOT NULL DEFAULT '',
		result      TEXT NOT NULL DEFAULT '',
		reason      TEXT NOT NULL DEFAULT '',
		created_at  BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS offer_events_offer ON offer_events (offer_id, seq)`,
}

// Publish queues ev for Run. It never blocks.
func (j *Journal) Publish(ev swap.Event) {
	select {
	case j.events <- ev:
	default:
		n := j.dropped.Add(1)
		j.log.Warn("Journal buffer full, dropping event",
			zap.String("type", string(ev.Type)),
			zap.String("offer", ev.OfferID),
			zap.Uint64("dropped", n))
	}
}

// Dropped is the number of events lost to a full buffer.
func (j *Journal) Dropped() uint64 { return j.dropped.Load() }

// Run writes published events until ctx is cancelled, then flushes what is
// still buffered.
func (j *Journal) Run(ctx context.Context) error {
	for {
		select {
		case ev := <-j.events:
			j.write(context.Background(), ev)
		case <-ctx.Done():
			for {
				select {
				case ev := <-j.events:
					j.write(context.Background(), ev)
				default:
					return nil
				}
			}
		}
	}
}

func (j *Journal) write(ctx context.Context, ev swap.Event) {
	if err := j.Append(ctx, ev); err != nil {
		j.log.Error("Failed to journal event",
			zap.String("type", string(ev.Type)),
			zap.String("offer", ev.OfferID),
			zap.Error(err))
	}
}

// Append writes one event synchronously.
func (j *Journal) Append(ctx context.Context, ev swap.Event) error {
	if j.db == nil {
		return ErrClosed
	}
	accounts, err := json.Marshal(ev.Accounts)
	if err != nil {
		return errors.Wrap(err, "encoding accounts")
	}
	var registryID, itemID string
	if ev.Asset != nil {
		registryID, itemID = ev.Asset.RegistryID, ev.Asset.ItemID
	}

	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()
	_, err = j.db.ExecContext(ctx, j.rebind(`
		INSERT INTO offer_events
			(offer_id, type, actor, accounts, registry_id, item_id, result, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		ev.OfferID, string(ev.Type), ev.Actor, string(accounts),
		registryID, itemID, ev.Result, ev.Reason, ev.Time.UnixNano())
	if err != nil {
		return errors.Wrap(err, "failed to insert event")
	}
	return nil
}

// History returns the events of an offer in the order they happened.
func (j *Journal) History(ctx context.Context, offerID string) ([]swap.Event, error) {
	if j.db == nil {
		return nil, ErrClosed
	}
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	rows, err := j.db.QueryContext(ctx, j.rebind(`
		SELECT type, actor, accounts, registry_id, item_id, result, reason, created_at
		FROM offer_events WHERE offer_id = ? ORDER BY seq`), offerID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query history")
	}
	defer rows.Close()

	var events []swap.Event
	for rows.Next() {
		var (
			typ, accounts, registryID, itemID string
			created                           int64
			ev                                = swap.Event{OfferID: offerID}
		)
		if err := rows.Scan(&typ, &ev.Actor, &accounts, &registryID, &itemID, &ev.Result, &ev.Reason, &created); err != nil {
			return nil, errors.Wrap(err, "failed to scan event")
		}
		ev.Type = swap.EventType(typ)
		ev.Time = time.Unix(0, created)
		if err := json.Unmarshal([]byte(accounts), &ev.Accounts); err != nil {
			return nil, errors.Wrap(err, "decoding accounts")
		}
		if registryID != "" {
			ev.Asset = &swap.AssetRef{RegistryID: registryID, ItemID: itemID}
		}
		events = append(events, ev)
	}
	return events, errors.Wrap(rows.Err(), "iterating history")
}

// Close closes the database connection.
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	err := j.db.Close()
	j.db = nil
	return err
}

// rebind rewrites '?' placeholders to '$n' for postgres.
func (j *Journal) rebind(query string) string {
	if j.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
