package journal

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/LeJamon/goSwapd/internal/core/swap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSQLite(t *testing.T) *Journal {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DSN = filepath.Join(t.TempDir(), "journal.db")
	j, err := Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func testEvents() []swap.Event {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return []swap.Event{
		{Type: swap.EventOfferCreated, OfferID: "H1", Accounts: []string{"alice", "bob"}, Actor: "alice", Result: "tesSUCCESS", Time: at},
		{Type: swap.EventAssetDeposited, OfferID: "H1", Accounts: []string{"alice", "bob"}, Actor: "alice",
			Asset: &swap.AssetRef{RegistryID: "nft.one", ItemID: "1"}, Result: "tesSUCCESS", Time: at.Add(time.Second)},
		{Type: swap.EventOfferCreated, OfferID: "H2", Accounts: []string{"carol", "bob"}, Actor: "carol", Time: at},
		{Type: swap.EventOfferCancelled, OfferID: "H1", Accounts: []string{"alice", "bob"}, Actor: "bob", Time: at.Add(2 * time.Second)},
	}
}

func TestSQLiteHistory(t *testing.T) {
	j := openSQLite(t)
	ctx := context.Background()

	for _, ev := range testEvents() {
		require.NoError(t, j.Append(ctx, ev))
	}

	history, err := j.History(ctx, "H1")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, swap.EventOfferCreated, history[0].Type)
	assert.Equal(t, swap.EventAssetDeposited, history[1].Type)
	assert.Equal(t, swap.EventOfferCancelled, history[2].Type)

	assert.Equal(t, []string{"alice", "bob"}, history[1].Accounts)
	require.NotNil(t, history[1].Asset)
	assert.Equal(t, "nft.one", history[1].Asset.RegistryID)
	assert.Nil(t, history[0].Asset)
	assert.True(t, testEvents()[1].Time.Equal(history[1].Time))

	none, err := j.History(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRunWritesPublishedEvents(t *testing.T) {
	j := openSQLite(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- j.Run(ctx) }()

	for _, ev := range testEvents() {
		j.Publish(ev)
	}
	cancel()
	require.NoError(t, <-done)

	history, err := j.History(context.Background(), "H2")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "carol", history[0].Actor)
	assert.Zero(t, j.Dropped())
}

func TestPublishDropsWhenFull(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DSN = filepath.Join(t.TempDir(), "journal.db")
	cfg.Buffer = 1
	j, err := Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer j.Close()

	j.Publish(swap.Event{Type: swap.EventOfferCreated, OfferID: "H1"})
	j.Publish(swap.Event{Type: swap.EventOfferCreated, OfferID: "H2"})
	assert.Equal(t, uint64(1), j.Dropped())
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "mysql", DSN: "x"}, nil)
	require.ErrorIs(t, err, ErrUnknownDriver)

	_, err = Open(context.Background(), Config{Driver: DriverSQLite}, nil)
	require.Error(t, err)
}

func TestRebind(t *testing.T) {
	j := &Journal{driver: DriverPostgres}
	assert.Equal(t, "a = $1 AND b = $2", j.rebind("a = ? AND b = ?"))

	j.driver = DriverSQLite
	assert.Equal(t, "a = ?", j.rebind("a = ?"))
}

func TestClosedJournal(t *testing.T) {
	j := openSQLite(t)
	require.NoError(t, j.Close())
	require.ErrorIs(t, j.Append(context.Background(), testEvents()[0]), ErrClosed)
	_, err := j.History(context.Background(), "H1")
	require.ErrorIs(t, err, ErrClosed)
}

// TestPostgresHistory runs against a live server when SWAPD_TEST_POSTGRES_DSN
// is set.
func TestPostgresHistory(t *testing.T) {
	dsn := os.Getenv("SWAPD_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("SWAPD_TEST_POSTGRES_DSN not set")
	}
	cfg := DefaultConfig()
	cfg.Driver, cfg.DSN = DriverPostgres, dsn
	j, err := Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer j.Close()

	id := "pg-" + time.Now().Format("150405.000000000")
	ctx := context.Background()
	require.NoError(t, j.Append(ctx, swap.Event{Type: swap.EventOfferCreated, OfferID: id, Time: time.Now()}))
	history, err := j.History(ctx, id)
	require.NoError(t, err)
	require.Len(t, history, 1)
}
