package cli

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/LeJamon/goSwapd/internal/config"
	"github.com/LeJamon/goSwapd/internal/core/amount"
	"github.com/LeJamon/goSwapd/internal/core/swap"
	"github.com/LeJamon/goSwapd/internal/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	return &config.Config{
		Engine: config.EngineConfig{
			Admin:             "admin",
			FeeCollector:      "fees",
			PrivilegeRegistry: "club.registry",
			BaseFee:           swap.DefaultBaseFee.String(),
			PendingTimeout:    time.Second,
		},
		Database: config.DatabaseConfig{Backend: "pebble", Path: filepath.Join(dir, "db")},
		Journal: config.JournalConfig{
			Driver: "sqlite",
			DSN:    filepath.Join(dir, "journal.db"),
			Buffer: 16,
		},
		Outbox: config.OutboxConfig{PollInterval: 10 * time.Millisecond},
		Server: config.ServerConfig{Bind: "127.0.0.1", Port: 0},
		Registry: config.RegistryConfig{
			Endpoints: []config.EndpointConfig{{Registry: "nft.one", URL: "http://127.0.0.1:1"}},
			Timeout:   time.Second,
		},
		Auth: config.AuthConfig{Tokens: []config.TokenConfig{
			{Token: "alice-token", Account: "alice"},
			{Token: "nft-key", Account: "nft.one"},
		}},
		LogLevel: "info",
	}
}

func TestDaemonServesStandalone(t *testing.T) {
	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d, err := newDaemon(ctx, cfg, true, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, d.memory)
	require.NoError(t, d.fund([]string{"alice=" + amount.Units(100).String()}))

	done := make(chan error, 1)
	go func() { done <- d.run(ctx) }()

	select {
	case <-d.ready:
	case err := <-done:
		t.Fatalf("daemon exited early: %v", err)
	}
	url := "http://" + d.Addr().String() + "/"

	alice := rpc.NewClient(url, "alice-token", 5*time.Second)
	var info map[string]interface{}
	require.NoError(t, alice.Call(ctx, "server_info", nil, &info))
	assert.Equal(t, true, info["info"].(map[string]interface{})["standalone"])

	required, err := swap.RequiredDeposit(amount.Zero, swap.DefaultBaseFee, false)
	require.NoError(t, err)
	var created map[string]interface{}
	require.NoError(t, alice.Call(ctx, "offer_create", map[string]interface{}{
		"offer_id":            "H1",
		"initiator":           "alice",
		"initiator_assets":    []swap.AssetRef{{RegistryID: "nft.one", ItemID: "1"}},
		"counterparty":        "bob",
		"counterparty_assets": []swap.AssetRef{},
		"attached":            required,
		"wait":                true,
	}, &created))

	assert.Equal(t, required, d.memory.Collected("alice"))

	// Only configured registries may report transfers.
	err = alice.Call(ctx, "transfer_notify", map[string]interface{}{"offer_id": "H1"}, nil)
	require.Error(t, err)

	// The in-process registry moves the item and reports it.
	d.memory.Mint("nft.one", "1", "alice")
	require.NoError(t, d.memory.Move("nft.one", "1", "alice", standaloneCustodian))
	registry := rpc.NewClient(url, "nft-key", 5*time.Second)
	var notified map[string]interface{}
	require.NoError(t, registry.Call(ctx, "transfer_notify", map[string]interface{}{
		"signer":            "alice",
		"sender_id":         "alice",
		"previous_owner_id": "alice",
		"token_id":          "1",
		"offer_id":          "H1",
	}, &notified))
	assert.Equal(t, "completed", notified["outcome"])

	require.Eventually(t, func() bool {
		owner, _ := d.memory.Owner("nft.one", "1")
		return owner == "bob"
	}, 5*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		var history map[string]interface{}
		if err := alice.Call(ctx, "offer_history", map[string]interface{}{"offer_id": "H1"}, &history); err != nil {
			return false
		}
		return len(history["events"].([]interface{})) == 3
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("daemon did not stop")
	}
}

func TestDaemonFundSpecs(t *testing.T) {
	d, err := newDaemon(context.Background(), testConfig(t), true, zap.NewNop())
	require.NoError(t, err)
	defer d.close()

	require.NoError(t, d.fund(nil))
	require.NoError(t, d.fund([]string{"bob=25", "bob=5"}))
	assert.Equal(t, amount.New(30), d.memory.Balance("bob"))

	require.Error(t, d.fund([]string{"bob"}))
	require.Error(t, d.fund([]string{"=5"}))
	require.Error(t, d.fund([]string{"bob=lots"}))

	networked, err := newDaemon(context.Background(), testConfig(t), false, zap.NewNop())
	require.NoError(t, err)
	defer networked.close()
	require.Error(t, networked.fund([]string{"bob=1"}))
}

func TestDaemonRejectsBadBaseFee(t *testing.T) {
	cfg := testConfig(t)
	cfg.Engine.BaseFee = "not a number"
	_, err := newDaemon(context.Background(), cfg, true, zap.NewNop())
	require.Error(t, err)
}

func TestLogLevelFlags(t *testing.T) {
	defer func() { debug, verbose, quiet = false, false, false }()

	assert.Equal(t, "info", logLevel("info"))
	quiet = true
	assert.Equal(t, "warn", logLevel("info"))
	verbose = true
	assert.Equal(t, "debug", logLevel("info"))
}

func TestConfigInitAndCheck(t *testing.T) {
	path := filepath.Join(t.TempDir(), "swapd.toml")
	rootCmd.SetArgs([]string{"config", "init", path})
	require.NoError(t, rootCmd.Execute())

	configFile = ""
	rootCmd.SetArgs([]string{"config", "check", "--conf", path})
	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, path, configFile)

	_, err := config.LoadConfig(config.ConfigPaths{Main: path})
	require.NoError(t, err)
}
