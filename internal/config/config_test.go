package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/LeJamon/goSwapd/internal/core/amount"
	"github.com/LeJamon/goSwapd/internal/core/swap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalConfig = `
[engine]
admin = "admin.swapd"
fee_collector = "fees.swapd"
privilege_registry = "club.registry"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "swapd.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	config, err := LoadConfig(ConfigPaths{Main: writeConfig(t, minimalConfig)})
	require.NoError(t, err)

	assert.Equal(t, "admin.swapd", config.Engine.Admin)
	assert.Equal(t, swap.DefaultPendingTimeout, config.Engine.PendingTimeout)
	assert.Equal(t, "pebble", config.Database.Backend)
	assert.Equal(t, "sqlite", config.Journal.Driver)
	assert.True(t, config.Journal.Enabled())
	assert.Equal(t, 5005, config.Server.Port)
	assert.Equal(t, "127.0.0.1:5005", config.Server.Addr())
	assert.Equal(t, 10*time.Second, config.Registry.Timeout)
	assert.Equal(t, "info", config.LogLevel)

	engine, err := config.Engine.Swap()
	require.NoError(t, err)
	assert.Equal(t, swap.DefaultBaseFee, engine.BaseFee)
	assert.Equal(t, "club.registry", engine.PrivilegeRegistry)
}

func TestLoadConfigFull(t *testing.T) {
	path := writeConfig(t, "log_level = \"debug\"\n"+minimalConfig+`
base_fee = "5000"
pending_timeout = "10s"

[database]
backend = "bbolt"
path = "/tmp/swapd"

[journal]
driver = "none"

[outbox]
poll_interval = "250ms"
max_backoff = "1m"

[server]
bind = "0.0.0.0"
port = 8080

[registry]
native_endpoint = "http://127.0.0.1:3030"

[[registry.endpoints]]
registry = "nft.example"
url = "http://127.0.0.1:3031"

[[auth.tokens]]
token = "secret"
account = "Alice.Near"
`)
	config, err := LoadConfig(ConfigPaths{Main: path})
	require.NoError(t, err)

	engine, err := config.Engine.Swap()
	require.NoError(t, err)
	assert.Equal(t, amount.New(5000), engine.BaseFee)
	assert.Equal(t, 10*time.Second, config.Engine.PendingTimeout)
	assert.Equal(t, "bbolt", config.Database.Backend)
	assert.False(t, config.Journal.Enabled())
	assert.Equal(t, 250*time.Millisecond, config.Outbox.Outbox().PollInterval)
	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, "debug", config.LogLevel)

	client := config.Registry.Client()
	assert.Equal(t, "http://127.0.0.1:3031", client.Endpoints["nft.example"])
	assert.Equal(t, []string{"nft.example"}, config.Registry.Registries())
	assert.Equal(t, map[string]string{"secret": "Alice.Near"}, config.Auth.Accounts())
	assert.Equal(t, path, config.GetConfigPath())
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("SWAPD_SERVER_PORT", "7070")
	t.Setenv("SWAPD_ENGINE_FEE_COLLECTOR", "treasury")

	config, err := LoadConfig(ConfigPaths{Main: writeConfig(t, minimalConfig)})
	require.NoError(t, err)
	assert.Equal(t, 7070, config.Server.Port)
	assert.Equal(t, "treasury", config.Engine.FeeCollector)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(ConfigPaths{Main: ""})
	require.Error(t, err)

	_, err = LoadConfig(ConfigPaths{Main: filepath.Join(t.TempDir(), "missing.toml")})
	require.Error(t, err)

	tests := map[string]string{
		"no admin":      "[engine]\nfee_collector = \"f\"\nprivilege_registry = \"r\"\n",
		"bad base fee":  minimalConfig + "base_fee = \"-1\"\n",
		"zero base fee": minimalConfig + "base_fee = \"0\"\n",
		"bad backend":   minimalConfig + "[database]\nbackend = \"rocksdb\"\n",
		"bad journal":   minimalConfig + "[journal]\ndriver = \"mysql\"\n",
		"bad port":      minimalConfig + "[server]\nport = 70000\n",
		"bad url":       minimalConfig + "[[registry.endpoints]]\nregistry = \"r\"\nurl = \"ftp://x\"\n",
		"dup token":     minimalConfig + "[[auth.tokens]]\ntoken = \"a\"\naccount = \"x\"\n[[auth.tokens]]\ntoken = \"a\"\naccount = \"y\"\n",
		"bad jitter":    minimalConfig + "[outbox]\njitter = 2.0\n",
		"bad log level": "log_level = \"loud\"\n" + minimalConfig,
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(ConfigPaths{Main: writeConfig(t, content)})
			require.Error(t, err)
		})
	}
}

func TestSaveExampleConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "swapd.toml")
	require.NoError(t, SaveExampleConfig(path))

	config, err := LoadConfig(ConfigPaths{Main: path})
	require.NoError(t, err)
	assert.Equal(t, "admin.swapd", config.Engine.Admin)
	assert.Equal(t, map[string]string{"change-me": "admin.swapd"}, config.Auth.Accounts())
}

func TestConfigPathsFromDir(t *testing.T) {
	assert.Equal(t, filepath.Join("etc", "swapd.toml"), ConfigPathsFromDir("etc").Main)
	assert.Equal(t, "swapd.toml", DefaultConfigPaths().Main)
}

func TestRegistriesSkipDefaultEndpoint(t *testing.T) {
	r := RegistryConfig{Endpoints: []EndpointConfig{
		{Registry: "default", URL: "http://127.0.0.1:1"},
		{Registry: "nft.one", URL: "http://127.0.0.1:2"},
	}}
	assert.Equal(t, []string{"nft.one"}, r.Registries())
}
