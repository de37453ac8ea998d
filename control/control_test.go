package control

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/momentics/hioload-io/api"
	"github.com/momentics/hioload-io/serial/options"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
workers = 2

[log]
level = "debug"
format = "json"

[ports.gps]
device = "/dev/ttyUSB0"
baud_rate = 9600
parity = "even"
stop_bits = "2"
flow_control = "none"

[ports.modem]
device = "/dev/ttyS1"
character_size = 7
`

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig(sampleConfig)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, []string{"gps", "modem"}, cfg.PortNames())

	opts, err := cfg.Ports["gps"].Options()
	require.NoError(t, err)
	assert.Equal(t, []api.SettableOption{
		options.BaudRate(9600), options.ParityEven, options.StopBitsTwo, options.FlowNone,
	}, opts)

	opts, err = cfg.Ports["modem"].Options()
	require.NoError(t, err)
	assert.Equal(t, []api.SettableOption{options.CharacterSize(7)}, opts)
}

func TestConfigRejects(t *testing.T) {
	_, err := ParseConfig("workers = 0")
	assert.ErrorIs(t, err, api.ErrInvalidArgument)

	_, err = ParseConfig("[ports.x]\nbaud_rate = 9600")
	assert.ErrorIs(t, err, api.ErrInvalidArgument)

	_, err = ParseConfig("[ports.x]\ndevice = \"/dev/x\"\nparity = \"mark\"")
	assert.ErrorIs(t, err, api.ErrInvalidArgument)

	_, err = ParseConfig("bogus = 1")
	assert.ErrorIs(t, err, api.ErrInvalidArgument)

	_, err = ParseConfig("workers = ")
	assert.Error(t, err)
}

func TestConfigStoreListeners(t *testing.T) {
	store := NewConfigStore(nil)
	assert.Equal(t, 1, store.Get().Workers)

	var seen []int
	store.OnReload(func(c *Config) { seen = append(seen, c.Workers) })
	store.OnReload(func(c *Config) { seen = append(seen, -c.Workers) })
	store.Set(&Config{Workers: 3})
	assert.Equal(t, []int{3, -3}, seen)
	assert.Equal(t, 3, store.Get().Workers)
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hioload.toml")
	require.NoError(t, os.WriteFile(path, []byte("workers = 1\n"), 0o600))

	store := NewConfigStore(nil)
	got := make(chan int, 8)
	store.OnReload(func(c *Config) { got <- c.Workers })

	w, err := WatchConfig(path, store, zerolog.Nop())
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte("workers = 5\n"), 0o600))
	deadline := time.After(5 * time.Second)
	for {
		select {
		case n := <-got:
			if n == 5 {
				assert.GreaterOrEqual(t, w.Reloads(), uint64(1))
				return
			}
		case <-deadline:
			t.Fatal("config change not observed")
		}
	}
}

func TestWatcherKeepsLastGoodConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hioload.toml")
	require.NoError(t, os.WriteFile(path, []byte("workers = 0\n"), 0o600))

	store := NewConfigStore(nil)
	w, err := WatchConfig(path, store, zerolog.Nop())
	require.NoError(t, err)
	defer w.Close()

	assert.Error(t, w.Reload())
	assert.Equal(t, uint64(1), w.Failures())
	assert.Equal(t, 1, store.Get().Workers)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewLogger(LogConfig{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)
	log.Info().Msg("hidden")
	log.Warn().Str("port", "gps").Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"port":"gps"`)

	_, err = NewLogger(LogConfig{Level: "loud"}, &buf)
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
	_, err = NewLogger(LogConfig{Format: "xml"}, &buf)
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
}

func TestMetricsAndProbes(t *testing.T) {
	m := NewMetricsRegistry()
	assert.Equal(t, int64(2), m.Add("bytes", 2))
	assert.Equal(t, int64(5), m.Add("bytes", 3))
	m.Set("state", "open")
	assert.False(t, m.Updated().IsZero())
	assert.Equal(t, map[string]any{"bytes": int64(5), "state": "open"}, m.GetSnapshot())

	dp := NewDebugProbes()
	RegisterPlatformProbes(dp)
	dp.RegisterProbe("answer", func() any { return 42 })
	state := dp.DumpState()
	assert.Equal(t, 42, state["answer"])
	assert.Contains(t, state, "platform.io_backend")
	dp.UnregisterProbe("answer")
	assert.NotContains(t, dp.DumpState(), "answer")
}
