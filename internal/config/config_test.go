package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/quinedb/quinedb/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()

	l := config.New(dir)
	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, 6379, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 0, cfg.Server.WorkerThreads)
	assert.Equal(t, "crc16", cfg.Server.ShardingAlgorithm)
	assert.True(t, cfg.Persistence.RDB.Enabled)
	assert.Equal(t, "dump.rdb", cfg.Persistence.RDB.Filename)
}

func TestLoadFromEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("QUINEDB_SERVER_PORT", "7000")
	t.Setenv("QUINEDB_SERVER_SHARDING_ALGORITHM", "ring")

	l := config.New(dir)
	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "ring", cfg.Server.ShardingAlgorithm)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte("server:\n  port: 7001\n  worker_threads: 4\n")
	require.NoError(t, os.WriteFile(dir+"/config.yaml", content, 0o644))

	l := config.New(dir)
	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, 7001, cfg.Server.Port)
	assert.Equal(t, 4, cfg.Server.WorkerThreads)
}

// TestWatchAndReloadFiresOnChange exercises the hot-reload path end to end:
// rewriting the config file on disk after WatchAndReload is armed must
// deliver the new values to a registered OnChange callback, since that's
// the only mechanism ambient settings (log level, GC cadence) ever change
// after boot without a restart.
func TestWatchAndReloadFiresOnChange(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/config.yaml"
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: info\n"), 0o644))

	l := config.New(dir)
	_, err := l.Load()
	require.NoError(t, err)

	changed := make(chan *config.Config, 1)
	l.OnChange(func(cfg *config.Config) {
		changed <- cfg
	})
	l.WatchAndReload()

	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o644))

	select {
	case cfg := <-changed:
		assert.Equal(t, "debug", cfg.Log.Level)
	case <-time.After(5 * time.Second):
		t.Fatal("OnChange callback never fired after config file was rewritten")
	}
}
