// Package config loads QuineDB's configuration from file, environment, and
// built-in defaults using viper, and exposes the hot-reloadable subset of it
// through a small pub/sub so long-running components (the GC sweep, the
// logger) can react without a restart.
package config

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config is the root configuration structure for the process.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	GC          GCConfig          `mapstructure:"gc"`
	Log         LogConfig         `mapstructure:"log"`
	Persistence PersistenceConfig `mapstructure:"persistence"`
}

// ServerConfig holds network and sharding-topology settings. Topology
// settings (WorkerThreads, ShardingAlgorithm) are read once at boot: the
// spec requires the router algorithm to be a stable cluster invariant, so
// nothing here may change without a restart.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`

	// WorkerThreads is the number of shards/workers. Zero means
	// runtime.NumCPU().
	WorkerThreads int `mapstructure:"worker_threads"`

	// ShardingAlgorithm selects the Router variant: "crc16" or "ring".
	ShardingAlgorithm string `mapstructure:"sharding_algorithm"`
}

// GCConfig defines the parameters for the background active-expiration
// sweep each worker runs against its own shard.
type GCConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Interval        time.Duration `mapstructure:"interval"`          // how often to run the background check
	SamplesPerCheck int           `mapstructure:"samples_per_check"` // how many keys to check per loop
	MatchThreshold  float64       `mapstructure:"match_threshold"`   // 0.0-1.0; if expired/scanned > threshold, repeat immediately
}

// LogConfig defines logging verbosity and output style.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// PersistenceConfig defines RDB snapshot settings.
type PersistenceConfig struct {
	RDB RDBConfig `mapstructure:"rdb"`
}

// SaveParam is one entry of the declared (but not yet scheduled) background
// save policy: "save after Seconds seconds if at least Changes keys
// changed". V1 never evaluates these automatically; SAVE/BGSAVE are the
// only triggers, as spec.md §6 documents.
type SaveParam struct {
	Seconds int `mapstructure:"seconds"`
	Changes int `mapstructure:"changes"`
}

// RDBConfig defines settings of the RDB-style snapshot driver.
type RDBConfig struct {
	Enabled    bool        `mapstructure:"enabled"`
	Filename   string      `mapstructure:"filename"`
	Dir        string      `mapstructure:"dir"`
	SaveParams []SaveParam `mapstructure:"save_params"`
}

// Loader owns a private viper instance so tests and multiple server
// instances in the same process never share global config state.
type Loader struct {
	v *viper.Viper

	mu        sync.Mutex
	onChange  []func(*Config)
	lastGood  *Config
	watchOnce sync.Once
}

// New constructs a Loader that reads "config.yaml" from path (and ".") and
// overrides it with QUINEDB_-prefixed environment variables.
func New(path string) *Loader {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(path)
	v.AddConfigPath(".")

	v.SetEnvPrefix("QUINEDB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Loader{v: v}
}

// Load reads the configuration file (if present), merges environment
// overrides, and unmarshals into a Config.
func (l *Loader) Load() (*Config, error) {
	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.lastGood = &cfg
	l.mu.Unlock()

	return &cfg, nil
}

// OnChange registers a callback invoked with the freshly reloaded Config
// whenever the backing file changes on disk. WatchAndReload must be called
// once for callbacks to actually fire.
func (l *Loader) OnChange(fn func(*Config)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = append(l.onChange, fn)
}

// WatchAndReload arms viper's fsnotify-backed config watch. Only ambient
// settings (log level/format, GC cadence) are meant to be consumed from the
// reloaded Config; ServerConfig topology fields must not be re-read after
// boot.
func (l *Loader) WatchAndReload() {
	l.watchOnce.Do(func() {
		l.v.OnConfigChange(func(fsnotify.Event) {
			var cfg Config
			if err := l.v.Unmarshal(&cfg); err != nil {
				return
			}
			l.mu.Lock()
			l.lastGood = &cfg
			callbacks := append([]func(*Config){}, l.onChange...)
			l.mu.Unlock()
			for _, cb := range callbacks {
				cb(&cfg)
			}
		})
		l.v.WatchConfig()
	})
}

// setDefaults populates viper with fallback values used when a setting is
// absent from both the config file and the environment.
func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 6379)
	v.SetDefault("server.worker_threads", 0)
	v.SetDefault("server.sharding_algorithm", "crc16")

	// GC
	v.SetDefault("gc.enabled", true)
	v.SetDefault("gc.interval", "100ms")
	v.SetDefault("gc.samples_per_check", 20)
	v.SetDefault("gc.match_threshold", 0.25)

	// Logger
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Persistence
	v.SetDefault("persistence.rdb.enabled", true)
	v.SetDefault("persistence.rdb.filename", "dump.rdb")
	v.SetDefault("persistence.rdb.dir", "./")
	v.SetDefault("persistence.rdb.save_params", []SaveParam{})
}
