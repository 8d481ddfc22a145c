// Package config loads server settings from defaults, a YAML file,
// WAVESYNC_* environment variables and command line flags.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/erikbos/wavesync/database"
	"github.com/erikbos/wavesync/player"
)

// EnvPrefix is the prefix of environment variables overriding settings.
const EnvPrefix = "WAVESYNC"

// EnvKeyReplacer normalizes configuration keys into environment variable names.
var EnvKeyReplacer = strings.NewReplacer(".", "_")

type Config struct {
	Listen         Listen              `mapstructure:"listen"`
	Database       database.ConfigFile `mapstructure:"database"`
	Log            Log                 `mapstructure:"log"`
	Search         Search              `mapstructure:"search"`
	Storage        Storage             `mapstructure:"storage"`
	Realtime       Realtime            `mapstructure:"realtime"`
	Offline        Offline             `mapstructure:"offline"`
	Player         Player              `mapstructure:"player"`
	Auth           Auth                `mapstructure:"auth"`
	Cors           Cors                `mapstructure:"cors"`
	RequestTimeout time.Duration       `mapstructure:"request_timeout"`
}

type Listen struct {
	Address string `mapstructure:"address"`
	TlsCert string `mapstructure:"tlscert"`
	TlsKey  string `mapstructure:"tlskey"`
}

type Log struct {
	// Level is a logrus level name.
	Level string `mapstructure:"level"`
	// Format is text or json.
	Format string `mapstructure:"format"`
	// Output is stdout, none or the path of a logfile.
	Output string `mapstructure:"output"`
}

type Search struct {
	// APIKey of the YouTube Data API, search uses the local index when empty.
	APIKey string `mapstructure:"apikey"`
	// Endpoint overrides the base URL of the YouTube Data API.
	Endpoint string `mapstructure:"endpoint"`
}

type Storage struct {
	// Type is local or gcs.
	Type   string `mapstructure:"type"`
	Dir    string `mapstructure:"dir"`
	Bucket string `mapstructure:"bucket"`
	// PublicURL is the base URL stored blobs are served from.
	PublicURL string `mapstructure:"publicurl"`
}

type Realtime struct {
	// Type is memory or redis.
	Type string `mapstructure:"type"`
	Addr string `mapstructure:"addr"`
}

type Offline struct {
	Dir string `mapstructure:"dir"`
}

type Player struct {
	PollInterval time.Duration `mapstructure:"pollinterval"`
	// FallbackTracks replace the built-in tracks played when nothing is queued.
	FallbackTracks []player.Track `mapstructure:"fallbacktracks"`
	// IdleTimeout evicts coordinators of sessions without a connected
	// surface, 0 keeps them until sign out.
	IdleTimeout time.Duration `mapstructure:"idletimeout"`
}

type Auth struct {
	ResetTokenLifetime time.Duration `mapstructure:"resettokenlifetime"`
	ResetURL           string        `mapstructure:"reseturl"`
}

type Cors struct {
	Origins []string `mapstructure:"origins"`
}

// defaults holds the value of every known key.
var defaults = map[string]any{
	"listen.address":           ":8080",
	"listen.tlscert":           "",
	"listen.tlskey":            "",
	"database.sqlite.filename": "wavesync.db",
	"log.level":                "info",
	"log.format":               "text",
	"log.output":               "stdout",
	"search.apikey":            "",
	"search.endpoint":          "",
	"storage.type":             "local",
	"storage.dir":              "blobs",
	"storage.bucket":           "",
	"storage.publicurl":        "/blobs",
	"realtime.type":            "memory",
	"realtime.addr":            "localhost:6379",
	"offline.dir":              "offline",
	"player.pollinterval":      time.Second,
	"player.idletimeout":       30 * time.Minute,
	"auth.resettokenlifetime":  time.Hour,
	"auth.reseturl":            "http://localhost:8080/reset",
	"cors.origins":             []string{"*"},
	"request_timeout":          10 * time.Second,
}

// Flags registers the command line flags that override settings.
func Flags(fs *pflag.FlagSet) {
	fs.StringP("config", "c", "", "Path of the YAML configuration file")
	fs.String("listen", "", "Address to listen on, e.g. :8080")
	fs.String("database", "", "Path of the sqlite database")
	fs.String("logfile", "", "Path of logfile. Use 'stdout' for standard output, or 'none' to disable logging.")
	fs.String("loglevel", "", "Log level (trace, debug, info, warn, error)")
}

var flagKeys = map[string]string{
	"listen":   "listen.address",
	"database": "database.sqlite.filename",
	"logfile":  "log.output",
	"loglevel": "log.level",
}

// Load reads the configuration. fs may be nil.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(EnvKeyReplacer)
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if fs != nil {
		for flag, key := range flagKeys {
			if f := fs.Lookup(flag); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
		if f := fs.Lookup("config"); f != nil && f.Value.String() != "" {
			v.SetConfigFile(f.Value.String())
		}
	}
	if v.ConfigFileUsed() == "" {
		v.SetConfigName("wavesync")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/wavesync")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	return &c, c.validate()
}

func (c *Config) validate() error {
	switch c.Storage.Type {
	case "local", "gcs":
	default:
		return errors.New("storage.type must be local or gcs")
	}
	if c.Storage.Type == "gcs" && c.Storage.Bucket == "" {
		return errors.New("storage.bucket is required for gcs storage")
	}
	switch c.Realtime.Type {
	case "memory", "redis":
	default:
		return errors.New("realtime.type must be memory or redis")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("request_timeout must be positive")
	}
	return nil
}
