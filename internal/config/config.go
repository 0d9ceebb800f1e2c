// Package config loads the gposix command-line configuration with viper.
//
// Values come from an optional config file and from environment variables
// prefixed with GPOSIX_, e.g. GPOSIX_SOCKET_PATH for socket.path.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/Giulio2002/gposix/internal/logx"
	"github.com/joomcode/errorx"
	"github.com/spf13/viper"
)

const EnvPrefix = "GPOSIX"

// Config holds the global configuration for the application.
type Config struct {
	Log    logx.LoggingConfig `yaml:"log" json:"log"`
	Socket SocketConfig       `yaml:"socket" json:"socket"`
}

// SocketConfig configures the descriptor-passing commands.
type SocketConfig struct {
	Path    string `yaml:"path" json:"path"`       // Unix-domain socket path
	Backlog int    `yaml:"backlog" json:"backlog"` // listen(2) backlog
}

var globalConfig = Default()

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log: logx.LoggingConfig{
			Level:          "warn",
			ConsoleLogging: true,
			Filename:       "gposix.log",
			MaxSize:        10,
			MaxBackups:     3,
			MaxAge:         7,
		},
		Socket: SocketConfig{
			Path:    filepath.Join(os.TempDir(), "gposix.sock"),
			Backlog: 1,
		},
	}
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("log.level", c.Log.Level)
	v.SetDefault("log.consoleLogging", c.Log.ConsoleLogging)
	v.SetDefault("log.fileLogging", c.Log.FileLogging)
	v.SetDefault("log.directory", c.Log.Directory)
	v.SetDefault("log.filename", c.Log.Filename)
	v.SetDefault("log.maxSize", c.Log.MaxSize)
	v.SetDefault("log.maxBackups", c.Log.MaxBackups)
	v.SetDefault("log.maxAge", c.Log.MaxAge)
	v.SetDefault("log.compress", c.Log.Compress)
	v.SetDefault("socket.path", c.Socket.Path)
	v.SetDefault("socket.backlog", c.Socket.Backlog)
}

// Initialize loads the configuration file at path, if any, and applies
// environment overrides.
func Initialize(path string) error {
	v := viper.New()
	setDefaults(v, Default())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return NotFoundError.Wrap(err, "failed to read config file: %s", path).
				WithProperty(errorx.PropertyPayload(), path)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return errorx.IllegalFormat.Wrap(err, "failed to parse configuration").
			WithProperty(errorx.PropertyPayload(), path)
	}
	if c.Socket.Backlog <= 0 {
		return errorx.IllegalArgument.New("socket.backlog must be positive, got %d", c.Socket.Backlog)
	}

	globalConfig = c
	return nil
}

// Get returns the loaded configuration.
func Get() Config {
	return globalConfig
}

// Set replaces the loaded configuration.
func Set(c *Config) {
	globalConfig = *c
}
