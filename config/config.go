// Package config carries the scalar configuration a node needs: group
// size, accumulator sizing, and the ambient data-directory/log-level
// fields the teacher's own Config always carries regardless of which
// protocol sits on top. Loading it from flags/env/files is out of scope
// here; mapstructure tags are carried so an external loader (viper, the
// way the teacher's cmd/ tree does it) can populate a Config directly.
package config

import (
	"os"
	"os/user"
	"path/filepath"
	"runtime"

	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// Default configuration values.
const (
	DefaultLogLevel             = "debug"
	DefaultGroupSize            = 32
	DefaultPendingCacheCapacity = 0
	DefaultNetworkDifficulty    = 1
)

// DefaultBadgerDir is the default name of the folder containing the
// Badger-backed peer store.
const DefaultBadgerDir = "badger_db"

// Config holds every externally meaningful knob a node needs. GroupSize
// and PendingCacheCapacity govern DataChain quorum math and accumulator
// sizing; NetworkDifficulty records this node's distance to its close
// group; DataDir,
// DatabaseDir and LogLevel are the ambient node-operations fields the
// teacher carries regardless of protocol.
type Config struct {
	// GroupSize is the number of members expected in a close group. It
	// determines the rolling-quorum threshold via Quorum().
	GroupSize int `mapstructure:"group-size"`

	// PendingCacheCapacity bounds how many identifiers the accumulator may
	// track concurrently before the least-recently-touched pending entry is
	// evicted. Zero, the default, leaves the accumulator unbounded.
	PendingCacheCapacity int `mapstructure:"pending-cache-capacity"`

	// NetworkDifficulty is the XOR distance from this node to the furthest
	// member of its current close group. Nothing in this module reads it.
	NetworkDifficulty int `mapstructure:"network-difficulty"`

	// DataDir is the top-level directory containing this node's
	// configuration and data.
	DataDir string `mapstructure:"datadir"`

	// DatabaseDir is the directory containing the Badger peer-store files.
	DatabaseDir string `mapstructure:"database-dir"`

	// LogLevel determines the chattiness of the log output.
	LogLevel string `mapstructure:"log"`

	logger *logrus.Logger
}

// NewDefaultConfig returns a Config populated with default values.
func NewDefaultConfig() *Config {
	dataDir := DefaultDataDir()
	return &Config{
		GroupSize:            DefaultGroupSize,
		PendingCacheCapacity: DefaultPendingCacheCapacity,
		NetworkDifficulty:    DefaultNetworkDifficulty,
		DataDir:              dataDir,
		DatabaseDir:          DefaultDatabaseDir(dataDir),
		LogLevel:             DefaultLogLevel,
	}
}

// Quorum returns the strict-majority signer threshold for this Config's
// GroupSize: group_size/2 + 1. It is always derived, never settable
// directly, so it can never drift out of sync with GroupSize.
func (c *Config) Quorum() int {
	return c.GroupSize/2 + 1
}

// SetDataDir sets the top-level data directory, and updates DatabaseDir
// alongside it if it is still at the default location. If DatabaseDir has
// been explicitly set to something else, it is left alone.
func (c *Config) SetDataDir(dataDir string) {
	oldDefault := DefaultDatabaseDir(c.DataDir)
	c.DataDir = dataDir
	if c.DatabaseDir == oldDefault {
		c.DatabaseDir = DefaultDatabaseDir(dataDir)
	}
}

// DefaultDatabaseDir returns the default path for the peer-store database
// files given a data directory.
func DefaultDatabaseDir(dataDir string) string {
	return filepath.Join(dataDir, DefaultBadgerDir)
}

// DefaultDataDir returns the default directory name for top-level
// configuration, based on the underlying OS, attempting to respect
// conventions.
func DefaultDataDir() string {
	home := HomeDir()
	if home == "" {
		return ""
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, ".DataChain")
	case "windows":
		return filepath.Join(home, "AppData", "Roaming", "DataChain")
	default:
		return filepath.Join(home, ".datachain")
	}
}

// Logger returns a formatted logrus Entry prefixed "datachain", building the
// underlying logrus.Logger lazily on first use and caching it thereafter, the
// same shape the teacher's own Config.Logger uses.
func (c *Config) Logger() *logrus.Entry {
	if c.logger == nil {
		c.logger = logrus.New()
		c.logger.Level = ParseLogLevel(c.LogLevel)
		c.logger.Formatter = new(prefixed.TextFormatter)
	}
	return c.logger.WithField("prefix", "datachain")
}

// ParseLogLevel parses a configuration string into a logrus level, defaulting
// to DebugLevel for anything unrecognized.
func ParseLogLevel(l string) logrus.Level {
	switch l {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.DebugLevel
	}
}

// NewFileLogger builds a logrus.Logger at the given level that additionally
// writes info- and debug-level records to the named files via an lfshook
// hook, mirroring the teacher's cmd/dummy newLogger helper. A file that
// cannot be opened is skipped silently (falling back to the logger's default
// stderr output for that level) rather than failing construction.
func NewFileLogger(level, infoLogPath, debugLogPath string) *logrus.Logger {
	logger := logrus.New()
	logger.Level = ParseLogLevel(level)

	pathMap := lfshook.PathMap{}

	if infoLogPath != "" {
		if _, err := os.OpenFile(infoLogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666); err == nil {
			pathMap[logrus.InfoLevel] = infoLogPath
		}
	}
	if debugLogPath != "" {
		if _, err := os.OpenFile(debugLogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666); err == nil {
			pathMap[logrus.DebugLevel] = debugLogPath
		}
	}

	if len(pathMap) > 0 {
		logger.Hooks.Add(lfshook.NewHook(pathMap, new(prefixed.TextFormatter)))
	}

	return logger
}

// HomeDir returns the current user's home directory.
func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}
