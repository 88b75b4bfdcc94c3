package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/ext-packager/internal/logger"
)

// Config holds application-wide settings shared by every ext-packager command.
type Config struct {
	// LogLevel is the minimum level of log entries (debug, info, warn, error).
	LogLevel string `yaml:"log_level" mapstructure:"log_level"`
	// SaveDelay is the quiet period after the last manifest edit before the project is written.
	SaveDelay time.Duration `yaml:"save_delay" mapstructure:"save_delay"`
	// FTPTimeout bounds dialing and individual commands of the remote transport.
	FTPTimeout time.Duration `yaml:"ftp_timeout" mapstructure:"ftp_timeout"`
	// SigningPolicy is the default policy for "sign" when none is given on the command line.
	SigningPolicy string `yaml:"signing_policy" mapstructure:"signing_policy"`
	// LastProject is the project file opened most recently.
	LastProject string `yaml:"last_project,omitempty" mapstructure:"last_project"`
}

const (
	// DefaultConfigFilename is the default filename for application settings.
	DefaultConfigFilename = "ext-packager-settings.yaml"

	// EnvPrefix prefixes environment variables overriding settings, e.g. EXTPKG_LOG_LEVEL.
	EnvPrefix = "EXTPKG"

	// DefaultLogLevel is used when no level is configured.
	DefaultLogLevel = "info"

	// DefaultSaveDelay coalesces bursts of edits into one write.
	DefaultSaveDelay = 500 * time.Millisecond

	// DefaultFTPTimeout is the default duration for remote transport operations.
	DefaultFTPTimeout = 30 * time.Second

	// DefaultSigningPolicy signs only unsigned artifacts.
	DefaultSigningPolicy = "missing"

	// DefaultFilePermissions is the default file permission for settings and secrets.
	DefaultFilePermissions = 0o600

	// DefaultDistFilePermissions is used for files inside the distribution root.
	DefaultDistFilePermissions = 0o644

	// DefaultDirPermissions is used for every directory the packager creates.
	DefaultDirPermissions = 0o755
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errUnknownLogLevel is returned for a log level zap does not know.
	errUnknownLogLevel = errors.New("unknown log level")
	// errNegativeDuration is returned when a duration setting is negative.
	errNegativeDuration = errors.New("duration must not be negative")
)

// Default returns settings populated with defaults.
func Default() *Config {
	return &Config{
		LogLevel:      DefaultLogLevel,
		SaveDelay:     DefaultSaveDelay,
		FTPTimeout:    DefaultFTPTimeout,
		SigningPolicy: DefaultSigningPolicy,
	}
}

// Load reads settings from the provided path, applies EXTPKG_* environment overrides and
// validates the result. A missing file is not an error: defaults are returned instead.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	v := viper.New()
	v.SetConfigFile(filepath.Clean(path))
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	defaults := Default()
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("save_delay", defaults.SaveDelay)
	v.SetDefault("ftp_timeout", defaults.FTPTimeout)
	v.SetDefault("signing_policy", defaults.SigningPolicy)
	v.SetDefault("last_project", "")

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings and fills empty fields with defaults.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if strings.TrimSpace(cfg.LogLevel) == "" {
		cfg.LogLevel = DefaultLogLevel
	}

	if _, ok := logger.ParseLogLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("%w: %q", errUnknownLogLevel, cfg.LogLevel)
	}

	if cfg.SaveDelay < 0 || cfg.FTPTimeout < 0 {
		return errNegativeDuration
	}

	if cfg.SaveDelay == 0 {
		cfg.SaveDelay = DefaultSaveDelay
	}

	if cfg.FTPTimeout == 0 {
		cfg.FTPTimeout = DefaultFTPTimeout
	}

	if strings.TrimSpace(cfg.SigningPolicy) == "" {
		cfg.SigningPolicy = DefaultSigningPolicy
	}

	return nil
}
