// Package config loads and validates the checklinks configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/checklinks/internal/foundation/errors"
)

// DefaultFileName is looked up in the working directory when no path is given.
const DefaultFileName = "checklinks.yaml"

// xdgRelPath is the config location under $XDG_CONFIG_HOME.
const xdgRelPath = "checklinks/config.yaml"

// Config represents the application configuration.
type Config struct {
	Check   CheckConfig   `yaml:"check"`
	Files   FilesConfig   `yaml:"files"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
	Notify  NotifyConfig  `yaml:"notify"`
	History HistoryConfig `yaml:"history"`
	Monitor MonitorConfig `yaml:"monitor"`
}

// CheckConfig tunes link validation.
type CheckConfig struct {
	Concurrency         int              `yaml:"concurrency"`
	PerHostInterval     time.Duration    `yaml:"per_host_interval"`
	RequestTimeout      time.Duration    `yaml:"request_timeout"`
	MaxRetries          int              `yaml:"max_retries"`
	MaxRedirects        int              `yaml:"max_redirects"`
	RunTimeout          time.Duration    `yaml:"run_timeout"` // 0 disables the run deadline
	RetryBackoff        RetryBackoffMode `yaml:"retry_backoff"`
	RetryInitialDelay   time.Duration    `yaml:"retry_initial_delay"`
	RetryMaxDelay       time.Duration    `yaml:"retry_max_delay"`
	FollowLocalAnchors  bool             `yaml:"follow_local_anchors"`
	StrictFragments     bool             `yaml:"strict_fragments"`
	AcceptedStatusCodes []int            `yaml:"accepted_status_codes"`
	SkipPatterns        []string         `yaml:"skip_patterns"`
	UserAgent           string           `yaml:"user_agent"`
	MaxBodyBytes        int64            `yaml:"max_body_bytes"`
	Root                string           `yaml:"root"` // Docs root for "/abs" links; empty means the working directory
}

// FilesConfig selects the files to scan.
type FilesConfig struct {
	Include          []string `yaml:"include"` // Empty means every recognized extension
	Exclude          []string `yaml:"exclude"`
	RespectGitignore bool     `yaml:"respect_gitignore"`
	Hidden           bool     `yaml:"hidden"`
	MaxDepth         int      `yaml:"max_depth"` // 1 is files directly under a root, 0 is unlimited
}

// OutputConfig selects the report renderer and destination.
type OutputConfig struct {
	Format OutputFormat `yaml:"format"`
	File   string       `yaml:"file"` // Empty writes to stdout
	Color  ColorMode    `yaml:"color"`
	Quiet  bool         `yaml:"quiet"` // Only list broken links and warnings
}

// LoggingConfig sets the baseline log level and handler format.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// NotifyConfig enables broken-link events on NATS.
type NotifyConfig struct {
	NATSURL string `yaml:"nats_url"` // Empty disables publishing
	Subject string `yaml:"subject"`
	Stream  string `yaml:"stream"` // Publish through this JetStream stream when set
}

// HistoryConfig enables the SQLite run history.
type HistoryConfig struct {
	Path string `yaml:"path"` // Empty disables history outside monitor mode
}

// MonitorConfig tunes scheduled checks.
type MonitorConfig struct {
	Interval    time.Duration `yaml:"interval"`
	MetricsAddr string        `yaml:"metrics_addr"`
}

// Defaults returns a configuration with every default applied.
func Defaults() *Config {
	return &Config{
		Check: CheckConfig{
			Concurrency:         16,
			PerHostInterval:     100 * time.Millisecond,
			RequestTimeout:      10 * time.Second,
			MaxRetries:          2,
			MaxRedirects:        5,
			RunTimeout:          5 * time.Minute,
			RetryBackoff:        RetryBackoffExponential,
			RetryInitialDelay:   500 * time.Millisecond,
			RetryMaxDelay:       10 * time.Second,
			FollowLocalAnchors:  true,
			AcceptedStatusCodes: []int{},
			SkipPatterns:        []string{},
			UserAgent:           "checklinks/1.0 (+https://git.home.luguber.info/inful/checklinks)",
			MaxBodyBytes:        5 << 20,
		},
		Files: FilesConfig{
			Include:          []string{},
			Exclude:          []string{},
			RespectGitignore: true,
		},
		Output: OutputConfig{
			Format: OutputText,
			Color:  ColorAuto,
		},
		Logging: LoggingConfig{
			Level:  LogLevelWarn,
			Format: LogFormatText,
		},
		Notify: NotifyConfig{
			Subject: "checklinks.links.broken",
		},
		Monitor: MonitorConfig{
			Interval:    time.Hour,
			MetricsAddr: ":9464",
		},
	}
}

// FindFile returns the configuration file to load. An explicit path must
// exist. Otherwise ./checklinks.yaml and the XDG config file are tried in
// order; "" means none was found and defaults apply.
func FindFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", ferrors.WrapError(err, ferrors.CategoryNotFound, "configuration file not found").
				WithContext("path", explicit).
				Fatal().
				Build()
		}
		return explicit, nil
	}
	if _, err := os.Stat(DefaultFileName); err == nil {
		return DefaultFileName, nil
	}
	if p, err := xdg.SearchConfigFile(xdgRelPath); err == nil {
		return p, nil
	}
	return "", nil
}

// Load reads the configuration at path (see FindFile for the search order)
// on top of Defaults, expanding ${VAR} references after loading .env files.
// It returns the path actually used, "" when running on defaults.
func Load(path string) (*Config, string, error) {
	loadEnvFiles()

	found, err := FindFile(path)
	if err != nil {
		return nil, "", err
	}

	cfg := Defaults()
	if found != "" {
		data, err := os.ReadFile(found)
		if err != nil {
			return nil, found, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to read config file").
				WithContext("path", found).
				Fatal().
				Build()
		}
		if err := Parse(data, cfg); err != nil {
			return nil, found, err
		}
	}

	if err := cfg.Normalize(); err != nil {
		return nil, found, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, found, err
	}
	return cfg, found, nil
}

// Parse expands environment variables in data and decodes it onto cfg.
// Keys absent from data keep their current values.
func Parse(data []byte, cfg *Config) error {
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryConfig, "failed to parse config").Fatal().Build()
	}
	return nil
}

// loadEnvFiles loads .env and .env.local when present. Variables already set
// in the environment win.
func loadEnvFiles() {
	for _, name := range []string{".env", ".env.local"} {
		if _, err := os.Stat(name); err != nil {
			continue
		}
		_ = godotenv.Load(name)
	}
}

// DefaultHistoryPath is where monitor mode keeps run history when
// history.path is unset.
func DefaultHistoryPath() (string, error) {
	p, err := xdg.DataFile("checklinks/history.db")
	if err != nil {
		return "", fmt.Errorf("resolve history path: %w", err)
	}
	return p, nil
}

// DefaultLockPath is the monitor's single-instance lock file.
func DefaultLockPath() (string, error) {
	p, err := xdg.StateFile("checklinks/monitor.lock")
	if err != nil {
		return "", fmt.Errorf("resolve lock path: %w", err)
	}
	return p, nil
}

// Init writes the sample configuration to path. An existing file is only
// replaced when force is set.
func Init(path string, force bool) error {
	if path == "" {
		path = DefaultFileName
	}
	if _, err := os.Stat(path); err == nil && !force {
		return ferrors.ConfigError("configuration file already exists (use --force to overwrite)").
			WithContext("path", path).
			Build()
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to stat config file").Build()
	}

	if err := os.WriteFile(path, []byte(SampleConfig), 0o644); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to write config file").
			WithContext("path", path).
			Build()
	}
	return nil
}
