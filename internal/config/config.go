package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and file locations.
type Paths struct {
	TempDir    string `toml:"temp_dir"`
	LogDir     string `toml:"log_dir"`
	HistoryDB  string `toml:"history_db"`
	TitleCache string `toml:"title_cache"`
}

// Drive contains optical drive settings.
type Drive struct {
	Device        string `toml:"device"`
	EjectWhenDone bool   `toml:"eject_when_done"`
	WaitTimeout   int    `toml:"wait_timeout"` // seconds to wait for media with --wait
}

// Encoding selects the on-device transfer mode and the optional external
// ATRAC3 encoding that runs before the transfer.
type Encoding struct {
	TransferMode string `toml:"transfer_mode"` // sp, lp2, lp4
	ExternalMode string `toml:"external_mode"` // no, lp2, lp4
}

// Tools names the external executables.
type Tools struct {
	EncoderBinary  string `toml:"encoder_binary"`
	TransferBinary string `toml:"transfer_binary"`
	Verbose        bool   `toml:"verbose"`
}

// Lookup contains the CDDB title lookup settings.
type Lookup struct {
	Enabled        bool   `toml:"enabled"`
	BaseURL        string `toml:"base_url"`
	Hello          string `toml:"hello"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	CacheEnabled   bool   `toml:"cache_enabled"`
}

// Transfer contains MiniDisc layout settings.
type Transfer struct {
	Append      bool   `toml:"append"`
	Group       bool   `toml:"group"`
	ErasePolicy string `toml:"erase_policy"` // ask, append, erase
}

// Progress contains status line settings.
type Progress struct {
	PollIntervalMS int `toml:"poll_interval_ms"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Diagnostics keeps intermediate artifacts around for inspection.
type Diagnostics struct {
	KeepTemp bool `toml:"keep_temp"`
}

// Config encapsulates all configuration values for cd2md.
//
// Configuration sections by subsystem:
//   - Paths: temp, log, history and cache locations
//   - Drive: optical device and tray handling
//   - Encoding: NetMD transfer mode and external ATRAC3 encoding
//   - Tools: atracdenc / netmd-cli executables
//   - Lookup: gnudb.org CDDB title lookup
//   - Transfer: append/erase policy and LP grouping
//   - Progress: status line poll interval
//   - Logging: log format and level
//   - Diagnostics: keep temporary files
type Config struct {
	Paths       Paths       `toml:"paths"`
	Drive       Drive       `toml:"drive"`
	Encoding    Encoding    `toml:"encoding"`
	Tools       Tools       `toml:"tools"`
	Lookup      Lookup      `toml:"lookup"`
	Transfer    Transfer    `toml:"transfer"`
	Progress    Progress    `toml:"progress"`
	Logging     Logging     `toml:"logging"`
	Diagnostics Diagnostics `toml:"diagnostics"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("cd2md.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the temp and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.TempDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// IsLP reports whether either the transfer or the external encoding uses an
// MDLP mode.
func (c *Config) IsLP() bool {
	return c.Encoding.TransferMode != ModeSP || c.Encoding.ExternalMode != ModeNone
}

// ExternalEncoding reports whether tracks pass through the external encoder.
func (c *Config) ExternalEncoding() bool {
	return c.Encoding.ExternalMode != ModeNone
}

// PollInterval returns the progress poll interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Progress.PollIntervalMS) * time.Millisecond
}

// LookupTimeout returns the HTTP timeout for CDDB requests.
func (c *Config) LookupTimeout() time.Duration {
	return time.Duration(c.Lookup.TimeoutSeconds) * time.Second
}

// LockPath returns the path of the single-run drive lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.LogDir, "cd2md.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
