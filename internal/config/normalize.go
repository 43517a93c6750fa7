package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDrive()
	c.normalizeEncoding()
	c.normalizeTools()
	c.normalizeLookup()
	c.normalizeTransfer()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.TempDir) == "" {
		c.Paths.TempDir = defaultTempDir()
	}
	if c.Paths.TempDir, err = expandPath(c.Paths.TempDir); err != nil {
		return fmt.Errorf("paths.temp_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.HistoryDB, err = expandPath(c.Paths.HistoryDB); err != nil {
		return fmt.Errorf("paths.history_db: %w", err)
	}
	if c.Paths.TitleCache, err = expandPath(c.Paths.TitleCache); err != nil {
		return fmt.Errorf("paths.title_cache: %w", err)
	}
	return nil
}

func (c *Config) normalizeDrive() {
	if value, ok := os.LookupEnv("CD2MD_DRIVE"); ok && strings.TrimSpace(value) != "" {
		c.Drive.Device = value
	}
	c.Drive.Device = strings.TrimSpace(c.Drive.Device)
	if c.Drive.Device == "" {
		c.Drive.Device = defaultDevice
	}
}

func (c *Config) normalizeEncoding() {
	c.Encoding.TransferMode = strings.ToLower(strings.TrimSpace(c.Encoding.TransferMode))
	if c.Encoding.TransferMode == "" {
		c.Encoding.TransferMode = ModeSP
	}
	c.Encoding.ExternalMode = strings.ToLower(strings.TrimSpace(c.Encoding.ExternalMode))
	switch c.Encoding.ExternalMode {
	case "", "none", "off", "false":
		c.Encoding.ExternalMode = ModeNone
	}
}

func (c *Config) normalizeTools() {
	c.Tools.EncoderBinary = strings.TrimSpace(c.Tools.EncoderBinary)
	if c.Tools.EncoderBinary == "" {
		c.Tools.EncoderBinary = defaultEncoderBinary
	}
	c.Tools.TransferBinary = strings.TrimSpace(c.Tools.TransferBinary)
	if c.Tools.TransferBinary == "" {
		c.Tools.TransferBinary = defaultTransferBinary
	}
}

func (c *Config) normalizeLookup() {
	c.Lookup.BaseURL = strings.TrimRight(strings.TrimSpace(c.Lookup.BaseURL), "/")
	if c.Lookup.BaseURL == "" {
		c.Lookup.BaseURL = defaultLookupBaseURL
	}
	c.Lookup.Hello = strings.TrimSpace(c.Lookup.Hello)
	if c.Lookup.Hello == "" {
		c.Lookup.Hello = defaultLookupHello
	}
}

func (c *Config) normalizeTransfer() {
	c.Transfer.ErasePolicy = strings.ToLower(strings.TrimSpace(c.Transfer.ErasePolicy))
	if c.Transfer.ErasePolicy == "" {
		c.Transfer.ErasePolicy = ErasePolicyAsk
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
