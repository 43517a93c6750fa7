package config

import (
	"fmt"
	"sort"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateEncoding(); err != nil {
		return err
	}
	if err := c.validateTransfer(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := ensurePositiveMap(map[string]int{
		"drive.wait_timeout":        c.Drive.WaitTimeout,
		"lookup.timeout_seconds":    c.Lookup.TimeoutSeconds,
		"progress.poll_interval_ms": c.Progress.PollIntervalMS,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateEncoding() error {
	switch c.Encoding.TransferMode {
	case ModeSP, ModeLP2, ModeLP4:
	default:
		return fmt.Errorf("encoding.transfer_mode must be one of sp, lp2, lp4 (got %q)", c.Encoding.TransferMode)
	}
	switch c.Encoding.ExternalMode {
	case ModeNone, ModeLP2, ModeLP4:
	default:
		return fmt.Errorf("encoding.external_mode must be one of no, lp2, lp4 (got %q)", c.Encoding.ExternalMode)
	}
	return nil
}

func (c *Config) validateTransfer() error {
	switch c.Transfer.ErasePolicy {
	case ErasePolicyAsk, ErasePolicyAppend, ErasePolicyErase:
		return nil
	default:
		return fmt.Errorf("transfer.erase_policy must be one of ask, append, erase (got %q)", c.Transfer.ErasePolicy)
	}
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json (got %q)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error (got %q)", c.Logging.Level)
	}
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
