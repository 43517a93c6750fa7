package config

import (
	"os"
	"path/filepath"
)

// Encoding modes.
const (
	ModeSP   = "sp"
	ModeLP2  = "lp2"
	ModeLP4  = "lp4"
	ModeNone = "no"
)

// Erase policies applied when the MD already holds tracks.
const (
	ErasePolicyAsk    = "ask"
	ErasePolicyAppend = "append"
	ErasePolicyErase  = "erase"
)

const (
	defaultConfigPath     = "~/.config/cd2md/config.toml"
	defaultLogDir         = "~/.local/share/cd2md/logs"
	defaultHistoryDB      = "~/.local/share/cd2md/history.db"
	defaultTitleCache     = "~/.cache/cd2md/titles.json"
	defaultDevice         = "/dev/sr0"
	defaultWaitTimeout    = 120
	defaultEncoderBinary  = "atracdenc"
	defaultTransferBinary = "netmd-cli"
	defaultLookupBaseURL  = "https://gnudb.gnudb.org"
	defaultLookupHello    = "me@you.org+localhost+cd2md+0.1"
	defaultLookupTimeout  = 15
	defaultPollIntervalMS = 50
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			TempDir:    defaultTempDir(),
			LogDir:     defaultLogDir,
			HistoryDB:  defaultHistoryDB,
			TitleCache: defaultTitleCache,
		},
		Drive: Drive{
			Device:        defaultDevice,
			EjectWhenDone: true,
			WaitTimeout:   defaultWaitTimeout,
		},
		Encoding: Encoding{
			TransferMode: ModeSP,
			ExternalMode: ModeNone,
		},
		Tools: Tools{
			EncoderBinary:  defaultEncoderBinary,
			TransferBinary: defaultTransferBinary,
		},
		Lookup: Lookup{
			Enabled:        true,
			BaseURL:        defaultLookupBaseURL,
			Hello:          defaultLookupHello,
			TimeoutSeconds: defaultLookupTimeout,
			CacheEnabled:   true,
		},
		Transfer: Transfer{
			Group:       true,
			ErasePolicy: ErasePolicyAsk,
		},
		Progress: Progress{
			PollIntervalMS: defaultPollIntervalMS,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

func defaultTempDir() string {
	return filepath.Join(os.TempDir(), "cd2md")
}
