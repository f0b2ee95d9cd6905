package config

// Default returns the configuration used when no file overrides are present.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir:  "~/Videos/clipforge",
			LogDir:     "~/.local/state/clipforge/logs",
			HistoryDB:  "~/.local/state/clipforge/history.db",
			LockSuffix: ".lock",
		},
		Logging: Logging{
			Format: "console",
			Level:  "info",
		},
		Export: Export{
			ProgressUpdateFrames: 10,
			AudioChunkMs:         500,
			HistoryEnabled:       true,
			MinFreeSpaceMiB:      64,
		},
	}
}
