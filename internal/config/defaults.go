package config

const (
	defaultConfigPath     = "~/.config/slipclip/config.toml"
	defaultReplayDir      = "~/Slippi"
	defaultClipDir        = "~/.local/share/slipclip/clips"
	defaultLogDir         = "~/.local/share/slipclip/logs"
	defaultDatabaseName   = "clips.db"
	defaultTestFraction   = 0.1
	defaultLengthSeconds  = 30
	defaultMinGameSeconds = 60
	defaultBatchSize      = 32
	defaultRatio          = 1.0
	defaultAPIBind        = "127.0.0.1:7495"
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
)

// Default returns a Config populated with defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ReplayDir: defaultReplayDir,
			ClipDir:   defaultClipDir,
			LogDir:    defaultLogDir,
		},
		Store: Store{
			Backend:      BackendDirectory,
			TestFraction: defaultTestFraction,
		},
		Clips: Clips{
			LengthSeconds:  defaultLengthSeconds,
			MinGameSeconds: defaultMinGameSeconds,
		},
		Generator: Generator{
			BatchSize: defaultBatchSize,
			Shuffle:   true,
			Ratio:     defaultRatio,
			OneHot:    true,
		},
		API: API{
			Bind: defaultAPIBind,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
