package config

const (
	defaultDataDir   = "~/.local/share/thawmark"
	defaultLogDir    = "~/.local/share/thawmark/logs"
	defaultOutputDir = "~/.local/share/thawmark/labels"
	defaultAPIBind   = "127.0.0.1:7743"

	defaultStaleClaimTimeout = 120
	defaultSweepInterval     = 5

	defaultSimplifyTolerance = 1.5
	defaultMinAreaPixels     = 16

	defaultEngineTimeoutSeconds      = 60
	defaultEngineMaxRetries          = 3
	defaultEngineRetryBackoffSeconds = 2

	defaultTileProvider = "dir"

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			LogDir:    defaultLogDir,
			OutputDir: defaultOutputDir,
			APIBind:   defaultAPIBind,
		},
		Manifest: Manifest{
			StaleClaimTimeout: defaultStaleClaimTimeout,
			SweepInterval:     defaultSweepInterval,
		},
		Extractor: Extractor{
			SimplifyTolerance: defaultSimplifyTolerance,
			MinAreaPixels:     defaultMinAreaPixels,
		},
		Engine: Engine{
			TimeoutSeconds:      defaultEngineTimeoutSeconds,
			MaxRetries:          defaultEngineMaxRetries,
			RetryBackoffSeconds: defaultEngineRetryBackoffSeconds,
		},
		Tiles: Tiles{
			Provider: defaultTileProvider,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
