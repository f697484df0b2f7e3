package config

const (
	defaultAPIBaseURL             = "http://127.0.0.1:8000"
	defaultAPIRequestTimeout      = 15
	defaultPollIntervalMillis     = 5000
	defaultStreamRetryMillis      = 3000
	defaultSubtitleBufferSize     = 5
	defaultSubtitleReconnectDelay = 5000
	defaultNotifyRequestTimeout   = 10
	defaultNotifyDedupWindow      = 60
	defaultCacheDir               = "~/.cache/plenum"
	defaultLogDir                 = "~/.local/share/plenum/logs"
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		API: API{
			BaseURL:        defaultAPIBaseURL,
			RequestTimeout: defaultAPIRequestTimeout,
		},
		Watch: Watch{
			PollInterval:     defaultPollIntervalMillis,
			StreamRetryDelay: defaultStreamRetryMillis,
		},
		Subtitles: Subtitles{
			BufferSize:     defaultSubtitleBufferSize,
			ReconnectDelay: defaultSubtitleReconnectDelay,
		},
		Notifications: Notifications{
			RequestTimeout:     defaultNotifyRequestTimeout,
			OnAir:              true,
			Errors:             true,
			DedupWindowSeconds: defaultNotifyDedupWindow,
		},
		Cache: Cache{
			Enabled: true,
			Dir:     defaultCacheDir,
		},
		Paths: Paths{
			LogDir: defaultLogDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
