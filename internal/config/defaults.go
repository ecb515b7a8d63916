package config

const (
	defaultConfigPath             = "~/.config/videowatch/config.toml"
	defaultStateDir               = "~/.local/share/videowatch"
	defaultTempDir                = "~/.local/share/videowatch/tmp"
	defaultWatchMode              = WatchModeNative
	defaultPollIntervalSeconds    = 5
	defaultDedupCapacity          = 20
	defaultWorkerCount            = 1
	defaultWorkerQueueSize        = 64
	defaultFFmpegBinary           = "ffmpeg"
	defaultGifsicleBinary         = "gifsicle"
	defaultMP4BoxBinary           = "MP4Box"
	defaultSnapshotOffsetSeconds  = 10
	defaultTelegramCaption        = "Motion detected"
	defaultTelegramAPIEndpoint    = "https://api.telegram.org/bot%s/%s"
	defaultTelegramRequestTimeout = 120
	defaultDeliveryMaxAttempts    = 10
	defaultDeliveryRetryDelay     = 5
	defaultNotifyRequestTimeout   = 10
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultLogRetentionDays       = 30
	defaultStaleTempHours         = 24
	defaultHistoryFile            = "history.db"
	defaultLogDirName             = "logs"
	defaultAcceptedVideoExtension = ".mp4"
)

// Watch modes understood by the daemon.
const (
	WatchModeNative = "native"
	WatchModePoll   = "poll"
)

// Default returns a Config populated with repository defaults. The four
// video directories have no default except the temp directory; they must be
// configured explicitly.
func Default() Config {
	return Config{
		TempDir: defaultTempDir,
		Video: Video{
			Extensions: []string{defaultAcceptedVideoExtension},
		},
		Watch: Watch{
			Mode:                defaultWatchMode,
			PollIntervalSeconds: defaultPollIntervalSeconds,
		},
		Dedup: Dedup{
			Capacity: defaultDedupCapacity,
		},
		Workers: Workers{
			Count:     defaultWorkerCount,
			QueueSize: defaultWorkerQueueSize,
		},
		Tools: Tools{
			FFmpeg:                defaultFFmpegBinary,
			Gifsicle:              defaultGifsicleBinary,
			MP4Box:                defaultMP4BoxBinary,
			SnapshotOffsetSeconds: defaultSnapshotOffsetSeconds,
		},
		Telegram: Telegram{
			Caption:        defaultTelegramCaption,
			APIEndpoint:    defaultTelegramAPIEndpoint,
			RequestTimeout: defaultTelegramRequestTimeout,
		},
		Delivery: Delivery{
			MaxAttempts:       defaultDeliveryMaxAttempts,
			RetryDelaySeconds: defaultDeliveryRetryDelay,
		},
		Notifications: Notifications{
			RequestTimeout:   defaultNotifyRequestTimeout,
			JobFailures:      true,
			DeliveryFailures: true,
		},
		History: History{
			Enabled: true,
		},
		Paths: Paths{
			StateDir: defaultStateDir,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		Staging: Staging{
			StaleTempHours: defaultStaleTempHours,
		},
	}
}
