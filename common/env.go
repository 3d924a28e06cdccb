// Package common holds names shared by the zoomauto binary and its packages.
package common

// EnvPrefix is prepended to every setting read from the environment.
const EnvPrefix = "ZOOMAUTO"

// Environment variable names for configuration.
const (
	// DataDirEnv overrides the directory holding schedules, logs and the PID file.
	DataDirEnv = "ZOOMAUTO_DATA_DIR"

	// DebugEnv enables debug logging.
	DebugEnv = "ZOOMAUTO_DEBUG"

	// JoinBaseURLEnv is the base URL a bare meeting ID is appended to.
	JoinBaseURLEnv = "ZOOMAUTO_JOIN_BASE_URL"

	// MisfireGraceEnv bounds how late an occurrence may still fire.
	MisfireGraceEnv = "ZOOMAUTO_MISFIRE_GRACE"

	// HTTPTimeoutEnv bounds each release metadata request.
	HTTPTimeoutEnv = "ZOOMAUTO_HTTP_TIMEOUT"

	// DownloadTimeoutEnv aborts an update download idle for this long.
	DownloadTimeoutEnv = "ZOOMAUTO_DOWNLOAD_TIMEOUT"

	// GitHubAPIEnv overrides the release provider endpoint.
	GitHubAPIEnv = "ZOOMAUTO_GITHUB_API"
)

// File names inside the data directory.
const (
	ScheduleFileName = "schedules.json"
	LogFileName      = "zoomauto.log"
	PidFileName      = "daemon.pid"
	DotEnvFileName   = ".env"
)
