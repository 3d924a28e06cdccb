// Package config resolves runtime settings. Values come from the process
// environment, then from an optional .env file, then from defaults, and are
// validated once at startup.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/zoomauto/zoomauto/common"
)

// ErrorType classifies a ConfigError.
type ErrorType string

const (
	ErrParsing    ErrorType = "parsing"
	ErrValidation ErrorType = "validation"
	ErrDataDir    ErrorType = "data_dir"
)

// ConfigError reports which loading step failed.
type ConfigError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Settings are the resolved runtime settings. Each field reads
// ZOOMAUTO_<tag> from the environment.
type Settings struct {
	DataDir         string        `envconfig:"DATA_DIR"`
	Debug           bool          `envconfig:"DEBUG" default:"false"`
	JoinBaseURL     string        `envconfig:"JOIN_BASE_URL" default:"https://zoom.us/j/" validate:"required,url"`
	MisfireGrace    time.Duration `envconfig:"MISFIRE_GRACE" default:"2m"`
	HTTPTimeout     time.Duration `envconfig:"HTTP_TIMEOUT" default:"20s" validate:"gt=0"`
	DownloadTimeout time.Duration `envconfig:"DOWNLOAD_TIMEOUT" default:"60s" validate:"gt=0"`
	GitHubAPI       string        `envconfig:"GITHUB_API" default:"https://api.github.com" validate:"required,url"`
	LogMaxSizeMB    int           `envconfig:"LOG_MAX_SIZE_MB" default:"5" validate:"min=1,max=1024"`
}

// Load reads dotenv files (missing ones are skipped), processes the
// environment and validates the result. The data directory is created if
// needed.
func Load(dotenv ...string) (*Settings, error) {
	for _, f := range dotenv {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, &ConfigError{Type: ErrParsing, Message: "failed to read " + f, Err: err}
		}
	}

	var s Settings
	if err := envconfig.Process(common.EnvPrefix, &s); err != nil {
		return nil, &ConfigError{Type: ErrParsing, Message: "failed to process environment configuration", Err: err}
	}

	if err := validator.New().Struct(s); err != nil {
		return nil, &ConfigError{Type: ErrValidation, Message: "configuration validation failed", Err: err}
	}

	if s.DataDir == "" {
		dir, err := DefaultDataDir()
		if err != nil {
			return nil, &ConfigError{Type: ErrDataDir, Message: "cannot locate user config directory", Err: err}
		}
		s.DataDir = dir
	}
	abs, err := filepath.Abs(s.DataDir)
	if err != nil {
		return nil, &ConfigError{Type: ErrDataDir, Message: "invalid data directory", Err: err}
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, &ConfigError{Type: ErrDataDir, Message: "cannot create data directory", Err: err}
	}
	s.DataDir = abs
	return &s, nil
}

// DefaultDataDir is <user config dir>/zoomauto.
func DefaultDataDir() (string, error) {
	cdr, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cdr, "zoomauto"), nil
}

// DotEnvFiles lists the dotenv files Load should consult: the working
// directory first, then the data directory named by the environment.
func DotEnvFiles() []string {
	files := []string{common.DotEnvFileName}
	if dir := os.Getenv(common.DataDirEnv); dir != "" {
		files = append(files, filepath.Join(dir, common.DotEnvFileName))
	} else if dir, err := DefaultDataDir(); err == nil {
		files = append(files, filepath.Join(dir, common.DotEnvFileName))
	}
	return files
}

func (s *Settings) ScheduleFile() string { return filepath.Join(s.DataDir, common.ScheduleFileName) }
func (s *Settings) LogFile() string      { return filepath.Join(s.DataDir, common.LogFileName) }
func (s *Settings) PidFile() string      { return filepath.Join(s.DataDir, common.PidFileName) }

// UpdateDirs are searched in order for the update config file: the
// executable's directory, then the data directory.
func (s *Settings) UpdateDirs() []string {
	var dirs []string
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}
	return append(dirs, s.DataDir)
}
