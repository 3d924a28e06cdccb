package update

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/spf13/afero"
)

// ConfigFileName is looked up next to the executable, then in the data
// directory.
const ConfigFileName = "update_config.json"

// PlaceholderRepo is the repo value shipped in templates. It disables updates.
const PlaceholderRepo = "owner/repo"

// Config controls where releases come from and how they are checked.
type Config struct {
	Provider           string `json:"provider"`
	Repo               string `json:"repo"`
	AssetRegex         string `json:"asset_regex"`
	RequireSHA256      bool   `json:"require_sha256"`
	CheckOnStartup     bool   `json:"check_on_startup"`
	CheckIntervalHours int    `json:"check_interval_hours"`
}

// DefaultAssetRegex matches release assets built for this platform.
func DefaultAssetRegex() string {
	return fmt.Sprintf(`^zoomauto[-_]%s[-_]%s(\.exe)?$`, runtime.GOOS, runtime.GOARCH)
}

// DefaultConfig is used when no config file exists.
func DefaultConfig() Config {
	return Config{
		Provider:           "github",
		Repo:               PlaceholderRepo,
		AssetRegex:         DefaultAssetRegex(),
		RequireSHA256:      true,
		CheckOnStartup:     true,
		CheckIntervalHours: 24,
	}
}

// Enabled reports whether the config names a real repository on a
// supported provider.
func (c Config) Enabled() bool {
	repo := strings.TrimSpace(c.Repo)
	return c.Provider == "github" && repo != "" && repo != PlaceholderRepo
}

func (c Config) assetPattern() (*regexp.Regexp, error) {
	expr := c.AssetRegex
	if expr == "" {
		expr = DefaultAssetRegex()
	}
	return regexp.Compile(expr)
}

// LoadConfig reads the first config file found in dirs. Fields missing from
// the file keep their defaults. The returned path is empty when defaults
// were used.
func LoadConfig(fs afero.Fs, dirs ...string) (Config, string, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		path := filepath.Join(dir, ConfigFileName)
		data, err := afero.ReadFile(fs, path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return DefaultConfig(), "", fmt.Errorf("read %s: %w", path, err)
		}
		cfg := DefaultConfig()
		if err := json.Unmarshal(data, &cfg); err != nil {
			return DefaultConfig(), path, fmt.Errorf("parse %s: %w", path, err)
		}
		if cfg.CheckIntervalHours <= 0 {
			cfg.CheckIntervalHours = 24
		}
		return cfg, path, nil
	}
	return DefaultConfig(), "", nil
}
