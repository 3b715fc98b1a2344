package setup

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	DefaultAPIURL       = "https://api.ionicjs.com"
	DefaultPollInterval = 5 * time.Second

	envPrefix    = "CLOUDBUILD"
	settingsFile = "config.yaml"
)

// ConfigDir holds the settings file. It follows the platform user config directory.
var ConfigDir = defaultConfigDir()

// Settings are the persisted defaults of the build command.
type Settings struct {
	APIURL       string        `mapstructure:"api_url"`
	Token        string        `mapstructure:"token"`
	AppID        string        `mapstructure:"app_id"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// settingsDocument is the on-disk shape written by Save.
type settingsDocument struct {
	APIURL       string `yaml:"api_url,omitempty"`
	Token        string `yaml:"token,omitempty"`
	AppID        string `yaml:"app_id,omitempty"`
	PollInterval string `yaml:"poll_interval,omitempty"`
}

// ConfigPath returns the default settings file location.
func ConfigPath() string {
	return filepath.Join(ConfigDir, settingsFile)
}

// Load reads the settings file at path, if present, and applies CLOUDBUILD_*
// environment overrides on top of the defaults. An empty path means ConfigPath().
func Load(path string) (Settings, error) {
	if path == "" {
		path = ConfigPath()
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range []string{"api_url", "token", "app_id", "poll_interval"} {
		if err := v.BindEnv(key); err != nil {
			return Settings{}, fmt.Errorf("bind %s: %w", key, err)
		}
	}
	v.SetDefault("api_url", DefaultAPIURL)
	v.SetDefault("poll_interval", DefaultPollInterval.String())

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, fmt.Errorf("read settings %s: %w", path, err)
		}
		getLogger().Debug("settings loaded", "path", path)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return Settings{}, fmt.Errorf("stat settings %s: %w", path, err)
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	if settings.PollInterval <= 0 {
		return Settings{}, fmt.Errorf("poll_interval must be positive, got %s", settings.PollInterval)
	}
	settings.APIURL = strings.TrimSpace(settings.APIURL)
	settings.Token = strings.TrimSpace(settings.Token)
	settings.AppID = strings.TrimSpace(settings.AppID)
	return settings, nil
}

// Save writes settings to path with owner-only permissions. An empty path
// means ConfigPath().
func Save(path string, settings Settings) error {
	if path == "" {
		path = ConfigPath()
	}

	doc := settingsDocument{
		APIURL: settings.APIURL,
		Token:  settings.Token,
		AppID:  settings.AppID,
	}
	if settings.PollInterval > 0 {
		doc.PollInterval = settings.PollInterval.String()
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write settings %s: %w", path, err)
	}

	getLogger().Info("settings saved", "path", path)
	return nil
}

// Verify reports whether settings carry what the build command needs.
func Verify(settings Settings) error {
	if settings.Token == "" {
		return fmt.Errorf("no API token configured (set %s_TOKEN or run 'cloudbuild setup --token <token>')", envPrefix)
	}
	return nil
}

// ClearConfig removes the settings file at path. A missing file is not an error.
func ClearConfig(path string) error {
	if path == "" {
		path = ConfigPath()
	}
	getLogger().Info("clearing settings", "path", path)

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}

func defaultConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", ".cloudbuild")
	}
	return filepath.Join(dir, "cloudbuild")
}
