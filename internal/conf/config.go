// config.go: settings struct and functions to load and save the settings.
package conf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// MainSettings contains application-wide settings.
type MainSettings struct {
	Name string // client identifier used on the live feed and in logs
	Log  struct {
		Enabled bool
		Path    string
	}
}

// DatabaseSettings controls the single-file spatial store.
type DatabaseSettings struct {
	Path         string // path to the SQLite database file
	SpatialIndex struct {
		Enabled    bool    // false falls back to a full linear scan
		CellSizeLy float64 // grid cell edge length in light years
	}
}

// JournalSettings controls the local game-log tailer.
type JournalSettings struct {
	Path         string        // directory containing the session journals
	PollInterval time.Duration // how often the tailer checks for new bytes
}

// LiveFeedSettings controls the pub/sub feed listener.
type LiveFeedSettings struct {
	Enabled           bool
	Broker            string // message bus URL, e.g. tcp://relay.example.net:1883
	Topic             string
	ReconnectCooldown time.Duration
	ConnectTimeout    time.Duration
	SeenCacheSize     int // bounded duplicate-suppression cache
}

// ResolverSettings controls system coordinate resolution.
type ResolverSettings struct {
	RemoteURL  string        // lookup-by-name endpoint
	Timeout    time.Duration // per-request timeout
	CacheTTL   time.Duration // local coordinate cache freshness window
	MaxRetries int
}

// SearchSettings holds defaults for the hotspot search.
type SearchSettings struct {
	MaxDistanceLy float64
	ResultCap     int
}

// MetricsSettings controls the optional prometheus endpoint in realtime mode.
type MetricsSettings struct {
	Enabled bool
	Listen  string // host:port
}

// Settings is the root configuration structure.
type Settings struct {
	Debug bool

	Main     MainSettings
	Database DatabaseSettings
	Journal  JournalSettings
	LiveFeed LiveFeedSettings
	Resolver ResolverSettings
	Search   SearchSettings
	Metrics  MetricsSettings
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file, applies defaults and returns the
// validated settings. The result is also stored as the package singleton
// returned by Setting().
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// Setting returns the loaded settings singleton, or nil before Load.
func Setting() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// First run, write a config file with the defaults.
			return createDefaultConfig(configPaths[0])
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig writes the default configuration to the primary config path.
func createDefaultConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}
	configPath := filepath.Join(configDir, "config.yaml")
	if err := viper.SafeWriteConfigAs(configPath); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}
	return viper.ReadInConfig()
}

// GetDefaultConfigPaths returns the config search paths in priority order:
// current directory first, then the user config directory.
func GetDefaultConfigPaths() ([]string, error) {
	paths := []string{"."}
	if userDir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(userDir, "ringscout"))
	}
	return paths, nil
}
