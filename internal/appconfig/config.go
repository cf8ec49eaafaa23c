package appconfig

import (
	"os"
	"path/filepath"
	"time"

	"pkt.systems/webchat/schema"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int               `mapstructure:"config_version" yaml:"config_version" toml:"config_version"`
	StateDir      string            `mapstructure:"state_dir" yaml:"state_dir" toml:"state_dir"`
	Coordinator   CoordinatorConfig `mapstructure:"coordinator" yaml:"coordinator" toml:"coordinator"`
	Store         StoreConfig       `mapstructure:"store" yaml:"store" toml:"store"`
	HTTP          HTTPConfig        `mapstructure:"http" yaml:"http" toml:"http"`
	Shell         ShellConfig       `mapstructure:"shell" yaml:"shell" toml:"shell"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// Store backends.
const (
	StoreBackendFile   = "file"
	StoreBackendSQLite = "sqlite"
)

// CoordinatorConfig tunes delivery timing.
type CoordinatorConfig struct {
	OpenTimeoutMS     int `mapstructure:"open_timeout_ms" yaml:"open_timeout_ms" toml:"open_timeout_ms"`
	// DebounceMS of zero selects the default window; a negative value disables debouncing.
	DebounceMS        int `mapstructure:"debounce_ms" yaml:"debounce_ms" toml:"debounce_ms"`
	DeliveredIDMemory int `mapstructure:"delivered_id_memory" yaml:"delivered_id_memory" toml:"delivered_id_memory"`
}

// StoreConfig selects the key-value backend for tools and settings.
type StoreConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend" toml:"backend"`
	Path    string `mapstructure:"path" yaml:"path" toml:"path"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Addr                      string `mapstructure:"addr" yaml:"addr" toml:"addr"`
	BaseURL                   string `mapstructure:"base_url" yaml:"base_url" toml:"base_url"`
	BasePath                  string `mapstructure:"base_path" yaml:"base_path" toml:"base_path"`
	AuthToken                 string `mapstructure:"auth_token" yaml:"auth_token" toml:"auth_token"`
	HistorySize               int    `mapstructure:"history_size" yaml:"history_size" toml:"history_size"`
	CloseOnConsumerDisconnect bool   `mapstructure:"close_on_consumer_disconnect" yaml:"close_on_consumer_disconnect" toml:"close_on_consumer_disconnect"`
}

// ShellConfig controls the optional browser-driven host shell.
type ShellConfig struct {
	Browser    bool   `mapstructure:"browser" yaml:"browser" toml:"browser"`
	PanelURL   string `mapstructure:"panel_url" yaml:"panel_url" toml:"panel_url"`
	Headless   bool   `mapstructure:"headless" yaml:"headless" toml:"headless"`
	ChromePath string `mapstructure:"chrome_path" yaml:"chrome_path" toml:"chrome_path"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, err
	}
	stateDir := filepath.Join(home, ".webchat", "state")
	return Config{
		ConfigVersion: CurrentConfigVersion,
		StateDir:      stateDir,
		Coordinator: CoordinatorConfig{
			OpenTimeoutMS:     int(schema.DefaultOpenTimeout / time.Millisecond),
			DebounceMS:        int(schema.DefaultDebounceWindow / time.Millisecond),
			DeliveredIDMemory: schema.DefaultDeliveredIDMemory,
		},
		Store: StoreConfig{
			Backend: StoreBackendFile,
			Path:    filepath.Join(stateDir, "kv"),
		},
		HTTP: HTTPConfig{
			Addr:                      "127.0.0.1:27490",
			BaseURL:                   "",
			BasePath:                  "",
			AuthToken:                 "",
			HistorySize:               1000,
			CloseOnConsumerDisconnect: true,
		},
		Shell: ShellConfig{
			Browser:    false,
			PanelURL:   "",
			Headless:   false,
			ChromePath: "",
		},
	}, nil
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".webchat", "config.yaml"), nil
}

// CoordinatorSettings converts the millisecond knobs into a coordinator config.
func (c Config) CoordinatorSettings() schema.CoordinatorConfig {
	return schema.CoordinatorConfig{
		OpenTimeout:       time.Duration(c.Coordinator.OpenTimeoutMS) * time.Millisecond,
		DebounceWindow:    time.Duration(c.Coordinator.DebounceMS) * time.Millisecond,
		DeliveredIDMemory: c.Coordinator.DeliveredIDMemory,
	}
}
