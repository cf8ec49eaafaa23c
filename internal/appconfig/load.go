package appconfig

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Load reads configuration from the provided path. If path is empty, uses DefaultConfigPath.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType(configType(path))
	v.SetDefault("config_version", cfg.ConfigVersion)
	v.SetDefault("state_dir", cfg.StateDir)
	v.SetDefault("coordinator.open_timeout_ms", cfg.Coordinator.OpenTimeoutMS)
	v.SetDefault("coordinator.debounce_ms", cfg.Coordinator.DebounceMS)
	v.SetDefault("coordinator.delivered_id_memory", cfg.Coordinator.DeliveredIDMemory)
	v.SetDefault("store.backend", cfg.Store.Backend)
	v.SetDefault("store.path", cfg.Store.Path)
	v.SetDefault("http.addr", cfg.HTTP.Addr)
	v.SetDefault("http.base_url", cfg.HTTP.BaseURL)
	v.SetDefault("http.base_path", cfg.HTTP.BasePath)
	v.SetDefault("http.auth_token", cfg.HTTP.AuthToken)
	v.SetDefault("http.history_size", cfg.HTTP.HistorySize)
	v.SetDefault("http.close_on_consumer_disconnect", cfg.HTTP.CloseOnConsumerDisconnect)
	v.SetDefault("shell.browser", cfg.Shell.Browser)
	v.SetDefault("shell.panel_url", cfg.Shell.PanelURL)
	v.SetDefault("shell.headless", cfg.Shell.Headless)
	v.SetDefault("shell.chrome_path", cfg.Shell.ChromePath)

	configLoaded := false
	if err := v.ReadInConfig(); err != nil {
		if !isNotFound(err) {
			return Config{}, err
		}
	} else {
		configLoaded = true
	}

	if configLoaded {
		if !v.IsSet("config_version") {
			return Config{}, fmt.Errorf("config_version is required; expected %d", CurrentConfigVersion)
		}
		if v.GetInt("config_version") != CurrentConfigVersion {
			return Config{}, fmt.Errorf("unsupported config_version %d; expected %d", v.GetInt("config_version"), CurrentConfigVersion)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	expandConfigEnv(&cfg)
	if err := validateCoordinatorConfig(cfg.Coordinator); err != nil {
		return Config{}, err
	}
	if err := validateStoreConfig(cfg.Store); err != nil {
		return Config{}, err
	}
	if err := validateHTTPConfig(cfg.HTTP); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// isNotFound reports whether viper could not find the file. SetConfigFile
// surfaces a missing file as an fs error rather than ConfigFileNotFoundError.
func isNotFound(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return true
	}
	return errors.Is(err, os.ErrNotExist)
}

func validateCoordinatorConfig(cfg CoordinatorConfig) error {
	if cfg.OpenTimeoutMS <= 0 {
		return fmt.Errorf("coordinator.open_timeout_ms must be positive")
	}
	if cfg.DeliveredIDMemory < 0 {
		return fmt.Errorf("coordinator.delivered_id_memory must not be negative")
	}
	return nil
}

func validateStoreConfig(cfg StoreConfig) error {
	switch cfg.Backend {
	case StoreBackendFile, StoreBackendSQLite:
	default:
		return fmt.Errorf("unsupported store.backend %q", cfg.Backend)
	}
	if strings.TrimSpace(cfg.Path) == "" {
		return fmt.Errorf("store.path is required")
	}
	return nil
}

func validateHTTPConfig(cfg HTTPConfig) error {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL != "" {
		parsed, err := url.Parse(baseURL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("http.base_url must include scheme and host (e.g. http://127.0.0.1:27490)")
		}
	}
	basePath := strings.TrimSpace(cfg.BasePath)
	if basePath != "" {
		if strings.Contains(basePath, "://") {
			return fmt.Errorf("http.base_path must be a path prefix, not a URL")
		}
		if strings.ContainsAny(basePath, "?#") {
			return fmt.Errorf("http.base_path must not include query or fragment")
		}
	}
	if cfg.HistorySize < 0 {
		return fmt.Errorf("http.history_size must not be negative")
	}
	return nil
}

func expandConfigEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.StateDir = expandEnv(cfg.StateDir)
	cfg.Store.Path = expandEnv(cfg.Store.Path)
	cfg.HTTP.AuthToken = expandEnv(cfg.HTTP.AuthToken)
	cfg.Shell.ChromePath = expandEnv(cfg.Shell.ChromePath)
	cfg.Shell.PanelURL = expandEnv(cfg.Shell.PanelURL)
}

func expandEnv(value string) string {
	if value == "" {
		return value
	}
	return os.Expand(value, func(key string) string {
		if key == "" {
			return ""
		}
		if val, ok := lookupEnv(key); ok {
			return val
		}
		return "$" + key
	})
}

func lookupEnv(key string) (string, bool) {
	if val, ok := os.LookupEnv(key); ok {
		return val, true
	}
	switch key {
	case "UID":
		return fmt.Sprintf("%d", os.Getuid()), true
	case "GID":
		return fmt.Sprintf("%d", os.Getgid()), true
	}
	return "", false
}

// WriteDefault writes the default config to the target path.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return "", err
	}

	data, err := marshalConfig(path, cfg)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}

// configType picks the viper decoder from the file extension; yaml is the default.
func configType(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return "toml"
	}
	return "yaml"
}

func marshalConfig(path string, cfg Config) ([]byte, error) {
	if configType(path) == "toml" {
		return toml.Marshal(cfg)
	}
	return yaml.Marshal(cfg)
}
