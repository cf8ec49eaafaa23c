package appconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pkt.systems/webchat/schema"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Addr != "127.0.0.1:27490" {
		t.Fatalf("expected default addr, got %q", cfg.HTTP.Addr)
	}
	if cfg.Coordinator.OpenTimeoutMS != 800 {
		t.Fatalf("expected default open timeout, got %d", cfg.Coordinator.OpenTimeoutMS)
	}
}

func TestLoadOverridesValues(t *testing.T) {
	path := writeConfig(t, `
config_version: 1
coordinator:
  open_timeout_ms: 1500
  debounce_ms: 250
store:
  backend: sqlite
  path: /tmp/webchat.db
http:
  addr: 127.0.0.1:9999
  history_size: 10
shell:
  browser: true
  headless: true
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Coordinator.OpenTimeoutMS != 1500 || cfg.Coordinator.DebounceMS != 250 {
		t.Fatalf("unexpected coordinator config %+v", cfg.Coordinator)
	}
	if cfg.Coordinator.DeliveredIDMemory != 256 {
		t.Fatalf("expected default id memory to survive partial override, got %d", cfg.Coordinator.DeliveredIDMemory)
	}
	if cfg.Store.Backend != StoreBackendSQLite || cfg.Store.Path != "/tmp/webchat.db" {
		t.Fatalf("unexpected store config %+v", cfg.Store)
	}
	if cfg.HTTP.Addr != "127.0.0.1:9999" || cfg.HTTP.HistorySize != 10 {
		t.Fatalf("unexpected http config %+v", cfg.HTTP)
	}
	if !cfg.HTTP.CloseOnConsumerDisconnect {
		t.Fatalf("expected default close_on_consumer_disconnect")
	}
	if !cfg.Shell.Browser || !cfg.Shell.Headless {
		t.Fatalf("unexpected shell config %+v", cfg.Shell)
	}
}

func TestLoadRejectsUnsupportedConfigVersion(t *testing.T) {
	path := writeConfig(t, `
config_version: 3
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "unsupported config_version") {
		t.Fatalf("expected config_version error, got %v", err)
	}
}

func TestLoadRejectsUnsupportedStoreBackend(t *testing.T) {
	path := writeConfig(t, `
config_version: 1
store:
  backend: redis
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "unsupported store.backend") {
		t.Fatalf("expected backend error, got %v", err)
	}
}

func TestLoadRejectsNonPositiveOpenTimeout(t *testing.T) {
	path := writeConfig(t, `
config_version: 1
coordinator:
  open_timeout_ms: 0
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "coordinator.open_timeout_ms") {
		t.Fatalf("expected open timeout error, got %v", err)
	}
}

func TestLoadNegativeDebounceDisablesDebounce(t *testing.T) {
	path := writeConfig(t, `
config_version: 1
coordinator:
  debounce_ms: -1
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	settings, err := schema.NormalizeCoordinatorConfig(cfg.CoordinatorSettings())
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if settings.DebounceWindow >= 0 {
		t.Fatalf("expected debounce to stay disabled, got %v", settings.DebounceWindow)
	}
}

func TestLoadRejectsInvalidHTTPBaseURL(t *testing.T) {
	path := writeConfig(t, `
config_version: 1
http:
  base_url: example.com
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "http.base_url") {
		t.Fatalf("expected base_url error, got %v", err)
	}
}

func TestLoadExpandsStorePath(t *testing.T) {
	t.Setenv("WEBCHAT_TEST_DIR", "/srv/webchat")
	path := writeConfig(t, `
config_version: 1
store:
  path: $WEBCHAT_TEST_DIR/kv
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store.Path != "/srv/webchat/kv" {
		t.Fatalf("expected expanded path, got %q", cfg.Store.Path)
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("FOO", "bar")
	value := expandEnv("$FOO/$UID/$GID/$MISSING")
	if !strings.HasPrefix(value, "bar/") {
		t.Fatalf("expected env expansion, got %q", value)
	}
	if strings.Contains(value, "$UID") || strings.Contains(value, "$GID") {
		t.Fatalf("expected UID/GID expansion, got %q", value)
	}
	if !strings.HasSuffix(value, "/$MISSING") {
		t.Fatalf("expected missing vars to remain, got %q", value)
	}
}

func TestWriteDefaultRespectsOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	written, err := WriteDefault(path, false)
	if err != nil {
		t.Fatalf("write default: %v", err)
	}
	if written != path {
		t.Fatalf("expected path %q, got %q", path, written)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config to exist: %v", err)
	}
	if _, err := WriteDefault(path, false); err == nil {
		t.Fatalf("expected error when config exists")
	}
	if _, err := WriteDefault(path, true); err != nil {
		t.Fatalf("expected overwrite to succeed: %v", err)
	}
	if _, err := Load(path); err != nil {
		t.Fatalf("expected written default to load: %v", err)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(strings.TrimSpace(content)+"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestWriteDefaultTOMLRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if _, err := WriteDefault(path, false); err != nil {
		t.Fatalf("write default: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "[coordinator]") || !strings.Contains(string(data), "open_timeout_ms = 800") {
		t.Fatalf("expected toml output, got:\n%s", data)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load toml: %v", err)
	}
	if cfg.Coordinator.OpenTimeoutMS != 800 || cfg.HTTP.Addr != "127.0.0.1:27490" {
		t.Fatalf("unexpected toml config %+v", cfg)
	}
}

func TestLoadTOMLOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "config_version = 1\n\n[http]\naddr = \"127.0.0.1:8088\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Addr != "127.0.0.1:8088" {
		t.Fatalf("expected toml override, got %q", cfg.HTTP.Addr)
	}
}
