package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: 127.0.0.1
  port: 9000
timezone: Asia/Shanghai
data_dir: /var/lib/money
worth:
  use_cache: false
notifiers:
  feishu:
    url: https://open.feishu.cn/open-apis/bot/v2/hook/abc
  serverchan:
    key: SCTKEY
jobs:
  fund_worth:
    - "*/5 9-15 * * MON-FRI"
  broadcast:
    - "*/1 * * * *"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	if cfg.Worth.UseCache {
		t.Error("use_cache should be false")
	}
	if cfg.Notifiers.Feishu.URL == "" || cfg.Notifiers.ServerChan.Key != "SCTKEY" {
		t.Error("notifier settings not loaded")
	}
	if len(cfg.Jobs.FundWorth) != 1 || len(cfg.Jobs.Broadcast) != 1 {
		t.Error("job cron lists not loaded")
	}
}

func TestLoadExpandsEnvPlaceholders(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
notifiers:
  serverchan:
    key: ${TEST_CHAN_KEY}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TEST_CHAN_KEY", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Notifiers.ServerChan.Key != "from-env" {
		t.Errorf("expected env expansion, got %q", cfg.Notifiers.ServerChan.Key)
	}
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must validate, got %v", err)
	}

	bad := Defaults()
	bad.Server.Port = 0
	if err := bad.Validate(); err == nil {
		t.Error("expected error for invalid port")
	}

	bad = Defaults()
	bad.Timezone = "Mars/Olympus"
	if err := bad.Validate(); err == nil {
		t.Error("expected error for unknown timezone")
	}

	bad = Defaults()
	bad.Archive.Enabled = true
	bad.Archive.Type = "localfs"
	bad.Archive.Path = ""
	if err := bad.Validate(); err == nil {
		t.Error("expected error for archive without path")
	}
}

func TestLocationDefaultsToLocal(t *testing.T) {
	cfg := &Config{}
	loc, err := cfg.Location()
	if err != nil {
		t.Fatal(err)
	}
	if loc == nil {
		t.Fatal("expected a location")
	}
}
