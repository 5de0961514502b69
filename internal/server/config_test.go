package server

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig_Defaults(t *testing.T) {
	v, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if got := v.GetInt("server.port"); got != 5443 {
		t.Errorf("server.port = %d, want 5443", got)
	}
	if got := v.GetString("logging.level"); got != "info" {
		t.Errorf("logging.level = %q, want info", got)
	}
	if got := v.GetString("database.path"); got != "./data/fleetgate.db" {
		t.Errorf("database.path = %q, want ./data/fleetgate.db", got)
	}
	if !v.GetBool("extensions.cloudfoundry.enabled") {
		t.Error("extensions.cloudfoundry.enabled should default to true")
	}
	if !v.GetBool("extensions.probe.enabled") {
		t.Error("extensions.probe.enabled should default to true")
	}
	if got := v.GetString("tokens.passphrase"); got != "" {
		t.Errorf("tokens.passphrase = %q, want empty (must be supplied)", got)
	}
}

func TestLoadConfig_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fleetgate.yaml")
	content := []byte("server:\n  port: 9090\nlogging:\n  level: debug\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	v, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if got := v.GetInt("server.port"); got != 9090 {
		t.Errorf("server.port = %d, want 9090", got)
	}
	if got := v.GetString("logging.level"); got != "debug" {
		t.Errorf("logging.level = %q, want debug", got)
	}
	// Values not in the file keep their defaults.
	if got := v.GetString("logging.format"); got != "json" {
		t.Errorf("logging.format = %q, want json", got)
	}
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	if _, err := LoadConfig("/no/such/fleetgate.yaml"); err == nil {
		t.Error("expected error for explicitly named missing config file")
	}
}

func TestConfigAddr(t *testing.T) {
	c := &Config{Host: "127.0.0.1", Port: 5443}
	if got := c.Addr(); got != "127.0.0.1:5443" {
		t.Errorf("Addr() = %q, want 127.0.0.1:5443", got)
	}
}
