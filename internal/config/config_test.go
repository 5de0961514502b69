package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestViperConfig_Accessors(t *testing.T) {
	v := viper.New()
	v.Set("name", "fleetgate")
	v.Set("count", 3)
	v.Set("enabled", true)
	v.Set("interval", "90s")

	cfg := New(v)

	if got := cfg.GetString("name"); got != "fleetgate" {
		t.Errorf("GetString = %q, want fleetgate", got)
	}
	if got := cfg.GetInt("count"); got != 3 {
		t.Errorf("GetInt = %d, want 3", got)
	}
	if !cfg.GetBool("enabled") {
		t.Error("GetBool = false, want true")
	}
	if got := cfg.GetDuration("interval"); got != 90*time.Second {
		t.Errorf("GetDuration = %v, want 90s", got)
	}
	if !cfg.IsSet("name") {
		t.Error("IsSet(name) = false, want true")
	}
	if cfg.IsSet("missing") {
		t.Error("IsSet(missing) = true, want false")
	}
}

func TestViperConfig_Sub(t *testing.T) {
	v := viper.New()
	v.Set("extensions.probe.interval", "30s")

	sub := New(v).Sub("extensions.probe")
	if got := sub.GetDuration("interval"); got != 30*time.Second {
		t.Errorf("sub GetDuration = %v, want 30s", got)
	}
}

func TestViperConfig_SubMissingSection(t *testing.T) {
	sub := New(viper.New()).Sub("no.such.section")
	if sub == nil {
		t.Fatal("Sub of a missing section should return an empty config, not nil")
	}
	if sub.GetString("anything") != "" {
		t.Error("empty config should return zero values")
	}
}

func TestNew_NilViper(t *testing.T) {
	cfg := New(nil)
	if cfg == nil {
		t.Fatal("New(nil) should return a usable empty config")
	}
	if cfg.GetString("key") != "" {
		t.Error("empty config should return zero values")
	}
}
