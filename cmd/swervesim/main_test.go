package main

import (
	"errors"
	"testing"

	"github.com/san-kum/swervesim/internal/dynamo"
)

func resetGlobals(t *testing.T) {
	t.Helper()
	configFile, preset, dataDir, logLevel, logDir = "", "", "", "", ""
	overrides = nil
}

func TestLoadConfig_PresetAndFlags(t *testing.T) {
	resetGlobals(t)
	preset = "spin"
	dataDir = t.TempDir()

	cmd := newRunCmd()
	for name, value := range map[string]string{
		"duration": "2.5",
		"seed":     "9",
		"sink":     "memory",
		"set":      "turn_tau=0.3",
	} {
		if err := cmd.Flags().Set(name, value); err != nil {
			t.Fatalf("set %s: %v", name, err)
		}
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Source != "constant" || cfg.SourceParams["omega"] != 1 {
		t.Errorf("preset not applied: %s %v", cfg.Source, cfg.SourceParams)
	}
	if cfg.Duration != 2.5 || cfg.Seed != 9 || cfg.Sink.Type != "memory" {
		t.Errorf("flags not applied: duration=%v seed=%d sink=%s", cfg.Duration, cfg.Seed, cfg.Sink.Type)
	}
	if cfg.Physics.TurnTau != 0.3 {
		t.Errorf("turn_tau = %v", cfg.Physics.TurnTau)
	}
	if cfg.Sink.Dir != dataDir {
		t.Errorf("sink dir = %q", cfg.Sink.Dir)
	}
}

func TestLoadConfig_UnsetFlagsKeepConfig(t *testing.T) {
	resetGlobals(t)
	preset = "idle"

	cfg, err := loadConfig(newRunCmd())
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Duration != 10 || cfg.Source != "idle" {
		t.Errorf("preset values overridden: duration=%v source=%s", cfg.Duration, cfg.Source)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) error
	}{
		{"preset and config", func(t *testing.T) error {
			preset, configFile = "spin", "x.yaml"
			return nil
		}},
		{"unknown preset", func(t *testing.T) error {
			preset = "warp"
			return nil
		}},
		{"bad override", func(t *testing.T) error {
			overrides = []string{"turn_tau"}
			return nil
		}},
		{"non-numeric override", func(t *testing.T) error {
			overrides = []string{"turn_tau=fast"}
			return nil
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetGlobals(t)
			// registering flags resets their variables, so build the command first
			cmd := newRunCmd()
			if err := tt.setup(t); err != nil {
				t.Fatal(err)
			}
			if _, err := loadConfig(cmd); !errors.Is(err, dynamo.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestLoadConfig_Unbounded(t *testing.T) {
	resetGlobals(t)
	cmd := newRunCmd()
	cmd.Flags().Set("duration", "0")
	cmd.Flags().Set("max-ticks", "0")

	if _, err := loadConfig(cmd); !errors.Is(err, dynamo.ErrUnbounded) {
		t.Errorf("expected ErrUnbounded, got %v", err)
	}
}
