package capture

import (
	"strings"
	"testing"
)

func TestManagerGetConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Device = "/dev/video3"

	m := NewManager(cfg)
	if got := m.GetConfig().Device; got != "/dev/video3" {
		t.Errorf("GetConfig().Device = %q, want /dev/video3", got)
	}
}

func TestManagerSetConfigValidates(t *testing.T) {
	m := NewManager(DefaultConfig())

	bad := DefaultConfig()
	bad.Quality = 500
	if err := m.SetConfig(bad); err == nil {
		t.Error("SetConfig(bad) error = nil, want error")
	}
	if got := m.GetConfig().Quality; got == 500 {
		t.Error("rejected config was stored")
	}
}

func TestManagerUpdateConfigFields(t *testing.T) {
	m := NewManager(DefaultConfig())

	err := m.UpdateConfig(map[string]interface{}{
		"device":    "1",
		"width":     float64(1280),
		"height":    float64(720),
		"fps":       float64(30),
		"grayscale": true,
		"quality":   float64(70),
	})
	if err != nil {
		t.Fatalf("UpdateConfig() error = %v", err)
	}

	cfg := m.GetConfig()
	if cfg.Device != "1" {
		t.Errorf("Device = %q, want 1", cfg.Device)
	}
	if cfg.Width != 1280 || cfg.Height != 720 {
		t.Errorf("size = %dx%d, want 1280x720", cfg.Width, cfg.Height)
	}
	if cfg.FPS != 30 {
		t.Errorf("FPS = %v, want 30", cfg.FPS)
	}
	if !cfg.Grayscale {
		t.Error("Grayscale = false, want true")
	}
	if cfg.Quality != 70 {
		t.Errorf("Quality = %d, want 70", cfg.Quality)
	}
}

func TestManagerUpdateConfigPreset(t *testing.T) {
	m := NewManager(DefaultConfig())

	err := m.UpdateConfig(map[string]interface{}{
		"preset": PresetVendor,
		"device": "/dev/video9",
	})
	if err != nil {
		t.Fatalf("UpdateConfig() error = %v", err)
	}

	cfg := m.GetConfig()
	if !cfg.Grayscale {
		t.Error("vendor preset should enable grayscale")
	}
	if cfg.Device != "/dev/video9" {
		t.Errorf("Device = %q, want the override applied after the preset", cfg.Device)
	}
}

func TestManagerUpdateConfigUnknownPreset(t *testing.T) {
	m := NewManager(DefaultConfig())

	err := m.UpdateConfig(map[string]interface{}{"preset": "nope"})
	if err == nil || !strings.Contains(err.Error(), "unknown preset") {
		t.Errorf("UpdateConfig(bad preset) error = %v, want unknown preset", err)
	}
}

func TestManagerOnChange(t *testing.T) {
	m := NewManager(DefaultConfig())

	var applied Config
	m.OnChange = func(c Config) error {
		applied = c
		return nil
	}

	if err := m.UpdateConfig(map[string]interface{}{"device": "2"}); err != nil {
		t.Fatalf("UpdateConfig() error = %v", err)
	}
	if applied.Device != "2" {
		t.Errorf("OnChange saw device %q, want 2", applied.Device)
	}
}
