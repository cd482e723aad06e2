package capture

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Manager holds a capture configuration and handles updates from the
// control API. Settings are validated before they are stored; a stored
// config takes effect the next time a source is opened with it.
type Manager struct {
	mu  sync.RWMutex
	cfg Config

	// OnChange is called after a config update is accepted.
	OnChange func(cfg Config) error
}

// NewManager creates a manager seeded with the given config.
func NewManager(cfg Config) *Manager {
	return &Manager{cfg: cfg}
}

// GetConfig returns the current capture configuration.
func (m *Manager) GetConfig() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// SetConfig validates and stores a full configuration.
func (m *Manager) SetConfig(cfg Config) error {
	if errs := cfg.Validate(); len(errs) > 0 {
		return fmt.Errorf("validation failed: %v", errs)
	}

	m.mu.Lock()
	m.cfg = cfg
	callback := m.OnChange
	m.mu.Unlock()

	if callback != nil {
		if err := callback(cfg); err != nil {
			return fmt.Errorf("failed to apply config: %w", err)
		}
	}
	return nil
}

// UpdateConfig updates specific fields from a map of field names to
// values, as decoded from a JSON request body. A "preset" key replaces
// the whole config before the other keys are applied on top.
func (m *Manager) UpdateConfig(params map[string]interface{}) error {
	m.mu.RLock()
	cfg := m.cfg
	m.mu.RUnlock()

	if presetName, ok := params["preset"].(string); ok {
		preset := GetPreset(presetName)
		if preset == nil {
			return fmt.Errorf("unknown preset: %s", presetName)
		}
		cfg = *preset
		delete(params, "preset")
	}

	for key, value := range params {
		switch key {
		case "kind":
			if v, ok := value.(string); ok {
				cfg.Kind = v
			}
		case "device":
			if v, ok := value.(string); ok {
				cfg.Device = v
			}
		case "width":
			if v, ok := toInt(value); ok {
				cfg.Width = v
			}
		case "height":
			if v, ok := toInt(value); ok {
				cfg.Height = v
			}
		case "fps":
			if v, ok := toFloat(value); ok {
				cfg.FPS = v
			}
		case "grayscale":
			if v, ok := value.(bool); ok {
				cfg.Grayscale = v
			}
		case "quality":
			if v, ok := toInt(value); ok {
				cfg.Quality = v
			}
		case "producer":
			if v, ok := value.(string); ok {
				cfg.Producer = v
			}
		}
	}

	return m.SetConfig(cfg)
}

func toInt(v interface{}) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case float64:
		return int(val), true
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return int(i), true
		}
	}
	return 0, false
}

func toFloat(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return f, true
		}
	}
	return 0, false
}
