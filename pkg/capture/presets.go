package capture

// Preset names for common source configurations.
const (
	PresetDefault = "default"
	PresetUSB     = "usb"
	PresetVendor  = "vendor"
	PresetHD      = "hd"
	PresetV4L2    = "v4l2"
)

// Presets returns all available preset configurations.
func Presets() map[string]Config {
	return map[string]Config{
		PresetDefault: DefaultConfig(),
		PresetUSB:     DefaultConfig(),
		PresetVendor:  VendorConfig(),
		PresetHD:      HDConfig(),
		PresetV4L2:    V4L2Config(),
	}
}

// PresetNames returns the list of available preset names.
func PresetNames() []string {
	return []string{PresetDefault, PresetUSB, PresetVendor, PresetHD, PresetV4L2}
}

// GetPreset returns a preset config by name, or nil if not found.
func GetPreset(name string) *Config {
	presets := Presets()
	if cfg, ok := presets[name]; ok {
		return &cfg
	}
	return nil
}

// HDConfig returns a 720p color configuration for USB cameras that
// support it.
func HDConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 1280
	cfg.Height = 720
	cfg.FPS = 15
	return cfg
}

// V4L2Config returns a raw V4L2 configuration on the first video
// device.
func V4L2Config() Config {
	cfg := DefaultConfig()
	cfg.Kind = KindV4L2
	cfg.Device = "/dev/video0"
	return cfg
}
