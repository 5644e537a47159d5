package camera

import "sort"

// Preset names for common configurations
const (
	PresetDefault = "default"
	PresetLow     = "low"
	PresetHD      = "hd"
	PresetMax     = "max"
	PresetNight   = "night"
	PresetFast    = "fast"
)

// Presets returns all available preset configurations.
func Presets() map[string]Settings {
	return map[string]Settings{
		PresetDefault: DefaultSettings(),
		PresetLow:     LowBandwidthSettings(),
		PresetHD:      HDSettings(),
		PresetMax:     MaxResolutionSettings(),
		PresetNight:   NightSettings(),
		PresetFast:    FastSettings(),
	}
}

// PresetNames returns the sorted list of available preset names.
func PresetNames() []string {
	names := make([]string, 0, len(Presets()))
	for name := range Presets() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetPreset returns a preset by name, or nil if not found.
func GetPreset(name string) *Settings {
	if s, ok := Presets()[name]; ok {
		return &s
	}
	return nil
}

// LowBandwidthSettings is QVGA at reduced quality for slow links.
func LowBandwidthSettings() Settings {
	s := DefaultSettings()
	s.FrameSize = "qvga"
	s.Quality = 50
	s.Framerate = 15
	return s
}

// HDSettings returns 1280x720.
func HDSettings() Settings {
	s := DefaultSettings()
	s.FrameSize = "hd"
	s.Framerate = 30
	return s
}

// MaxResolutionSettings returns UXGA at a low frame rate.
func MaxResolutionSettings() Settings {
	s := DefaultSettings()
	s.FrameSize = "uxga"
	s.Framerate = 10
	return s
}

// NightSettings brightens the image and lowers the frame rate.
func NightSettings() Settings {
	s := DefaultSettings()
	s.FrameSize = "svga"
	s.Brightness = 2
	s.Contrast = 1
	s.Framerate = 10
	return s
}

// FastSettings trades resolution for frame rate.
func FastSettings() Settings {
	s := DefaultSettings()
	s.FrameSize = "qvga"
	s.Framerate = 0
	return s
}
