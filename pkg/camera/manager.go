package camera

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Manager holds the current camera settings and handles updates.
type Manager struct {
	settings Settings
	mu       sync.RWMutex

	// Callback when settings change (for applying to the driver)
	OnChange func(s Settings) error
}

// NewManager creates a new camera manager with the given settings.
func NewManager(initial Settings) *Manager {
	return &Manager{
		settings: initial,
	}
}

// Settings returns the current camera settings.
func (m *Manager) Settings() Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings
}

// Quality returns the current JPEG transcode quality.
func (m *Manager) Quality() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings.Quality
}

// Framerate returns the current stream frame-rate cap.
func (m *Manager) Framerate() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings.Framerate
}

// Set replaces the camera settings.
func (m *Manager) Set(s Settings) error {
	if errs := s.Validate(); len(errs) > 0 {
		return fmt.Errorf("%w: %v", ErrInvalidSettings, errs)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// The driver sees the change first; rejected settings are not kept.
	if m.OnChange != nil {
		if err := m.OnChange(s); err != nil {
			return fmt.Errorf("failed to apply settings: %w", err)
		}
	}
	m.settings = s
	return nil
}

// Update changes specific fields of the settings.
// Accepts a map of field names to values, as decoded from a JSON body.
func (m *Manager) Update(params map[string]interface{}) error {
	s := m.Settings()

	// Check for preset first
	if presetName, ok := params["preset"].(string); ok {
		preset := GetPreset(presetName)
		if preset == nil {
			return fmt.Errorf("%w: unknown preset %q", ErrInvalidSettings, presetName)
		}
		fb := s.FBCount
		s = *preset
		s.FBCount = fb
	}

	for key, value := range params {
		switch key {
		case "frame_size":
			if v, ok := value.(string); ok {
				s.FrameSize = v
			}
		case "pixel_format":
			if v, ok := value.(string); ok {
				s.PixelFormat = v
			}
		case "quality":
			if v, ok := toInt(value); ok {
				s.Quality = v
			}
		case "framerate":
			if v, ok := toInt(value); ok {
				s.Framerate = v
			}
		case "brightness":
			if v, ok := toInt(value); ok {
				s.Brightness = v
			}
		case "contrast":
			if v, ok := toInt(value); ok {
				s.Contrast = v
			}
		case "saturation":
			if v, ok := toInt(value); ok {
				s.Saturation = v
			}
		case "hmirror":
			if v, ok := value.(bool); ok {
				s.HMirror = v
			}
		case "vflip":
			if v, ok := value.(bool); ok {
				s.VFlip = v
			}
		}
	}

	return m.Set(s)
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
		i, err := val.Int64()
		if err == nil {
			return int(i), true
		}
	}
	return 0, false
}
