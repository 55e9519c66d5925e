package models

import (
	"encoding/json"
	"fmt"
	"os"
)

// AssemblyConfig controls rendering and acquisition for one run.
type AssemblyConfig struct {
	Settings AssemblySettings `json:"settings"`
}

type AssemblySettings struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	FPS    int `json:"fps"`

	// Shot pacing. A segment longer than MaxShotSeconds is cut into
	// several shots, none shorter than MinShotSeconds.
	MaxShotSeconds   float64 `json:"max_shot_seconds"`
	MinShotSeconds   float64 `json:"min_shot_seconds"`
	CrossfadeSeconds float64 `json:"crossfade_seconds"`

	// Candidate acquisition.
	MaxCandidates      int     `json:"max_candidates"`
	BackendDelayMillis int     `json:"backend_delay_millis"`
	SearchTimeoutSec   int     `json:"search_timeout_sec"`
	DownloadTimeoutSec int     `json:"download_timeout_sec"`
	RenderTimeoutSec   int     `json:"render_timeout_sec"`
	SceneTimeoutSec    int     `json:"scene_timeout_sec"`
	MaxClipMinutes     float64 `json:"max_clip_minutes"`

	// Audio mix.
	VoiceVolume  float64 `json:"voice_volume"`
	MusicVolume  float64 `json:"music_volume"`
	MusicFadeSec float64 `json:"music_fade_sec"`

	// Feature switches.
	AllowGeneratedScene bool `json:"allow_generated_scene"`
	IncludeOutro        bool `json:"include_outro"`
	WriteCaptions       bool `json:"write_captions"`

	MaxWorkers int `json:"max_workers"`

	// AnimationPreset selects motion aggressiveness: gentle, moderate
	// or dynamic.
	AnimationPreset string  `json:"animation_preset"`
	ZoomIntensity   float64 `json:"zoom_intensity"`

	QuoteFontFile string `json:"quote_font_file"`
}

// LoadConfig reads configuration from a JSON file. Missing file or
// missing fields fall back to built-in defaults.
func LoadConfig(configPath string) (*AssemblyConfig, error) {
	config := &AssemblyConfig{}

	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %v", err)
			}
		}
	}

	s := &config.Settings

	// Defaults for zero values
	if s.Width == 0 {
		s.Width = 1920
	}
	if s.Height == 0 {
		s.Height = 1080
	}
	if s.FPS == 0 {
		s.FPS = 30
	}
	if s.MaxShotSeconds == 0 {
		s.MaxShotSeconds = 5.0
	}
	if s.MinShotSeconds == 0 {
		s.MinShotSeconds = 3.0
	}
	if s.CrossfadeSeconds == 0 {
		s.CrossfadeSeconds = 0.5
	}
	if s.MaxCandidates == 0 {
		s.MaxCandidates = 5
	}
	if s.BackendDelayMillis == 0 {
		s.BackendDelayMillis = 500
	}
	if s.SearchTimeoutSec == 0 {
		s.SearchTimeoutSec = 30
	}
	if s.DownloadTimeoutSec == 0 {
		s.DownloadTimeoutSec = 120
	}
	if s.RenderTimeoutSec == 0 {
		s.RenderTimeoutSec = 300
	}
	if s.SceneTimeoutSec == 0 {
		s.SceneTimeoutSec = 360
	}
	if s.MaxClipMinutes == 0 {
		s.MaxClipMinutes = 10
	}
	if s.VoiceVolume == 0 {
		s.VoiceVolume = 1.0
	}
	if s.MusicVolume == 0 {
		s.MusicVolume = 0.12
	}
	if s.MusicFadeSec == 0 {
		s.MusicFadeSec = 3.0
	}
	if s.MaxWorkers == 0 {
		s.MaxWorkers = 3
	}
	if s.AnimationPreset == "" {
		s.AnimationPreset = "moderate"
	}
	if s.ZoomIntensity == 0 {
		s.ZoomIntensity = 1.0
	}

	applyAnimationPreset(config)

	return config, nil
}

// applyAnimationPreset tunes motion parameters based on preset name
func applyAnimationPreset(config *AssemblyConfig) {
	s := &config.Settings
	switch s.AnimationPreset {
	case "gentle":
		s.ZoomIntensity = 0.6
		if s.CrossfadeSeconds > 0.4 {
			s.CrossfadeSeconds = 0.4
		}
	case "dynamic":
		s.ZoomIntensity = 1.5
	case "moderate":
		// keep configured values
	}
}

// ApplyResolution switches the output frame size by shorthand name.
func (c *AssemblyConfig) ApplyResolution(name string) error {
	switch name {
	case "", "hd", "1080p":
		c.Settings.Width = 1920
		c.Settings.Height = 1080
	case "4k", "uhd":
		c.Settings.Width = 3840
		c.Settings.Height = 2160
	default:
		return fmt.Errorf("unknown resolution %q", name)
	}
	return nil
}
