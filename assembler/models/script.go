package models

import (
	"encoding/json"
	"fmt"
	"os"
)

// Segment is one narration beat of the script. Text is what the narrator
// says, Context is a short production note describing what should be on
// screen while it plays. All other fields are optional author overrides.
type Segment struct {
	Text         string `json:"text"`
	Context      string `json:"context,omitempty"`
	VisualType   string `json:"visual_type,omitempty"`
	FootageQuery string `json:"footage_query,omitempty"`
	GraphicStyle string `json:"graphic_style,omitempty"`
	ScenePrompt  string `json:"scene_prompt,omitempty"`
	AudioFile    string `json:"audio_file,omitempty"`

	// AudioDuration is measured from the narration file at run time,
	// it is never read from the script.
	AudioDuration float64 `json:"-"`
}

// Script is the full narration document the pipeline consumes.
type Script struct {
	Title    string    `json:"title,omitempty"`
	Music    string    `json:"music,omitempty"`
	Segments []Segment `json:"segments"`
}

// LoadScript reads and validates a script JSON file.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script file: %v", err)
	}

	var script Script
	if err := json.Unmarshal(data, &script); err != nil {
		return nil, fmt.Errorf("failed to parse script file: %v", err)
	}

	if len(script.Segments) == 0 {
		return nil, fmt.Errorf("script has no segments")
	}
	for i, seg := range script.Segments {
		if seg.Text == "" {
			return nil, fmt.Errorf("segment %d has no text", i+1)
		}
	}

	return &script, nil
}
