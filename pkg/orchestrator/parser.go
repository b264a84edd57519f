package orchestrator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kittclouds/chronicle/pkg/story"
)

// SceneDraft is the model's description of a scene.
type SceneDraft struct {
	SceneDescription string `json:"sceneDescription"`
	VisualPrompt     string `json:"visualPrompt"`
	EmotionalState   string `json:"emotionalState"`
	Environment      string `json:"environment"`
	NarrativeSummary string `json:"narrativeSummary"`
}

// Changes are the scene fields an approved edit alters. Empty means unchanged.
type Changes struct {
	EmotionalState    string `json:"emotionalState,omitempty"`
	Environment       string `json:"environment,omitempty"`
	VisualAdjustments string `json:"visualAdjustments,omitempty"`
}

// EditAnalysis is the model's verdict on an edit command.
type EditAnalysis struct {
	IsValid         bool           `json:"isValid"`
	EditType        story.EditType `json:"editType"`
	RejectionReason string         `json:"rejectionReason"`
	Constraints     []string       `json:"constraints"`
	Changes         Changes        `json:"changes"`
	NarrativeDelta  string         `json:"narrativeDelta"`
}

// ParseScene decodes a scene reply. All text fields except the summary are required.
func ParseScene(raw string) (*SceneDraft, error) {
	var d SceneDraft
	if err := decode(raw, &d); err != nil {
		return nil, fmt.Errorf("orchestrator: parse scene: %w", err)
	}
	d.SceneDescription = strings.TrimSpace(d.SceneDescription)
	d.VisualPrompt = strings.TrimSpace(d.VisualPrompt)
	d.EmotionalState = strings.TrimSpace(d.EmotionalState)
	d.Environment = strings.TrimSpace(d.Environment)
	d.NarrativeSummary = strings.TrimSpace(d.NarrativeSummary)

	if d.SceneDescription == "" || d.VisualPrompt == "" || d.EmotionalState == "" || d.Environment == "" {
		return nil, fmt.Errorf("orchestrator: parse scene: missing required fields")
	}
	return &d, nil
}

// ParseEditAnalysis decodes an edit verdict and normalizes it.
func ParseEditAnalysis(raw string) (*EditAnalysis, error) {
	// "null" strings are common for unchanged fields
	var wire struct {
		EditAnalysis
		Changes map[string]*string `json:"changes"`
	}
	if err := decode(raw, &wire); err != nil {
		return nil, fmt.Errorf("orchestrator: parse edit: %w", err)
	}
	a := wire.EditAnalysis
	a.Changes = Changes{
		EmotionalState:    nullable(wire.Changes["emotionalState"]),
		Environment:       nullable(wire.Changes["environment"]),
		VisualAdjustments: nullable(wire.Changes["visualAdjustments"]),
	}

	a.EditType = story.EditType(strings.ToLower(strings.TrimSpace(string(a.EditType))))
	if !a.EditType.Valid() {
		a.EditType = story.EditInvalid
	}
	if a.EditType == story.EditInvalid {
		a.IsValid = false
	}
	a.RejectionReason = strings.TrimSpace(a.RejectionReason)
	if !a.IsValid && a.RejectionReason == "" {
		a.RejectionReason = "Edit conflicts with the character canon"
	}
	return &a, nil
}

func decode(raw string, dst any) error {
	cleaned := stripCodeFence(strings.TrimSpace(raw))
	if cleaned == "" {
		return fmt.Errorf("empty response")
	}
	return json.Unmarshal([]byte(cleaned), dst)
}

// stripCodeFence removes markdown code block wrappers (```json ... ```).
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	// Remove first line (```json or ```)
	if len(lines) > 0 {
		lines = lines[1:]
	}
	// Remove last line if it's a closing fence
	if len(lines) > 0 && strings.HasPrefix(strings.TrimSpace(lines[len(lines)-1]), "```") {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func nullable(s *string) string {
	if s == nil {
		return ""
	}
	v := strings.TrimSpace(*s)
	if strings.EqualFold(v, "null") || strings.EqualFold(v, "none") {
		return ""
	}
	return v
}
