// Package story defines the Chronicle data model: the canonical character,
// the scenes that form its timeline and the edits recorded on each scene.
// JSON field names match the wire format of the generation service.
package story

import "strings"

// EditType classifies an edit command.
type EditType string

const (
	EditEmotionChange     EditType = "emotion_change"
	EditEnvironmentChange EditType = "environment_change"
	EditNewScene          EditType = "new_scene"
	EditVisualAdjustment  EditType = "visual_adjustment"
	EditInvalid           EditType = "invalid"
)

// Valid reports whether t is one of the known edit types.
func (t EditType) Valid() bool {
	switch t {
	case EditEmotionChange, EditEnvironmentChange, EditNewScene, EditVisualAdjustment, EditInvalid:
		return true
	}
	return false
}

// Step is the coarse UI mode of a session.
type Step string

const (
	StepIntro           Step = "intro"
	StepCreateCharacter Step = "create-character"
	StepStoryMode       Step = "story-mode"
)

// Valid reports whether s is one of the three known steps.
func (s Step) Valid() bool {
	return s == StepIntro || s == StepCreateCharacter || s == StepStoryMode
}

// Character is the canonical, immutable character definition.
type Character struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name"`
	CanonicalAppearance string   `json:"canonicalAppearance"`
	Personality         string   `json:"personality"`
	EmotionalBaseline   string   `json:"emotionalBaseline"`
	ImmutableTraits     []string `json:"immutableTraits"`
	CreatedAt           string   `json:"createdAt"`
}

// CharacterDraft is the input for creating a character.
type CharacterDraft struct {
	Name                string   `json:"name"`
	CanonicalAppearance string   `json:"canonicalAppearance"`
	Personality         string   `json:"personality"`
	EmotionalBaseline   string   `json:"emotionalBaseline"`
	ImmutableTraits     []string `json:"immutableTraits"`
}

// Edit is one applied edit command recorded on a scene.
type Edit struct {
	Command   string   `json:"command"`
	EditType  EditType `json:"editType"`
	Timestamp string   `json:"timestamp"`
}

// Scene is one immutable step in a character's timeline.
type Scene struct {
	ID               string `json:"id"`
	CharacterID      string `json:"characterId"`
	SceneNumber      int    `json:"sceneNumber"`
	SceneDescription string `json:"sceneDescription"`
	VisualPrompt     string `json:"visualPrompt"`
	EmotionalState   string `json:"emotionalState"`
	Environment      string `json:"environment"`
	NarrativeSummary string `json:"narrativeSummary"`
	Timestamp        string `json:"timestamp"`
	Edits            []Edit `json:"edits"`
	PreviousSceneID  string `json:"previousSceneId,omitempty"`
	ImageURL         string `json:"imageUrl,omitempty"`
}

// DisplaySummary returns the narrative summary, falling back to the
// scene description when the summary is empty.
func (s Scene) DisplaySummary() string {
	if s.NarrativeSummary != "" {
		return s.NarrativeSummary
	}
	return s.SceneDescription
}

// Clone returns a deep copy of the scene.
func (s Scene) Clone() Scene {
	out := s
	if s.Edits != nil {
		out.Edits = append([]Edit(nil), s.Edits...)
	}
	return out
}

// Clone returns a deep copy of the character.
func (c *Character) Clone() *Character {
	if c == nil {
		return nil
	}
	out := *c
	if c.ImmutableTraits != nil {
		out.ImmutableTraits = append([]string(nil), c.ImmutableTraits...)
	}
	return &out
}

// CloneScenes deep-copies a scene slice.
func CloneScenes(scenes []Scene) []Scene {
	if scenes == nil {
		return nil
	}
	out := make([]Scene, len(scenes))
	for i, s := range scenes {
		out[i] = s.Clone()
	}
	return out
}

// ParseTraits splits a comma-separated trait list, trimming whitespace and
// dropping empty entries.
func ParseTraits(raw string) []string {
	parts := strings.Split(raw, ",")
	traits := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			traits = append(traits, p)
		}
	}
	return traits
}
