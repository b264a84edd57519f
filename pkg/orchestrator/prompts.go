package orchestrator

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/kittclouds/chronicle/pkg/story"
)

// systemInstruction frames every request.
const systemInstruction = `You are the Scene Orchestrator for Chronicle, a character story engine.
Characters evolve from scene to scene but their canon never changes.
When asked for JSON, output only the JSON object.`

// BuildFirstScenePrompt asks for the scene that introduces char.
func BuildFirstScenePrompt(char *story.Character) string {
	return fmt.Sprintf(`CHARACTER CANON (IMMUTABLE):
Name: %s
Appearance: %s
Personality: %s
Emotional Baseline: %s
Immutable Traits: %s

Generate the FIRST SCENE introducing this character as JSON:

{
  "sceneDescription": "2-3 sentences describing the scene",
  "visualPrompt": "Detailed image generation prompt maintaining canonical appearance",
  "emotionalState": "current emotion",
  "environment": "location description",
  "narrativeSummary": "what's happening in this moment"
}

Be creative but STRICTLY honor the character canon.`,
		char.Name, char.CanonicalAppearance, char.Personality, char.EmotionalBaseline,
		strings.Join(char.ImmutableTraits, ", "))
}

// BuildEditPrompt asks the model to classify and validate command against canon.
func BuildEditPrompt(char *story.Character, scene *story.Scene, command string) string {
	traits := strings.Join(char.ImmutableTraits, ", ")
	return fmt.Sprintf(`You are the Edit Parser. Analyze this edit command.

CHARACTER CANON (IMMUTABLE):
Name: %s
Appearance: %s
Personality: %s
Immutable Traits: %s

CURRENT SCENE:
%s
Emotional State: %s
Environment: %s

USER EDIT COMMAND: %q

Respond as JSON:

{
  "isValid": true or false,
  "editType": "emotion_change" or "environment_change" or "new_scene" or "visual_adjustment" or "invalid",
  "rejectionReason": "why this violates canon (only if invalid)",
  "constraints": ["trait1", "trait2"],
  "changes": {
    "emotionalState": "new emotion or null",
    "environment": "new environment or null",
    "visualAdjustments": "changes to appearance/lighting/pose"
  },
  "narrativeDelta": "what changed in the story"
}

REJECT edits that:
- Change immutable traits (%s)
- Violate core personality
- Contradict canonical appearance`,
		char.Name, char.CanonicalAppearance, char.Personality, traits,
		scene.SceneDescription, scene.EmotionalState, scene.Environment,
		command, traits)
}

// BuildEvolvePrompt asks for the scene that follows current after an approved edit.
func BuildEvolvePrompt(char *story.Character, current *story.Scene, a *EditAnalysis) string {
	changes, _ := json.MarshalIndent(a.Changes, "", "  ")

	emotion := current.EmotionalState
	if a.Changes.EmotionalState != "" {
		emotion = a.Changes.EmotionalState
	}
	env := current.Environment
	if a.Changes.Environment != "" {
		env = a.Changes.Environment
	}

	return fmt.Sprintf(`Apply this edit to create an EVOLVED scene (not a reset).

CHARACTER CANON: %s - %s

PREVIOUS SCENE:
%s

APPROVED CHANGES:
%s

Narrative Delta: %s

Respond with JSON for the UPDATED scene:

{
  "sceneDescription": "evolved 2-3 sentences",
  "visualPrompt": "updated visual maintaining character canon",
  "emotionalState": %q,
  "environment": %q,
  "narrativeSummary": "what changed"
}`,
		char.Name, char.CanonicalAppearance, current.SceneDescription,
		changes, a.NarrativeDelta, emotion, env)
}

// BuildRecapPrompt asks for a three-sentence summary of the journey.
func BuildRecapPrompt(char *story.Character, scenes []story.Scene) string {
	sorted := append([]story.Scene(nil), scenes...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].SceneNumber < sorted[j].SceneNumber })

	var journey strings.Builder
	for i, s := range sorted {
		if i > 0 {
			journey.WriteByte('\n')
		}
		fmt.Fprintf(&journey, "Scene %d: %s", s.SceneNumber, s.SceneDescription)
	}

	return fmt.Sprintf(`Generate a memory recap for this character's journey.

CHARACTER: %s
SCENES: %d

Journey:
%s

Provide a 3-sentence narrative summary of the character's emotional and physical journey.`,
		char.Name, len(scenes), journey.String())
}
