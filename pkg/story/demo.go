package story

// DemoCharacterID is the fixed id of the demo character.
const DemoCharacterID = "char_demo"

// DemoBundle returns the pre-built demo character and its four scenes,
// stamped with the given timestamp.
func DemoBundle(now string) (*Character, []Scene) {
	char := &Character{
		ID:                  DemoCharacterID,
		Name:                "Maya Chen",
		CanonicalAppearance: "Short black hair with silver streaks, sharp brown eyes, wears a worn leather jacket, has a small scar above her left eyebrow",
		Personality:         "Brilliant but haunted detective, driven by unsolved cases, struggles with trust, fiercely protective of the innocent",
		EmotionalBaseline:   "Guarded determination",
		ImmutableTraits:     []string{"brown eyes", "scar above left eyebrow", "leather jacket", "detective nature"},
		CreatedAt:           now,
	}

	scenes := []Scene{
		{
			ID:               "scene_demo_1",
			CharacterID:      DemoCharacterID,
			SceneNumber:      1,
			SceneDescription: "Maya sits in her cluttered office, surrounded by case files and cold coffee cups. The late afternoon sun streams through dusty blinds, casting long shadows across photographs pinned to her wall.",
			VisualPrompt:     "Detective woman, short black hair with silver streaks, sharp brown eyes, small scar above left eyebrow, worn leather jacket, sitting at messy desk covered in case files, late afternoon lighting through venetian blinds, noir atmosphere",
			EmotionalState:   "focused",
			Environment:      "cluttered detective office at dusk",
			NarrativeSummary: "Maya reviews the evidence for the hundredth time, searching for the pattern everyone else missed.",
			Timestamp:        now,
			Edits:            []Edit{},
		},
		{
			ID:               "scene_demo_2",
			CharacterID:      DemoCharacterID,
			SceneNumber:      2,
			SceneDescription: "A sudden realization crosses Maya's face as she notices something in the photographs. Her brown eyes widen, and she leans forward urgently, fingers tracing connections only she can see.",
			VisualPrompt:     "Same detective woman, brown eyes wide with realization, leaning over desk urgently, photographs spread out, dramatic lighting highlighting her scar, leather jacket partially open, moment of breakthrough",
			EmotionalState:   "breakthrough excitement",
			Environment:      "same office, now in early evening",
			NarrativeSummary: "The pattern finally reveals itself - she knows where to look next.",
			Timestamp:        now,
			Edits:            []Edit{{Command: "She realizes something important", EditType: EditEmotionChange, Timestamp: now}},
			PreviousSceneID:  "scene_demo_1",
		},
		{
			ID:               "scene_demo_3",
			CharacterID:      DemoCharacterID,
			SceneNumber:      3,
			SceneDescription: "Maya stands on a rain-soaked street corner at night, her leather jacket glistening with moisture. The neon signs reflect in puddles around her feet as she watches a building across the street, her expression tense and alert.",
			VisualPrompt:     "Detective woman, short black hair wet from rain, brown eyes vigilant, scar visible, leather jacket wet and reflecting neon lights, standing in rain on city street at night, cyberpunk noir aesthetic",
			EmotionalState:   "vigilant tension",
			Environment:      "rainy city street at night",
			NarrativeSummary: "She's close now - the suspect is inside. Years of hunting led to this moment.",
			Timestamp:        now,
			Edits:            []Edit{{Command: "Move the scene to a rainy street at night", EditType: EditEnvironmentChange, Timestamp: now}},
			PreviousSceneID:  "scene_demo_2",
		},
		{
			ID:               "scene_demo_4",
			CharacterID:      DemoCharacterID,
			SceneNumber:      4,
			SceneDescription: "Exhaustion shows on Maya's face as she leans against a brick wall in an alley. Dark circles shadow her eyes, her hair disheveled, jacket dirt-stained. But her brown eyes still burn with determination despite the fatigue.",
			VisualPrompt:     "Tired detective woman, short black hair messy, brown eyes with dark circles but still determined, visible scar, dirty worn leather jacket, leaning against brick wall in alley, harsh overhead light",
			EmotionalState:   "exhausted but resolute",
			Environment:      "dark alley, early morning",
			NarrativeSummary: "The chase has taken its toll, but Maya won't stop - she never does.",
			Timestamp:        now,
			Edits:            []Edit{{Command: "Make her look exhausted and worn down", EditType: EditVisualAdjustment, Timestamp: now}},
			PreviousSceneID:  "scene_demo_3",
		},
	}
	return char, scenes
}
