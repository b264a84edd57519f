package story

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTraits(t *testing.T) {
	assert.Equal(t, []string{"brown eyes", "scar", "jacket"}, ParseTraits(" brown eyes, scar ,, jacket ,"))
	assert.Empty(t, ParseTraits(""))
	assert.Empty(t, ParseTraits(" , ,"))
}

func TestScene_DisplaySummary(t *testing.T) {
	s := Scene{SceneDescription: "desc"}
	assert.Equal(t, "desc", s.DisplaySummary())

	s.NarrativeSummary = "summary"
	assert.Equal(t, "summary", s.DisplaySummary())
}

func TestScene_CloneIsDeep(t *testing.T) {
	s := Scene{ID: "a", Edits: []Edit{{Command: "x"}}}
	c := s.Clone()
	c.Edits[0].Command = "changed"
	assert.Equal(t, "x", s.Edits[0].Command)
}

func TestCharacter_CloneNil(t *testing.T) {
	var c *Character
	assert.Nil(t, c.Clone())
}

func TestStepAndEditTypeValid(t *testing.T) {
	assert.True(t, StepIntro.Valid())
	assert.True(t, StepStoryMode.Valid())
	assert.False(t, Step("bogus").Valid())

	assert.True(t, EditVisualAdjustment.Valid())
	assert.False(t, EditType("rewrite").Valid())
}

func TestDemoBundle(t *testing.T) {
	char, scenes := DemoBundle("2025-01-01T00:00:00")
	require.NotNil(t, char)
	require.Len(t, scenes, 4)

	assert.Equal(t, "Maya Chen", char.Name)
	assert.Len(t, char.ImmutableTraits, 4)

	for i, s := range scenes {
		assert.Equal(t, i+1, s.SceneNumber)
		assert.Equal(t, DemoCharacterID, s.CharacterID)
		if i > 0 {
			assert.Equal(t, scenes[i-1].ID, s.PreviousSceneID)
			require.Len(t, s.Edits, 1)
		}
	}
	assert.Equal(t, EditVisualAdjustment, scenes[3].Edits[0].EditType)
}
