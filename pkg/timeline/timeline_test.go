package timeline

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kittclouds/chronicle/pkg/story"
)

func scene(n int) story.Scene {
	return story.Scene{ID: fmt.Sprintf("scene_%d", n), SceneNumber: n, EmotionalState: fmt.Sprintf("mood%d", n)}
}

func TestAppend_SelectsNewScene(t *testing.T) {
	tl := New()
	require.NoError(t, tl.Append(scene(1)))
	require.NoError(t, tl.Append(scene(2)))

	assert.Equal(t, 2, tl.Len())
	assert.Equal(t, "scene_2", tl.SelectedID())

	last, ok := tl.Last()
	require.True(t, ok)
	assert.Equal(t, 2, last.SceneNumber)
}

func TestAppend_RejectsGapsAndDuplicates(t *testing.T) {
	tl := New()
	assert.ErrorIs(t, tl.Append(scene(2)), ErrOutOfOrder)

	require.NoError(t, tl.Append(scene(1)))
	assert.ErrorIs(t, tl.Append(scene(3)), ErrOutOfOrder)
	assert.ErrorIs(t, tl.Append(scene(1)), ErrOutOfOrder)

	dup := scene(2)
	dup.ID = "scene_1"
	assert.ErrorIs(t, tl.Append(dup), ErrDuplicateScene)

	assert.Equal(t, 1, tl.Len())
	assert.Equal(t, "scene_1", tl.SelectedID())
}

func TestSelect_UnknownLeavesPointer(t *testing.T) {
	tl := New()
	require.NoError(t, tl.ReplaceAll([]story.Scene{scene(1), scene(2)}))
	require.NoError(t, tl.Select("scene_1"))

	err := tl.Select("nope")
	assert.ErrorIs(t, err, ErrUnknownScene)
	assert.Equal(t, "scene_1", tl.SelectedID())

	assert.ErrorIs(t, tl.Select(""), ErrUnknownScene)
}

func TestReplaceAll(t *testing.T) {
	tl := New()
	require.NoError(t, tl.ReplaceAll([]story.Scene{scene(1), scene(2), scene(3)}))
	assert.Equal(t, "scene_3", tl.SelectedID())

	require.NoError(t, tl.ReplaceAll(nil))
	assert.Equal(t, 0, tl.Len())
	assert.Equal(t, "", tl.SelectedID())
	_, ok := tl.Selected()
	assert.False(t, ok)
}

func TestReplaceAll_InvalidLeavesTimelineUnchanged(t *testing.T) {
	tl := New()
	require.NoError(t, tl.ReplaceAll([]story.Scene{scene(1)}))

	err := tl.ReplaceAll([]story.Scene{scene(1), scene(3)})
	assert.ErrorIs(t, err, ErrOutOfOrder)
	assert.Equal(t, 1, tl.Len())
	assert.Equal(t, "scene_1", tl.SelectedID())
}

func TestScenes_ReturnsCopy(t *testing.T) {
	tl := New()
	s := scene(1)
	s.Edits = []story.Edit{{Command: "x"}}
	require.NoError(t, tl.Append(s))

	out := tl.Scenes()
	out[0].Edits[0].Command = "mutated"
	out[0].EmotionalState = "mutated"

	got, _ := tl.Selected()
	assert.Equal(t, "x", got.Edits[0].Command)
	assert.Equal(t, "mood1", got.EmotionalState)
}

func TestSetImage(t *testing.T) {
	tl := New()
	require.NoError(t, tl.Append(scene(1)))
	require.NoError(t, tl.SetImage("scene_1", "https://img/1.png"))

	got, _ := tl.Selected()
	assert.Equal(t, "https://img/1.png", got.ImageURL)
	assert.ErrorIs(t, tl.SetImage("missing", "u"), ErrUnknownScene)
}

func TestEmotionArcAndEditCount(t *testing.T) {
	tl := New()
	_, scenes := story.DemoBundle("t")
	require.NoError(t, tl.ReplaceAll(scenes))

	assert.Equal(t, []string{"focused", "breakthrough excitement", "vigilant tension", "exhausted but resolute"}, tl.EmotionArc())
	assert.Equal(t, 3, tl.EditCount())
}

func TestClear(t *testing.T) {
	tl := New()
	require.NoError(t, tl.Append(scene(1)))
	tl.Clear()
	assert.Equal(t, 0, tl.Len())
	assert.Empty(t, tl.SelectedID())
	assert.False(t, tl.Contains("scene_1"))
}
