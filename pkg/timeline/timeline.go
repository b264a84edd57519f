// Package timeline holds the ordered, append-only scene sequence of one
// character together with the selected-scene pointer.
//
// A Timeline is not safe for concurrent use; the controller that owns it
// serializes access.
package timeline

import (
	"errors"
	"fmt"

	"github.com/kittclouds/chronicle/pkg/story"
)

var (
	// ErrUnknownScene is returned when an id does not name a scene in the timeline.
	ErrUnknownScene = errors.New("timeline: unknown scene")
	// ErrOutOfOrder is returned when a scene number breaks the 1..n sequence.
	ErrOutOfOrder = errors.New("timeline: scene number out of order")
	// ErrDuplicateScene is returned when a scene id is already present.
	ErrDuplicateScene = errors.New("timeline: duplicate scene id")
)

// Timeline is an ordered sequence of scenes numbered 1..n without gaps.
type Timeline struct {
	scenes   []story.Scene
	selected string
}

// New returns an empty timeline.
func New() *Timeline {
	return &Timeline{}
}

// Append adds scene at the end and selects it. The scene number must be
// one more than the current maximum.
func (t *Timeline) Append(scene story.Scene) error {
	if want := len(t.scenes) + 1; scene.SceneNumber != want {
		return fmt.Errorf("%w: got %d, want %d", ErrOutOfOrder, scene.SceneNumber, want)
	}
	if t.Contains(scene.ID) {
		return fmt.Errorf("%w: %s", ErrDuplicateScene, scene.ID)
	}
	t.scenes = append(t.scenes, scene.Clone())
	t.selected = scene.ID
	return nil
}

// Select points the selection at id. Unknown ids leave the selection unchanged.
func (t *Timeline) Select(id string) error {
	if !t.Contains(id) {
		return fmt.Errorf("%w: %q", ErrUnknownScene, id)
	}
	t.selected = id
	return nil
}

// ReplaceAll installs scenes as the whole timeline and selects the last one.
// On error the timeline is left unchanged.
func (t *Timeline) ReplaceAll(scenes []story.Scene) error {
	if err := Validate(scenes); err != nil {
		return err
	}
	t.scenes = story.CloneScenes(scenes)
	t.selected = ""
	if n := len(t.scenes); n > 0 {
		t.selected = t.scenes[n-1].ID
	}
	return nil
}

// Clear empties the timeline and the selection.
func (t *Timeline) Clear() {
	t.scenes = nil
	t.selected = ""
}

// Validate checks that scenes are numbered 1..n in order with unique ids.
func Validate(scenes []story.Scene) error {
	seen := make(map[string]struct{}, len(scenes))
	for i, s := range scenes {
		if s.SceneNumber != i+1 {
			return fmt.Errorf("%w: position %d has number %d", ErrOutOfOrder, i+1, s.SceneNumber)
		}
		if _, dup := seen[s.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateScene, s.ID)
		}
		seen[s.ID] = struct{}{}
	}
	return nil
}

// SetImage records the generated preview URL on a scene.
func (t *Timeline) SetImage(id, url string) error {
	i := t.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownScene, id)
	}
	t.scenes[i].ImageURL = url
	return nil
}

// =============================================================================
// Accessors
// =============================================================================

// Scenes returns a copy of the scenes in order.
func (t *Timeline) Scenes() []story.Scene {
	return story.CloneScenes(t.scenes)
}

// Len returns the number of scenes.
func (t *Timeline) Len() int { return len(t.scenes) }

// Contains reports whether id names a scene in the timeline.
func (t *Timeline) Contains(id string) bool { return t.index(id) >= 0 }

// Last returns the highest-numbered scene.
func (t *Timeline) Last() (story.Scene, bool) {
	if len(t.scenes) == 0 {
		return story.Scene{}, false
	}
	return t.scenes[len(t.scenes)-1].Clone(), true
}

// SelectedID returns the selected scene id, or "" when nothing is selected.
func (t *Timeline) SelectedID() string { return t.selected }

// Selected returns the selected scene.
func (t *Timeline) Selected() (story.Scene, bool) {
	i := t.index(t.selected)
	if i < 0 {
		return story.Scene{}, false
	}
	return t.scenes[i].Clone(), true
}

// EmotionArc lists the emotional state of each scene in order.
func (t *Timeline) EmotionArc() []string {
	arc := make([]string, len(t.scenes))
	for i, s := range t.scenes {
		arc[i] = s.EmotionalState
	}
	return arc
}

// EditCount returns the number of edits recorded across all scenes.
func (t *Timeline) EditCount() int {
	n := 0
	for _, s := range t.scenes {
		n += len(s.Edits)
	}
	return n
}

func (t *Timeline) index(id string) int {
	if id == "" {
		return -1
	}
	for i := range t.scenes {
		if t.scenes[i].ID == id {
			return i
		}
	}
	return -1
}
