// Package remotetest provides a scriptable in-memory remote.Service for tests.
package remotetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/kittclouds/chronicle/pkg/remote"
	"github.com/kittclouds/chronicle/pkg/story"
)

// Fake is a remote.Service whose responses are set per method.
// Every call is counted. When Gate is non-nil each call blocks until a
// value is received from it or the context ends.
type Fake struct {
	mu sync.Mutex

	CreateFunc func(story.CharacterDraft) (*remote.CreateResult, error)
	EditFunc   func(remote.EditRequest) (*remote.EditResult, error)
	RecapFunc  func(characterID string) (string, error)
	DeleteFunc func(characterID string) (string, error)
	DemoFunc   func() (*remote.DemoResult, error)

	Gate chan struct{}

	// Entered receives one value per call once the call has started.
	Entered chan string

	calls map[string]int
	edits []remote.EditRequest
}

// New returns a Fake with default behaviour: create yields one scene,
// edits are accepted as the next scene, recap echoes, delete succeeds and
// demo returns the demo bundle.
func New() *Fake {
	f := &Fake{calls: make(map[string]int)}
	f.CreateFunc = func(d story.CharacterDraft) (*remote.CreateResult, error) {
		char := &story.Character{ID: "char_1", Name: d.Name, ImmutableTraits: d.ImmutableTraits}
		scene := &story.Scene{ID: "scene_1", CharacterID: char.ID, SceneNumber: 1, EmotionalState: d.EmotionalBaseline, Edits: []story.Edit{}}
		return &remote.CreateResult{Character: char, FirstScene: scene, Message: fmt.Sprintf("Character '%s' created successfully", d.Name)}, nil
	}
	f.RecapFunc = func(id string) (string, error) { return "recap of " + id, nil }
	f.DeleteFunc = func(id string) (string, error) { return "deleted " + id, nil }
	f.DemoFunc = func() (*remote.DemoResult, error) {
		char, scenes := story.DemoBundle("2025-01-01T00:00:00")
		return &remote.DemoResult{Character: char, Scenes: scenes, Message: "Demo data loaded successfully"}, nil
	}
	return f
}

// AcceptNext makes edits succeed with a scene numbered next.
func (f *Fake) AcceptNext(next int, editType story.EditType) {
	f.EditFunc = func(r remote.EditRequest) (*remote.EditResult, error) {
		scene := &story.Scene{
			ID:              fmt.Sprintf("scene_%d", next),
			CharacterID:     r.CharacterID,
			SceneNumber:     next,
			PreviousSceneID: r.SceneID,
			Edits:           []story.Edit{{Command: r.Command, EditType: editType}},
		}
		return &remote.EditResult{Success: true, NewScene: scene, EditType: editType, NarrativeDelta: r.Command}, nil
	}
}

// Reject makes edits come back rejected with reason.
func (f *Fake) Reject(reason string) {
	f.EditFunc = func(remote.EditRequest) (*remote.EditResult, error) {
		return &remote.EditResult{Rejected: true, Reason: reason, EditType: story.EditInvalid}, nil
	}
}

// Calls returns how many times method was called.
func (f *Fake) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

// Edits returns the edit requests received so far.
func (f *Fake) Edits() []remote.EditRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]remote.EditRequest(nil), f.edits...)
}

func (f *Fake) enter(ctx context.Context, method string) error {
	f.mu.Lock()
	f.calls[method]++
	gate, entered := f.Gate, f.Entered
	f.mu.Unlock()

	if entered != nil {
		entered <- method
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (f *Fake) CreateCharacter(ctx context.Context, d story.CharacterDraft) (*remote.CreateResult, error) {
	if err := f.enter(ctx, "create"); err != nil {
		return nil, err
	}
	return f.CreateFunc(d)
}

func (f *Fake) SubmitEdit(ctx context.Context, r remote.EditRequest) (*remote.EditResult, error) {
	f.mu.Lock()
	f.edits = append(f.edits, r)
	f.mu.Unlock()
	if err := f.enter(ctx, "edit"); err != nil {
		return nil, err
	}
	if f.EditFunc == nil {
		return nil, &remote.Error{Op: "submit edit", Message: "no edit behaviour configured"}
	}
	return f.EditFunc(r)
}

func (f *Fake) Recap(ctx context.Context, id string) (string, error) {
	if err := f.enter(ctx, "recap"); err != nil {
		return "", err
	}
	return f.RecapFunc(id)
}

func (f *Fake) DeleteCharacter(ctx context.Context, id string) (string, error) {
	if err := f.enter(ctx, "delete"); err != nil {
		return "", err
	}
	return f.DeleteFunc(id)
}

func (f *Fake) LoadDemo(ctx context.Context) (*remote.DemoResult, error) {
	if err := f.enter(ctx, "demo"); err != nil {
		return nil, err
	}
	return f.DemoFunc()
}

var _ remote.Service = (*Fake)(nil)
