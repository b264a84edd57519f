// Package workflow submits natural-language edit commands to the generation
// service and turns the reply into an accept/reject outcome.
//
// The workflow never mutates the timeline; the caller applies an accepted
// scene. At most one submission is in flight per Workflow.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync/atomic"

	"github.com/kittclouds/chronicle/pkg/canon"
	"github.com/kittclouds/chronicle/pkg/remote"
	"github.com/kittclouds/chronicle/pkg/story"
)

var (
	ErrEmptyCommand       = errors.New("edit command is empty")
	ErrNoSceneSelected    = errors.New("no scene selected")
	ErrNoCharacter        = errors.New("no character loaded")
	ErrSubmissionInFlight = errors.New("an edit is already being processed")
	ErrMalformedResponse  = errors.New("accepted edit returned no scene")
)

// PreconditionError marks a submission refused before any network call.
type PreconditionError struct {
	Err error
}

func (e *PreconditionError) Error() string { return "workflow: " + e.Err.Error() }
func (e *PreconditionError) Unwrap() error { return e.Err }

// IsPrecondition reports whether err was raised before contacting the service.
func IsPrecondition(err error) bool {
	var pe *PreconditionError
	return errors.As(err, &pe)
}

// Outcome is the result of a completed submission.
type Outcome struct {
	Accepted       bool
	Scene          *story.Scene // set when accepted
	Reason         string       // set when rejected
	EditType       story.EditType
	NarrativeDelta string
}

// Workflow submits edits through a remote.Service.
type Workflow struct {
	remote   remote.Service
	logger   *log.Logger
	inFlight atomic.Bool
	canon    atomic.Pointer[canon.Index]
}

// New creates a workflow. A nil logger discards output.
func New(svc remote.Service, logger *log.Logger) *Workflow {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Workflow{remote: svc, logger: logger}
}

// SetCanon installs the trait index used to annotate submissions in the log.
// nil clears it.
func (w *Workflow) SetCanon(idx *canon.Index) {
	w.canon.Store(idx)
}

// InFlight reports whether a submission is outstanding.
func (w *Workflow) InFlight() bool {
	return w.inFlight.Load()
}

// CheckPreconditions validates a submission without contacting the service.
func CheckPreconditions(characterID, sceneID, command string) error {
	switch {
	case strings.TrimSpace(command) == "":
		return &PreconditionError{Err: ErrEmptyCommand}
	case sceneID == "":
		return &PreconditionError{Err: ErrNoSceneSelected}
	case characterID == "":
		return &PreconditionError{Err: ErrNoCharacter}
	}
	return nil
}

// Submit sends command for the given scene and returns the service's decision.
// A rejection is an Outcome, not an error.
func (w *Workflow) Submit(ctx context.Context, characterID, sceneID, command string) (Outcome, error) {
	if err := CheckPreconditions(characterID, sceneID, command); err != nil {
		return Outcome{}, err
	}
	if !w.inFlight.CompareAndSwap(false, true) {
		return Outcome{}, &PreconditionError{Err: ErrSubmissionInFlight}
	}
	defer w.inFlight.Store(false)

	command = strings.TrimSpace(command)
	if idx := w.canon.Load(); idx != nil {
		if traits := idx.Mentions(command); len(traits) > 0 {
			w.logger.Printf("[EditWorkflow] command touches canon traits %v: %q", traits, command)
		}
	}

	res, err := w.remote.SubmitEdit(ctx, remote.EditRequest{
		CharacterID: characterID,
		SceneID:     sceneID,
		Command:     command,
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("workflow: submit edit: %w", err)
	}

	if res.Rejected {
		w.logger.Printf("[EditWorkflow] edit rejected (%s): %s", res.EditType, res.Reason)
		return Outcome{
			Accepted: false,
			Reason:   res.Reason,
			EditType: res.EditType,
		}, nil
	}

	if res.NewScene == nil {
		return Outcome{}, fmt.Errorf("workflow: submit edit: %w", ErrMalformedResponse)
	}

	scene := res.NewScene.Clone()
	w.logger.Printf("[EditWorkflow] edit accepted (%s): scene %d", res.EditType, scene.SceneNumber)
	return Outcome{
		Accepted:       true,
		Scene:          &scene,
		EditType:       res.EditType,
		NarrativeDelta: res.NarrativeDelta,
	}, nil
}
