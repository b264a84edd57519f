// Package remote defines the contract with the story generation service and
// an HTTP client for it.
//
// A rejected edit is a normal result (EditResult.Rejected), never an error.
// Errors mean the request itself failed.
package remote

import (
	"context"
	"fmt"

	"github.com/kittclouds/chronicle/pkg/story"
)

// Service is the generation service as seen by the state engine.
type Service interface {
	CreateCharacter(ctx context.Context, draft story.CharacterDraft) (*CreateResult, error)
	SubmitEdit(ctx context.Context, req EditRequest) (*EditResult, error)
	Recap(ctx context.Context, characterID string) (string, error)
	DeleteCharacter(ctx context.Context, characterID string) (string, error)
	LoadDemo(ctx context.Context) (*DemoResult, error)
}

// CreateResult is the response to CreateCharacter.
type CreateResult struct {
	Character  *story.Character `json:"character"`
	FirstScene *story.Scene     `json:"firstScene"`
	Message    string           `json:"message"`
}

// EditRequest asks the service to apply command to a scene.
type EditRequest struct {
	CharacterID string `json:"characterId"`
	SceneID     string `json:"sceneId"`
	Command     string `json:"command"`
}

// EditResult is the accept/reject decision for an edit.
type EditResult struct {
	Success        bool           `json:"success"`
	Rejected       bool           `json:"rejected"`
	Reason         string         `json:"reason,omitempty"`
	EditType       story.EditType `json:"editType,omitempty"`
	NewScene       *story.Scene   `json:"newScene,omitempty"`
	NarrativeDelta string         `json:"narrativeDelta,omitempty"`
}

// DemoResult is the pre-built demo bundle.
type DemoResult struct {
	Character *story.Character `json:"character"`
	Scenes    []story.Scene    `json:"scenes"`
	Message   string           `json:"message"`
}

// RecapResult is the wire shape of a recap response.
type RecapResult struct {
	Recap string `json:"recap"`
}

// MessageResult is the wire shape of an acknowledgement.
type MessageResult struct {
	Message string `json:"message"`
}

// ErrorBody is the wire shape of a failed request.
type ErrorBody struct {
	Detail string `json:"detail"`
}

// Error is a failed remote call.
type Error struct {
	Op      string // e.g. "create character"
	Status  int    // HTTP status, 0 when the request never completed
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Message == "":
		return fmt.Sprintf("remote: %s: %v", e.Op, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("remote: %s: %s (status %d)", e.Op, e.Message, e.Status)
	default:
		return fmt.Sprintf("remote: %s: %s", e.Op, e.Message)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Detail returns the human-readable failure message without the op prefix.
func (e *Error) Detail() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "API request failed"
}
