package controller

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/kittclouds/chronicle/pkg/remote"
	"github.com/kittclouds/chronicle/pkg/story"
	"github.com/kittclouds/chronicle/pkg/timeline"
	"github.com/kittclouds/chronicle/pkg/workflow"
)

// =============================================================================
// In-flight bookkeeping
// =============================================================================

// begin marks a mutating remote call as started and returns its token.
func (c *Controller) begin() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.beginLocked()
}

func (c *Controller) beginLocked() uint64 {
	c.inflight++
	c.epoch++
	return c.epoch
}

// finishLocked releases the processing flag and reports whether the
// response for token may still be applied.
func (c *Controller) finishLocked(token uint64, op string) bool {
	c.inflight--
	if c.fence && token != c.epoch {
		c.logger.Printf("[Controller] %s: stale response discarded", op)
		return false
	}
	return true
}

// detail is the operator-facing message of a failed call.
func detail(err error) string {
	var rerr *remote.Error
	if errors.As(err, &rerr) {
		return rerr.Detail()
	}
	var perr *workflow.PreconditionError
	if errors.As(err, &perr) {
		return perr.Err.Error()
	}
	return err.Error()
}

func isNotFound(err error) bool {
	var rerr *remote.Error
	return errors.As(err, &rerr) && rerr.Status == http.StatusNotFound
}

// =============================================================================
// Create / demo
// =============================================================================

// CreateCharacter creates a character with its first scene and enters story mode.
func (c *Controller) CreateCharacter(ctx context.Context, draft story.CharacterDraft) error {
	token := c.begin()
	res, err := c.remote.CreateCharacter(ctx, draft)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.finishLocked(token, "create character") {
		return ErrStaleResponse
	}

	if err == nil && (res == nil || res.Character == nil || res.FirstScene == nil) {
		err = &remote.Error{Op: "create character", Message: "response missing character or first scene"}
	}
	if err == nil {
		err = timeline.Validate([]story.Scene{*res.FirstScene})
	}
	if err != nil {
		c.postLocked(SeverityError, msgCreateFailed+detail(err))
		return fmt.Errorf("controller: create character: %w", err)
	}

	c.setCharacterLocked(res.Character)
	if err := c.timeline.ReplaceAll([]story.Scene{*res.FirstScene}); err != nil {
		return fmt.Errorf("controller: create character: %w", err)
	}
	c.step = story.StepStoryMode
	c.command = ""
	c.refreshDerivedLocked()
	c.saveAllLocked()

	c.postLocked(SeveritySuccess, res.Message)
	c.logger.Printf("[Controller] created character %s (%s)", c.character.Name, c.character.ID)
	return nil
}

// LoadDemo replaces the session with the demo character and its scenes.
func (c *Controller) LoadDemo(ctx context.Context) error {
	token := c.begin()
	res, err := c.remote.LoadDemo(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.finishLocked(token, "load demo") {
		return ErrStaleResponse
	}

	if err == nil && (res == nil || res.Character == nil) {
		err = &remote.Error{Op: "load demo", Message: "response missing character"}
	}
	if err == nil && len(res.Scenes) == 0 {
		err = &remote.Error{Op: "load demo", Message: "demo bundle has no scenes"}
	}
	if err == nil {
		err = timeline.Validate(res.Scenes)
	}
	if err != nil {
		c.postLocked(SeverityError, msgDemoFailed)
		c.logger.Printf("[Controller] load demo: %v", err)
		return fmt.Errorf("controller: load demo: %w", err)
	}

	c.setCharacterLocked(res.Character)
	if err := c.timeline.ReplaceAll(res.Scenes); err != nil {
		return fmt.Errorf("controller: load demo: %w", err)
	}
	c.step = story.StepStoryMode
	c.command = ""
	c.refreshDerivedLocked()
	c.saveAllLocked()

	c.postLocked(SeveritySuccess, msgDemoLoaded)
	return nil
}

// =============================================================================
// Edits
// =============================================================================

// SubmitEdit sends the pending command for the selected scene.
//
// Precondition failures post an error notice, keep the command and never
// reach the service. An accepted edit appends and selects the new scene;
// a rejection changes nothing but the notice. The command is cleared after
// either decision.
func (c *Controller) SubmitEdit(ctx context.Context) error {
	c.mu.Lock()
	charID := ""
	if c.character != nil {
		charID = c.character.ID
	}
	sceneID := c.timeline.SelectedID()
	command := c.command

	err := workflow.CheckPreconditions(charID, sceneID, command)
	if err == nil && c.workflow.InFlight() {
		// refuse before taking a token so the outstanding edit stays current
		err = &workflow.PreconditionError{Err: workflow.ErrSubmissionInFlight}
	}
	if err != nil {
		c.postLocked(SeverityError, msgEditFailed+detail(err))
		c.mu.Unlock()
		return err
	}
	token := c.beginLocked()
	c.mu.Unlock()

	out, err := c.workflow.Submit(ctx, charID, sceneID, command)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.finishLocked(token, "submit edit") {
		return ErrStaleResponse
	}

	if err != nil {
		c.postLocked(SeverityError, msgEditFailed+detail(err))
		if workflow.IsPrecondition(err) {
			return err
		}
		return fmt.Errorf("controller: submit edit: %w", err)
	}

	if !out.Accepted {
		c.command = ""
		c.postLocked(SeverityError, msgEditRejected+out.Reason)
		return nil
	}

	if err := c.timeline.Append(*out.Scene); err != nil {
		c.postLocked(SeverityError, msgEditFailed+err.Error())
		return fmt.Errorf("controller: submit edit: %w", err)
	}
	c.command = ""
	c.refreshDerivedLocked()
	c.saveScenesLocked()
	c.saveSelectionLocked()

	c.postLocked(SeveritySuccess, msgSceneEvolved)
	return nil
}

// =============================================================================
// Recap / reset / image
// =============================================================================

// RequestRecap asks for a narrative recap and posts it as an info notice.
// It does not change the session.
func (c *Controller) RequestRecap(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.character == nil || c.timeline.Len() == 0 {
		err := ErrNoCharacter
		if c.character != nil {
			err = ErrNoScenes
		}
		c.postLocked(SeverityError, msgRecapFailed)
		c.mu.Unlock()
		return "", err
	}
	charID := c.character.ID
	c.inflight++
	c.mu.Unlock()

	recap, err := c.remote.Recap(ctx, charID)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inflight--

	if err != nil {
		c.postLocked(SeverityError, msgRecapFailed)
		c.logger.Printf("[Controller] recap: %v", err)
		return "", fmt.Errorf("controller: recap: %w", err)
	}
	c.postLocked(SeverityInfo, recap)
	return recap, nil
}

// Reset deletes the character on the service and clears the session and
// all saved slots. confirm must approve ResetPrompt; otherwise nothing happens.
func (c *Controller) Reset(ctx context.Context, confirm ConfirmFunc) error {
	if confirm == nil || !confirm(ResetPrompt) {
		return ErrResetNotConfirmed
	}

	c.mu.Lock()
	charID := ""
	if c.character != nil {
		charID = c.character.ID
	}
	token := c.beginLocked()
	c.mu.Unlock()

	var err error
	if charID != "" {
		_, err = c.remote.DeleteCharacter(ctx, charID)
		if isNotFound(err) {
			c.logger.Printf("[Controller] reset: character %s already gone on the service", charID)
			err = nil
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.finishLocked(token, "reset") {
		return ErrStaleResponse
	}

	if err != nil {
		c.postLocked(SeverityError, msgResetFailed)
		c.logger.Printf("[Controller] reset: %v", err)
		return fmt.Errorf("controller: reset: %w", err)
	}

	c.setCharacterLocked(nil)
	c.timeline.Clear()
	c.step = story.StepIntro
	c.command = ""
	c.refreshDerivedLocked()
	if err := c.store.Clear(); err != nil {
		c.logger.Printf("[Controller] clear slots: %v", err)
	}

	c.postLocked(SeverityInfo, msgResetDone)
	return nil
}

// AttachImage records a generated preview image on a scene.
func (c *Controller) AttachImage(sceneID, imageURL string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.timeline.SetImage(sceneID, imageURL); err != nil {
		return fmt.Errorf("controller: %w", err)
	}
	c.saveScenesLocked()
	c.postLocked(SeveritySuccess, msgImageAttached)
	return nil
}
