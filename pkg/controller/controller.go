// Package controller owns a Chronicle session: the step state machine, the
// canonical character, the scene timeline, transient notices and the
// in-flight flag. It mediates every call to the generation service and to
// durable storage, and recomputes derived values after each timeline change.
//
// Steps: intro -> create-character -> story-mode, story-mode -> intro,
// intro -> story-mode (continue or demo), create-character -> intro.
//
// One mutex guards the session and is never held across a remote call.
package controller

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/kittclouds/chronicle/internal/store"
	"github.com/kittclouds/chronicle/pkg/canon"
	"github.com/kittclouds/chronicle/pkg/consistency"
	"github.com/kittclouds/chronicle/pkg/remote"
	"github.com/kittclouds/chronicle/pkg/story"
	"github.com/kittclouds/chronicle/pkg/timeline"
	"github.com/kittclouds/chronicle/pkg/workflow"
)

var (
	ErrNoRemote          = errors.New("controller: remote service is required")
	ErrNoCharacter       = errors.New("controller: no character loaded")
	ErrNoScenes          = errors.New("controller: timeline is empty")
	ErrNoSavedSession    = errors.New("controller: no saved session to continue")
	ErrResetNotConfirmed = errors.New("controller: reset not confirmed")
	ErrStaleResponse     = errors.New("controller: response discarded, session moved on")
	ErrBadTransition     = errors.New("controller: transition not allowed from current step")
)

// ResetPrompt is shown to the operator before a reset.
const ResetPrompt = "Reset system? This will delete the current character and all history."

// ConfirmFunc asks the operator a yes/no question.
type ConfirmFunc func(prompt string) bool

// Persistence is the durable slot store the controller writes through.
type Persistence interface {
	SaveCharacter(c *story.Character) error
	SaveScenes(scenes []story.Scene) error
	SaveStep(step story.Step) error
	SaveSelection(sceneID string) error
	Load() store.Snapshot
	Clear() error
}

// Options configures a Controller.
type Options struct {
	Remote remote.Service // required
	Store  Persistence    // nil keeps state in memory only
	Logger *log.Logger

	// NoticeTTL is how long notices stay visible; 0 means DefaultNoticeTTL.
	NoticeTTL time.Duration

	// FenceRequests discards responses that arrive after the session moved
	// on (navigation or a newer mutating call).
	FenceRequests bool

	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

// Controller is a single Chronicle session. Safe for concurrent use.
type Controller struct {
	mu sync.Mutex

	remote   remote.Service
	store    Persistence
	logger   *log.Logger
	workflow *workflow.Workflow
	ttl      time.Duration
	fence    bool
	now      func() time.Time

	step      story.Step
	character *story.Character
	timeline  *timeline.Timeline
	command   string
	notice    *Notice

	inflight int
	epoch    uint64

	// derived
	score int
	canon *canon.Index
}

// New creates a controller and restores any saved session from opts.Store.
func New(opts Options) (*Controller, error) {
	if opts.Remote == nil {
		return nil, ErrNoRemote
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	st := opts.Store
	if st == nil {
		st = store.NewSlots(store.NewMemoryStore(), logger)
	}
	ttl := opts.NoticeTTL
	if ttl == 0 {
		ttl = DefaultNoticeTTL
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	c := &Controller{
		remote:   opts.Remote,
		store:    st,
		logger:   logger,
		workflow: workflow.New(opts.Remote, logger),
		ttl:      ttl,
		fence:    opts.FenceRequests,
		now:      now,
		step:     story.StepIntro,
		timeline: timeline.New(),
		score:    consistency.MaxScore,
	}
	c.restore(st.Load())
	return c, nil
}

// restore installs a saved snapshot, repairing whatever does not fit together.
func (c *Controller) restore(snap store.Snapshot) {
	c.setCharacterLocked(snap.Character)

	if err := c.timeline.ReplaceAll(snap.Scenes); err != nil {
		c.logger.Printf("[Controller] saved scenes unusable: %v", err)
		c.timeline.Clear()
	}
	if id := snap.SelectedSceneID; id != "" {
		if err := c.timeline.Select(id); err != nil {
			c.logger.Printf("[Controller] saved selection %q not in timeline, using latest scene", id)
		}
	}

	c.step = snap.Step
	if !c.step.Valid() {
		c.step = story.StepIntro
	}
	if c.step == story.StepStoryMode && (c.character == nil || c.timeline.Len() == 0) {
		c.logger.Printf("[Controller] saved step story-mode without a session, using intro")
		c.step = story.StepIntro
	}

	c.refreshDerivedLocked()
	c.logger.Printf("[Controller] restored step=%s scenes=%d", c.step, c.timeline.Len())
}

// =============================================================================
// Navigation
// =============================================================================

// BeginCreate moves from intro to the character form.
func (c *Controller) BeginCreate() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.step != story.StepIntro {
		return fmt.Errorf("%w: %s -> %s", ErrBadTransition, c.step, story.StepCreateCharacter)
	}
	c.moveLocked(story.StepCreateCharacter)
	return nil
}

// Back returns to intro from the form or from story mode. Session data is kept.
func (c *Controller) Back() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.step == story.StepIntro {
		return fmt.Errorf("%w: already at intro", ErrBadTransition)
	}
	c.moveLocked(story.StepIntro)
	return nil
}

// Continue resumes a saved session from intro, selecting the latest scene.
func (c *Controller) Continue() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.step != story.StepIntro {
		return fmt.Errorf("%w: %s -> %s", ErrBadTransition, c.step, story.StepStoryMode)
	}
	last, ok := c.timeline.Last()
	if c.character == nil || !ok {
		return ErrNoSavedSession
	}
	if err := c.timeline.Select(last.ID); err != nil {
		return err
	}
	c.saveSelectionLocked()
	c.moveLocked(story.StepStoryMode)
	return nil
}

// SelectScene moves the selection pointer. Unknown ids leave it unchanged.
func (c *Controller) SelectScene(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.timeline.Select(id); err != nil {
		return fmt.Errorf("controller: %w", err)
	}
	c.saveSelectionLocked()
	return nil
}

// moveLocked changes step, persists it and, with fencing, invalidates
// outstanding responses.
func (c *Controller) moveLocked(step story.Step) {
	if c.fence {
		c.epoch++
	}
	c.step = step
	c.saveStepLocked()
}

// =============================================================================
// Command input and notices
// =============================================================================

// SetCommand stores the pending edit command.
func (c *Controller) SetCommand(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.command = text
}

// Command returns the pending edit command.
func (c *Controller) Command() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.command
}

// Notice returns the current notice, or nil when there is none or it expired.
func (c *Controller) Notice() *Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.noticeLocked()
}

// DismissNotice clears the current notice.
func (c *Controller) DismissNotice() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notice = nil
}

func (c *Controller) noticeLocked() *Notice {
	if c.notice == nil || c.notice.Expired(c.now(), c.ttl) {
		return nil
	}
	n := *c.notice
	return &n
}

func (c *Controller) postLocked(sev Severity, text string) {
	c.notice = &Notice{Text: text, Severity: sev, PostedAt: c.now()}
	if sev == SeverityError {
		c.logger.Printf("[Controller] %s", text)
	}
}

// =============================================================================
// Derived values
// =============================================================================

// refreshDerivedLocked recomputes everything derived from the timeline.
// Called after every timeline mutation.
func (c *Controller) refreshDerivedLocked() {
	c.score = consistency.Score(c.timeline.Scenes())
}

// setCharacterLocked installs the character and rebuilds its trait index.
func (c *Controller) setCharacterLocked(ch *story.Character) {
	c.character = ch.Clone()
	c.canon = nil
	if ch != nil {
		idx, err := canon.NewIndex(ch)
		if err != nil {
			c.logger.Printf("[Controller] canon index: %v", err)
		} else {
			c.canon = idx
		}
	}
	c.workflow.SetCanon(c.canon)
}

// =============================================================================
// Persistence
// =============================================================================

// Write failures are logged and never surfaced to the operator.

func (c *Controller) saveCharacterLocked() {
	if err := c.store.SaveCharacter(c.character); err != nil {
		c.logger.Printf("[Controller] save character: %v", err)
	}
}

func (c *Controller) saveScenesLocked() {
	if err := c.store.SaveScenes(c.timeline.Scenes()); err != nil {
		c.logger.Printf("[Controller] save scenes: %v", err)
	}
}

func (c *Controller) saveStepLocked() {
	if err := c.store.SaveStep(c.step); err != nil {
		c.logger.Printf("[Controller] save step: %v", err)
	}
}

func (c *Controller) saveSelectionLocked() {
	if err := c.store.SaveSelection(c.timeline.SelectedID()); err != nil {
		c.logger.Printf("[Controller] save selection: %v", err)
	}
}

func (c *Controller) saveAllLocked() {
	c.saveCharacterLocked()
	c.saveScenesLocked()
	c.saveSelectionLocked()
	c.saveStepLocked()
}

// =============================================================================
// Accessors
// =============================================================================

// Step returns the current step.
func (c *Controller) Step() story.Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step
}

// Character returns a copy of the character, or nil.
func (c *Controller) Character() *story.Character {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.character.Clone()
}

// Scenes returns a copy of the timeline.
func (c *Controller) Scenes() []story.Scene {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timeline.Scenes()
}

// SelectedScene returns the selected scene.
func (c *Controller) SelectedScene() (story.Scene, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timeline.Selected()
}

// Score returns the current consistency score.
func (c *Controller) Score() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.score
}

// Processing reports whether any remote call is outstanding. Advisory:
// callers should not start a new operation while it is true.
func (c *Controller) Processing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight > 0
}

// View is an immutable snapshot of everything a front end displays.
type View struct {
	Step            story.Step       `json:"step"`
	Character       *story.Character `json:"character"`
	Scenes          []story.Scene    `json:"scenes"`
	SelectedSceneID string           `json:"selectedSceneId,omitempty"`
	Processing      bool             `json:"isProcessing"`
	Notice          *Notice          `json:"systemMessage,omitempty"`
	Score           int              `json:"consistencyScore"`
	Command         string           `json:"editCommand"`
	EmotionArc      []string         `json:"emotionArc,omitempty"`
	Canon           *canon.Report    `json:"canon,omitempty"`
	HasSavedData    bool             `json:"hasSavedData"`
}

// View returns a snapshot of the session.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		Step:            c.step,
		Character:       c.character.Clone(),
		Scenes:          c.timeline.Scenes(),
		SelectedSceneID: c.timeline.SelectedID(),
		Processing:      c.inflight > 0,
		Notice:          c.noticeLocked(),
		Score:           c.score,
		Command:         c.command,
		HasSavedData:    c.character != nil && c.timeline.Len() > 0,
	}
	if c.timeline.Len() > 1 {
		v.EmotionArc = c.timeline.EmotionArc()
	}
	if sel, ok := c.timeline.Selected(); ok && c.canon != nil && c.canon.Len() > 0 {
		r := c.canon.Check(sel)
		v.Canon = &r
	}
	return v
}

// PreviewURL builds the image-preview URL for a scene's visual prompt.
func PreviewURL(scene story.Scene, seed int64) string {
	return fmt.Sprintf("https://image.pollinations.ai/prompt/%s?width=1024&height=576&nologo=true&seed=%d",
		url.PathEscape(scene.VisualPrompt), seed)
}
