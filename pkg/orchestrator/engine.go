// Package orchestrator is the in-process generation service.
//
// The Engine keeps characters and scenes in memory and asks a Generator
// (Gemini in production) for first scenes, edit verdicts, evolved scenes
// and recaps. It satisfies remote.Service, so the state engine can run
// against it directly or behind the REST server in internal/api.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kittclouds/chronicle/pkg/remote"
	"github.com/kittclouds/chronicle/pkg/story"
)

const tracerName = "github.com/kittclouds/chronicle/pkg/orchestrator"

// NoScenesRecap is returned by Recap for a character without scenes.
const NoScenesRecap = "No scenes yet to generate a recap."

var (
	ErrCharacterNotFound = errors.New("Character not found")
	ErrSceneNotFound     = errors.New("Scene not found")
	ErrInvalidDraft      = errors.New("character name is required")
)

// Engine is the generation service.
type Engine struct {
	gen    Generator
	logger *log.Logger
	tracer trace.Tracer
	now    func() time.Time
	newID  func(prefix string) string

	mu         sync.RWMutex
	characters map[string]*story.Character
	scenes     map[string]*story.Scene
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDs overrides id generation. fn receives "char" or "scene".
func WithIDs(fn func(prefix string) string) Option {
	return func(e *Engine) { e.newID = fn }
}

// NewEngine creates an engine over gen. A nil logger uses log.Default().
func NewEngine(gen Generator, logger *log.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	e := &Engine{
		gen:        gen,
		logger:     logger,
		tracer:     otel.Tracer(tracerName),
		now:        time.Now,
		newID:      func(prefix string) string { return prefix + "_" + uuid.NewString() },
		characters: make(map[string]*story.Character),
		scenes:     make(map[string]*story.Scene),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var _ remote.Service = (*Engine)(nil)

func (e *Engine) timestamp() string {
	return e.now().UTC().Format(time.RFC3339Nano)
}

// =============================================================================
// Errors
// =============================================================================

func notFound(op string, err error) error {
	return &remote.Error{Op: op, Status: http.StatusNotFound, Message: err.Error(), Err: err}
}

// failed wraps a generation failure the way the REST surface reports it.
func failed(op, prefix string, err error) error {
	return &remote.Error{
		Op:      op,
		Status:  http.StatusInternalServerError,
		Message: prefix + err.Error(),
		Err:     err,
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// =============================================================================
// remote.Service
// =============================================================================

// CreateCharacter stores a new character and generates its first scene.
// Nothing is stored when generation fails.
func (e *Engine) CreateCharacter(ctx context.Context, draft story.CharacterDraft) (res *remote.CreateResult, err error) {
	ctx, span := e.tracer.Start(ctx, "orchestrator.CreateCharacter")
	defer func() { endSpan(span, err) }()

	draft.Name = strings.TrimSpace(draft.Name)
	if draft.Name == "" {
		return nil, &remote.Error{Op: "create character", Status: http.StatusUnprocessableEntity, Message: ErrInvalidDraft.Error(), Err: ErrInvalidDraft}
	}

	now := e.timestamp()
	char := &story.Character{
		ID:                  e.newID("char"),
		Name:                draft.Name,
		CanonicalAppearance: draft.CanonicalAppearance,
		Personality:         draft.Personality,
		EmotionalBaseline:   draft.EmotionalBaseline,
		ImmutableTraits:     append([]string{}, draft.ImmutableTraits...),
		CreatedAt:           now,
	}
	span.SetAttributes(attribute.String("chronicle.character_id", char.ID))

	raw, err := e.gen.Generate(ctx, Request{Prompt: BuildFirstScenePrompt(char), Schema: sceneSchema})
	if err != nil {
		return nil, failed("create character", "Error creating character: ", err)
	}
	draftScene, err := ParseScene(raw)
	if err != nil {
		return nil, failed("create character", "Error creating character: ", err)
	}

	scene := &story.Scene{
		ID:               e.newID("scene"),
		CharacterID:      char.ID,
		SceneNumber:      1,
		SceneDescription: draftScene.SceneDescription,
		VisualPrompt:     draftScene.VisualPrompt,
		EmotionalState:   draftScene.EmotionalState,
		Environment:      draftScene.Environment,
		NarrativeSummary: draftScene.NarrativeSummary,
		Timestamp:        now,
		Edits:            []story.Edit{},
	}

	e.mu.Lock()
	e.characters[char.ID] = char
	e.scenes[scene.ID] = scene
	e.mu.Unlock()

	e.logger.Printf("[Orchestrator] created %s (%s)", char.Name, char.ID)
	first := scene.Clone()
	return &remote.CreateResult{
		Character:  char.Clone(),
		FirstScene: &first,
		Message:    fmt.Sprintf("Character '%s' created successfully", char.Name),
	}, nil
}

// SubmitEdit validates command against canon and, when approved, generates
// and stores the evolved scene. A rejection stores nothing.
func (e *Engine) SubmitEdit(ctx context.Context, req remote.EditRequest) (res *remote.EditResult, err error) {
	ctx, span := e.tracer.Start(ctx, "orchestrator.SubmitEdit", trace.WithAttributes(
		attribute.String("chronicle.character_id", req.CharacterID),
		attribute.String("chronicle.scene_id", req.SceneID),
	))
	defer func() { endSpan(span, err) }()

	e.mu.RLock()
	char, current, err := e.lookupLocked(req.CharacterID, req.SceneID)
	e.mu.RUnlock()
	if err != nil {
		return nil, notFound("submit edit", err)
	}

	raw, err := e.gen.Generate(ctx, Request{Prompt: BuildEditPrompt(char, current, req.Command), Schema: editSchema})
	if err != nil {
		return nil, failed("submit edit", "Error processing edit: ", err)
	}
	analysis, err := ParseEditAnalysis(raw)
	if err != nil {
		return nil, failed("submit edit", "Error processing edit: ", err)
	}
	span.SetAttributes(
		attribute.String("chronicle.edit_type", string(analysis.EditType)),
		attribute.Bool("chronicle.edit_valid", analysis.IsValid),
	)

	if !analysis.IsValid {
		e.logger.Printf("[Orchestrator] edit rejected for %s: %s", char.ID, analysis.RejectionReason)
		return &remote.EditResult{
			Success:  false,
			Rejected: true,
			Reason:   analysis.RejectionReason,
			EditType: analysis.EditType,
		}, nil
	}

	raw, err = e.gen.Generate(ctx, Request{Prompt: BuildEvolvePrompt(char, current, analysis), Schema: sceneSchema})
	if err != nil {
		return nil, failed("submit edit", "Error processing edit: ", err)
	}
	evolved, err := ParseScene(raw)
	if err != nil {
		return nil, failed("submit edit", "Error processing edit: ", err)
	}

	now := e.timestamp()
	scene := &story.Scene{
		ID:               e.newID("scene"),
		CharacterID:      char.ID,
		SceneDescription: evolved.SceneDescription,
		VisualPrompt:     evolved.VisualPrompt,
		EmotionalState:   evolved.EmotionalState,
		Environment:      evolved.Environment,
		NarrativeSummary: evolved.NarrativeSummary,
		Timestamp:        now,
		Edits: []story.Edit{{
			Command:   analysis.NarrativeDelta,
			EditType:  analysis.EditType,
			Timestamp: now,
		}},
		PreviousSceneID: current.ID,
	}

	e.mu.Lock()
	if _, ok := e.characters[char.ID]; !ok {
		// deleted while the model was thinking
		e.mu.Unlock()
		return nil, notFound("submit edit", ErrCharacterNotFound)
	}
	scene.SceneNumber = e.countLocked(char.ID) + 1
	e.scenes[scene.ID] = scene
	e.mu.Unlock()

	e.logger.Printf("[Orchestrator] scene %d for %s (%s)", scene.SceneNumber, char.ID, analysis.EditType)
	out := scene.Clone()
	return &remote.EditResult{
		Success:        true,
		Rejected:       false,
		EditType:       analysis.EditType,
		NewScene:       &out,
		NarrativeDelta: analysis.NarrativeDelta,
	}, nil
}

// Recap summarizes the character's journey in a few sentences.
func (e *Engine) Recap(ctx context.Context, characterID string) (recap string, err error) {
	ctx, span := e.tracer.Start(ctx, "orchestrator.Recap", trace.WithAttributes(
		attribute.String("chronicle.character_id", characterID),
	))
	defer func() { endSpan(span, err) }()

	e.mu.RLock()
	char, ok := e.characters[characterID]
	scenes := e.scenesLocked(characterID)
	e.mu.RUnlock()
	if !ok {
		return "", notFound("recap", ErrCharacterNotFound)
	}
	if len(scenes) == 0 {
		return NoScenesRecap, nil
	}

	raw, err := e.gen.Generate(ctx, Request{Prompt: BuildRecapPrompt(char, scenes)})
	if err != nil {
		return "", failed("recap", "Error generating recap: ", err)
	}
	recap = strings.TrimSpace(raw)
	if recap == "" {
		return "", failed("recap", "Error generating recap: ", ErrEmptyResponse)
	}
	return recap, nil
}

// DeleteCharacter removes the character and all of its scenes.
func (e *Engine) DeleteCharacter(ctx context.Context, characterID string) (msg string, err error) {
	_, span := e.tracer.Start(ctx, "orchestrator.DeleteCharacter", trace.WithAttributes(
		attribute.String("chronicle.character_id", characterID),
	))
	defer func() { endSpan(span, err) }()

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.characters[characterID]; !ok {
		return "", notFound("delete character", ErrCharacterNotFound)
	}
	n := 0
	for id, s := range e.scenes {
		if s.CharacterID == characterID {
			delete(e.scenes, id)
			n++
		}
	}
	delete(e.characters, characterID)

	e.logger.Printf("[Orchestrator] deleted %s and %d scenes", characterID, n)
	return fmt.Sprintf("Character and %d scenes deleted successfully", n), nil
}

// LoadDemo installs the demo character, replacing any earlier copy.
func (e *Engine) LoadDemo(ctx context.Context) (res *remote.DemoResult, err error) {
	_, span := e.tracer.Start(ctx, "orchestrator.LoadDemo")
	defer func() { endSpan(span, err) }()

	char, scenes := story.DemoBundle(e.timestamp())

	e.mu.Lock()
	for id, s := range e.scenes {
		if s.CharacterID == char.ID {
			delete(e.scenes, id)
		}
	}
	e.characters[char.ID] = char.Clone()
	for _, s := range scenes {
		stored := s.Clone()
		e.scenes[s.ID] = &stored
	}
	e.mu.Unlock()

	return &remote.DemoResult{
		Character: char,
		Scenes:    scenes,
		Message:   "Demo data loaded successfully",
	}, nil
}

// =============================================================================
// Queries
// =============================================================================

// Character returns a copy of the stored character.
func (e *Engine) Character(id string) (*story.Character, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	c, ok := e.characters[id]
	if !ok {
		return nil, notFound("get character", ErrCharacterNotFound)
	}
	return c.Clone(), nil
}

// Scenes returns the character's scenes ordered by scene number.
func (e *Engine) Scenes(characterID string) ([]story.Scene, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if _, ok := e.characters[characterID]; !ok {
		return nil, notFound("get scenes", ErrCharacterNotFound)
	}
	return e.scenesLocked(characterID), nil
}

// Stats counts stored characters and scenes.
type Stats struct {
	Characters int `json:"characters"`
	Scenes     int `json:"scenes"`
}

// Stats reports the size of the in-memory store.
func (e *Engine) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Stats{Characters: len(e.characters), Scenes: len(e.scenes)}
}

func (e *Engine) lookupLocked(charID, sceneID string) (*story.Character, *story.Scene, error) {
	c, ok := e.characters[charID]
	if !ok {
		return nil, nil, ErrCharacterNotFound
	}
	s, ok := e.scenes[sceneID]
	if !ok || s.CharacterID != charID {
		return nil, nil, ErrSceneNotFound
	}
	cs := s.Clone()
	return c.Clone(), &cs, nil
}

func (e *Engine) countLocked(charID string) int {
	n := 0
	for _, s := range e.scenes {
		if s.CharacterID == charID {
			n++
		}
	}
	return n
}

func (e *Engine) scenesLocked(charID string) []story.Scene {
	out := make([]story.Scene, 0)
	for _, s := range e.scenes {
		if s.CharacterID == charID {
			out = append(out, s.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SceneNumber < out[j].SceneNumber })
	return out
}
