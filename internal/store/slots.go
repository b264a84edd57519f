package store

import (
	"encoding/json"
	"fmt"
	"io"
	"log"

	"github.com/kittclouds/chronicle/pkg/story"
	"github.com/kittclouds/chronicle/pkg/timeline"
)

// envelope is the versioned on-disk record wrapping every slot value.
type envelope struct {
	Version int             `json:"version"`
	Value   json.RawMessage `json:"value"`
}

// exporter is implemented by backends with a native bulk export.
type exporter interface {
	Export() ([]byte, error)
	Import(data []byte) error
}

// Slots is the typed view over a Storer.
// Loads never fail: missing or unreadable slots fall back to their defaults.
type Slots struct {
	backend Storer
	logger  *log.Logger
}

// NewSlots wraps backend. A nil logger discards output.
func NewSlots(backend Storer, logger *log.Logger) *Slots {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Slots{backend: backend, logger: logger}
}

// =============================================================================
// Save
// =============================================================================

// SaveCharacter writes the character slot; nil removes it.
func (s *Slots) SaveCharacter(c *story.Character) error {
	if c == nil {
		return s.remove(KeyCharacter)
	}
	return s.put(KeyCharacter, c)
}

// SaveScenes writes the scenes slot; an empty list removes it.
func (s *Slots) SaveScenes(scenes []story.Scene) error {
	if len(scenes) == 0 {
		return s.remove(KeyScenes)
	}
	return s.put(KeyScenes, scenes)
}

// SaveStep writes the step slot.
func (s *Slots) SaveStep(step story.Step) error {
	if !step.Valid() {
		return fmt.Errorf("store: invalid step %q", step)
	}
	return s.put(KeyStep, step)
}

// SaveSelection writes the selected scene id; "" removes it.
func (s *Slots) SaveSelection(sceneID string) error {
	if sceneID == "" {
		return s.remove(KeySelectedSceneID)
	}
	return s.put(KeySelectedSceneID, sceneID)
}

// Clear removes all four slots. Every key is attempted; the first error is returned.
func (s *Slots) Clear() error {
	var first error
	for _, k := range Keys {
		if err := s.remove(k); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// =============================================================================
// Load
// =============================================================================

// LoadCharacter returns the saved character or nil.
func (s *Slots) LoadCharacter() *story.Character {
	var c story.Character
	if !s.get(KeyCharacter, &c) {
		return nil
	}
	if c.ID == "" {
		s.logger.Printf("[Store] %s: character without id, ignoring", KeyCharacter)
		return nil
	}
	return &c
}

// LoadScenes returns the saved scenes or nil.
func (s *Slots) LoadScenes() []story.Scene {
	var scenes []story.Scene
	if !s.get(KeyScenes, &scenes) {
		return nil
	}
	if err := timeline.Validate(scenes); err != nil {
		s.logger.Printf("[Store] %s: %v, ignoring", KeyScenes, err)
		return nil
	}
	return scenes
}

// LoadStep returns the saved step, defaulting to intro.
func (s *Slots) LoadStep() story.Step {
	var step story.Step
	if !s.get(KeyStep, &step) {
		return story.StepIntro
	}
	if !step.Valid() {
		s.logger.Printf("[Store] %s: unknown step %q, using intro", KeyStep, step)
		return story.StepIntro
	}
	return step
}

// LoadSelection returns the saved selected scene id or "".
func (s *Slots) LoadSelection() string {
	var id string
	if !s.get(KeySelectedSceneID, &id) {
		return ""
	}
	return id
}

// Load reads all four slots independently.
func (s *Slots) Load() Snapshot {
	return Snapshot{
		Character:       s.LoadCharacter(),
		Scenes:          s.LoadScenes(),
		Step:            s.LoadStep(),
		SelectedSceneID: s.LoadSelection(),
	}
}

// =============================================================================
// Export / Import
// =============================================================================

// Export serializes the raw slot records as JSON.
func (s *Slots) Export() ([]byte, error) {
	if ex, ok := s.backend.(exporter); ok {
		return ex.Export()
	}
	records := []Record{}
	for _, k := range Keys {
		v, ok, err := s.backend.Get(k)
		if err != nil {
			return nil, fmt.Errorf("export %s: %w", k, err)
		}
		if ok {
			records = append(records, Record{Key: k, Value: string(v)})
		}
	}
	return json.Marshal(records)
}

// Import replaces all slots with the records of an Export document.
func (s *Slots) Import(data []byte) error {
	if ex, ok := s.backend.(exporter); ok {
		return ex.Import(data)
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("import unmarshal: %w", err)
	}
	if err := checkKeys(records); err != nil {
		return err
	}
	if err := s.Clear(); err != nil {
		return err
	}
	for _, r := range records {
		if err := s.backend.Put(r.Key, []byte(r.Value)); err != nil {
			return fmt.Errorf("import slot %s: %w", r.Key, err)
		}
	}
	return nil
}

// =============================================================================
// Helpers
// =============================================================================

func (s *Slots) put(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", key, err)
	}
	data, err := json.Marshal(envelope{Version: envelopeVersion, Value: raw})
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", key, err)
	}
	if err := s.backend.Put(key, data); err != nil {
		return fmt.Errorf("store: save %s: %w", key, err)
	}
	return nil
}

func (s *Slots) remove(key string) error {
	if err := s.backend.Delete(key); err != nil {
		return fmt.Errorf("store: remove %s: %w", key, err)
	}
	return nil
}

// get decodes key into dst. It reports false for absent or unusable data.
func (s *Slots) get(key string, dst any) bool {
	data, ok, err := s.backend.Get(key)
	if err != nil {
		s.logger.Printf("[Store] %s: read failed: %v", key, err)
		return false
	}
	if !ok {
		return false
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		s.logger.Printf("[Store] %s: corrupt record: %v", key, err)
		return false
	}
	if env.Version != envelopeVersion {
		s.logger.Printf("[Store] %s: unsupported version %d", key, env.Version)
		return false
	}
	if len(env.Value) == 0 || string(env.Value) == "null" {
		return false
	}
	if err := json.Unmarshal(env.Value, dst); err != nil {
		s.logger.Printf("[Store] %s: corrupt value: %v", key, err)
		return false
	}
	return true
}
