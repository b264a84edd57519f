// Package store provides durable persistence for a Chronicle session.
// Four named slots hold the character, the scene timeline, the current
// step and the selected scene id. Each slot is written and read
// independently so one corrupt slot never poisons the others.
package store

import (
	"errors"
	"time"

	"github.com/kittclouds/chronicle/pkg/story"
)

// Slot keys. These match the browser client so localStorage data carries over.
const (
	KeyCharacter       = "chronicle_character"
	KeyScenes          = "chronicle_scenes"
	KeyStep            = "chronicle_step"
	KeySelectedSceneID = "chronicle_selectedSceneId"
)

// Keys lists every slot key in write order.
var Keys = []string{KeyCharacter, KeyScenes, KeyStep, KeySelectedSceneID}

// envelopeVersion is the current persisted record format.
const envelopeVersion = 1

// ErrUnknownKey is returned by Import for keys outside the four slots.
var ErrUnknownKey = errors.New("store: unknown slot key")

// Storer is a flat key-value backend for slot records.
// Implementations must be safe for concurrent use.
type Storer interface {
	// Get returns the stored value; ok is false when the key is absent.
	Get(key string) (value []byte, ok bool, err error)
	Put(key string, value []byte) error
	Delete(key string) error
	Close() error
}

// Record is a raw slot value with its last write time, used by Export/Import.
type Record struct {
	Key       string `json:"key"`
	Value     string `json:"value"`
	UpdatedAt int64  `json:"updatedAt"`
}

// Snapshot is the session state read back from the four slots.
type Snapshot struct {
	Character       *story.Character
	Scenes          []story.Scene
	Step            story.Step
	SelectedSceneID string
}

// HasSession reports whether a character with at least one scene was saved.
func (s Snapshot) HasSession() bool {
	return s.Character != nil && len(s.Scenes) > 0
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
