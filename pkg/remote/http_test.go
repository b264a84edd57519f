package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kittclouds/chronicle/pkg/story"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewHTTPClient(HTTPConfig{BaseURL: srv.URL + "/", Timeout: 5 * time.Second})
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestNewHTTPClient_InvalidURL(t *testing.T) {
	_, err := NewHTTPClient(HTTPConfig{BaseURL: "localhost"})
	assert.Error(t, err)
}

func TestCreateCharacter(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/characters", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var draft story.CharacterDraft
		require.NoError(t, json.NewDecoder(r.Body).Decode(&draft))
		assert.Equal(t, []string{"red hair"}, draft.ImmutableTraits)

		writeJSON(w, http.StatusOK, CreateResult{
			Character:  &story.Character{ID: "char_1", Name: draft.Name},
			FirstScene: &story.Scene{ID: "scene_1", CharacterID: "char_1", SceneNumber: 1},
			Message:    "Character 'Ada' created successfully",
		})
	})

	res, err := c.CreateCharacter(context.Background(), story.CharacterDraft{Name: "Ada", ImmutableTraits: []string{"red hair"}})
	require.NoError(t, err)
	assert.Equal(t, "char_1", res.Character.ID)
	assert.Equal(t, 1, res.FirstScene.SceneNumber)
	assert.Contains(t, res.Message, "Ada")
}

func TestCreateCharacter_MissingSceneIsError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"character": map[string]any{"id": "c"}})
	})
	_, err := c.CreateCharacter(context.Background(), story.CharacterDraft{Name: "x"})
	var rerr *Error
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "create character", rerr.Op)
}

func TestSubmitEdit_Rejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req EditRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, EditRequest{CharacterID: "c", SceneID: "s", Command: "give her blue eyes"}, req)

		writeJSON(w, http.StatusOK, map[string]any{
			"success":  false,
			"rejected": true,
			"reason":   "eye color is immutable",
			"editType": "invalid",
		})
	})

	res, err := c.SubmitEdit(context.Background(), EditRequest{CharacterID: "c", SceneID: "s", Command: "give her blue eyes"})
	require.NoError(t, err)
	assert.True(t, res.Rejected)
	assert.Equal(t, "eye color is immutable", res.Reason)
	assert.Equal(t, story.EditInvalid, res.EditType)
	assert.Nil(t, res.NewScene)
}

func TestSubmitEdit_Accepted(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, EditResult{
			Success:        true,
			EditType:       story.EditEmotionChange,
			NewScene:       &story.Scene{ID: "scene_2", SceneNumber: 2, PreviousSceneID: "scene_1"},
			NarrativeDelta: "she smiles",
		})
	})

	res, err := c.SubmitEdit(context.Background(), EditRequest{CharacterID: "c", SceneID: "scene_1", Command: "smile"})
	require.NoError(t, err)
	assert.False(t, res.Rejected)
	require.NotNil(t, res.NewScene)
	assert.Equal(t, "scene_1", res.NewScene.PreviousSceneID)
}

func TestErrorDetailIsSurfaced(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, ErrorBody{Detail: "Character not found"})
	})

	_, err := c.Recap(context.Background(), "missing")
	var rerr *Error
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, http.StatusNotFound, rerr.Status)
	assert.Equal(t, "Character not found", rerr.Detail())
	assert.Contains(t, err.Error(), "remote: recap")
}

func TestErrorWithoutDetail(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>upstream down</html>"))
	})

	_, err := c.LoadDemo(context.Background())
	var rerr *Error
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "API request failed", rerr.Detail())
}

func TestRecapAndDeleteEscapeID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			assert.Equal(t, "/api/characters/a%2Fb/recap", r.URL.EscapedPath())
			writeJSON(w, http.StatusOK, RecapResult{Recap: "a long road"})
		case http.MethodDelete:
			assert.Equal(t, "/api/characters/a%2Fb", r.URL.EscapedPath())
			writeJSON(w, http.StatusOK, MessageResult{Message: "Character and 2 scenes deleted successfully"})
		}
	})

	recap, err := c.Recap(context.Background(), "a/b")
	require.NoError(t, err)
	assert.Equal(t, "a long road", recap)

	msg, err := c.DeleteCharacter(context.Background(), "a/b")
	require.NoError(t, err)
	assert.Contains(t, msg, "deleted")
}

func TestLoadDemo(t *testing.T) {
	char, scenes := story.DemoBundle("t")
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/demo/load", r.URL.Path)
		writeJSON(w, http.StatusOK, DemoResult{Character: char, Scenes: scenes, Message: "Demo data loaded successfully"})
	})

	res, err := c.LoadDemo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, char, res.Character)
	assert.Len(t, res.Scenes, 4)
}

func TestContextCancellation(t *testing.T) {
	block := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	})
	defer close(block)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Recap(ctx, "c")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestDecodeFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("not json"))
	})
	_, err := c.SubmitEdit(context.Background(), EditRequest{})
	var rerr *Error
	require.ErrorAs(t, err, &rerr)
	assert.Contains(t, rerr.Detail(), "decode response")
}
