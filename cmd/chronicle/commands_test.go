package main

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kittclouds/chronicle/internal/store"
	"github.com/kittclouds/chronicle/pkg/controller"
	"github.com/kittclouds/chronicle/pkg/remote/remotetest"
	"github.com/kittclouds/chronicle/pkg/story"
)

func newTestApp(t *testing.T, input string) (*app, *remotetest.Fake, *bytes.Buffer) {
	t.Helper()
	fake := remotetest.New()
	logger := log.New(io.Discard, "", 0)
	slots := store.NewSlots(store.NewMemoryStore(), logger)
	session, err := controller.New(controller.Options{Remote: fake, Store: slots, Logger: logger, FenceRequests: true})
	require.NoError(t, err)

	out := &bytes.Buffer{}
	return &app{
		session: session,
		slots:   slots,
		timeout: 5 * time.Second,
		in:      bufio.NewReader(strings.NewReader(input)),
		out:     out,
	}, fake, out
}

func TestApp_CreateAndEdit(t *testing.T) {
	a, fake, out := newTestApp(t, "")
	ctx := context.Background()

	require.NoError(t, a.run(ctx, []string{"create", "--name", "Maya", "--traits", "brown eyes, scar", "--baseline", "guarded"}))
	assert.Contains(t, out.String(), "Character 'Maya' created successfully")
	assert.Contains(t, out.String(), "step: story-mode")
	assert.Equal(t, []string{"brown eyes", "scar"}, a.session.Character().ImmutableTraits)

	fake.AcceptNext(2, story.EditEmotionChange)
	out.Reset()
	require.NoError(t, a.run(ctx, []string{"edit", "She", "smiles"}))
	assert.Contains(t, out.String(), "Scene evolved successfully")
	require.Len(t, fake.Edits(), 1)
	assert.Equal(t, "She smiles", fake.Edits()[0].Command)
	assert.Len(t, a.session.Scenes(), 2)
}

func TestApp_CreateRequiresName(t *testing.T) {
	a, fake, _ := newTestApp(t, "")
	err := a.run(context.Background(), []string{"create"})
	require.Error(t, err)
	assert.Equal(t, 0, fake.Calls("create"))
}

func TestApp_ResetPromptsOnInput(t *testing.T) {
	a, fake, out := newTestApp(t, "n\ny\n")
	ctx := context.Background()
	require.NoError(t, a.run(ctx, []string{"demo"}))

	require.NoError(t, a.run(ctx, []string{"reset"}))
	assert.Contains(t, out.String(), "Reset cancelled")
	assert.Equal(t, 0, fake.Calls("delete"))

	require.NoError(t, a.run(ctx, []string{"reset"}))
	assert.Equal(t, 1, fake.Calls("delete"))
	assert.Nil(t, a.session.Character())
	assert.Equal(t, story.StepIntro, a.session.Step())
}

func TestApp_ExportImport(t *testing.T) {
	a, _, _ := newTestApp(t, "")
	ctx := context.Background()
	require.NoError(t, a.run(ctx, []string{"demo"}))

	path := filepath.Join(t.TempDir(), "slots.json")
	require.NoError(t, a.run(ctx, []string{"export", path}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), store.KeyScenes)

	b, _, out := newTestApp(t, "")
	require.NoError(t, b.run(ctx, []string{"import", path}))
	assert.Contains(t, out.String(), "Imported")
	assert.Len(t, b.slots.LoadScenes(), 4)
}

func TestApp_Shell(t *testing.T) {
	a, _, out := newTestApp(t, "demo\nselect scene_demo_2\nstatus\nbogus\nquit\n")
	require.NoError(t, a.run(context.Background(), []string{"shell"}))

	text := out.String()
	assert.Contains(t, text, "Demo character loaded successfully!")
	assert.Contains(t, text, "* 2.")
	assert.Contains(t, text, `error: unknown command "bogus"`)
}

func TestApp_JSONView(t *testing.T) {
	a, _, out := newTestApp(t, "")
	a.json = true
	require.NoError(t, a.run(context.Background(), []string{"demo"}))
	assert.Contains(t, out.String(), `"consistencyScore": 100`)
}

func TestSplitArgs(t *testing.T) {
	assert.Equal(t, []string{"create", "--name", "Maya Chen", "--traits", "a,b"},
		splitArgs(`create --name "Maya Chen"  --traits a,b`))
	assert.Empty(t, splitArgs("   "))
}
