package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/kittclouds/chronicle/internal/store"
	"github.com/kittclouds/chronicle/pkg/controller"
	"github.com/kittclouds/chronicle/pkg/story"
)

const usage = `  status                      show the session
  new                         open the character form
  create --name N [...]       create a character and its first scene
  demo                        load the demo character
  continue                    resume the saved session
  back                        return to the intro
  select SCENE_ID             select a scene
  edit COMMAND...             evolve the selected scene
  recap                       summarize the journey
  image [SCENE_ID [URL]]      attach an image (default: generated preview)
  reset [--yes]               delete the character and all history
  export [FILE]               write saved slots as JSON
  import FILE                 replace saved slots from JSON
  shell                       read commands from stdin
  version                     print the version
`

// app runs commands against one session.
type app struct {
	session *controller.Controller
	slots   *store.Slots
	timeout time.Duration
	json    bool
	in      *bufio.Reader
	out     io.Writer
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return nil
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "status":
		a.render()
		return nil
	case "new":
		return a.step(a.session.BeginCreate())
	case "back":
		return a.step(a.session.Back())
	case "continue":
		return a.step(a.session.Continue())
	case "select":
		if len(rest) != 1 {
			return errors.New("select requires SCENE_ID")
		}
		return a.step(a.session.SelectScene(rest[0]))
	case "create":
		return a.create(ctx, rest)
	case "demo":
		return a.call(ctx, a.session.LoadDemo)
	case "edit":
		if len(rest) == 0 {
			return errors.New("edit requires a command")
		}
		a.session.SetCommand(strings.Join(rest, " "))
		return a.call(ctx, a.session.SubmitEdit)
	case "recap":
		return a.call(ctx, func(ctx context.Context) error {
			_, err := a.session.RequestRecap(ctx)
			return err
		})
	case "image":
		return a.image(rest)
	case "reset":
		return a.reset(ctx, rest)
	case "export":
		return a.export(rest)
	case "import":
		return a.importSlots(rest)
	case "shell":
		return a.shell(ctx)
	case "version":
		fmt.Fprintln(a.out, "chronicle", version)
		return nil
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *app) step(err error) error {
	if err != nil {
		return err
	}
	a.render()
	return nil
}

// call runs a service-backed operation under the request timeout and renders
// the result. Failures already carry a notice, which render prints.
func (a *app) call(ctx context.Context, op func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	err := op(ctx)
	a.render()
	return err
}

func (a *app) create(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	fs.SetOutput(a.out)
	name := fs.String("name", "", "Character name (required)")
	appearance := fs.String("appearance", "", "Canonical appearance")
	personality := fs.String("personality", "", "Personality")
	baseline := fs.String("baseline", "", "Emotional baseline")
	traits := fs.String("traits", "", "Comma-separated immutable traits")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*name) == "" {
		return errors.New("create requires --name")
	}

	if a.session.Step() == story.StepIntro {
		if err := a.session.BeginCreate(); err != nil {
			return err
		}
	}
	draft := story.CharacterDraft{
		Name:                strings.TrimSpace(*name),
		CanonicalAppearance: *appearance,
		Personality:         *personality,
		EmotionalBaseline:   *baseline,
		ImmutableTraits:     story.ParseTraits(*traits),
	}
	return a.call(ctx, func(ctx context.Context) error {
		return a.session.CreateCharacter(ctx, draft)
	})
}

func (a *app) image(args []string) error {
	var scene story.Scene
	var ok bool
	if len(args) == 0 {
		scene, ok = a.session.SelectedScene()
	} else {
		for _, s := range a.session.Scenes() {
			if s.ID == args[0] {
				scene, ok = s, true
				break
			}
		}
	}
	if !ok {
		return errors.New("no such scene")
	}
	u := controller.PreviewURL(scene, time.Now().UnixMilli())
	if len(args) > 1 {
		u = args[1]
	}
	if err := a.session.AttachImage(scene.ID, u); err != nil {
		return err
	}
	fmt.Fprintln(a.out, u)
	return nil
}

func (a *app) reset(ctx context.Context, args []string) error {
	yes := len(args) > 0 && (args[0] == "--yes" || args[0] == "-y")
	confirm := func(prompt string) bool {
		if yes {
			return true
		}
		fmt.Fprintf(a.out, "%s [y/N] ", prompt)
		line, _ := a.in.ReadString('\n')
		line = strings.ToLower(strings.TrimSpace(line))
		return line == "y" || line == "yes"
	}
	err := a.call(ctx, func(ctx context.Context) error {
		return a.session.Reset(ctx, confirm)
	})
	if errors.Is(err, controller.ErrResetNotConfirmed) {
		fmt.Fprintln(a.out, "Reset cancelled")
		return nil
	}
	return err
}

func (a *app) export(args []string) error {
	data, err := a.slots.Export()
	if err != nil {
		return err
	}
	if len(args) == 0 {
		_, err = fmt.Fprintln(a.out, string(data))
		return err
	}
	return os.WriteFile(args[0], data, 0o644)
}

func (a *app) importSlots(args []string) error {
	if len(args) != 1 {
		return errors.New("import requires FILE")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	if err := a.slots.Import(data); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Imported; run `chronicle continue` to resume")
	return nil
}

// shell reads one command per line until EOF or "quit".
func (a *app) shell(ctx context.Context) error {
	for {
		fmt.Fprint(a.out, "> ")
		raw, err := a.in.ReadString('\n')
		if err != nil && raw == "" {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		line := strings.TrimSpace(raw)
		switch line {
		case "":
		case "quit", "exit":
			return nil
		default:
			if line == "shell" {
				fmt.Fprintln(a.out, "already in shell")
			} else if err := a.run(ctx, splitArgs(line)); err != nil {
				fmt.Fprintln(a.out, "error:", err)
			}
		}
	}
}

// splitArgs splits on spaces, keeping double-quoted runs together.
func splitArgs(line string) []string {
	var args []string
	var cur strings.Builder
	quoted := false
	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
		case r == ' ' && !quoted:
			if cur.Len() > 0 {
				args = append(args, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		args = append(args, cur.String())
	}
	return args
}

// =============================================================================
// Rendering
// =============================================================================

func (a *app) render() {
	v := a.session.View()
	if a.json {
		data, _ := json.MarshalIndent(v, "", "  ")
		fmt.Fprintln(a.out, string(data))
		return
	}

	if v.Notice != nil {
		fmt.Fprintf(a.out, "[%s] %s\n", v.Notice.Severity, v.Notice.Text)
	}
	fmt.Fprintf(a.out, "step: %s\n", v.Step)
	if v.Character == nil {
		if v.HasSavedData {
			fmt.Fprintln(a.out, "saved session available: run `chronicle continue`")
		}
		return
	}

	c := v.Character
	fmt.Fprintf(a.out, "character: %s (%s)\n", c.Name, c.ID)
	if len(c.ImmutableTraits) > 0 {
		fmt.Fprintf(a.out, "canon: %s\n", strings.Join(c.ImmutableTraits, ", "))
	}
	fmt.Fprintf(a.out, "consistency: %d%%\n", v.Score)
	if len(v.EmotionArc) > 0 {
		fmt.Fprintf(a.out, "arc: %s\n", strings.Join(v.EmotionArc, " -> "))
	}

	for _, s := range v.Scenes {
		marker := " "
		if s.ID == v.SelectedSceneID {
			marker = "*"
		}
		fmt.Fprintf(a.out, "%s %d. [%s] %s (%s)\n", marker, s.SceneNumber, s.EmotionalState, s.DisplaySummary(), s.ID)
		if s.ID == v.SelectedSceneID {
			fmt.Fprintf(a.out, "     %s\n", s.SceneDescription)
			fmt.Fprintf(a.out, "     environment: %s\n", s.Environment)
			for _, e := range s.Edits {
				fmt.Fprintf(a.out, "     edit (%s): %s\n", e.EditType, e.Command)
			}
			if s.ImageURL != "" {
				fmt.Fprintf(a.out, "     image: %s\n", s.ImageURL)
			}
		}
	}
	if v.Canon != nil && len(v.Canon.Hits) > 0 {
		fmt.Fprintf(a.out, "canon visible in selected scene: %d/%d\n", v.Canon.Covered(), len(v.Canon.Hits))
	}
}
