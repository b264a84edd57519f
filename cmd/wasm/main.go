//go:build js && wasm

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"syscall/js"
	"time"

	"github.com/kittclouds/chronicle/internal/store"
	"github.com/kittclouds/chronicle/pkg/controller"
	"github.com/kittclouds/chronicle/pkg/remote"
	"github.com/kittclouds/chronicle/pkg/story"
)

// Version info
const Version = "1.0.0"

// Global state
var session *controller.Controller // nil until init
var slots *store.Slots             // localStorage-backed slots
var svc *remote.HTTPClient         // generation service client
var settings initConfig
var logger = log.New(os.Stdout, "", 0)

type initConfig struct {
	APIURL        string `json:"apiUrl"`
	TimeoutMs     int    `json:"timeoutMs"`
	NoticeTTLMs   int    `json:"noticeTtlMs"`
	FenceRequests *bool  `json:"fenceRequests"`
}

func main() {
	fmt.Println("[Chronicle] WASM Ready v" + Version)

	// Register exports
	js.Global().Set("Chronicle", js.ValueOf(map[string]interface{}{
		"version": js.FuncOf(getVersion),
		"init":    js.FuncOf(initialize),
		"view":    js.FuncOf(view),
		// Navigation
		"beginCreate":   js.FuncOf(beginCreate),
		"back":          js.FuncOf(back),
		"continue":      js.FuncOf(continueSession),
		"selectScene":   js.FuncOf(selectScene),
		"setCommand":    js.FuncOf(setCommand),
		"dismissNotice": js.FuncOf(dismissNotice),
		// Service calls (Promises)
		"createCharacter": js.FuncOf(jsCreateCharacter),
		"loadDemo":        js.FuncOf(jsLoadDemo),
		"submitEdit":      js.FuncOf(jsSubmitEdit),
		"recap":           js.FuncOf(jsRecap),
		"reset":           js.FuncOf(jsReset),
		// Images
		"previewUrl":  js.FuncOf(previewURL),
		"attachImage": js.FuncOf(attachImage),
		// Slot Export/Import
		"exportState": js.FuncOf(exportState),
		"importState": js.FuncOf(importState),
	}))

	select {}
}

func getVersion(this js.Value, args []js.Value) interface{} {
	return Version
}

// initialize opens localStorage slots, connects to the service and restores
// the saved session.
// Args: [configJSON string] - optional {apiUrl, timeoutMs, noticeTtlMs, fenceRequests}
func initialize(this js.Value, args []js.Value) interface{} {
	cfg := initConfig{APIURL: "http://localhost:8000", TimeoutMs: 60000}
	if len(args) > 0 && args[0].Type() == js.TypeString && args[0].String() != "" {
		if err := json.Unmarshal([]byte(args[0].String()), &cfg); err != nil {
			return errorResult("invalid config json: " + err.Error())
		}
	}

	ls, err := store.NewLocalStorage()
	if err != nil {
		return errorResult("localStorage unavailable: " + err.Error())
	}
	slots = store.NewSlots(ls, logger)

	svc, err = remote.NewHTTPClient(remote.HTTPConfig{
		BaseURL: cfg.APIURL,
		Timeout: time.Duration(cfg.TimeoutMs) * time.Millisecond,
	})
	if err != nil {
		return errorResult(err.Error())
	}
	settings = cfg

	if err := openSession(); err != nil {
		return errorResult(err.Error())
	}
	fmt.Println("[Chronicle] ✅ Session restored")
	return successResult("initialized")
}

func openSession() error {
	fence := true
	if settings.FenceRequests != nil {
		fence = *settings.FenceRequests
	}
	c, err := controller.New(controller.Options{
		Remote:        svc,
		Store:         slots,
		Logger:        logger,
		NoticeTTL:     time.Duration(settings.NoticeTTLMs) * time.Millisecond,
		FenceRequests: fence,
	})
	if err != nil {
		return err
	}
	session = c
	return nil
}

// view returns the session snapshot as JSON.
func view(this js.Value, args []js.Value) interface{} {
	if session == nil {
		return errorResult("not initialized")
	}
	return jsonResult(session.View())
}

// =============================================================================
// Navigation
// =============================================================================

func beginCreate(this js.Value, args []js.Value) interface{} {
	return stepResult(func() error { return session.BeginCreate() })
}

func back(this js.Value, args []js.Value) interface{} {
	return stepResult(func() error { return session.Back() })
}

func continueSession(this js.Value, args []js.Value) interface{} {
	return stepResult(func() error { return session.Continue() })
}

// selectScene: [sceneID string]
func selectScene(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("selectScene requires 1 arg: sceneId")
	}
	id := args[0].String()
	return stepResult(func() error { return session.SelectScene(id) })
}

// setCommand: [text string]
func setCommand(this js.Value, args []js.Value) interface{} {
	if session == nil {
		return errorResult("not initialized")
	}
	if len(args) < 1 {
		return errorResult("setCommand requires 1 arg: text")
	}
	session.SetCommand(args[0].String())
	return successResult("ok")
}

func dismissNotice(this js.Value, args []js.Value) interface{} {
	if session == nil {
		return errorResult("not initialized")
	}
	session.DismissNotice()
	return successResult("ok")
}

func stepResult(fn func() error) interface{} {
	if session == nil {
		return errorResult("not initialized")
	}
	if err := fn(); err != nil {
		return errorResult(err.Error())
	}
	return jsonResult(session.View())
}

// =============================================================================
// Service calls
// =============================================================================

// jsCreateCharacter: [draftJSON string] -> Promise<viewJSON>
func jsCreateCharacter(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("createCharacter requires 1 arg: draftJSON")
	}
	var draft story.CharacterDraft
	if err := json.Unmarshal([]byte(args[0].String()), &draft); err != nil {
		return errorResult("invalid draft json: " + err.Error())
	}
	return async("createCharacter", func(ctx context.Context) (interface{}, error) {
		return nil, session.CreateCharacter(ctx, draft)
	})
}

func jsLoadDemo(this js.Value, args []js.Value) interface{} {
	return async("loadDemo", func(ctx context.Context) (interface{}, error) {
		return nil, session.LoadDemo(ctx)
	})
}

// jsSubmitEdit: [command string] (optional, replaces the pending command)
func jsSubmitEdit(this js.Value, args []js.Value) interface{} {
	if session != nil && len(args) > 0 && args[0].Type() == js.TypeString {
		session.SetCommand(args[0].String())
	}
	return async("submitEdit", func(ctx context.Context) (interface{}, error) {
		return nil, session.SubmitEdit(ctx)
	})
}

func jsRecap(this js.Value, args []js.Value) interface{} {
	return async("recap", func(ctx context.Context) (interface{}, error) {
		recap, err := session.RequestRecap(ctx)
		return map[string]string{"recap": recap}, err
	})
}

// jsReset asks window.confirm unless args[0] is true.
func jsReset(this js.Value, args []js.Value) interface{} {
	preconfirmed := len(args) > 0 && args[0].Type() == js.TypeBoolean && args[0].Bool()
	confirm := func(prompt string) bool {
		if preconfirmed {
			return true
		}
		return js.Global().Call("confirm", prompt).Bool()
	}
	return async("reset", func(ctx context.Context) (interface{}, error) {
		return nil, session.Reset(ctx, confirm)
	})
}

// async runs fn off the event loop and resolves with the view, or with
// fn's own value when it returns one.
func async(op string, fn func(ctx context.Context) (interface{}, error)) interface{} {
	if session == nil {
		return errorResult("not initialized")
	}
	promise, resolve, reject := makePromise()

	go func() {
		out, err := fn(context.Background())
		if err != nil {
			reject.Invoke(js.Global().Get("Error").New(fmt.Sprintf("%s: %v", op, err)))
			return
		}
		if out == nil {
			out = session.View()
		}
		jsonBytes, _ := json.Marshal(out)
		resolve.Invoke(string(jsonBytes))
	}()

	return promise
}

// makePromise creates a JS Promise and returns it along with resolve/reject functions.
func makePromise() (promise js.Value, resolve js.Value, reject js.Value) {
	var resolveFn, rejectFn js.Value
	handler := js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		resolveFn = args[0]
		rejectFn = args[1]
		return nil
	})
	defer handler.Release()

	promise = js.Global().Get("Promise").New(handler)
	return promise, resolveFn, rejectFn
}

// =============================================================================
// Images
// =============================================================================

// previewURL: [sceneID string, seed number]
func previewURL(this js.Value, args []js.Value) interface{} {
	if session == nil {
		return errorResult("not initialized")
	}
	if len(args) < 1 {
		return errorResult("previewUrl requires 1+ args: sceneId, [seed]")
	}
	seed := time.Now().UnixMilli()
	if len(args) > 1 && args[1].Type() == js.TypeNumber {
		seed = int64(args[1].Int())
	}
	for _, s := range session.Scenes() {
		if s.ID == args[0].String() {
			return controller.PreviewURL(s, seed)
		}
	}
	return errorResult("unknown scene " + args[0].String())
}

// attachImage: [sceneID string, imageURL string]
func attachImage(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return errorResult("attachImage requires 2 args: sceneId, imageUrl")
	}
	id, u := args[0].String(), args[1].String()
	return stepResult(func() error { return session.AttachImage(id, u) })
}

// =============================================================================
// Slot Export/Import
// =============================================================================

func exportState(this js.Value, args []js.Value) interface{} {
	if slots == nil {
		return errorResult("not initialized")
	}
	data, err := slots.Export()
	if err != nil {
		return errorResult("export failed: " + err.Error())
	}
	return string(data)
}

// importState replaces all slots and reopens the session from them.
// Args: [dataJSON string]
func importState(this js.Value, args []js.Value) interface{} {
	if slots == nil {
		return errorResult("not initialized")
	}
	if len(args) < 1 {
		return errorResult("importState requires 1 arg: dataJSON")
	}
	if err := slots.Import([]byte(args[0].String())); err != nil {
		return errorResult("import failed: " + err.Error())
	}
	if err := openSession(); err != nil {
		return errorResult(err.Error())
	}
	return jsonResult(session.View())
}

// =============================================================================
// Helpers
// =============================================================================

func jsonResult(v interface{}) interface{} {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return errorResult(err.Error())
	}
	return string(jsonBytes)
}

// Helper: Create error result
func errorResult(msg string) interface{} {
	result := map[string]interface{}{
		"error": msg,
	}
	jsonBytes, _ := json.Marshal(result)
	return string(jsonBytes)
}

// Helper: Create success result
func successResult(msg string) interface{} {
	result := map[string]interface{}{
		"success": msg,
	}
	jsonBytes, _ := json.Marshal(result)
	return string(jsonBytes)
}
