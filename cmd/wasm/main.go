//go:build js && wasm

package main

import (
	"context"
	"encoding/json"
	"syscall/js"

	"github.com/inamate/visualdrag/internal/document"
	"github.com/inamate/visualdrag/internal/engine"
	"github.com/inamate/visualdrag/internal/geometry"
	"github.com/inamate/visualdrag/internal/live"
)

const canvasID = "canvas_local"

var (
	session  *live.Session
	listener js.Value
	saveHook js.Value
)

func main() {
	if err := open(document.NewEmptyDocument()); err != nil {
		panic(err)
	}

	api := js.Global().Get("Object").New()

	// --- Commands (renderer → engine) ---
	api.Set("loadDocument", js.FuncOf(loadDocument))
	api.Set("loadSampleDocument", js.FuncOf(loadSampleDocument))
	api.Set("dispatch", js.FuncOf(dispatch))
	api.Set("tick", js.FuncOf(tick))
	api.Set("onMessage", js.FuncOf(onMessage))
	api.Set("onSave", js.FuncOf(onSave))

	// --- Queries (renderer ← engine) ---
	api.Set("render", js.FuncOf(render))
	api.Set("hitTest", js.FuncOf(hitTest))
	api.Set("getDocument", js.FuncOf(getDocument))
	api.Set("getPalette", js.FuncOf(getPalette))
	api.Set("getEvents", js.FuncOf(getEvents))

	js.Global().Set("visualDragEngine", api)
	js.Global().Set("visualDragWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

func open(doc *document.Document) error {
	s, err := live.NewSession(canvasID, doc, engine.DefaultOptions(), save, send)
	if err != nil {
		return err
	}
	session = s
	return nil
}

func send(msg *live.Message) {
	if listener.Type() != js.TypeFunction {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	listener.Invoke(string(data))
}

// save hands the document to the page; persistence is the page's concern.
func save(_ context.Context, _ string, doc *document.Document) (int, bool, error) {
	if saveHook.Type() != js.TypeFunction {
		return 0, false, nil
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return 0, false, err
	}
	saveHook.Invoke(string(data))
	return 0, true, nil
}

func errResult(err error) interface{} {
	return js.ValueOf(map[string]interface{}{"error": err.Error()})
}

func okResult() interface{} {
	return js.ValueOf(map[string]interface{}{"ok": true})
}

// --- Command Handlers ---

func loadDocument(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing document JSON"})
	}
	doc, err := document.Decode([]byte(args[0].String()))
	if err != nil {
		return errResult(err)
	}
	if err := open(doc); err != nil {
		return errResult(err)
	}
	return okResult()
}

func loadSampleDocument(this js.Value, args []js.Value) interface{} {
	if err := open(document.NewSampleDocument()); err != nil {
		return errResult(err)
	}
	return okResult()
}

// dispatch takes one protocol message as JSON, e.g.
// {"type":"pointer.down","payload":{"x":10,"y":20,"button":0}}.
func dispatch(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing message JSON"})
	}
	var msg live.Message
	if err := json.Unmarshal([]byte(args[0].String()), &msg); err != nil {
		return errResult(err)
	}
	if err := session.Handle(context.Background(), &msg); err != nil {
		return errResult(err)
	}
	return okResult()
}

func tick(this js.Value, args []js.Value) interface{} {
	session.Tick()
	return nil
}

func onMessage(this js.Value, args []js.Value) interface{} {
	if len(args) > 0 {
		listener = args[0]
	}
	return nil
}

func onSave(this js.Value, args []js.Value) interface{} {
	if len(args) > 0 {
		saveHook = args[0]
	}
	return nil
}

// --- Query Handlers ---

func render(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(session.Engine().Render())
}

func hitTest(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf(document.NoSelection)
	}
	p := geometry.Point{X: args[0].Float(), Y: args[1].Float()}
	return js.ValueOf(session.Engine().HitTest(p))
}

func getDocument(this js.Value, args []js.Value) interface{} {
	return jsonValue(session.Engine().Document())
}

func getPalette(this js.Value, args []js.Value) interface{} {
	return jsonValue(session.Engine().Palette())
}

func getEvents(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf("[]")
	}
	return jsonValue(session.Engine().ElementEvents(args[0].Int()))
}

func jsonValue(v any) interface{} {
	data, err := json.Marshal(v)
	if err != nil {
		return errResult(err)
	}
	return js.ValueOf(string(data))
}
