//go:build js && wasm

package main

import (
	"syscall/js"

	"github.com/portrait/portrait/internal/engine"
	"github.com/portrait/portrait/internal/interaction"
)

var eng *engine.Engine

func main() {
	eng = engine.NewEngine()

	// Create the engine API object
	portraitEngine := js.Global().Get("Object").New()

	// --- Commands (frontend → backend) ---
	portraitEngine.Set("onSend", js.FuncOf(onSend))
	portraitEngine.Set("join", js.FuncOf(join))
	portraitEngine.Set("leave", js.FuncOf(leave))
	portraitEngine.Set("receive", js.FuncOf(receive))
	portraitEngine.Set("loadHistory", js.FuncOf(loadHistory))
	portraitEngine.Set("pointerDown", js.FuncOf(pointerDown))
	portraitEngine.Set("pointerMove", js.FuncOf(pointerMove))
	portraitEngine.Set("pointerUp", js.FuncOf(pointerUp))
	portraitEngine.Set("wheel", js.FuncOf(wheel))
	portraitEngine.Set("key", js.FuncOf(key))
	portraitEngine.Set("setMode", js.FuncOf(setMode))
	portraitEngine.Set("setStyle", js.FuncOf(setStyle))
	portraitEngine.Set("setText", js.FuncOf(setText))
	portraitEngine.Set("setBufferScale", js.FuncOf(setBufferScale))

	// --- Queries (frontend ← backend) ---
	portraitEngine.Set("render", js.FuncOf(render))
	portraitEngine.Set("needsRender", js.FuncOf(needsRender))
	portraitEngine.Set("cursor", js.FuncOf(cursor))
	portraitEngine.Set("hitTest", js.FuncOf(hitTest))
	portraitEngine.Set("getState", js.FuncOf(getState))
	portraitEngine.Set("getShapes", js.FuncOf(getShapes))
	portraitEngine.Set("getViewport", js.FuncOf(getViewport))

	// Register on global scope
	js.Global().Set("portraitEngine", portraitEngine)

	// Signal that WASM is ready
	js.Global().Set("portraitWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

func result(err error) interface{} {
	if err != nil {
		return js.ValueOf(map[string]interface{}{"error": err.Error()})
	}
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func missing(what string) interface{} {
	return js.ValueOf(map[string]interface{}{"error": "missing " + what})
}

// modifiers reads shiftKey/ctrlKey/altKey/metaKey from a DOM event-like
// object. Anything else yields no modifiers.
func modifiers(args []js.Value, i int) interaction.Modifiers {
	if len(args) <= i || args[i].Type() != js.TypeObject {
		return interaction.Modifiers{}
	}
	v := args[i]
	return interaction.Modifiers{
		Shift: v.Get("shiftKey").Truthy(),
		Ctrl:  v.Get("ctrlKey").Truthy(),
		Alt:   v.Get("altKey").Truthy(),
		Meta:  v.Get("metaKey").Truthy(),
	}
}

// --- Command Handlers ---

// onSend takes a function(frame: string) that writes to the relay socket.
func onSend(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || args[0].Type() != js.TypeFunction {
		return missing("send function")
	}
	fn := args[0]
	eng.OnSend(func(frame string) {
		fn.Invoke(frame)
	})
	return result(nil)
}

func join(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return missing("room id")
	}
	return result(eng.Join(args[0].String()))
}

func leave(this js.Value, args []js.Value) interface{} {
	return result(eng.Leave())
}

func receive(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return missing("message JSON")
	}
	return result(eng.Receive(args[0].String()))
}

func loadHistory(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return missing("history JSON")
	}
	return result(eng.LoadHistory(args[0].String()))
}

// pointerDown(x, y, button, event)
func pointerDown(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return missing("x, y, button")
	}
	eng.PointerDown(args[0].Float(), args[1].Float(), args[2].Int(), modifiers(args, 3))
	return nil
}

// pointerMove(x, y, event)
func pointerMove(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return missing("x, y")
	}
	eng.PointerMove(args[0].Float(), args[1].Float(), modifiers(args, 2))
	return nil
}

func pointerUp(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return missing("x, y")
	}
	eng.PointerUp(args[0].Float(), args[1].Float(), modifiers(args, 2))
	return nil
}

// wheel(x, y, deltaX, deltaY, event)
func wheel(this js.Value, args []js.Value) interface{} {
	if len(args) < 4 {
		return missing("x, y, deltaX, deltaY")
	}
	eng.Wheel(args[0].Float(), args[1].Float(), args[2].Float(), args[3].Float(), modifiers(args, 4))
	return nil
}

// key(event.key, event) returns true when the key was handled, so the page
// can preventDefault.
func key(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(false)
	}
	return js.ValueOf(eng.Key(args[0].String(), modifiers(args, 1)))
}

func setMode(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return missing("mode")
	}
	return result(eng.SetMode(args[0].String()))
}

func setStyle(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return missing("style JSON")
	}
	return result(eng.SetStyle(args[0].String()))
}

func setText(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(false)
	}
	return js.ValueOf(eng.SetText(args[0].String()))
}

func setBufferScale(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return missing("sx, sy")
	}
	eng.SetBufferScale(args[0].Float(), args[1].Float())
	return nil
}

// --- Query Handlers ---

// render(width, height) returns the draw commands as JSON.
func render(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf("[]")
	}
	return js.ValueOf(eng.Render(args[0].Float(), args[1].Float()))
}

func needsRender(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.NeedsRender())
}

func cursor(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf("default")
	}
	return js.ValueOf(eng.Cursor(args[0].Float(), args[1].Float()))
}

func hitTest(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf("")
	}
	return js.ValueOf(eng.HitTest(args[0].Float(), args[1].Float()))
}

func getState(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.GetState())
}

func getShapes(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.GetShapes())
}

func getViewport(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.GetViewport())
}
