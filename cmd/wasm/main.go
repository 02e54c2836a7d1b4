//go:build js && wasm

package main

import (
	"net/url"
	"strings"
	"syscall/js"

	"github.com/TriangleYJ/spline/internal/drag"
	"github.com/TriangleYJ/spline/internal/editor"
)

var ed *editor.Editor

func main() {
	ed = editor.New()

	// Create the editor API object
	splineEditor := js.Global().Get("Object").New()

	// --- Commands (frontend → backend) ---
	splineEditor.Set("loadQuery", js.FuncOf(loadQuery))
	splineEditor.Set("addCurve", js.FuncOf(addCurve))
	splineEditor.Set("removeCurve", js.FuncOf(removeCurve))
	splineEditor.Set("updatePoint", js.FuncOf(updatePoint))
	splineEditor.Set("disconnect", js.FuncOf(disconnect))
	splineEditor.Set("pointerDown", js.FuncOf(pointerDown))
	splineEditor.Set("pointerMove", js.FuncOf(pointerMove))
	splineEditor.Set("pointerUp", js.FuncOf(pointerUp))
	splineEditor.Set("pointerLeave", js.FuncOf(pointerLeave))
	splineEditor.Set("setHideStrokes", js.FuncOf(setHideStrokes))
	splineEditor.Set("setForceBlackLine", js.FuncOf(setForceBlackLine))
	splineEditor.Set("dismissNotice", js.FuncOf(dismissNotice))

	// --- Queries (frontend ← backend) ---
	splineEditor.Set("render", js.FuncOf(render))
	splineEditor.Set("getState", js.FuncOf(getState))
	splineEditor.Set("getParam", js.FuncOf(getParam))
	splineEditor.Set("getShareURL", js.FuncOf(getShareURL))

	// Register on global scope
	js.Global().Set("splineEditor", splineEditor)

	// Signal that WASM is ready
	js.Global().Set("splineWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

func errorValue(err error) interface{} {
	return js.ValueOf(map[string]interface{}{"error": err.Error()})
}

func ok() interface{} {
	return js.ValueOf(map[string]interface{}{"ok": true})
}

// --- Command Handlers ---

// loadQuery takes location.search (with or without the leading "?"). A
// malformed scene is not an error here: the default scene loads and the
// notice shows up in getState.
func loadQuery(this js.Value, args []js.Value) interface{} {
	search := ""
	if len(args) > 0 && args[0].Type() == js.TypeString {
		search = strings.TrimPrefix(args[0].String(), "?")
	}
	q, err := url.ParseQuery(search)
	if err != nil {
		q = url.Values{}
	}
	ed.LoadQuery(q)
	return js.ValueOf(ed.Notice())
}

func addCurve(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(ed.AddCurve())
}

func removeCurve(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing curve index"})
	}
	if err := ed.RemoveCurve(args[0].Int()); err != nil {
		return errorValue(err)
	}
	return ok()
}

// updatePoint(index, field, value) where field is e.g. "control1Y" and
// value is the text typed into the input.
func updatePoint(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return js.ValueOf(map[string]interface{}{"error": "usage: updatePoint(index, field, value)"})
	}
	value := args[2].String()
	if args[2].Type() == js.TypeNumber {
		value = js.Global().Get("String").Invoke(args[2]).String()
	}
	if err := ed.UpdatePoint(args[0].Int(), args[1].String(), value); err != nil {
		return errorValue(err)
	}
	return ok()
}

func disconnect(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf(map[string]interface{}{"error": "usage: disconnect(index, endpoint)"})
	}
	if err := ed.Disconnect(args[0].Int(), args[1].String()); err != nil {
		return errorValue(err)
	}
	return ok()
}

func pointerDown(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf(false)
	}
	return js.ValueOf(ed.PointerDown(args[0].Float(), args[1].Float()))
}

func pointerMove(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	if err := ed.PointerMove(args[0].Float(), args[1].Float()); err != nil {
		return errorValue(err)
	}
	return nil
}

func pointerUp(this js.Value, args []js.Value) interface{} {
	return release(ed.PointerUp())
}

func pointerLeave(this js.Value, args []js.Value) interface{} {
	return release(ed.PointerLeave())
}

func release(rel drag.Release, released bool, err error) interface{} {
	if err != nil {
		return errorValue(err)
	}
	if !released {
		return nil
	}
	return js.ValueOf(map[string]interface{}{"connected": rel.Connected})
}

func setHideStrokes(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	ed.SetHideStrokes(args[0].Truthy())
	return nil
}

func setForceBlackLine(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	ed.SetForceBlackLine(args[0].Truthy())
	return nil
}

func dismissNotice(this js.Value, args []js.Value) interface{} {
	ed.DismissNotice()
	return nil
}

// --- Query Handlers ---

func render(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(ed.Render())
}

func getState(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(ed.StateJSON())
}

func getParam(this js.Value, args []js.Value) interface{} {
	param, err := ed.Param()
	if err != nil {
		return errorValue(err)
	}
	return js.ValueOf(param)
}

func getShareURL(this js.Value, args []js.Value) interface{} {
	base := js.Global().Get("location").Get("href").String()
	if len(args) > 0 && args[0].Type() == js.TypeString {
		base = args[0].String()
	}
	share, err := ed.ShareURL(base)
	if err != nil {
		return errorValue(err)
	}
	return js.ValueOf(share)
}
