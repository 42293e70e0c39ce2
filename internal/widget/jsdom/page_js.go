//go:build js && wasm

package jsdom

import (
	"syscall/js"

	"talkatv/internal/remote"
)

// Location reads the hosting document's identity on every call. Query string
// and fragment are not part of the item url.
type Location struct{}

func (Location) Identity() remote.PageIdentity {
	global := js.Global()
	loc := global.Get("location")
	return remote.PageIdentity{
		URL:   loc.Get("protocol").String() + "//" + loc.Get("host").String() + loc.Get("pathname").String(),
		Title: global.Get("document").Get("title").String(),
	}
}

// Globals looks settings up on window.
func Globals(name string) (any, bool) {
	return jsValue(js.Global().Get(name))
}

// Attributes looks settings up as attributes of el.
func Attributes(el js.Value) Lookup {
	return func(name string) (any, bool) {
		if !el.Call("hasAttribute", name).Bool() {
			return nil, false
		}
		return el.Call("getAttribute", name).String(), true
	}
}

func jsValue(v js.Value) (any, bool) {
	switch v.Type() {
	case js.TypeUndefined, js.TypeNull:
		return nil, false
	case js.TypeBoolean:
		return v.Bool(), true
	case js.TypeNumber:
		return v.Float(), true
	case js.TypeString:
		return v.String(), true
	default:
		return v.String(), true
	}
}

// Console sends log lines to console.log.
type Console struct{}

func (Console) Write(p []byte) (int, error) {
	js.Global().Get("console").Call("log", string(p))
	return len(p), nil
}
