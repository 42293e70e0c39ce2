//go:build js && wasm

package remote

var fetchOptions = map[string]string{
	"js.fetch:credentials": "include",
	"js.fetch:mode":        "cors",
}
