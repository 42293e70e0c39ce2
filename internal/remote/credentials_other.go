//go:build !(js && wasm)

package remote

var fetchOptions map[string]string
