package views

import (
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/a-h/templ"

	"talkatv/internal/markdown"
)

// HostView describes the demo static page that embeds the widget the same
// way a real host page would: configuration globals, a container element,
// and the wasm loader.
type HostView struct {
	Title          string
	Home           string
	Order          string
	RequestTimeout string
	ContainerID    string
	StaticPrefix   string
	Article        string
}

func HostPage(view HostView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := newHTMLWriter(ctx, w)
		hw.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		hw.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		hw.raw(`<title>`)
		hw.text(view.Title)
		hw.raw(`</title><style>`, widgetCSS, string(markdown.StyleSheet()), `</style>`)
		hw.raw(`<script>`)
		hw.raw(`window.talkatv_home = `, scriptValue(view.Home), `;`)
		hw.raw(`window.talkatv_order = `, scriptValue(view.Order), `;`)
		if view.ContainerID != "" {
			hw.raw(`window.talkatv_container_id = `, scriptValue(view.ContainerID), `;`)
		}
		if view.RequestTimeout != "" {
			hw.raw(`window.talkatv_timeout = `, scriptValue(view.RequestTimeout), `;`)
		}
		hw.raw(`</script></head><body><main><article><h1>`)
		hw.text(view.Title)
		hw.raw(`</h1>`)
		for _, paragraph := range strings.Split(strings.TrimSpace(view.Article), "\n\n") {
			if strings.TrimSpace(paragraph) == "" {
				continue
			}
			hw.raw(`<p>`)
			hw.text(paragraph)
			hw.raw(`</p>`)
		}
		hw.raw(`</article><section`)
		hw.attr("id", view.ContainerID)
		hw.raw(`></section></main>`)

		prefix := strings.TrimRight(view.StaticPrefix, "/")
		hw.raw(`<script`)
		hw.attr("src", prefix+"/wasm_exec.js")
		hw.raw(`></script><script>`)
		hw.raw(`(function(){var go=new Go();`)
		hw.raw(`WebAssembly.instantiateStreaming(fetch(`, scriptValue(prefix+"/talkatv.wasm"), `),go.importObject)`)
		hw.raw(`.then(function(r){go.run(r.instance);})`)
		hw.raw(`.catch(function(e){console.error("talkatv: wasm load failed",e);});})();`)
		hw.raw(`</script></body></html>`)
		return hw.err
	})
}

func NotFound(path string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := newHTMLWriter(ctx, w)
		hw.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>404 Not Found</title></head>`)
		hw.raw(`<body><h1>404 Not Found</h1><p>Nothing lives at <code>`)
		hw.text(path)
		hw.raw(`</code>.</p></body></html>`)
		return hw.err
	})
}

// scriptValue encodes a value for inline script. json.Marshal escapes <, >
// and & so the result cannot close the script element.
func scriptValue(value string) string {
	payload, err := json.Marshal(value)
	if err != nil {
		return `""`
	}
	return string(payload)
}

const widgetCSS = `.talkatv-alert{padding:.5em;margin:.25em 0;border-radius:4px}
.alert-error{background:#fdecea;color:#611a15}
.alert-message{background:#e8f4fd;color:#0d3c61}
.talkatv-comment-form textarea{width:100%;min-height:5em}
.comment-list,.comment-replies{list-style:none;padding-left:0}
.comment-replies{margin-left:1.5em}
.comment{margin:.75em 0}
.comment-created{color:#777;font-size:.85em}
.comment-username{font-weight:bold}
`
