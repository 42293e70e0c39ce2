package markdown

import (
	"bytes"
	"html/template"
	"strings"
	"sync"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
)

const (
	chromaLightStyle = "github"
	chromaDarkStyle  = "monokai"
)

const commentBodyCSS = `.comment-text pre.chroma{overflow-x:auto;padding:.5em;border-radius:4px}
.comment-text code.inline-code{font-family:monospace;padding:0 .2em}
.comment-text p{margin:0 0 .5em}
`

var (
	styleSheetOnce sync.Once
	styleSheet     template.CSS
)

// StyleSheet returns the CSS needed by rendered comment bodies: a few layout
// rules plus chroma token colors for light and dark schemes.
func StyleSheet() template.CSS {
	styleSheetOnce.Do(func() {
		styleSheet = template.CSS(buildStyleSheet())
	})

	return styleSheet
}

func buildStyleSheet() string {
	var out strings.Builder
	out.WriteString(commentBodyCSS)
	writeScheme(&out, "light", chromaLightStyle)
	writeScheme(&out, "dark", chromaDarkStyle)
	return out.String()
}

func writeScheme(out *strings.Builder, scheme string, styleName string) {
	style := styles.Get(styleName)
	if style == nil {
		style = styles.Fallback
	}

	var buffer bytes.Buffer
	if err := codeFormatter().WriteCSS(&buffer, style); err != nil || buffer.Len() == 0 {
		return
	}

	out.WriteString("@media (prefers-color-scheme: " + scheme + ") {\n")
	out.Write(buffer.Bytes())
	out.WriteString("}\n")
}

func codeFormatter() *chromahtml.Formatter {
	return chromahtml.New(chromahtml.WithClasses(true))
}
