package views

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// htmlWriter keeps the first write error so component bodies read as a flat
// sequence of writes.
type htmlWriter struct {
	ctx context.Context
	w   io.Writer
	err error
}

func newHTMLWriter(ctx context.Context, w io.Writer) *htmlWriter {
	return &htmlWriter{ctx: ctx, w: w}
}

func (hw *htmlWriter) raw(parts ...string) {
	for _, part := range parts {
		if hw.err != nil {
			return
		}
		_, hw.err = io.WriteString(hw.w, part)
	}
}

func (hw *htmlWriter) text(value string) {
	hw.raw(templ.EscapeString(value))
}

func (hw *htmlWriter) attr(name string, value string) {
	hw.raw(" ", name, `="`, templ.EscapeString(value), `"`)
}

func (hw *htmlWriter) child(component templ.Component) {
	if hw.err != nil || component == nil {
		return
	}
	hw.err = component.Render(hw.ctx, hw.w)
}

// RenderString renders a component into a string. A nil component renders
// as empty.
func RenderString(ctx context.Context, component templ.Component) (string, error) {
	if component == nil {
		return "", nil
	}

	var out strings.Builder
	if err := component.Render(ctx, &out); err != nil {
		return "", err
	}
	return out.String(), nil
}
