//go:build js && wasm

package jsdom

import (
	"context"
	"syscall/js"

	"github.com/a-h/templ"

	"talkatv/internal/views"
)

// Actions are the user gestures a mounted widget reacts to.
type Actions interface {
	Submit()
	ReplyTo(commentID string)
	CancelReply()
}

// Surface renders a widget into one container element of the live document.
type Surface struct {
	root     js.Value
	messages js.Value
	form     js.Value
	comments js.Value

	listeners []listener
	onError   func(error)
}

type listener struct {
	event string
	fn    js.Func
}

func NewSurface(root js.Value, onError func(error)) *Surface {
	if onError == nil {
		onError = func(error) {}
	}
	return &Surface{root: root, onError: onError}
}

func (s *Surface) Mount(skeleton templ.Component) {
	s.root.Set("innerHTML", s.render(skeleton))
	s.messages = s.find(s.root, views.ClassMessages)
	s.form = s.find(s.root, views.ClassForm)
	s.comments = s.find(s.root, views.ClassComments)
}

func (s *Surface) ShowForm(form templ.Component) {
	setHTML(s.form, s.render(form))
}

func (s *Surface) ShowSignedIn(line templ.Component) {
	setHTML(s.find(s.form, views.ClassSignedIn), s.render(line))
}

func (s *Surface) ShowReplyTarget(target templ.Component) {
	setHTML(s.find(s.form, views.ClassReplyTarget), s.render(target))
}

func (s *Surface) ShowComments(list templ.Component) {
	setHTML(s.comments, s.render(list))
}

func (s *Surface) Flash(message templ.Component) {
	if present(s.messages) {
		s.messages.Call("insertAdjacentHTML", "beforeend", s.render(message))
	}
}

func (s *Surface) ClearMessages() {
	setHTML(s.messages, "")
}

func (s *Surface) SetBusy(busy bool) {
	for _, class := range []string{views.ClassCommentBox, views.ClassSubmit} {
		if field := s.find(s.form, class); present(field) {
			field.Set("disabled", busy)
		}
	}
}

func (s *Surface) CommentText() string {
	field := s.find(s.form, views.ClassCommentBox)
	if !present(field) {
		return ""
	}
	return field.Get("value").String()
}

func (s *Surface) ClearCommentText() {
	if field := s.find(s.form, views.ClassCommentBox); present(field) {
		field.Set("value", "")
	}
}

// Bind routes form submits and reply clicks inside the container to actions.
// Listeners sit on the container so they survive region re-renders.
func (s *Surface) Bind(actions Actions) {
	s.listen("submit", func(event js.Value) {
		target := event.Get("target")
		if !present(target) || !target.Call("hasAttribute", views.AttrForm).Bool() {
			return
		}
		event.Call("preventDefault")
		go actions.Submit()
	})

	s.listen("click", func(event js.Value) {
		target := event.Get("target")
		if !present(target) || !present(target.Get("closest")) {
			return
		}
		if reply := target.Call("closest", "["+views.AttrReply+"]"); present(reply) {
			event.Call("preventDefault")
			id := reply.Call("getAttribute", views.AttrReply).String()
			go actions.ReplyTo(id)
			return
		}
		if cancel := target.Call("closest", "["+views.AttrCancelReply+"]"); present(cancel) {
			event.Call("preventDefault")
			go actions.CancelReply()
		}
	})
}

// Release detaches listeners and frees their callbacks.
func (s *Surface) Release() {
	for _, l := range s.listeners {
		s.root.Call("removeEventListener", l.event, l.fn)
		l.fn.Release()
	}
	s.listeners = nil
}

func (s *Surface) listen(event string, handle func(js.Value)) {
	fn := js.FuncOf(func(this js.Value, args []js.Value) any {
		if len(args) > 0 {
			handle(args[0])
		}
		return nil
	})
	s.root.Call("addEventListener", event, fn)
	s.listeners = append(s.listeners, listener{event: event, fn: fn})
}

func (s *Surface) render(component templ.Component) string {
	html, err := views.RenderString(context.Background(), component)
	if err != nil {
		s.onError(err)
		return ""
	}
	return html
}

func (s *Surface) find(parent js.Value, class string) js.Value {
	if !present(parent) {
		return js.Null()
	}
	return parent.Call("querySelector", "."+class)
}

func setHTML(el js.Value, html string) {
	if present(el) {
		el.Set("innerHTML", html)
	}
}

func present(v js.Value) bool {
	return v.Truthy()
}
