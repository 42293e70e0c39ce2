package widget

import (
	"context"
	"strings"
	"sync"

	"github.com/a-h/templ"

	"talkatv/internal/views"
)

// HTMLSurface renders every region to a string. It backs the snapshot
// command and tests, standing in for a browser container.
type HTMLSurface struct {
	mu sync.Mutex

	mounted     bool
	messages    []string
	form        string
	signedIn    string
	replyTarget string
	comments    string
	busy        bool
	text        string
	err         error
}

func NewHTMLSurface() *HTMLSurface {
	return &HTMLSurface{}
}

func (s *HTMLSurface) Mount(templ.Component) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mounted = true
	s.messages = nil
	s.form = ""
	s.signedIn = ""
	s.replyTarget = ""
	s.comments = ""
}

func (s *HTMLSurface) ShowForm(form templ.Component) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.form = s.render(form)
	s.signedIn = ""
	s.replyTarget = ""
}

func (s *HTMLSurface) ShowSignedIn(line templ.Component) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signedIn = s.render(line)
}

func (s *HTMLSurface) ShowReplyTarget(target templ.Component) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replyTarget = s.render(target)
}

func (s *HTMLSurface) ShowComments(list templ.Component) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comments = s.render(list)
}

func (s *HTMLSurface) Flash(message templ.Component) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, s.render(message))
}

func (s *HTMLSurface) ClearMessages() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
}

func (s *HTMLSurface) SetBusy(busy bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = busy
}

func (s *HTMLSurface) CommentText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text
}

func (s *HTMLSurface) ClearCommentText() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.text = ""
}

// SetCommentText plays the part of a user typing into the comment field.
func (s *HTMLSurface) SetCommentText(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.text = text
}

func (s *HTMLSurface) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

func (s *HTMLSurface) Messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.messages...)
}

func (s *HTMLSurface) Form() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.form
}

func (s *HTMLSurface) SignedInHTML() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.signedIn
}

func (s *HTMLSurface) ReplyTargetHTML() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replyTarget
}

func (s *HTMLSurface) Comments() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.comments
}

// HTML returns the widget as it would appear inside its container, or the
// first render error.
func (s *HTMLSurface) HTML(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	if !s.mounted {
		return "", nil
	}

	form := fillSlot(s.form, views.ClassSignedIn, s.signedIn)
	form = fillSlot(form, views.ClassReplyTarget, s.replyTarget)

	return views.RenderString(ctx, views.Widget(views.WidgetView{
		Messages: templ.Raw(strings.Join(s.messages, "")),
		Form:     templ.Raw(form),
		Comments: templ.Raw(s.comments),
	}))
}

func fillSlot(form string, class string, content string) string {
	if content == "" {
		return form
	}
	slot := `<div class="` + class + `"></div>`
	return strings.Replace(form, slot, `<div class="`+class+`">`+content+`</div>`, 1)
}

func (s *HTMLSurface) render(component templ.Component) string {
	html, err := views.RenderString(context.Background(), component)
	if err != nil && s.err == nil {
		s.err = err
	}
	return html
}
