package widget

import (
	"github.com/a-h/templ"

	"talkatv/internal/remote"
)

// Surface is the part of the page a widget owns. The controller only talks to
// the DOM through it. Implementations are called from the controller's loop
// goroutine only.
type Surface interface {
	// Mount takes over the container and renders the empty widget regions.
	Mount(skeleton templ.Component)
	ShowForm(form templ.Component)
	// ShowSignedIn and ShowReplyTarget fill slots inside the form; nil empties
	// them.
	ShowSignedIn(line templ.Component)
	ShowReplyTarget(target templ.Component)
	ShowComments(list templ.Component)
	Flash(message templ.Component)
	ClearMessages()
	// SetBusy disables or re-enables the comment field and submit button.
	SetBusy(busy bool)
	CommentText() string
	ClearCommentText()
}

// PageSource reports the identity of the hosting document. It is read at the
// start of every feed fetch so client-side navigation is picked up.
type PageSource interface {
	Identity() remote.PageIdentity
}

type StaticPage remote.PageIdentity

func (p StaticPage) Identity() remote.PageIdentity {
	return remote.PageIdentity(p)
}
