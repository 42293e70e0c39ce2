package views

import (
	"context"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"talkatv/internal/markdown"
	"talkatv/internal/remote"
)

// Class names the browser surface looks up inside its container.
const (
	ClassMessages    = "talkatv-messages"
	ClassForm        = "talkatv-form"
	ClassComments    = "talkatv-comments"
	ClassReplyTarget = "talkatv-reply-target"
	ClassSignedIn    = "talkatv-signed-in"
	ClassCommentBox  = "talkatv-comment-field"
	ClassSubmit      = "talkatv-submit"

	AttrReply       = "data-talkatv-reply"
	AttrCancelReply = "data-talkatv-cancel-reply"
	AttrForm        = "data-talkatv-form"
)

type FlashKind string

const (
	FlashError   FlashKind = "error"
	FlashMessage FlashKind = "message"
)

type Ordering int

const (
	OrderForward Ordering = iota
	OrderReverse
)

// WidgetView holds the three regions of a mounted widget. Nil regions render
// empty.
type WidgetView struct {
	Messages templ.Component
	Form     templ.Component
	Comments templ.Component
}

func Widget(view WidgetView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := newHTMLWriter(ctx, w)
		hw.raw(`<div class="`, ClassMessages, `">`)
		hw.child(view.Messages)
		hw.raw(`</div><div class="`, ClassForm, `">`)
		hw.child(view.Form)
		hw.raw(`</div><div class="`, ClassComments, `">`)
		hw.child(view.Comments)
		hw.raw(`</div>`)
		return hw.err
	})
}

func Skeleton() templ.Component {
	return Widget(WidgetView{})
}

func Loading() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := newHTMLWriter(ctx, w)
		hw.raw(`<p class="talkatv-loading">Loading…</p>`)
		return hw.err
	})
}

// LoginURL builds a login or register link on the remote service that sends
// the viewer back to returnURL afterwards.
func LoginURL(homeURL string, path string, returnURL string) string {
	return strings.TrimRight(homeURL, "/") + path + "?next=" + url.QueryEscape(returnURL)
}

func LoginPrompt(homeURL string, returnURL string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := newHTMLWriter(ctx, w)
		hw.raw(`<p class="talkatv-login">You need to <a`)
		hw.attr("href", LoginURL(homeURL, remote.PathLogin, returnURL))
		hw.raw(`>login</a> or <a`)
		hw.attr("href", LoginURL(homeURL, remote.PathRegister, returnURL))
		hw.raw(`>register</a> to post a comment.</p>`)
		return hw.err
	})
}

// CommentForm leaves the signed-in line and the reply target as empty slots
// so both can change without replacing the text the viewer typed.
func CommentForm() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := newHTMLWriter(ctx, w)
		hw.raw(`<form class="talkatv-comment-form" `, AttrForm, `>`)
		hw.raw(`<div class="`, ClassSignedIn, `"></div>`)
		hw.raw(`<div class="`, ClassReplyTarget, `"></div>`)
		hw.raw(`<div class="comment-field-wrapper"><textarea class="`, ClassCommentBox,
			`" name="comment" placeholder="Write a comment..."></textarea></div>`)
		hw.raw(`<button type="submit" class="`, ClassSubmit, `">Post comment</button></form>`)
		return hw.err
	})
}

// SignedInAs renders nothing for a blank name.
func SignedInAs(name string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := newHTMLWriter(ctx, w)
		if name = strings.TrimSpace(name); name != "" {
			hw.raw(`<p class="talkatv-posting-as">Posting as <strong>`)
			hw.text(name)
			hw.raw(`</strong></p>`)
		}
		return hw.err
	})
}

type ReplyTargetView struct {
	Username string
	Excerpt  string
}

func ReplyTarget(view ReplyTargetView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := newHTMLWriter(ctx, w)
		hw.raw(`<p class="talkatv-replying">Replying to <strong>`)
		hw.text(view.Username)
		hw.raw(`</strong>`)
		if view.Excerpt != "" {
			hw.raw(` <q>`)
			hw.text(view.Excerpt)
			hw.raw(`</q>`)
		}
		hw.raw(` <button type="button" `, AttrCancelReply, `>cancel</button></p>`)
		return hw.err
	})
}

type ListView struct {
	Comments []remote.Comment
	Total    int
	Order    Ordering
	// SiteURL marks links into the host site as first-party.
	SiteURL  string
	CanReply bool
}

// CommentList renders the whole list; callers replace prior content with it.
func CommentList(view ListView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := newHTMLWriter(ctx, w)
		hw.raw(`<p class="talkatv-count">`, CountLabel(view.Total), `</p>`)
		if len(view.Comments) == 0 {
			hw.raw(`<p class="talkatv-empty">No comments yet.</p>`)
			return hw.err
		}

		class := "comment-list"
		if view.Order == OrderReverse {
			class += " comment-list-reversed"
		}
		hw.raw(`<ol class="`, class, `">`)
		for _, comment := range ordered(view.Comments, view.Order) {
			writeComment(hw, comment, view)
		}
		hw.raw(`</ol>`)
		return hw.err
	})
}

func writeComment(hw *htmlWriter, comment remote.Comment, view ListView) {
	hw.raw(`<li class="comment"`)
	if !comment.ID.IsZero() {
		hw.attr("data-comment-id", comment.ID.String())
	}
	hw.raw(`><div class="comment-text">`)
	hw.raw(string(markdown.ToHTML(comment.Text, markdown.Options{SiteURL: view.SiteURL})))
	hw.raw(`</div><span class="comment-created"`)
	hw.attr("title", comment.Created)
	hw.raw(`>`)
	hw.text(CreatedLabel(comment.Created))
	hw.raw(`</span> <span class="comment-username">`)
	hw.text(comment.Username)
	hw.raw(`</span>`)
	if view.CanReply && !comment.ID.IsZero() {
		hw.raw(`<button type="button" class="comment-reply"`)
		hw.attr(AttrReply, comment.ID.String())
		hw.raw(`>reply</button>`)
	}
	if len(comment.Replies) > 0 {
		hw.raw(`<ol class="comment-replies">`)
		for _, reply := range comment.Replies {
			writeComment(hw, reply, view)
		}
		hw.raw(`</ol>`)
	}
	hw.raw(`</li>`)
}

func ordered(comments []remote.Comment, order Ordering) []remote.Comment {
	if order != OrderReverse {
		return comments
	}

	reversed := make([]remote.Comment, len(comments))
	for idx, comment := range comments {
		reversed[len(comments)-1-idx] = comment
	}
	return reversed
}

func CountLabel(total int) string {
	if total == 1 {
		return "1 comment"
	}
	return strconv.Itoa(total) + " comments"
}

func Flash(kind FlashKind, message string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := newHTMLWriter(ctx, w)
		hw.raw(`<div class="talkatv-alert alert alert-`, string(kind), `" role="alert">`)
		hw.text(message)
		hw.raw(`</div>`)
		return hw.err
	})
}
