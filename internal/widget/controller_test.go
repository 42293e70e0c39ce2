package widget

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talkatv/internal/remote"
	"talkatv/internal/views"
)

const (
	waitFor  = 2 * time.Second
	pollTick = 5 * time.Millisecond

	pageURL   = "https://blog.example.com/notes/hello"
	pageTitle = "Hello"
	home      = "https://talkatv.example.org"

	feedHi = `{"item":{"id":42,"url":"https://blog.example.com/notes/hello","title":"Hello"},
		"comments":[{"id":7,"text":"hi","created":"2020-01-01T00:00:00","username":"al"}],
		"comment_count":1,"logged_in_as":"al"}`
)

type call struct {
	req   remote.Request
	reply chan remote.Outcome
}

func (c call) respond(status int, body string) {
	c.reply <- remote.Outcome{Status: status, Body: []byte(body)}
}

func (c call) fail(err error) {
	c.reply <- remote.Outcome{Err: err}
}

// blockingTransport parks every request until the test answers it, which
// lets tests choose the order completions arrive in.
type blockingTransport struct {
	calls chan call
}

func newBlockingTransport() *blockingTransport {
	return &blockingTransport{calls: make(chan call, 16)}
}

func (b *blockingTransport) Send(ctx context.Context, req remote.Request) remote.Outcome {
	pending := call{req: req, reply: make(chan remote.Outcome, 1)}
	select {
	case b.calls <- pending:
	case <-ctx.Done():
		return remote.Outcome{Err: ctx.Err()}
	}

	select {
	case out := <-pending.reply:
		return out
	case <-ctx.Done():
		return remote.Outcome{Err: ctx.Err()}
	}
}

func (b *blockingTransport) take(t *testing.T, n int) []call {
	t.Helper()

	calls := make([]call, 0, n)
	for len(calls) < n {
		select {
		case next := <-b.calls:
			calls = append(calls, next)
		case <-time.After(waitFor):
			t.Fatalf("expected %d requests, got %d", n, len(calls))
		}
	}
	return calls
}

func (b *blockingTransport) next(t *testing.T) call {
	t.Helper()
	return b.take(t, 1)[0]
}

func find(t *testing.T, calls []call, method string, path string) call {
	t.Helper()

	for _, candidate := range calls {
		if candidate.req.Method == method && candidate.req.Path == path {
			return candidate
		}
	}
	t.Fatalf("no %s %s among %d requests", method, path, len(calls))
	return call{}
}

type pageStub struct {
	mu       sync.Mutex
	identity remote.PageIdentity
}

func (p *pageStub) Identity() remote.PageIdentity {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.identity
}

func (p *pageStub) navigate(url string, title string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.identity = remote.PageIdentity{URL: url, Title: title}
}

type harness struct {
	ctrl      *Controller
	surface   *HTMLSurface
	transport *blockingTransport
	page      *pageStub
	done      chan error
	cancel    context.CancelFunc
}

func start(t *testing.T, mutate func(*Options)) *harness {
	t.Helper()

	h := &harness{
		surface:   NewHTMLSurface(),
		transport: newBlockingTransport(),
		page:      &pageStub{identity: remote.PageIdentity{URL: pageURL, Title: pageTitle}},
		done:      make(chan error, 1),
	}

	opts := Options{
		Transport:      h.transport,
		Surface:        h.surface,
		Page:           h.page,
		Home:           home,
		RequestTimeout: time.Minute,
	}
	if mutate != nil {
		mutate(&opts)
	}

	ctrl, err := New(opts)
	require.NoError(t, err)
	h.ctrl = ctrl

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.done <- ctrl.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-h.done
	})
	return h
}

// signIn answers the mount requests with an authenticated session and feed.
func (h *harness) signIn(t *testing.T, feed string) {
	t.Helper()

	calls := h.transport.take(t, 2)
	find(t, calls, http.MethodGet, remote.PathCheckLogin).respond(http.StatusOK, `{"status":"OK"}`)
	find(t, calls, http.MethodGet, remote.PathComments).respond(http.StatusOK, feed)
	h.waitState(t, StateCanComment)
	h.waitIdle(t)
}

func (h *harness) state(t *testing.T) ViewState {
	t.Helper()

	state, err := h.ctrl.State(context.Background())
	require.NoError(t, err)
	return state
}

func (h *harness) waitState(t *testing.T, want ViewState) {
	t.Helper()
	require.Eventually(t, func() bool { return h.state(t) == want }, waitFor, pollTick, "state never became %s", want)
}

func (h *harness) waitIdle(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(t, h.ctrl.Settle(ctx))
}

func (h *harness) pending(t *testing.T) int {
	t.Helper()

	var n int
	require.NoError(t, h.ctrl.query(context.Background(), func() { n = h.ctrl.pending }))
	return n
}

func (h *harness) waitMessage(t *testing.T, fragment string) {
	t.Helper()
	require.Eventually(t, func() bool {
		return strings.Contains(strings.Join(h.surface.Messages(), ""), fragment)
	}, waitFor, pollTick, "no message containing %q", fragment)
}

func TestMountRendersLoadingThenIssuesBothRequests(t *testing.T) {
	h := start(t, nil)

	calls := h.transport.take(t, 2)
	feed := find(t, calls, http.MethodGet, remote.PathComments)
	find(t, calls, http.MethodGet, remote.PathCheckLogin)

	assert.Equal(t, pageURL, feed.req.Query.Get("item_url"))
	assert.Equal(t, pageTitle, feed.req.Query.Get("item_title"))
	assert.Contains(t, h.surface.Form(), "Loading")
	assert.Equal(t, StateLoading, h.state(t))
	assert.Equal(t, 2, h.pending(t))
}

func TestAuthenticatedViewerSeesFormAndComments(t *testing.T) {
	h := start(t, nil)
	h.signIn(t, feedHi)

	assert.Contains(t, h.surface.Form(), views.ClassCommentBox)
	assert.Contains(t, h.surface.SignedInHTML(), "Posting as <strong>al</strong>")

	comments := h.surface.Comments()
	assert.Equal(t, 1, strings.Count(comments, `<li class="comment"`))
	assert.Contains(t, comments, "<p>hi</p>")
	assert.Contains(t, comments, `<span class="comment-username">al</span>`)
	assert.Contains(t, comments, views.AttrReply+`="7"`)
	assert.Empty(t, h.surface.Messages())
}

func TestFeedBeforeLoginGainsReplyButtonsOnceSignedIn(t *testing.T) {
	h := start(t, nil)

	calls := h.transport.take(t, 2)
	find(t, calls, http.MethodGet, remote.PathComments).respond(http.StatusOK, feedHi)
	require.Eventually(t, func() bool { return strings.Contains(h.surface.Comments(), "<p>hi</p>") }, waitFor, pollTick)
	assert.NotContains(t, h.surface.Comments(), views.AttrReply)

	find(t, calls, http.MethodGet, remote.PathCheckLogin).respond(http.StatusOK, `{"status":"OK"}`)
	h.waitState(t, StateCanComment)
	assert.Contains(t, h.surface.Comments(), views.AttrReply)
}

func TestLoginProbeFailsClosed(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		err       error
		wantFlash string
	}{
		{name: "status false", status: http.StatusOK, body: `{"status":false}`},
		{name: "denied", status: http.StatusOK, body: `{"status":"DENIED"}`},
		{name: "lowercase ok", status: http.StatusOK, body: `{"status":"ok"}`},
		{name: "server error", status: http.StatusInternalServerError, body: `boom`, wantFlash: "Could not check your login status: "},
		{name: "malformed", status: http.StatusOK, body: `<html>`, wantFlash: "Could not check your login status: "},
		{name: "unreachable", err: errors.New("connection refused"), wantFlash: "connection refused"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := start(t, nil)

			calls := h.transport.take(t, 2)
			login := find(t, calls, http.MethodGet, remote.PathCheckLogin)
			if tc.err != nil {
				login.fail(tc.err)
			} else {
				login.respond(tc.status, tc.body)
			}

			h.waitState(t, StateNeedsLogin)
			form := h.surface.Form()
			assert.Contains(t, form, `href="`+home+`/login?next=https%3A%2F%2Fblog.example.com%2Fnotes%2Fhello"`)
			assert.Contains(t, form, `/register?next=`)
			assert.NotContains(t, form, "<form")

			if tc.wantFlash != "" {
				h.waitMessage(t, tc.wantFlash)
			} else {
				assert.Empty(t, h.surface.Messages())
			}
		})
	}
}

func TestSubmitPostsCommentAndRefreshesOnce(t *testing.T) {
	h := start(t, nil)
	h.signIn(t, feedHi)

	h.surface.SetCommentText("nice")
	h.ctrl.Submit()

	post := h.transport.next(t)
	assert.Equal(t, http.MethodPost, post.req.Method)
	assert.Equal(t, remote.PathComments, post.req.Path)
	payload, err := json.Marshal(post.req.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"comment":"nice","item":42}`, string(payload))

	assert.Equal(t, StateSubmitting, h.state(t))
	assert.True(t, h.surface.Busy())

	// A second submit while the first is in flight is ignored.
	h.ctrl.Submit()
	assert.Equal(t, StateSubmitting, h.state(t))
	assert.Equal(t, 1, h.pending(t))

	post.respond(http.StatusCreated, `{"status":"OK"}`)

	refresh := h.transport.next(t)
	assert.Equal(t, http.MethodGet, refresh.req.Method)
	assert.Equal(t, remote.PathComments, refresh.req.Path)
	assert.Equal(t, StateCanComment, h.state(t))
	assert.False(t, h.surface.Busy())
	assert.Empty(t, h.surface.CommentText())
	assert.Equal(t, 1, h.pending(t), "exactly one refresh follows a post")

	refresh.respond(http.StatusOK, `{"item":{"id":42},"comments":[
		{"id":7,"text":"hi","created":"2020-01-01T00:00:00","username":"al"},
		{"id":8,"text":"nice","created":"2020-01-01T00:01:00","username":"al"}]}`)
	require.Eventually(t, func() bool { return strings.Contains(h.surface.Comments(), "<p>nice</p>") }, waitFor, pollTick)
	assert.Contains(t, h.surface.Comments(), "2 comments")
}

func TestSubmitAcceptsNonJSONAcknowledgement(t *testing.T) {
	h := start(t, nil)
	h.signIn(t, feedHi)

	h.surface.SetCommentText("nice")
	h.ctrl.Submit()
	h.transport.next(t).respond(http.StatusOK, "ok")

	refresh := h.transport.next(t)
	assert.Equal(t, remote.PathComments, refresh.req.Path)
	assert.Empty(t, h.surface.CommentText())
	assert.Empty(t, h.surface.Messages())
}

func TestSubmitFailureKeepsText(t *testing.T) {
	h := start(t, nil)
	h.signIn(t, feedHi)

	h.surface.SetCommentText("nice")
	h.ctrl.Submit()
	h.transport.next(t).respond(http.StatusInternalServerError, `{"error":"database is down"}`)

	h.waitMessage(t, "Could not post your comment: server responded with status 500 (database is down)")
	assert.Equal(t, StateCanComment, h.state(t))
	assert.False(t, h.surface.Busy())
	assert.Equal(t, "nice", h.surface.CommentText())
	assert.Equal(t, 0, h.pending(t), "a failed post does not refresh")
	assert.Contains(t, h.surface.Comments(), "<p>hi</p>")
}

func TestSubmitTimeoutIsAFailure(t *testing.T) {
	h := start(t, func(opts *Options) { opts.RequestTimeout = 50 * time.Millisecond })
	h.signIn(t, feedHi)

	h.surface.SetCommentText("slow")
	h.ctrl.Submit()
	h.transport.next(t) // never answered

	h.waitMessage(t, "Could not post your comment: transport failure")
	assert.Equal(t, StateCanComment, h.state(t))
	assert.Equal(t, "slow", h.surface.CommentText())
}

func TestSubmitRejectedWithoutRequest(t *testing.T) {
	t.Run("empty text", func(t *testing.T) {
		h := start(t, nil)
		h.signIn(t, feedHi)

		h.surface.SetCommentText("  \n\t ")
		h.ctrl.Submit()

		h.waitMessage(t, "Write something before posting.")
		assert.Equal(t, 0, h.pending(t))
		assert.Equal(t, StateCanComment, h.state(t))
	})

	t.Run("no item yet", func(t *testing.T) {
		h := start(t, nil)

		calls := h.transport.take(t, 2)
		find(t, calls, http.MethodGet, remote.PathCheckLogin).respond(http.StatusOK, `{"status":"OK"}`)
		h.waitState(t, StateCanComment)

		h.surface.SetCommentText("early")
		h.ctrl.Submit()

		h.waitMessage(t, "Comments are still loading")
		assert.Equal(t, 1, h.pending(t), "only the feed fetch is outstanding")
		assert.Equal(t, "early", h.surface.CommentText())
	})

	t.Run("signed out", func(t *testing.T) {
		h := start(t, nil)

		calls := h.transport.take(t, 2)
		find(t, calls, http.MethodGet, remote.PathCheckLogin).respond(http.StatusOK, `{"status":false}`)
		find(t, calls, http.MethodGet, remote.PathComments).respond(http.StatusOK, `{"item":{"id":42},"comments":[]}`)
		h.waitState(t, StateNeedsLogin)
		h.waitIdle(t)

		h.surface.SetCommentText("sneaky")
		h.ctrl.Submit()

		h.waitMessage(t, "You need to log in")
		assert.Equal(t, 0, h.pending(t))
	})
}

func TestStaleFeedResponsesAreDiscarded(t *testing.T) {
	h := start(t, nil)

	calls := h.transport.take(t, 2)
	find(t, calls, http.MethodGet, remote.PathCheckLogin).respond(http.StatusOK, `{"status":"OK"}`)
	first := find(t, calls, http.MethodGet, remote.PathComments)
	h.waitState(t, StateCanComment)

	h.page.navigate("https://blog.example.com/notes/second", "Second")
	h.ctrl.Refresh()
	second := h.transport.next(t)
	assert.Equal(t, "https://blog.example.com/notes/second", second.req.Query.Get("item_url"))

	second.respond(http.StatusOK, `{"item":{"id":2},"comments":[{"id":20,"text":"newer","username":"b"}]}`)
	require.Eventually(t, func() bool { return strings.Contains(h.surface.Comments(), "newer") }, waitFor, pollTick)

	first.respond(http.StatusOK, `{"item":{"id":1},"comments":[{"id":10,"text":"older","username":"a"}]}`)
	h.waitIdle(t)

	assert.Contains(t, h.surface.Comments(), "newer")
	assert.NotContains(t, h.surface.Comments(), "older")

	// The item the next post targets follows the applied list.
	h.surface.SetCommentText("reply")
	h.ctrl.Submit()
	payload, err := json.Marshal(h.transport.next(t).req.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"comment":"reply","item":2}`, string(payload))
}

func TestStaleFeedFailureIsDiscarded(t *testing.T) {
	h := start(t, nil)

	calls := h.transport.take(t, 2)
	find(t, calls, http.MethodGet, remote.PathCheckLogin).respond(http.StatusOK, `{"status":"OK"}`)
	first := find(t, calls, http.MethodGet, remote.PathComments)

	h.ctrl.Refresh()
	h.transport.next(t).respond(http.StatusOK, feedHi)
	require.Eventually(t, func() bool { return strings.Contains(h.surface.Comments(), "<p>hi</p>") }, waitFor, pollTick)

	first.respond(http.StatusBadGateway, "")
	h.waitIdle(t)

	assert.Empty(t, h.surface.Messages())
	assert.Contains(t, h.surface.Comments(), "<p>hi</p>")
}

func TestFeedFailureKeepsPreviousList(t *testing.T) {
	h := start(t, nil)
	h.signIn(t, feedHi)

	h.ctrl.Refresh()
	h.transport.next(t).respond(http.StatusServiceUnavailable, `{"message":"maintenance"}`)

	h.waitMessage(t, "Could not load comments: server responded with status 503 (maintenance)")
	assert.Contains(t, h.surface.Comments(), "<p>hi</p>")
}

func TestMalformedFeedIsReported(t *testing.T) {
	h := start(t, nil)

	calls := h.transport.take(t, 2)
	find(t, calls, http.MethodGet, remote.PathComments).respond(http.StatusOK, `{"item":`)

	h.waitMessage(t, "Could not load comments: malformed response")
	assert.Empty(t, h.surface.Comments())
}

func TestFeedWithoutItemKeepsPreviousList(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "error object", body: `{"error":"item lookup failed"}`},
		{name: "empty object", body: `{}`},
		{name: "null", body: `null`},
		{name: "null item id", body: `{"item":{"id":null},"comments":[]}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := start(t, nil)
			h.signIn(t, feedHi)

			h.ctrl.Refresh()
			h.transport.next(t).respond(http.StatusOK, tc.body)

			h.waitMessage(t, "Could not load comments: malformed response")
			assert.Contains(t, h.surface.Comments(), "<p>hi</p>")
			assert.Contains(t, h.surface.SignedInHTML(), "al")

			// The item from the last good list is still the post target.
			h.surface.SetCommentText("second")
			h.ctrl.Submit()
			payload, err := json.Marshal(h.transport.next(t).req.Body)
			require.NoError(t, err)
			assert.JSONEq(t, `{"comment":"second","item":42}`, string(payload))
		})
	}
}

func TestSignedInNameFollowsFeed(t *testing.T) {
	h := start(t, nil)

	calls := h.transport.take(t, 2)
	find(t, calls, http.MethodGet, remote.PathCheckLogin).respond(http.StatusOK, `{"status":"OK"}`)
	find(t, calls, http.MethodGet, remote.PathComments).respond(http.StatusOK,
		`{"item":{"id":42},"comments":[{"id":7,"text":"hi","username":"bo"}],"logged_in_as":"al"}`)
	h.waitState(t, StateCanComment)
	h.waitIdle(t)
	assert.Contains(t, h.surface.SignedInHTML(), "Posting as <strong>al</strong>")

	h.ctrl.ReplyTo("7")
	h.surface.SetCommentText("draft")
	require.Eventually(t, func() bool { return h.surface.ReplyTargetHTML() != "" }, waitFor, pollTick)

	h.ctrl.Refresh()
	h.transport.next(t).respond(http.StatusOK,
		`{"item":{"id":42},"comments":[{"id":7,"text":"hi","username":"bo"}],"logged_in_as":"cy"}`)
	require.Eventually(t, func() bool {
		return strings.Contains(h.surface.SignedInHTML(), "Posting as <strong>cy</strong>")
	}, waitFor, pollTick)

	// The rest of the form is left alone.
	assert.Equal(t, "draft", h.surface.CommentText())
	assert.Contains(t, h.surface.ReplyTargetHTML(), "bo")

	h.ctrl.Refresh()
	h.transport.next(t).respond(http.StatusOK, `{"item":{"id":42},"comments":[]}`)
	require.Eventually(t, func() bool { return h.surface.SignedInHTML() == "" }, waitFor, pollTick)
	assert.Equal(t, StateCanComment, h.state(t))
}

func TestSignedInNameWaitsForLoginProbe(t *testing.T) {
	h := start(t, nil)

	calls := h.transport.take(t, 2)
	find(t, calls, http.MethodGet, remote.PathComments).respond(http.StatusOK, feedHi)
	require.Eventually(t, func() bool { return strings.Contains(h.surface.Comments(), "<p>hi</p>") }, waitFor, pollTick)
	assert.Empty(t, h.surface.SignedInHTML())
	assert.Contains(t, h.surface.Form(), "Loading")

	find(t, calls, http.MethodGet, remote.PathCheckLogin).respond(http.StatusOK, `{"status":"OK"}`)
	h.waitState(t, StateCanComment)
	assert.Contains(t, h.surface.SignedInHTML(), "Posting as <strong>al</strong>")
}

func TestReverseOrderRendersNewestFirst(t *testing.T) {
	h := start(t, func(opts *Options) { opts.Order = views.OrderReverse })
	h.signIn(t, `{"item":{"id":1},"comments":[
		{"id":1,"text":"first","username":"a"},
		{"id":2,"text":"second","username":"b"}]}`)

	comments := h.surface.Comments()
	assert.Contains(t, comments, "comment-list-reversed")
	assert.Less(t, strings.Index(comments, "second"), strings.Index(comments, "first"))
}

func TestReplyTargetsCommentAndClearsAfterPost(t *testing.T) {
	h := start(t, nil)
	h.signIn(t, `{"item":{"id":42},"comments":[{"id":7,"text":"hi","username":"al",
		"replies":[{"id":"c-9","text":"**nested** thought","username":"bo"}]}]}`)

	h.ctrl.ReplyTo("c-9")
	require.Eventually(t, func() bool { return strings.Contains(h.surface.ReplyTargetHTML(), "bo") }, waitFor, pollTick)
	assert.Contains(t, h.surface.ReplyTargetHTML(), "<q>nested thought</q>")

	h.surface.SetCommentText("agreed")
	h.ctrl.Submit()
	post := h.transport.next(t)
	payload, err := json.Marshal(post.req.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"comment":"agreed","item":42,"reply_to":"c-9"}`, string(payload))

	post.respond(http.StatusCreated, `{}`)
	h.transport.next(t)
	assert.Empty(t, h.surface.ReplyTargetHTML())
}

func TestReplyToUnknownCommentIsIgnored(t *testing.T) {
	h := start(t, nil)
	h.signIn(t, feedHi)

	h.ctrl.ReplyTo("999")
	h.ctrl.CancelReply()
	assert.Equal(t, StateCanComment, h.state(t))
	assert.Empty(t, h.surface.ReplyTargetHTML())
}

func TestStoppedControllerDropsLateResults(t *testing.T) {
	h := start(t, nil)
	calls := h.transport.take(t, 2)

	h.cancel()
	require.ErrorIs(t, <-h.done, context.Canceled)
	h.done <- nil

	for _, pending := range calls {
		pending.respond(http.StatusOK, `{"status":"OK"}`)
	}

	_, err := h.ctrl.State(context.Background())
	require.ErrorIs(t, err, ErrStopped)
	assert.Contains(t, h.surface.Form(), "Loading")
}

func TestRunTwiceFails(t *testing.T) {
	h := start(t, nil)
	h.transport.take(t, 2)

	err := h.ctrl.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")
}

func TestNewValidatesOptions(t *testing.T) {
	valid := Options{
		Transport: newBlockingTransport(),
		Surface:   NewHTMLSurface(),
		Page:      StaticPage{URL: pageURL},
		Home:      home,
	}

	tests := []struct {
		name   string
		mutate func(*Options)
		want   string
	}{
		{name: "transport", mutate: func(o *Options) { o.Transport = nil }, want: "transport is required"},
		{name: "surface", mutate: func(o *Options) { o.Surface = nil }, want: "surface is required"},
		{name: "page", mutate: func(o *Options) { o.Page = nil }, want: "page source is required"},
		{name: "home", mutate: func(o *Options) { o.Home = " " }, want: "home url is required"},
		{name: "timeout", mutate: func(o *Options) { o.RequestTimeout = -time.Second }, want: "must not be negative"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			opts := valid
			tc.mutate(&opts)
			_, err := New(opts)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}

	ctrl, err := New(valid)
	require.NoError(t, err)
	assert.NotEmpty(t, ctrl.ID())

	valid.ID = "sidebar"
	ctrl, err = New(valid)
	require.NoError(t, err)
	assert.Equal(t, "sidebar", ctrl.ID())
}
