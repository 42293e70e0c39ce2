package widget

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"talkatv/internal/remote"
	"talkatv/internal/views"
)

type ViewState int

const (
	StateLoading ViewState = iota
	StateNeedsLogin
	StateCanComment
	StateSubmitting
)

func (s ViewState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateNeedsLogin:
		return "needs_login"
	case StateCanComment:
		return "can_comment"
	case StateSubmitting:
		return "submitting"
	default:
		return fmt.Sprintf("ViewState(%d)", int(s))
	}
}

var (
	ErrEmptyComment     = errors.New("comment is empty")
	ErrSubmitInFlight   = errors.New("a comment is already being posted")
	ErrNoItem           = errors.New("comment thread is not loaded yet")
	ErrNotAuthenticated = errors.New("viewer is not signed in")
	ErrStopped          = errors.New("widget is not running")

	errAlreadyRunning = errors.New("widget is already running")
)

const (
	eventBuffer = 64
	settlePoll  = 5 * time.Millisecond
)

type Options struct {
	Transport remote.Transport
	Surface   Surface
	Page      PageSource
	// Home is the remote service origin used for login and register links.
	Home  string
	Order views.Ordering
	// RequestTimeout bounds every request; zero disables the bound.
	RequestTimeout time.Duration
	Logger         *zerolog.Logger
	ID             string
}

// Controller is one mounted widget. All view state lives on the goroutine
// running Run; requests run on their own goroutines and hand their results
// back as events, so handlers never interleave.
type Controller struct {
	id        string
	transport remote.Transport
	decoder   remote.Decoder
	surface   Surface
	page      PageSource
	home      string
	order     views.Ordering
	timeout   time.Duration
	log       zerolog.Logger

	events  chan func()
	stopped chan struct{}
	running atomic.Bool

	// Loop-owned.
	ctx        context.Context
	state      ViewState
	loggedInAs string
	item       remote.ItemID
	feed       *remote.Feed
	feedPage   remote.PageIdentity
	replyTo    *remote.Comment
	feedSeq    uint64
	appliedSeq uint64
	pending    int
}

func New(opts Options) (*Controller, error) {
	if opts.Transport == nil {
		return nil, errors.New("transport is required")
	}
	if opts.Surface == nil {
		return nil, errors.New("surface is required")
	}
	if opts.Page == nil {
		return nil, errors.New("page source is required")
	}
	home := strings.TrimRight(strings.TrimSpace(opts.Home), "/")
	if home == "" {
		return nil, errors.New("home url is required")
	}
	if opts.RequestTimeout < 0 {
		return nil, fmt.Errorf("request timeout %s must not be negative", opts.RequestTimeout)
	}

	id := strings.TrimSpace(opts.ID)
	if id == "" {
		id = uuid.NewString()
	}

	base := zerolog.Nop()
	if opts.Logger != nil {
		base = *opts.Logger
	}
	log := base.With().Str("widget", id).Logger()

	return &Controller{
		id:        id,
		transport: opts.Transport,
		decoder:   remote.NewDecoder(log),
		surface:   opts.Surface,
		page:      opts.Page,
		home:      home,
		order:     opts.Order,
		timeout:   opts.RequestTimeout,
		log:       log,
		events:    make(chan func(), eventBuffer),
		stopped:   make(chan struct{}),
		state:     StateLoading,
	}, nil
}

func (c *Controller) ID() string {
	return c.id
}

// Run mounts the widget and processes events until ctx is done. In-flight
// requests are cancelled when it returns and their results are dropped.
func (c *Controller) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return errAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer close(c.stopped)

	c.ctx = ctx
	c.mount()

	for {
		select {
		case <-ctx.Done():
			c.log.Debug().Int("pending", c.pending).Msg("widget stopped")
			return ctx.Err()
		case event := <-c.events:
			event()
		}
	}
}

// Submit posts the text currently in the comment field.
func (c *Controller) Submit() {
	c.post(c.submit)
}

// Refresh re-fetches the comment list for the page's current identity.
func (c *Controller) Refresh() {
	c.post(c.fetchComments)
}

// ReplyTo makes the next submission a reply to the comment with the given id.
func (c *Controller) ReplyTo(commentID string) {
	c.post(func() { c.setReplyTarget(commentID) })
}

func (c *Controller) CancelReply() {
	c.post(c.clearReplyTarget)
}

func (c *Controller) State(ctx context.Context) (ViewState, error) {
	var state ViewState
	if err := c.query(ctx, func() { state = c.state }); err != nil {
		return StateLoading, err
	}
	return state, nil
}

// Settle blocks until no request is outstanding.
func (c *Controller) Settle(ctx context.Context) error {
	ticker := time.NewTicker(settlePoll)
	defer ticker.Stop()

	for {
		var pending int
		if err := c.query(ctx, func() { pending = c.pending }); err != nil {
			return err
		}
		if pending == 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Controller) post(event func()) bool {
	select {
	case c.events <- event:
		return true
	case <-c.stopped:
		return false
	}
}

func (c *Controller) query(ctx context.Context, read func()) error {
	done := make(chan struct{})
	select {
	case c.events <- func() { read(); close(done) }:
	case <-c.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-done:
		return nil
	case <-c.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) mount() {
	c.log.Debug().Msg("mounting widget")
	c.surface.Mount(views.Skeleton())
	c.surface.ShowForm(views.Loading())
	c.checkLogin()
	c.fetchComments()
}

// dispatch sends req off the loop and runs handle back on the loop with the
// decoded result.
func (c *Controller) dispatch(req remote.Request, handle func(remote.Result)) {
	c.pending++
	ctx, cancel := c.requestContext()
	log := c.log.With().Str("method", req.Method).Str("path", req.Path).Logger()
	log.Debug().Msg("request issued")

	go func() {
		defer cancel()
		result := c.decoder.Decode(c.transport.Send(ctx, req))
		c.post(func() {
			c.pending--
			log.Debug().
				Int("status", result.Status).
				Str("kind", string(result.Kind())).
				Msg("request completed")
			handle(result)
		})
	}()
}

func (c *Controller) requestContext() (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		return context.WithTimeout(c.ctx, c.timeout)
	}
	return context.WithCancel(c.ctx)
}

func (c *Controller) flash(kind views.FlashKind, message string) {
	c.surface.Flash(views.Flash(kind, message))
}

// failureMessage prefers the classified remote failure and falls back to the
// local decoding error.
func failureMessage(result remote.Result, err error) string {
	if result.Err != nil {
		return result.Message()
	}
	return err.Error()
}

func siteOrigin(pageURL string) string {
	parsed, err := url.Parse(pageURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return ""
	}
	return parsed.Scheme + "://" + parsed.Host
}
