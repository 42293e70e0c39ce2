//go:build js && wasm

// Command talkatv-wasm is the browser build of the comment widget. It mounts
// one widget per container found on the page and then parks forever.
package main

import (
	"context"
	"net/http"
	"syscall/js"

	"github.com/rs/zerolog"

	"talkatv/internal/config"
	"talkatv/internal/logging"
	"talkatv/internal/remote"
	"talkatv/internal/views"
	"talkatv/internal/widget"
	"talkatv/internal/widget/jsdom"
)

type mounted struct {
	el      js.Value
	ctrl    *widget.Controller
	surface *jsdom.Surface
	cancel  context.CancelFunc
}

func main() {
	base, err := config.FromValues(jsdom.Settings(jsdom.Globals, nil))
	if err != nil {
		_, _ = jsdom.Console{}.Write([]byte("talkatv: " + err.Error()))
		return
	}

	logger, err := logging.New(jsdom.Console{}, base.Log)
	if err != nil {
		logger = zerolog.New(jsdom.Console{})
		logger.Warn().Err(err).Msg("falling back to default log level")
	}

	var widgets []*mounted
	for _, el := range containers(base.ContainerID) {
		w, err := mount(el, logger)
		if err != nil {
			logger.Error().Err(err).Msg("widget not mounted")
			continue
		}
		widgets = append(widgets, w)
	}
	if len(widgets) == 0 {
		logger.Warn().Str("container_id", base.ContainerID).Msg("no comment container on this page")
		return
	}

	// Client-side navigation changes the page identity without a reload.
	onNavigate := js.FuncOf(func(js.Value, []js.Value) any {
		for _, w := range widgets {
			go w.ctrl.Refresh()
		}
		return nil
	})
	js.Global().Call("addEventListener", "popstate", onNavigate)

	// A widget lives as long as its container stays in the document.
	observer := js.Global().Get("MutationObserver").New(js.FuncOf(func(js.Value, []js.Value) any {
		kept := widgets[:0]
		for _, w := range widgets {
			if w.el.Get("isConnected").Bool() {
				kept = append(kept, w)
				continue
			}
			logger.Debug().Str("widget", w.ctrl.ID()).Msg("container removed, stopping widget")
			w.surface.Release()
			w.cancel()
		}
		widgets = kept
		return nil
	}))
	observer.Call("observe", js.Global().Get("document").Get("body"), map[string]any{
		"childList": true,
		"subtree":   true,
	})

	select {}
}

func mount(el js.Value, logger zerolog.Logger) (*mounted, error) {
	cfg, err := config.FromValues(jsdom.Settings(jsdom.Globals, jsdom.Attributes(el)))
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// The browser attaches session cookies itself; a Go cookie jar would
	// only set forbidden headers.
	transport, err := remote.NewHTTPTransport(remote.HTTPTransportConfig{
		Home:    cfg.Home,
		APIPath: cfg.APIPath,
		Client:  &http.Client{},
	})
	if err != nil {
		return nil, err
	}

	surface := jsdom.NewSurface(el, func(err error) {
		logger.Error().Err(err).Msg("render failed")
	})

	order := views.OrderForward
	if cfg.Reversed() {
		order = views.OrderReverse
	}

	ctrl, err := widget.New(widget.Options{
		Transport:      transport,
		Surface:        surface,
		Page:           jsdom.Location{},
		Home:           cfg.Home,
		Order:          order,
		RequestTimeout: cfg.RequestTimeout,
		Logger:         &logger,
		ID:             el.Get("id").String(),
	})
	if err != nil {
		return nil, err
	}
	surface.Bind(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := ctrl.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Str("widget", ctrl.ID()).Msg("widget stopped")
		}
	}()

	return &mounted{el: el, ctrl: ctrl, surface: surface, cancel: cancel}, nil
}

// containers returns the element with containerID followed by every
// [data-talkatv] element, without duplicates.
func containers(containerID string) []js.Value {
	doc := js.Global().Get("document")

	var found []js.Value
	add := func(el js.Value) {
		if !el.Truthy() {
			return
		}
		for _, existing := range found {
			if existing.Equal(el) {
				return
			}
		}
		found = append(found, el)
	}

	add(doc.Call("getElementById", containerID))
	marked := doc.Call("querySelectorAll", "[data-talkatv]")
	for idx := 0; idx < marked.Length(); idx++ {
		add(marked.Index(idx))
	}
	return found
}
