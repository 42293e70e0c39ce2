package commands

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"talkatv/internal/config"
	"talkatv/internal/remote"
	"talkatv/internal/widget"
)

const defaultSettleTimeout = 30 * time.Second

func SnapshotCommand() *cli.Command {
	return &cli.Command{
		Name:  "snapshot",
		Usage: "Run the widget headlessly for one page and print the rendered HTML",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Usage: "Page `URL` the comments belong to; relative paths resolve against host.site_url", Required: true},
			&cli.StringFlag{Name: "title", Usage: "Page `TITLE` sent with the fetch"},
			&cli.StringFlag{Name: "home", Usage: "Comment service `URL`, overrides home"},
			&cli.StringFlag{Name: "cookie", Usage: "Session `COOKIE` header value, overrides session_cookie"},
			&cli.StringFlag{Name: "post", Usage: "Post `TEXT` as a comment before printing"},
		},
		Action: runSnapshot,
	}
}

func runSnapshot(c *cli.Context) error {
	cfg, err := loadConfig(c, map[string]string{
		"home":   "home",
		"cookie": "session_cookie",
	})
	if err != nil {
		return err
	}
	logger, err := newLogger(c, cfg)
	if err != nil {
		return err
	}

	pageURL, err := resolvePageURL(c.String("url"), cfg.Host.SiteURL)
	if err != nil {
		return err
	}

	transport, err := remote.NewHTTPTransport(remote.HTTPTransportConfig{
		Home:          cfg.Home,
		APIPath:       cfg.APIPath,
		SessionCookie: cfg.SessionCookie,
	})
	if err != nil {
		return fmt.Errorf("transport setup failed: %w", err)
	}

	surface := widget.NewHTMLSurface()
	ctrl, err := widget.New(widget.Options{
		Transport:      transport,
		Surface:        surface,
		Page:           widget.StaticPage{URL: pageURL, Title: c.String("title")},
		Home:           cfg.Home,
		Order:          ordering(cfg),
		RequestTimeout: cfg.RequestTimeout,
		Logger:         &logger,
	})
	if err != nil {
		return fmt.Errorf("widget setup failed: %w", err)
	}

	ctx, cancel := context.WithCancel(c.Context)
	done := make(chan error, 1)
	go func() { done <- ctrl.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	if err := settle(ctx, ctrl, cfg); err != nil {
		return err
	}

	if text := c.String("post"); text != "" {
		if err := post(ctx, ctrl, surface, cfg, text); err != nil {
			return err
		}
	}

	html, err := surface.HTML(ctx)
	if err != nil {
		return fmt.Errorf("render snapshot: %w", err)
	}
	fmt.Fprintln(c.App.Writer, html)
	return nil
}

func post(ctx context.Context, ctrl *widget.Controller, surface *widget.HTMLSurface, cfg config.Config, text string) error {
	state, err := ctrl.State(ctx)
	if err != nil {
		return err
	}
	if state != widget.StateCanComment {
		return fmt.Errorf("cannot post while %s: %w", state, widget.ErrNotAuthenticated)
	}

	surface.SetCommentText(text)
	ctrl.Submit()
	if err := settle(ctx, ctrl, cfg); err != nil {
		return err
	}
	if surface.CommentText() != "" {
		return errors.New("comment was not accepted: " + strings.Join(surface.Messages(), " "))
	}
	return nil
}

func settle(ctx context.Context, ctrl *widget.Controller, cfg config.Config) error {
	timeout := defaultSettleTimeout
	if cfg.RequestTimeout > 0 {
		// A post is followed by a refresh, so allow two request lifetimes.
		timeout = 2*cfg.RequestTimeout + time.Second
	}

	settleCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := ctrl.Settle(settleCtx); err != nil {
		return fmt.Errorf("waiting for the widget: %w", err)
	}
	return nil
}

func resolvePageURL(raw string, siteURL string) (string, error) {
	raw = strings.TrimSpace(raw)
	target, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse page url %q: %w", raw, err)
	}
	if target.IsAbs() {
		return target.String(), nil
	}

	if strings.TrimSpace(siteURL) == "" {
		return "", fmt.Errorf("page url %q is relative and host.site_url is not set", raw)
	}
	base, err := url.Parse(strings.TrimSpace(siteURL))
	if err != nil {
		return "", fmt.Errorf("parse host.site_url %q: %w", siteURL, err)
	}
	return base.ResolveReference(target).String(), nil
}
