package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/a-h/templ"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"talkatv/framework/httpserver"
	"talkatv/internal/config"
	"talkatv/internal/views"
)

const (
	staticPrefix    = "/static/"
	shutdownTimeout = 5 * time.Second
)

const demoArticle = `This page embeds the talkatv comment widget the same way any site would: a few configuration globals, one container element, and the compiled widget.

Sign in on the comment service to post, or reply to an existing comment. Comments are written in Markdown.`

func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve a host page that embeds the browser widget",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "listen", Usage: "Listen `ADDR`, overrides host.listen_addr"},
			&cli.StringFlag{Name: "home", Usage: "Comment service `URL`, overrides home"},
			&cli.StringFlag{Name: "static-dir", Usage: "`DIR` holding talkatv.wasm and wasm_exec.js"},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	cfg, err := loadConfig(c, map[string]string{
		"listen":     "host.listen_addr",
		"home":       "home",
		"static-dir": "host.static_dir",
	})
	if err != nil {
		return err
	}
	logger, err := newLogger(c, cfg)
	if err != nil {
		return err
	}

	handler, err := newHostHandler(cfg, logger)
	if err != nil {
		return fmt.Errorf("handler setup failed: %w", err)
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr:              cfg.Host.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", cfg.Host.ListenAddr).
			Str("home", cfg.Home).
			Str("static_dir", cfg.Host.StaticDir).
			Msg("host page listening")
		errs <- server.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func newHostHandler(cfg config.Config, logger zerolog.Logger) (http.Handler, error) {
	view := views.HostView{
		Title:          cfg.Host.PageTitle,
		Home:           cfg.Home,
		Order:          cfg.Order,
		RequestTimeout: cfg.RequestTimeout.String(),
		ContainerID:    cfg.ContainerID,
		StaticPrefix:   staticPrefix,
		Article:        demoArticle,
	}

	return httpserver.New(httpserver.Config{
		Pages: []httpserver.Page{{
			Path: "/",
			Render: func(*http.Request) (templ.Component, error) {
				return views.HostPage(view), nil
			},
		}},
		Static: httpserver.StaticMount{
			URLPrefix: staticPrefix,
			Dir:       cfg.Host.StaticDir,
		},
		CachePolicies: httpserver.CachePolicies{
			HTML:   cfg.Host.CacheHTML,
			Static: cfg.Host.CacheStatic,
		},
		NotFoundPage: views.NotFound,
		Logger:       logger,
	})
}
