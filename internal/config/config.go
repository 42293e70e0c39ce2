package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/v2"
)

const (
	OrderForward = "forward"
	OrderReverse = "reverse"

	DefaultContainerID = "talkatv-comments"
)

type Config struct {
	// Home is the remote comment service origin. Login and register links
	// point here; API calls go to Home + APIPath.
	Home           string        `koanf:"home"`
	APIPath        string        `koanf:"api_path"`
	Order          string        `koanf:"order"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
	ContainerID    string        `koanf:"container_id"`
	SessionCookie  string        `koanf:"session_cookie"`

	Log  LogConfig  `koanf:"log"`
	Host HostConfig `koanf:"host"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// HostConfig drives the development host page server.
type HostConfig struct {
	ListenAddr  string `koanf:"listen_addr"`
	StaticDir   string `koanf:"static_dir"`
	PageTitle   string `koanf:"page_title"`
	SiteURL     string `koanf:"site_url"`
	CacheHTML   string `koanf:"cache_html"`
	CacheStatic string `koanf:"cache_static"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"api_path":          "/api",
		"order":             OrderForward,
		"request_timeout":   "15s",
		"container_id":      DefaultContainerID,
		"log.level":         "info",
		"log.format":        "json",
		"host.listen_addr":  ":8080",
		"host.static_dir":   "static",
		"host.page_title":   "talkatv demo page",
		"host.cache_html":   "no-cache",
		"host.cache_static": "public, max-age=3600, s-maxage=3600",
	}
}

// FromValues builds a Config from defaults overlaid with the given values.
// The browser build feeds page-supplied settings through here.
func FromValues(values map[string]interface{}) (Config, error) {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}
	if err := k.Load(confmap.Provider(values, "."), nil); err != nil {
		return Config{}, fmt.Errorf("load values: %w", err)
	}
	return unmarshal(k)
}

func unmarshal(k *koanf.Koanf) (Config, error) {
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Home = strings.TrimRight(strings.TrimSpace(cfg.Home), "/")
	cfg.Order = strings.ToLower(strings.TrimSpace(cfg.Order))
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Home == "" {
		return errors.New("home is required")
	}
	parsed, err := url.Parse(c.Home)
	if err != nil {
		return fmt.Errorf("parse home %q: %w", c.Home, err)
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("home %q must be an absolute http(s) url", c.Home)
	}

	switch c.Order {
	case OrderForward, OrderReverse:
	default:
		return fmt.Errorf("order %q must be %q or %q", c.Order, OrderForward, OrderReverse)
	}

	if c.RequestTimeout < 0 {
		return fmt.Errorf("request_timeout %s must not be negative", c.RequestTimeout)
	}
	return nil
}

func (c Config) Reversed() bool {
	return c.Order == OrderReverse
}
