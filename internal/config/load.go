//go:build !js

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "TALKATV_"

// Load layers defaults, an optional TOML file, TALKATV_* environment
// variables and explicit overrides, later layers winning. A double
// underscore in a variable name separates nesting levels, so
// TALKATV_HOST__LISTEN_ADDR sets host.listen_addr.
func Load(configPath string, overrides map[string]interface{}) (Config, error) {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path := strings.TrimSpace(configPath); path != "" {
		if _, err := os.Stat(path); err != nil {
			return Config{}, fmt.Errorf("config file %q: %w", path, err)
		}
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %q: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	if len(overrides) > 0 {
		if err := k.Load(confmap.Provider(overrides, "."), nil); err != nil {
			return Config{}, fmt.Errorf("load overrides: %w", err)
		}
	}

	return unmarshal(k)
}

func envKey(name string) string {
	key := strings.ToLower(strings.TrimPrefix(name, envPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

const sampleConfig = `# talkatv widget configuration

home = "https://talkatv.example.org"
api_path = "/api"
order = "forward"
request_timeout = "15s"

[log]
level = "info"
format = "console"

[host]
listen_addr = ":8080"
static_dir = "static"
page_title = "talkatv demo page"
`

// InitFile writes a sample configuration file, refusing to overwrite.
func InitFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("configuration file already exists at %s", path)
	}
	return os.WriteFile(path, []byte(sampleConfig), 0o644)
}
