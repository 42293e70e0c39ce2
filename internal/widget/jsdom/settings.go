package jsdom

import (
	"strings"
)

// Lookup reads one page-supplied setting. ok is false when the page did not
// set it at all.
type Lookup func(name string) (value any, ok bool)

// Settings collects the embedding page's configuration into koanf keys.
// Attribute values on the container win over window globals so a page can
// mount several differently configured widgets.
func Settings(globals Lookup, attrs Lookup) map[string]interface{} {
	values := map[string]interface{}{}

	read := func(key string, global string, attr string) {
		if value, ok := lookupString(globals, global); ok {
			values[key] = value
		}
		if value, ok := lookupString(attrs, attr); ok {
			values[key] = value
		}
	}

	read("home", "talkatv_home", "data-talkatv-home")
	read("api_path", "talkatv_api_path", "data-talkatv-api-path")
	read("order", "talkatv_order", "data-talkatv-order")
	read("request_timeout", "talkatv_timeout", "data-talkatv-timeout")
	read("log.level", "talkatv_log_level", "data-talkatv-log-level")
	if value, ok := lookupString(globals, "talkatv_container_id"); ok {
		values["container_id"] = value
	}

	return values
}

func lookupString(lookup Lookup, name string) (string, bool) {
	if lookup == nil {
		return "", false
	}
	value, ok := lookup(name)
	if !ok || value == nil {
		return "", false
	}

	text, isString := value.(string)
	if !isString {
		return "", false
	}
	text = strings.TrimSpace(text)
	return text, text != ""
}
