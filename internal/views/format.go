package views

import (
	"strings"
	"time"
)

const createdLabelLayout = "Jan 2, 2006 15:04 UTC"

// The service emits Python isoformat() timestamps without a zone; they are
// UTC.
var createdLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
}

// CreatedLabel turns a created timestamp into a display label, falling back
// to the raw value when it cannot be parsed.
func CreatedLabel(raw string) string {
	created, ok := ParseCreated(raw)
	if !ok {
		return strings.TrimSpace(raw)
	}
	return created.UTC().Format(createdLabelLayout)
}

func ParseCreated(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}

	for _, layout := range createdLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}
