package remote

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

type ErrorKind string

const (
	KindNone        ErrorKind = ""
	KindTransport   ErrorKind = "transport"
	KindApplication ErrorKind = "application"
	KindDecode      ErrorKind = "decode"
)

var (
	ErrTransport   = &Error{Kind: KindTransport}
	ErrApplication = &Error{Kind: KindApplication}
	ErrDecode      = &Error{Kind: KindDecode}
)

type Error struct {
	Kind   ErrorKind
	Status int
	Err    error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindTransport:
		if e.Err != nil {
			return "transport failure: " + e.Err.Error()
		}
		return "transport failure"
	case KindApplication:
		return fmt.Sprintf("server responded with status %d", e.Status)
	case KindDecode:
		if e.Err != nil {
			return "malformed response: " + e.Err.Error()
		}
		return "malformed response"
	default:
		return "remote error"
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on kind only, so errors.Is(err, ErrApplication) holds for any
// status code.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == e.Kind
}

// Result is the uniform two-branch outcome every caller consumes: Err is nil
// on success. Value is the parsed JSON, or the raw text when parsing failed.
type Result struct {
	Value  any
	Raw    []byte
	Status int
	Err    error
}

func (r Result) OK() bool {
	return r.Err == nil
}

func (r Result) Kind() ErrorKind {
	var remoteErr *Error
	if errors.As(r.Err, &remoteErr) {
		return remoteErr.Kind
	}
	return KindNone
}

// Into decodes the JSON payload into v. A classified failure is returned
// before any decoding is attempted.
func (r Result) Into(v any) error {
	if r.Err != nil {
		return r.Err
	}
	if err := json.Unmarshal(r.Raw, v); err != nil {
		return &Error{Kind: KindDecode, Status: r.Status, Err: err}
	}
	return nil
}

type Decoder struct {
	log zerolog.Logger
}

func NewDecoder(log zerolog.Logger) Decoder {
	return Decoder{log: log}
}

func (d Decoder) Decode(out Outcome) Result {
	if out.Err != nil {
		return Result{Err: &Error{Kind: KindTransport, Err: out.Err}}
	}

	result := Result{Raw: out.Body, Status: out.Status}

	var value any
	parseErr := json.Unmarshal(out.Body, &value)
	if parseErr != nil {
		d.log.Warn().
			Err(parseErr).
			Int("status", out.Status).
			Int("bytes", len(out.Body)).
			Msg("response is not valid JSON, passing raw text through")
		result.Value = string(out.Body)
	} else {
		result.Value = value
	}

	switch {
	case out.Status < 200 || out.Status > 299:
		result.Err = &Error{Kind: KindApplication, Status: out.Status}
	case parseErr != nil:
		result.Err = &Error{Kind: KindDecode, Status: out.Status, Err: parseErr}
	}
	return result
}

// Message extracts a human-readable explanation from a failed result,
// preferring what the service put in the body.
func (r Result) Message() string {
	if r.Err == nil {
		return ""
	}

	switch value := r.Value.(type) {
	case string:
		if text := trimMessage(value); text != "" && r.Kind() == KindApplication {
			return fmt.Sprintf("%s (%s)", r.Err.Error(), text)
		}
	case map[string]any:
		for _, key := range []string{"error", "message", "status"} {
			if text, ok := value[key].(string); ok && trimMessage(text) != "" {
				return fmt.Sprintf("%s (%s)", r.Err.Error(), trimMessage(text))
			}
		}
	}
	return r.Err.Error()
}

const maxMessageRunes = 200

// trimMessage drops markup bodies such as HTML error pages and caps length.
func trimMessage(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "<") {
		return ""
	}
	runes := []rune(text)
	if len(runes) > maxMessageRunes {
		return string(runes[:maxMessageRunes]) + "…"
	}
	return text
}
