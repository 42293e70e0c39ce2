package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
)

const maxResponseBytes = 4 << 20

var ErrResponseTooLarge = errors.New("response exceeds 4 MiB")

type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
}

// Outcome is what came back from one request. Err is set only when no
// response was obtained.
type Outcome struct {
	Body   []byte
	Status int
	Err    error
}

type Transport interface {
	Send(ctx context.Context, req Request) Outcome
}

type HTTPTransportConfig struct {
	// Home is the remote service origin, e.g. https://talkatv.example.org.
	Home    string
	APIPath string
	// SessionCookie is sent as-is on every request. Browsers attach cookies
	// themselves, so this only matters for headless use.
	SessionCookie string
	Client        *http.Client
}

type HTTPTransport struct {
	baseURL string
	client  *http.Client
}

func NewHTTPTransport(cfg HTTPTransportConfig) (*HTTPTransport, error) {
	home := strings.TrimRight(strings.TrimSpace(cfg.Home), "/")
	if home == "" {
		return nil, errors.New("remote home url is required")
	}

	client := cfg.Client
	if client == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		client = &http.Client{Jar: jar}
	}

	base := client.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	wrapped := *client
	wrapped.Transport = &credentialsTransport{
		base:   base,
		cookie: strings.TrimSpace(cfg.SessionCookie),
	}

	return &HTTPTransport{
		baseURL: home + normalizeAPIPath(cfg.APIPath),
		client:  &wrapped,
	}, nil
}

func (t *HTTPTransport) Send(ctx context.Context, req Request) Outcome {
	httpReq, err := t.newRequest(ctx, req)
	if err != nil {
		return Outcome{Err: err}
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return Outcome{Err: fmt.Errorf("%s %s: %w", req.Method, req.Path, err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return Outcome{Err: fmt.Errorf("read %s %s response: %w", req.Method, req.Path, err)}
	}
	if len(body) > maxResponseBytes {
		return Outcome{Err: fmt.Errorf("%s %s: %w", req.Method, req.Path, ErrResponseTooLarge)}
	}

	return Outcome{Body: body, Status: resp.StatusCode}
}

func (t *HTTPTransport) newRequest(ctx context.Context, req Request) (*http.Request, error) {
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}

	target := t.baseURL + req.Path
	var body io.Reader
	switch method {
	case http.MethodGet:
		if len(req.Query) > 0 {
			target += "?" + req.Query.Encode()
		}
	case http.MethodPost:
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode %s body: %w", req.Path, err)
		}
		body = bytes.NewReader(payload)
	default:
		return nil, fmt.Errorf("unsupported method %q", req.Method)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, req.Path, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	return httpReq, nil
}

func normalizeAPIPath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" || path == "/" {
		return ""
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return strings.TrimRight(path, "/")
}
