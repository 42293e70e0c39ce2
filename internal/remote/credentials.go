package remote

import "net/http"

// credentialsTransport makes every request a credentialed one. In the
// browser build fetchOptions asks the fetch API to include cookies on
// cross-origin calls; elsewhere the client's cookie jar and an optional
// static session cookie do the same job.
type credentialsTransport struct {
	base   http.RoundTripper
	cookie string
}

func (t *credentialsTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if len(fetchOptions) == 0 && t.cookie == "" {
		return t.base.RoundTrip(req)
	}

	clone := req.Clone(req.Context())
	for key, value := range fetchOptions {
		clone.Header.Set(key, value)
	}
	if t.cookie != "" {
		clone.Header.Add("Cookie", t.cookie)
	}
	return t.base.RoundTrip(clone)
}
