package remote

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
)

const (
	PathCheckLogin = "/check-login"
	PathComments   = "/comments"
	PathLogin      = "/login"
	PathRegister   = "/register"

	statusAuthenticated = "OK"
)

// SessionStatus is the /check-login payload. The service answers
// {"status":"OK"} for a signed-in viewer and {"status":false} otherwise.
type SessionStatus struct {
	Status any `json:"status"`
}

func (s SessionStatus) Authenticated() bool {
	value, ok := s.Status.(string)
	return ok && value == statusAuthenticated
}

// ItemID keeps the raw JSON token of an item id so it can be echoed back
// exactly as the service sent it.
type ItemID struct {
	raw json.RawMessage
}

func ParseItemID(raw string) ItemID {
	return ItemID{raw: json.RawMessage(raw)}
}

func (id ItemID) IsZero() bool {
	trimmed := bytes.TrimSpace(id.raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func (id ItemID) String() string {
	if id.IsZero() {
		return ""
	}

	var text string
	if err := json.Unmarshal(id.raw, &text); err == nil {
		return text
	}
	return string(id.raw)
}

func (id ItemID) Equal(other ItemID) bool {
	return bytes.Equal(bytes.TrimSpace(id.raw), bytes.TrimSpace(other.raw))
}

func (id ItemID) MarshalJSON() ([]byte, error) {
	if id.IsZero() {
		return []byte("null"), nil
	}
	return id.raw, nil
}

func (id *ItemID) UnmarshalJSON(data []byte) error {
	id.raw = append(json.RawMessage(nil), data...)
	return nil
}

// CommentID identifies a comment for replies. Same echo semantics as ItemID.
type CommentID = ItemID

type Item struct {
	ID    ItemID `json:"id"`
	URL   string `json:"url,omitempty"`
	Title string `json:"title,omitempty"`
}

type Comment struct {
	ID       CommentID `json:"id"`
	Text     string    `json:"text"`
	Created  string    `json:"created"`
	Username string    `json:"username"`
	Replies  []Comment `json:"replies,omitempty"`
}

// Feed is the GET /comments payload. LoggedInAs is only present when the
// request carried a valid session.
type Feed struct {
	Item         Item      `json:"item"`
	Comments     []Comment `json:"comments"`
	CommentCount *int      `json:"comment_count,omitempty"`
	LoggedInAs   string    `json:"logged_in_as,omitempty"`
}

var errFeedWithoutItem = errors.New("comment list has no item id")

// Validate rejects payloads that parsed as JSON but are not a comment list,
// such as {"error":"..."} or null.
func (f Feed) Validate() error {
	if f.Item.ID.IsZero() {
		return errFeedWithoutItem
	}
	return nil
}

// Total prefers the service's count of top-level comments and falls back to
// the length of the list.
func (f Feed) Total() int {
	if f.CommentCount != nil {
		return *f.CommentCount
	}
	return len(f.Comments)
}

type Submission struct {
	Comment string     `json:"comment"`
	Item    ItemID     `json:"item"`
	ReplyTo *CommentID `json:"reply_to,omitempty"`
}

type PageIdentity struct {
	URL   string
	Title string
}

func CheckLoginRequest() Request {
	return Request{Method: http.MethodGet, Path: PathCheckLogin}
}

func FetchCommentsRequest(identity PageIdentity) Request {
	return Request{
		Method: http.MethodGet,
		Path:   PathComments,
		Query: url.Values{
			"item_url":   []string{identity.URL},
			"item_title": []string{identity.Title},
		},
	}
}

func PostCommentRequest(submission Submission) Request {
	return Request{
		Method: http.MethodPost,
		Path:   PathComments,
		Body:   submission,
	}
}
