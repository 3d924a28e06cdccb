// Package actuator defines what happens when a job fires: its target is
// resolved to a URL and handed to the operating system's URL handler.
package actuator

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// DefaultJoinBaseURL is prefixed to a bare meeting id.
const DefaultJoinBaseURL = "https://zoom.us/j/"

var (
	ErrEmptyTarget = errors.New("target has neither a link nor a meeting id")
	ErrActuation   = errors.New("actuation failed")
)

// Target is what a job opens. URI wins over MeetingID when both are set.
type Target struct {
	URI       string
	MeetingID string
	Secret    string
}

// IsEmpty reports whether t cannot resolve to anything.
func (t Target) IsEmpty() bool {
	return strings.TrimSpace(t.URI) == "" && NormalizeMeetingID(t.MeetingID) == ""
}

// Label is a short human readable name for t.
func (t Target) Label() string {
	if id := NormalizeMeetingID(t.MeetingID); id != "" {
		return FormatMeetingID(id)
	}
	return strings.TrimSpace(t.URI)
}

// Resolve returns the URL to open for t. baseURL defaults to
// DefaultJoinBaseURL.
func (t Target) Resolve(baseURL string) (string, error) {
	if u := strings.TrimSpace(t.URI); u != "" {
		return u, nil
	}
	id := NormalizeMeetingID(t.MeetingID)
	if id == "" {
		return "", ErrEmptyTarget
	}
	if baseURL == "" {
		baseURL = DefaultJoinBaseURL
	}
	u := baseURL + url.PathEscape(id)
	if t.Secret != "" {
		u += "?pwd=" + url.QueryEscape(t.Secret)
	}
	return u, nil
}

// NormalizeMeetingID strips the spaces and dashes users type into ids.
func NormalizeMeetingID(id string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' || r == '\t' {
			return -1
		}
		return r
	}, id)
}

// FormatMeetingID groups an id the way meeting clients display it:
// 3-3-4 for ten digits and 3-4-4 for eleven.
func FormatMeetingID(id string) string {
	id = NormalizeMeetingID(id)
	switch len(id) {
	case 10:
		return id[:3] + " " + id[3:6] + " " + id[6:]
	case 11:
		return id[:3] + " " + id[3:7] + " " + id[7:]
	}
	return id
}

// Ack is the result of a successful actuation.
type Ack struct {
	URL string
	At  time.Time
}

// Actuator performs a job's side effect. Implementations must be safe for
// concurrent use.
type Actuator interface {
	Actuate(ctx context.Context, t Target) (Ack, error)
}

// Func adapts a function to the Actuator interface.
type Func func(ctx context.Context, t Target) (Ack, error)

func (f Func) Actuate(ctx context.Context, t Target) (Ack, error) {
	return f(ctx, t)
}

// Opener hands the resolved URL to the platform's default handler.
type Opener struct {
	BaseURL string
	// start launches the handler; replaced in tests.
	start func(ctx context.Context, url string) error
}

// NewOpener returns an Opener using the platform URL handler.
func NewOpener(baseURL string) *Opener {
	return &Opener{BaseURL: baseURL, start: openURL}
}

func (o *Opener) Actuate(ctx context.Context, t Target) (Ack, error) {
	u, err := t.Resolve(o.BaseURL)
	if err != nil {
		return Ack{}, fmt.Errorf("%w: %v", ErrActuation, err)
	}
	if err := o.start(ctx, u); err != nil {
		return Ack{}, fmt.Errorf("%w: open %s: %v", ErrActuation, u, err)
	}
	return Ack{URL: u, At: time.Now()}, nil
}

var _ Actuator = (*Opener)(nil)
