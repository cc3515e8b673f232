package liteapi

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"
)

// ErrBlockedEndpoint is matched by every BlockedEndpointError.
var ErrBlockedEndpoint = errors.New("endpoint not in allow-list")

// BlockedEndpointError is returned when a call targets a path outside the allow-list.
// No request is sent.
type BlockedEndpointError struct {
	Endpoint string
}

func (e *BlockedEndpointError) Error() string {
	return fmt.Sprintf("security block: endpoint %q is not allowed", e.Endpoint)
}

// Is makes errors.Is(err, ErrBlockedEndpoint) work.
func (e *BlockedEndpointError) Is(target error) bool {
	return target == ErrBlockedEndpoint
}

// ConfigurationError is returned when the base URL or API key is not configured.
type ConfigurationError struct {
	Missing string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("liteapi configuration missing: %s", e.Missing)
}

// UpstreamError is a non-2xx response or an unusable response body.
type UpstreamError struct {
	StatusCode int
	URL        string
	Body       string
	Reason     string
}

func (e *UpstreamError) Error() string {
	msg := e.Reason
	if msg == "" {
		msg = Truncate(e.Body, 200)
	}
	return fmt.Sprintf("API Error %d from [%s]: %s", e.StatusCode, e.URL, msg)
}

// TransportError wraps connection and timeout failures.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("connection error to [%s]: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ErrorClass groups upstream failures by how the booking flow should react.
type ErrorClass int

const (
	ClassNone ErrorClass = iota
	ClassOfferExpired
	ClassBadRequest
	ClassOther
)

func (c ErrorClass) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassOfferExpired:
		return "offer_expired"
	case ClassBadRequest:
		return "bad_request"
	default:
		return "other"
	}
}

var (
	offerExpiredCode = regexp.MustCompile(`\b4002\b`)
	badRequestToken  = regexp.MustCompile(`\b400\b`)
)

// ClassifyError is the only place that inspects upstream error text. LiteAPI does
// not return a structured expiry code on every path, so the markers are matched on
// the message: error code 4002 or an "invalid offer" phrase means the offer expired.
// A 400 status (or the bare token) is a bad request, which callers treat as a
// probable expiry as well.
func ClassifyError(err error) ErrorClass {
	if err == nil {
		return ClassNone
	}

	text := strings.ToLower(err.Error())
	if offerExpiredCode.MatchString(text) || strings.Contains(text, "invalid offer") {
		return ClassOfferExpired
	}

	var upstreamErr *UpstreamError
	if errors.As(err, &upstreamErr) && upstreamErr.StatusCode == http.StatusBadRequest {
		return ClassBadRequest
	}
	if badRequestToken.MatchString(text) {
		return ClassBadRequest
	}

	return ClassOther
}

// Truncate cuts s to at most max bytes without splitting a UTF-8 sequence.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
