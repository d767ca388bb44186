package models

import (
	"fmt"
	"unicode/utf8"
)

// MaxErrorBodyLength caps how much of an upstream response body is kept on a
// TransportError.
const MaxErrorBodyLength = 500

// NotFoundError reports a tag or provider resource that does not exist.
type NotFoundError struct {
	Resource string
	Message  string
}

func (e *NotFoundError) Error() string {
	if e.Resource == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, e.Resource)
}

// TransportError is any failed exchange with the provider other than a 404:
// a network failure, a non-2xx status or an undecodable body.
type TransportError struct {
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Body != "":
		return fmt.Sprintf("HTTP %d calling %s: %s", e.StatusCode, e.URL, e.Body)
	case e.StatusCode != 0:
		return fmt.Sprintf("HTTP %d calling %s", e.StatusCode, e.URL)
	case e.Err != nil:
		return fmt.Sprintf("HTTP error calling %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("HTTP error calling %s", e.URL)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ValidationError reports malformed query parameters or a provider response
// that cannot be used (no rows, missing columns).
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// TruncateBody shortens an upstream body to MaxErrorBodyLength runes.
func TruncateBody(body string) string {
	if utf8.RuneCountInString(body) <= MaxErrorBodyLength {
		return body
	}
	runes := []rune(body)
	return string(runes[:MaxErrorBodyLength])
}
