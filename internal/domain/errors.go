package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrTransportCancelled marks a load superseded by a newer request. It is never user-visible.
var ErrTransportCancelled = errors.New("transport: request superseded")

// ClassificationError describes a URL the classifier could not interpret.
type ClassificationError struct {
	URL    string
	Reason string
	Err    error
}

func (e *ClassificationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("classify %q: %s: %v", e.URL, e.Reason, e.Err)
	}
	return fmt.Sprintf("classify %q: %s", e.URL, e.Reason)
}

func (e *ClassificationError) Unwrap() error {
	return e.Err
}

// TransportError is a network-level failure reported by a surface.
type TransportError struct {
	URL   string
	Cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failed for %s: %v", e.URL, e.Cause)
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// HTTPStatusError is a 4xx/5xx main-frame response.
type HTTPStatusError struct {
	URL    string
	Status int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("http %d for %s", e.Status, e.URL)
}

var cancellationMarkers = []string{
	"request superseded",
	"nsurlerrorcancelled",
	"net::err_aborted",
	"frame load interrupted",
}

// IsCancellation reports whether err belongs to the "request superseded" class.
func IsCancellation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTransportCancelled) || errors.Is(err, context.Canceled) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range cancellationMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
