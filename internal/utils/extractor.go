package utils

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"go.uber.org/multierr"
)

// ErrNoKey is returned when no throttling key can be found on a request.
var ErrNoKey = errors.New("no throttling key on request")

// Extractor represents the way we extract a throttling key from an HTTP request. This could be
// a header value, the client address, or any information available on the request that can be
// collected without side effects (an extractor never reads the body).
type Extractor interface {
	Extract(r *http.Request) (string, error)
}

type httpHeaderExtractor struct {
	headers []string
}

// NewHTTPHeadersExtractor creates a new HTTP header extractor
func NewHTTPHeadersExtractor(headers ...string) Extractor {
	return &httpHeaderExtractor{headers: headers}
}

// Extract collects the configured headers and joins them to build the key that will be used for
// throttling. You should use headers that are guaranteed to be unique for a client.
func (h *httpHeaderExtractor) Extract(r *http.Request) (string, error) {
	if len(h.headers) == 0 {
		return "", fmt.Errorf("%w: no headers configured", ErrNoKey)
	}
	values := make([]string, 0, len(h.headers))

	for _, key := range h.headers {
		// the first header without a value ends the search
		value := strings.TrimSpace(r.Header.Get(key))
		if value == "" {
			return "", fmt.Errorf("%w: the header %v must have a value set", ErrNoKey, key)
		}
		values = append(values, value)
	}

	return strings.Join(values, "-"), nil
}

type remoteAddrExtractor struct{}

// NewRemoteAddrExtractor keys requests by the client IP, without the port.
func NewRemoteAddrExtractor() Extractor {
	return remoteAddrExtractor{}
}

func (remoteAddrExtractor) Extract(r *http.Request) (string, error) {
	addr := strings.TrimSpace(r.RemoteAddr)
	if addr == "" {
		return "", fmt.Errorf("%w: empty remote address", ErrNoKey)
	}
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host, nil
	}
	return addr, nil
}

type firstOfExtractor struct {
	extractors []Extractor
}

// FirstOf tries each extractor in order and returns the first key found.
// When all of them fail, the combined error is returned.
func FirstOf(extractors ...Extractor) Extractor {
	return &firstOfExtractor{extractors: extractors}
}

func (f *firstOfExtractor) Extract(r *http.Request) (string, error) {
	var errs error
	for _, e := range f.extractors {
		key, err := e.Extract(r)
		if err == nil {
			return key, nil
		}
		errs = multierr.Append(errs, err)
	}
	if errs == nil {
		return "", ErrNoKey
	}
	return "", errs
}
