// Package security builds the outbound HTTP client and the HTML sanitizer
// shared by the fetch and publish stages.
package security

import (
	"net/http"
	"time"

	"github.com/doyensec/safeurl"
)

var allowedSchemes = []string{"http", "https"}

// NewHTTPClient returns a client for fetching third party URLs taken from the
// feed (pages, images). With safe set, requests to private, loopback, link
// local and metadata addresses are refused at dial time, after DNS
// resolution.
func NewHTTPClient(timeout time.Duration, safe bool) *http.Client {
	if !safe {
		return &http.Client{Timeout: timeout}
	}

	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes(allowedSchemes...).
		SetAllowedPorts(80, 443).
		Build()

	return safeurl.Client(config).Client
}
