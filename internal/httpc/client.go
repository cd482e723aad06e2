// Package httpc provides shared HTTP clients with sane timeouts.
// Use these instead of http.DefaultClient, which has none.
package httpc

import (
	"net"
	"net/http"
	"time"
)

// Default timeouts for HTTP operations.
const (
	DefaultTimeout         = 30 * time.Second
	DefaultConnectTimeout  = 10 * time.Second
	DefaultKeepAlive       = 30 * time.Second
	DefaultIdleConnTimeout = 90 * time.Second
)

func newTransport() *http.Transport {
	return &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   DefaultConnectTimeout,
			KeepAlive: DefaultKeepAlive,
		}).DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     DefaultIdleConnTimeout,
		TLSHandshakeTimeout: 10 * time.Second,
	}
}

// Client is the shared client for request/response calls.
var Client = &http.Client{
	Timeout:   DefaultTimeout,
	Transport: newTransport(),
}

// NewStreamClient creates a client without an overall request timeout,
// for long-lived streaming responses such as MJPEG. Connect and TLS
// timeouts still apply.
func NewStreamClient() *http.Client {
	return &http.Client{Transport: newTransport()}
}
