// Package httpserver holds the HTTP front of the mail service: a std
// server with graceful shutdown, request middleware and the send API.
package httpserver

import "io"

// Provider is a server that blocks in Start until closed.
type Provider interface {
	Start() error
	io.Closer
}

type Runner interface {
	Run()
}

// RunableProvider starts either blocking (Start) or in the background (Run).
type RunableProvider interface {
	Provider
	Runner
}
