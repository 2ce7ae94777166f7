package core

import (
	"errors"
	"time"
)

// Dispatch targets recorded by the latency monitor
const (
	TargetStatic   = "static"
	TargetNotFound = "notfound"
)

const (
	// acceptor sleeps on the listening fd at most this long between
	// checks of the shutdown signal
	pollInterval = 100 * time.Millisecond

	monitorInterval = 10 * time.Second
)

// DefaultMethods apply to static routes registered without methods
var DefaultMethods = []string{"GET"}

// Error definitions
var (
	ErrServerStarted = errors.New("server already started")
	ErrNoConfig      = errors.New("config is required")
)
