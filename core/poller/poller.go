// Package poller waits for readiness on raw file descriptors.
// The acceptor uses it to sleep on the listening socket between bursts.
package poller

import "time"

// Poller is the I/O multiplexing interface
type Poller interface {
	Add(fd int) error
	Remove(fd int) error
	// Wait returns the ready fds. A negative timeout blocks.
	// An interrupted wait returns no fds and no error.
	Wait(timeout time.Duration) ([]int, error)
	Close() error
}

func timeoutMillis(d time.Duration) int {
	if d < 0 {
		return -1
	}
	ms := int(d / time.Millisecond)
	if ms == 0 && d > 0 {
		ms = 1
	}
	return ms
}
