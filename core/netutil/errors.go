// Package netutil opens the listening socket with an explicit backlog and
// accepts raw connections from it.
package netutil

import (
	"errors"
	"fmt"
)

// Stage identifies which step of listener setup failed
type Stage int

const (
	StageResolve Stage = iota + 1
	StageSockOpt
	StageBind
	StageListen
)

var (
	ErrResolve = errors.New("netutil: address resolution failed")
	ErrSockOpt = errors.New("netutil: setsockopt failed")
	ErrBind    = errors.New("netutil: bind failed")
	ErrListen  = errors.New("netutil: listen failed")
)

func (s Stage) String() string {
	switch s {
	case StageResolve:
		return "resolve"
	case StageSockOpt:
		return "setsockopt"
	case StageBind:
		return "bind"
	case StageListen:
		return "listen"
	}
	return "unknown"
}

// ListenError reports a listener setup failure
type ListenError struct {
	Stage Stage
	Port  int
	Err   error
}

func (e *ListenError) Error() string {
	return fmt.Sprintf("netutil: %s on port %d: %v", e.Stage, e.Port, e.Err)
}

func (e *ListenError) Unwrap() error { return e.Err }

// Is matches the stage sentinels
func (e *ListenError) Is(target error) bool {
	switch target {
	case ErrResolve:
		return e.Stage == StageResolve
	case ErrSockOpt:
		return e.Stage == StageSockOpt
	case ErrBind:
		return e.Stage == StageBind
	case ErrListen:
		return e.Stage == StageListen
	}
	return false
}

// Code returns the legacy numeric code: -1 resolve, -2 setsockopt,
// -3 bind, -4 listen
func (e *ListenError) Code() int {
	return -int(e.Stage)
}
