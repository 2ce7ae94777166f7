//go:build linux || darwin

package netutil

import (
	"errors"
	"net"
	"os"
	"strconv"

	"golang.org/x/sys/unix"
)

// Listener is a non-blocking listening socket
type Listener struct {
	fd   int
	addr *net.TCPAddr
}

// Listen binds the wildcard address on port and listens with the given
// backlog. IPv6 (dual-stack) is tried first, then IPv4. Port 0 picks a
// free port.
func Listen(port, backlog int) (*Listener, error) {
	if _, err := net.ResolveTCPAddr("tcp", ":"+strconv.Itoa(port)); err != nil || port < 0 || port > 65535 {
		if err == nil {
			err = errors.New("port out of range")
		}
		return nil, &ListenError{Stage: StageResolve, Port: port, Err: err}
	}
	if backlog <= 0 {
		backlog = unix.SOMAXCONN
	}

	var bindErr error
	for _, family := range []int{unix.AF_INET6, unix.AF_INET} {
		fd, err := socket(family)
		if err != nil {
			bindErr = err
			continue
		}

		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
			unix.Close(fd)
			return nil, &ListenError{Stage: StageSockOpt, Port: port, Err: err}
		}
		if family == unix.AF_INET6 {
			// accept IPv4-mapped peers too
			unix.SetsockoptInt(fd, unix.IPPROTO_IPV6, unix.IPV6_V6ONLY, 0)
		}

		if err := unix.Bind(fd, wildcard(family, port)); err != nil {
			unix.Close(fd)
			bindErr = err
			continue
		}

		if err := unix.Listen(fd, backlog); err != nil {
			unix.Close(fd)
			return nil, &ListenError{Stage: StageListen, Port: port, Err: err}
		}
		if err := unix.SetNonblock(fd, true); err != nil {
			unix.Close(fd)
			return nil, &ListenError{Stage: StageListen, Port: port, Err: err}
		}

		addr, err := localAddr(fd)
		if err != nil {
			unix.Close(fd)
			return nil, &ListenError{Stage: StageListen, Port: port, Err: err}
		}
		return &Listener{fd: fd, addr: addr}, nil
	}

	if bindErr == nil {
		bindErr = errors.New("no usable address")
	}
	return nil, &ListenError{Stage: StageBind, Port: port, Err: bindErr}
}

func socket(family int) (int, error) {
	fd, err := unix.Socket(family, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return -1, err
	}
	unix.CloseOnExec(fd)
	return fd, nil
}

func wildcard(family, port int) unix.Sockaddr {
	if family == unix.AF_INET6 {
		return &unix.SockaddrInet6{Port: port}
	}
	return &unix.SockaddrInet4{Port: port}
}

func localAddr(fd int) (*net.TCPAddr, error) {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return nil, err
	}
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return &net.TCPAddr{IP: net.IP(a.Addr[:]).To16(), Port: a.Port}, nil
	case *unix.SockaddrInet6:
		return &net.TCPAddr{IP: net.IP(a.Addr[:]), Port: a.Port}, nil
	}
	return nil, errors.New("unexpected socket address")
}

// Fd returns the listening file descriptor
func (l *Listener) Fd() int { return l.fd }

// Addr returns the bound address
func (l *Listener) Addr() *net.TCPAddr { return l.addr }

// Port returns the bound port
func (l *Listener) Port() int { return l.addr.Port }

// Accept takes one pending connection. It returns unix.EAGAIN when none
// is waiting. The returned conn is in blocking mode for the worker.
func (l *Listener) Accept() (net.Conn, error) {
	nfd, _, err := unix.Accept(l.fd)
	if err != nil {
		return nil, err
	}
	unix.CloseOnExec(nfd)

	f := os.NewFile(uintptr(nfd), "conn")
	conn, err := net.FileConn(f)
	f.Close()
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// AcceptAll drains the pending connection backlog, calling fn for each.
// It stops at the first error other than EAGAIN or ECONNABORTED.
func (l *Listener) AcceptAll(fn func(net.Conn)) (int, error) {
	n := 0
	for {
		conn, err := l.Accept()
		switch {
		case err == nil:
			n++
			fn(conn)
		case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EWOULDBLOCK):
			return n, nil
		case errors.Is(err, unix.ECONNABORTED), errors.Is(err, unix.EINTR):
			continue
		default:
			return n, err
		}
	}
}

// Close closes the listening socket
func (l *Listener) Close() error {
	return unix.Close(l.fd)
}
