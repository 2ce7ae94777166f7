//go:build linux || darwin

package netutil

import (
	"errors"
	"io"
	"net"
	"strconv"
	"testing"
	"time"
)

func TestListenAndAccept(t *testing.T) {
	l, err := Listen(0, 16)
	if err != nil {
		t.Fatalf("Listen error: %v", err)
	}
	defer l.Close()

	if l.Port() == 0 {
		t.Fatal("Expected a bound port")
	}

	// nothing pending yet
	n, err := l.AcceptAll(func(net.Conn) {})
	if err != nil || n != 0 {
		t.Fatalf("Expected 0 accepted, got %d (%v)", n, err)
	}

	client, err := net.Dial("tcp", "127.0.0.1:"+strconv.Itoa(l.Port()))
	if err != nil {
		t.Fatalf("Dial error: %v", err)
	}
	defer client.Close()

	var conn net.Conn
	deadline := time.Now().Add(2 * time.Second)
	for conn == nil && time.Now().Before(deadline) {
		l.AcceptAll(func(c net.Conn) { conn = c })
		if conn == nil {
			time.Sleep(5 * time.Millisecond)
		}
	}
	if conn == nil {
		t.Fatal("Connection never accepted")
	}
	defer conn.Close()

	client.Write([]byte("ping"))
	buf := make([]byte, 4)
	conn.SetReadDeadline(time.Now().Add(time.Second))
	if _, err := io.ReadFull(conn, buf); err != nil || string(buf) != "ping" {
		t.Errorf("Expected ping, got %q (%v)", buf, err)
	}
}

func TestListenInvalidPort(t *testing.T) {
	_, err := Listen(70000, 16)
	if !errors.Is(err, ErrResolve) {
		t.Fatalf("Expected ErrResolve, got %v", err)
	}
	var le *ListenError
	if !errors.As(err, &le) || le.Code() != -1 {
		t.Errorf("Expected code -1, got %v", err)
	}
}

func TestListenPortInUse(t *testing.T) {
	l, err := Listen(0, 16)
	if err != nil {
		t.Fatalf("Listen error: %v", err)
	}
	defer l.Close()

	_, err = Listen(l.Port(), 16)
	if !errors.Is(err, ErrBind) {
		t.Fatalf("Expected ErrBind, got %v", err)
	}
	var le *ListenError
	if errors.As(err, &le) && le.Code() != -3 {
		t.Errorf("Expected code -3, got %d", le.Code())
	}
}

func TestListenErrorCodes(t *testing.T) {
	tests := []struct {
		stage Stage
		code  int
		err   error
	}{
		{StageResolve, -1, ErrResolve},
		{StageSockOpt, -2, ErrSockOpt},
		{StageBind, -3, ErrBind},
		{StageListen, -4, ErrListen},
	}
	for _, tt := range tests {
		e := &ListenError{Stage: tt.stage, Err: errors.New("x")}
		if e.Code() != tt.code {
			t.Errorf("%s: expected code %d, got %d", tt.stage, tt.code, e.Code())
		}
		if !errors.Is(e, tt.err) {
			t.Errorf("%s: errors.Is failed", tt.stage)
		}
	}
}
