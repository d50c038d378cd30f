//go:build !linux

package netutil

import (
	"io"
	"net"
	"os"
	"time"
)

// SetTCPKeepalive enables keepalive probing with the given interval in
// seconds. Platforms without the fine-grained probe knobs get the idle
// period only.
func SetTCPKeepalive(tc *net.TCPConn, interval int) error {
	if err := tc.SetKeepAlive(true); err != nil {
		return err
	}
	return tc.SetKeepAlivePeriod(time.Duration(interval) * time.Second)
}

// setRecvTimeout approximates a socket receive timeout with a read deadline.
func setRecvTimeout(tc *net.TCPConn, d time.Duration) error {
	return tc.SetReadDeadline(time.Now().Add(d))
}

// SetBlocking is a no-op where the runtime owns socket readiness.
func SetBlocking(tc *net.TCPConn, blocking bool) error { return nil }

// Readiness masks reported by Wait.
const (
	WaitReadable = 1 << iota
	WaitWritable
	WaitError
	WaitHup
)

// Wait approximates readiness with a bounded zero-byte read deadline; the
// poll-based implementation is Linux-only.
func Wait(tc *net.TCPConn, mask int, timeout time.Duration) (int, error) {
	if mask&WaitReadable == 0 {
		// Writability is assumed for connected sockets here.
		return mask & WaitWritable, nil
	}
	if err := tc.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return 0, err
	}
	defer tc.SetReadDeadline(time.Time{})
	var one [1]byte
	n, err := tc.Read(one[:0])
	if err != nil {
		if nerr, ok := err.(net.Error); ok && nerr.Timeout() {
			return 0, nil
		}
		return WaitError, nil
	}
	_ = n
	return WaitReadable, nil
}

// sendFileChunk bounds each copy step.
const sendFileChunk = 16 * 1024

// SendFile copies size bytes from src into the connection with a plain
// read/write loop. A source shorter than size fails with io.ErrUnexpectedEOF.
func SendFile(tc *net.TCPConn, src *os.File, size int64) error {
	_, err := io.CopyN(tc, src, size)
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
