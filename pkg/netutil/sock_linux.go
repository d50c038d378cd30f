//go:build linux

package netutil

import (
	"io"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// SetTCPKeepalive enables keepalive probing with the given interval in
// seconds: first probe after interval, follow-up probes every
// max(interval/3, 1) seconds, and three unanswered probes mark the peer dead.
func SetTCPKeepalive(tc *net.TCPConn, interval int) error {
	raw, err := tc.SyscallConn()
	if err != nil {
		return err
	}
	var serr error
	err = raw.Control(func(fd uintptr) {
		if serr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_KEEPALIVE, 1); serr != nil {
			return
		}
		if serr = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_KEEPIDLE, interval); serr != nil {
			return
		}
		probe := interval / 3
		if probe == 0 {
			probe = 1
		}
		if serr = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_KEEPINTVL, probe); serr != nil {
			return
		}
		serr = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_KEEPCNT, 3)
	})
	if err != nil {
		return err
	}
	return serr
}

// setRecvTimeout installs a socket-level receive timeout.
func setRecvTimeout(tc *net.TCPConn, d time.Duration) error {
	raw, err := tc.SyscallConn()
	if err != nil {
		return err
	}
	tv := unix.NsecToTimeval(d.Nanoseconds())
	var serr error
	err = raw.Control(func(fd uintptr) {
		serr = unix.SetsockoptTimeval(int(fd), unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv)
	})
	if err != nil {
		return err
	}
	return serr
}

// SetBlocking toggles the O_NONBLOCK flag on the connection's socket.
func SetBlocking(tc *net.TCPConn, blocking bool) error {
	raw, err := tc.SyscallConn()
	if err != nil {
		return err
	}
	var serr error
	err = raw.Control(func(fd uintptr) {
		serr = unix.SetNonblock(int(fd), !blocking)
	})
	if err != nil {
		return err
	}
	return serr
}

// Readiness masks reported by Wait.
const (
	WaitReadable = 1 << iota
	WaitWritable
	WaitError
	WaitHup
)

// Wait polls the connection until it is ready for the requested mask or the
// timeout elapses. It returns the ready mask, 0 on timeout.
func Wait(tc *net.TCPConn, mask int, timeout time.Duration) (int, error) {
	raw, err := tc.SyscallConn()
	if err != nil {
		return 0, err
	}
	var events int16
	if mask&WaitReadable != 0 {
		events |= unix.POLLIN
	}
	if mask&WaitWritable != 0 {
		events |= unix.POLLOUT
	}

	ret := 0
	var serr error
	err = raw.Control(func(fd uintptr) {
		pfd := []unix.PollFd{{Fd: int32(fd), Events: events}}
		for {
			n, perr := unix.Poll(pfd, int(timeout.Milliseconds()))
			if perr == unix.EINTR {
				continue
			}
			if perr != nil {
				serr = perr
				return
			}
			if n == 0 {
				return
			}
			if pfd[0].Revents&unix.POLLIN != 0 {
				ret |= WaitReadable
			}
			if pfd[0].Revents&unix.POLLOUT != 0 {
				ret |= WaitWritable
			}
			if pfd[0].Revents&unix.POLLERR != 0 {
				ret |= WaitError
			}
			if pfd[0].Revents&unix.POLLHUP != 0 {
				ret |= WaitHup
			}
			return
		}
	})
	if err != nil {
		return 0, err
	}
	return ret, serr
}

// sendFileChunk caps the bytes moved per sendfile call.
const sendFileChunk = 16 * 1024

// SendFile copies size bytes from src into the connection using the kernel
// zero-copy path, in bounded chunks. Only interrupted calls are retried; a
// source shorter than size fails with io.ErrUnexpectedEOF. The connection
// should be in blocking mode.
func SendFile(tc *net.TCPConn, src *os.File, size int64) error {
	raw, err := tc.SyscallConn()
	if err != nil {
		return err
	}
	infd := int(src.Fd())
	var offset int64
	var serr error
	err = raw.Control(func(fd uintptr) {
		for size > 0 {
			n := size
			if n > sendFileChunk {
				n = sendFileChunk
			}
			written, werr := unix.Sendfile(int(fd), infd, &offset, int(n))
			if werr != nil {
				if werr == unix.EINTR {
					continue
				}
				serr = os.NewSyscallError("sendfile", werr)
				return
			}
			if written == 0 {
				// source exhausted before size bytes
				serr = io.ErrUnexpectedEOF
				return
			}
			size -= int64(written)
		}
	})
	if err != nil {
		return err
	}
	return serr
}
