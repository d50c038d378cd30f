package netutil

import (
	"bufio"
	"fmt"
	"net"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// defaultKeepaliveInterval mirrors the server's dial-side default (seconds).
const defaultKeepaliveInterval = 120

// Connect opens a blocking TCP connection to host:port with keepalive and
// no-delay applied.
func Connect(host string, port int) (*net.TCPConn, error) {
	return ConnectWithTimeout(host, port, 0, 0)
}

// ConnectWithTimeout opens a TCP connection bounded by connTimeout (0 means
// no bound). On success the socket is in blocking mode with no pending
// deadlines; recvTimeout, when positive, becomes the socket receive timeout
// for subsequent reads. On any failure the socket is torn down.
func ConnectWithTimeout(host string, port int, connTimeout, recvTimeout time.Duration) (*net.TCPConn, error) {
	d := net.Dialer{Timeout: connTimeout}
	conn, err := d.Dial("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, err
	}
	tc, ok := conn.(*net.TCPConn)
	if !ok {
		conn.Close()
		return nil, fmt.Errorf("netutil: unexpected connection type %T", conn)
	}
	if err := setup(tc, recvTimeout); err != nil {
		tc.Close()
		return nil, err
	}
	return tc, nil
}

func setup(tc *net.TCPConn, recvTimeout time.Duration) error {
	if err := SetTCPNoDelay(tc, true); err != nil {
		return err
	}
	if err := SetTCPKeepalive(tc, defaultKeepaliveInterval); err != nil {
		return err
	}
	// Clear any dial deadline; callers get a blocking socket back.
	if err := tc.SetDeadline(time.Time{}); err != nil {
		return err
	}
	if recvTimeout > 0 {
		return setRecvTimeout(tc, recvTimeout)
	}
	return nil
}

// SetTCPNoDelay toggles Nagle's algorithm.
func SetTCPNoDelay(tc *net.TCPConn, v bool) error {
	return tc.SetNoDelay(v)
}

// SendAll writes the whole buffer, looping over partial writes. Interrupted
// writes are transparently retried; any other error aborts.
func SendAll(conn net.Conn, data []byte) error {
	for len(data) > 0 {
		n, err := conn.Write(data)
		data = data[n:]
		if err != nil {
			if isEINTR(err) {
				continue
			}
			return err
		}
	}
	return nil
}

// ReadLine reads one CRLF-terminated line from the reader and returns it
// without the terminator.
func ReadLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil {
		return "", err
	}
	if !strings.HasSuffix(line, "\r\n") {
		return "", fmt.Errorf("netutil: line not CRLF terminated")
	}
	return line[:len(line)-2], nil
}

// PeerAddr reports the remote address and port of the connection.
func PeerAddr(conn net.Conn) (string, int, error) {
	host, portStr, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, err
	}
	return host, port, nil
}

// LocalPort reports the local port of the connection, or 0 when unknown.
func LocalPort(conn net.Conn) int {
	_, portStr, err := net.SplitHostPort(conn.LocalAddr().String())
	if err != nil {
		return 0
	}
	port, _ := strconv.Atoi(portStr)
	return port
}

// IsPortInUse reports whether something accepts connections on the local port.
func IsPortInUse(port int) bool {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)), 200*time.Millisecond)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

func isEINTR(err error) bool {
	var errno syscall.Errno
	for {
		switch e := err.(type) {
		case syscall.Errno:
			errno = e
			return errno == syscall.EINTR
		case interface{ Unwrap() error }:
			unwrapped := e.Unwrap()
			if unwrapped == nil {
				return false
			}
			err = unwrapped
		default:
			return false
		}
	}
}
