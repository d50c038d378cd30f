package client

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/redbasin/basin/pkg/netutil"
)

// AddrFunc provides the server address (e.g. from env or flag).
type AddrFunc func() string

// respClient is a minimal RESP2 client for the CLI commands.
type respClient struct {
	conn *net.TCPConn
	br   *bufio.Reader
}

func dial(addr string, timeout time.Duration) (*respClient, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid server address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid server port %q: %w", portStr, err)
	}
	conn, err := netutil.ConnectWithTimeout(host, port, timeout, timeout)
	if err != nil {
		return nil, err
	}
	return &respClient{conn: conn, br: bufio.NewReader(conn)}, nil
}

func (c *respClient) close() error { return c.conn.Close() }

// do sends one command and returns its reply.
func (c *respClient) do(args ...string) (reply, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "*%d\r\n", len(args))
	for _, a := range args {
		fmt.Fprintf(&b, "$%d\r\n%s\r\n", len(a), a)
	}
	if err := netutil.SendAll(c.conn, []byte(b.String())); err != nil {
		return reply{}, err
	}
	return c.readReply()
}

// reply holds one decoded RESP reply. Exactly one field is meaningful,
// selected by kind.
type reply struct {
	kind  byte // '+', '-', ':', '$', '*'
	str   string
	n     int64
	null  bool
	items []reply
}

func (c *respClient) readReply() (reply, error) {
	line, err := netutil.ReadLine(c.br)
	if err != nil {
		return reply{}, err
	}
	if len(line) == 0 {
		return reply{}, fmt.Errorf("empty reply line")
	}
	switch line[0] {
	case '+':
		return reply{kind: '+', str: line[1:]}, nil
	case '-':
		return reply{kind: '-', str: line[1:]}, nil
	case ':':
		n, err := strconv.ParseInt(line[1:], 10, 64)
		if err != nil {
			return reply{}, fmt.Errorf("bad integer reply %q", line)
		}
		return reply{kind: ':', n: n}, nil
	case '$':
		n, err := strconv.Atoi(line[1:])
		if err != nil {
			return reply{}, fmt.Errorf("bad bulk length %q", line)
		}
		if n < 0 {
			return reply{kind: '$', null: true}, nil
		}
		buf := make([]byte, n+2)
		if _, err := io.ReadFull(c.br, buf); err != nil {
			return reply{}, err
		}
		return reply{kind: '$', str: string(buf[:n])}, nil
	case '*':
		n, err := strconv.Atoi(line[1:])
		if err != nil || n < 0 {
			return reply{}, fmt.Errorf("bad array length %q", line)
		}
		items := make([]reply, 0, n)
		for i := 0; i < n; i++ {
			item, err := c.readReply()
			if err != nil {
				return reply{}, err
			}
			items = append(items, item)
		}
		return reply{kind: '*', items: items}, nil
	}
	return reply{}, fmt.Errorf("unexpected reply %q", line)
}

// err converts an error reply into a Go error, nil otherwise.
func (r reply) err() error {
	if r.kind == '-' {
		return fmt.Errorf("%s", strings.TrimPrefix(r.str, "ERR "))
	}
	return nil
}
