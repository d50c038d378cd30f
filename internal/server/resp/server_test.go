package respserver

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	cfgpkg "github.com/redbasin/basin/internal/config"
	"github.com/redbasin/basin/internal/metrics"
	"github.com/redbasin/basin/internal/runtime"
	pebblestore "github.com/redbasin/basin/internal/storage/pebble"
	"github.com/redbasin/basin/pkg/netutil"
)

func startTestServer(t *testing.T) *net.TCPAddr {
	t.Helper()
	rt, err := runtime.Open(runtime.Options{
		DataDir: t.TempDir(),
		Fsync:   pebblestore.FsyncModeNever,
		Config:  cfgpkg.Default(),
	})
	if err != nil {
		t.Fatalf("open runtime: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close() })

	srv := New(rt, Options{Metrics: metrics.New()})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = srv.Serve(ctx, ln) }()
	return ln.Addr().(*net.TCPAddr)
}

type testClient struct {
	t    *testing.T
	conn *net.TCPConn
	br   *bufio.Reader
}

func dialTest(t *testing.T, addr *net.TCPAddr) *testClient {
	t.Helper()
	conn, err := netutil.ConnectWithTimeout(addr.IP.String(), addr.Port, 2*time.Second, 2*time.Second)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return &testClient{t: t, conn: conn, br: bufio.NewReader(conn)}
}

func (c *testClient) send(args ...string) {
	c.t.Helper()
	var b strings.Builder
	fmt.Fprintf(&b, "*%d\r\n", len(args))
	for _, a := range args {
		fmt.Fprintf(&b, "$%d\r\n%s\r\n", len(a), a)
	}
	if err := netutil.SendAll(c.conn, []byte(b.String())); err != nil {
		c.t.Fatalf("send: %v", err)
	}
}

func (c *testClient) line() string {
	c.t.Helper()
	line, err := netutil.ReadLine(c.br)
	if err != nil {
		c.t.Fatalf("read line: %v", err)
	}
	return line
}

// readReply parses one reply into a string form usable in assertions:
// simple/error lines verbatim, integers as ":n", bulks as their payload,
// arrays as a flat space-joined list.
func (c *testClient) readReply() string {
	c.t.Helper()
	line := c.line()
	switch line[0] {
	case '+', '-', ':':
		return line
	case '$':
		n, _ := strconv.Atoi(line[1:])
		if n < 0 {
			return "<nil>"
		}
		payload := c.line()
		return payload
	case '*':
		n, _ := strconv.Atoi(line[1:])
		parts := make([]string, 0, n)
		for i := 0; i < n; i++ {
			parts = append(parts, c.readReply())
		}
		return strings.Join(parts, " ")
	}
	c.t.Fatalf("unexpected reply line %q", line)
	return ""
}

func TestPingEcho(t *testing.T) {
	addr := startTestServer(t)
	c := dialTest(t, addr)

	c.send("PING")
	if got := c.readReply(); got != "+PONG" {
		t.Fatalf("ping reply %q", got)
	}
	c.send("ECHO", "hello")
	if got := c.readReply(); got != "hello" {
		t.Fatalf("echo reply %q", got)
	}
}

func TestXAddAutoAndExplicit(t *testing.T) {
	addr := startTestServer(t)
	c := dialTest(t, addr)

	c.send("XADD", "s", "5-5", "k", "v")
	if got := c.readReply(); got != "5-5" {
		t.Fatalf("xadd reply %q", got)
	}
	c.send("XADD", "s", "5-*", "k", "v")
	if got := c.readReply(); got != "5-6" {
		t.Fatalf("xadd wildcard reply %q", got)
	}
	c.send("XADD", "s", "*", "k", "v")
	got := c.readReply()
	if strings.HasPrefix(got, "-") {
		t.Fatalf("auto xadd failed: %q", got)
	}
	c.send("XLEN", "s")
	if got := c.readReply(); got != ":3" {
		t.Fatalf("xlen %q", got)
	}
}

func TestXAddRejectsSmallAndMalformedIDs(t *testing.T) {
	addr := startTestServer(t)
	c := dialTest(t, addr)

	c.send("XADD", "s", "9-9", "k", "v")
	c.readReply()

	c.send("XADD", "s", "9-9", "k", "v")
	if got := c.readReply(); !strings.Contains(got, "equal or smaller") {
		t.Fatalf("expected too-small error, got %q", got)
	}
	c.send("XADD", "s", "abc", "k", "v")
	if got := c.readReply(); got != "-ERR Invalid stream ID specified as stream command argument" {
		t.Fatalf("expected invalid id error, got %q", got)
	}
	c.send("XADD", "s", "1-1", "k")
	if got := c.readReply(); !strings.HasPrefix(got, "-ERR wrong number of arguments") {
		t.Fatalf("expected arity error, got %q", got)
	}
}

func TestXRangeAndXRevRange(t *testing.T) {
	addr := startTestServer(t)
	c := dialTest(t, addr)

	for i := 1; i <= 3; i++ {
		c.send("XADD", "s", fmt.Sprintf("%d-0", i), "n", fmt.Sprintf("%d", i))
		c.readReply()
	}

	c.send("XRANGE", "s", "-", "+")
	got := c.readReply()
	if want := "1-0 n 1 2-0 n 2 3-0 n 3"; got != want {
		t.Fatalf("xrange got %q want %q", got, want)
	}

	c.send("XRANGE", "s", "(1-0", "+")
	if got := c.readReply(); got != "2-0 n 2 3-0 n 3" {
		t.Fatalf("exclusive start got %q", got)
	}

	c.send("XRANGE", "s", "-", "+", "COUNT", "2")
	if got := c.readReply(); got != "1-0 n 1 2-0 n 2" {
		t.Fatalf("count got %q", got)
	}

	c.send("XREVRANGE", "s", "+", "-")
	if got := c.readReply(); got != "3-0 n 3 2-0 n 2 1-0 n 1" {
		t.Fatalf("xrevrange got %q", got)
	}

	// Bare ms on an end bound covers the whole millisecond.
	c.send("XRANGE", "s", "2", "2")
	if got := c.readReply(); got != "2-0 n 2" {
		t.Fatalf("bare ms got %q", got)
	}
}

func TestXDel(t *testing.T) {
	addr := startTestServer(t)
	c := dialTest(t, addr)

	c.send("XADD", "s", "1-1", "k", "v")
	c.readReply()
	c.send("XADD", "s", "2-2", "k", "v")
	c.readReply()

	c.send("XDEL", "s", "1-1", "9-9")
	if got := c.readReply(); got != ":1" {
		t.Fatalf("xdel got %q", got)
	}
	c.send("XLEN", "s")
	if got := c.readReply(); got != ":1" {
		t.Fatalf("xlen after del got %q", got)
	}
}

func TestQuitClosesConnection(t *testing.T) {
	addr := startTestServer(t)
	c := dialTest(t, addr)

	c.send("QUIT")
	if got := c.readReply(); got != "+OK" {
		t.Fatalf("quit reply %q", got)
	}
	if _, err := netutil.ReadLine(c.br); err == nil {
		t.Fatalf("expected closed connection after QUIT")
	}
}

func TestUnknownCommand(t *testing.T) {
	addr := startTestServer(t)
	c := dialTest(t, addr)

	c.send("NOPE")
	if got := c.readReply(); !strings.HasPrefix(got, "-ERR unknown command") {
		t.Fatalf("got %q", got)
	}
}
