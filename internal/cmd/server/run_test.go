package serverrun

import (
	"bufio"
	"context"
	"testing"
	"time"

	cfgpkg "github.com/redbasin/basin/internal/config"
	pebblestore "github.com/redbasin/basin/internal/storage/pebble"
	"github.com/redbasin/basin/pkg/netutil"
)

func TestRunServesAndShutsDown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Options{
			DataDir:  t.TempDir(),
			RESPAddr: "127.0.0.1:16389",
			HTTPAddr: "127.0.0.1:18089",
			Fsync:    pebblestore.FsyncModeNever,
			Config:   cfgpkg.Default(),
		})
	}()

	// Wait for the RESP listener, then ping it.
	deadline := time.Now().Add(5 * time.Second)
	pinged := false
	for time.Now().Before(deadline) {
		tc, err := netutil.ConnectWithTimeout("127.0.0.1", 16389, time.Second, time.Second)
		if err != nil {
			time.Sleep(20 * time.Millisecond)
			continue
		}
		if err := netutil.SendAll(tc, []byte("*1\r\n$4\r\nPING\r\n")); err != nil {
			t.Fatalf("send: %v", err)
		}
		line, err := netutil.ReadLine(bufio.NewReader(tc))
		if err != nil || line != "+PONG" {
			t.Fatalf("ping got %q err %v", line, err)
		}
		_ = tc.Close()
		pinged = true
		break
	}
	if !pinged {
		t.Fatalf("resp listener never came up")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("run did not shut down")
	}
}

func TestGetenvDefault(t *testing.T) {
	old := getenv
	defer func() { getenv = old }()
	getenv = func(key string) string {
		if key == "SET" {
			return "v"
		}
		return ""
	}
	if got := getenvDefault("SET", "d"); got != "v" {
		t.Fatalf("got %q", got)
	}
	if got := getenvDefault("UNSET", "d"); got != "d" {
		t.Fatalf("got %q", got)
	}
}
