package statsd

import (
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"
)

func TestNormalizeMetricName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		" auth/login ":   "auth_login",
		"auth..login":    "auth.login",
		"multi  space":   "multi__space",
		".auth.resolve.": "auth.resolve",
	}
	for input, want := range tests {
		if got := normalizeMetricName(input); got != want {
			t.Fatalf("normalizeMetricName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestFormatTags(t *testing.T) {
	t.Parallel()

	global := map[string]string{
		"env": "prod",
		//nolint:gocritic // whitespace is part of the test case
		" service ": " civicdesk ",
	}
	local := map[string]string{
		"result": " success ",
		"":       "ignored",
		"env":    "stage",
	}

	got := formatTags(global, local)
	want := "|#env:stage,result:success,service:civicdesk"
	if got != want {
		t.Fatalf("formatTags mismatch\n got: %q\nwant: %q", got, want)
	}
	if got := formatTags(nil, nil); got != "" {
		t.Fatalf("formatTags(nil, nil) = %q, want empty string", got)
	}
}

func TestLineUsesPrefix(t *testing.T) {
	t.Parallel()

	c, err := NewClient(Config{Prefix: " .civicdesk. "})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	got := c.Line("auth.login", "1|c", map[string]string{"result": "ok"})
	if got != "civicdesk.auth.login:1|c|#result:ok" {
		t.Fatalf("unexpected line %q", got)
	}
	if c.Line("  ", "1|c", nil) != "" {
		t.Fatal("blank metric name should render nothing")
	}
}

func TestClientWritesOverConnection(t *testing.T) {
	t.Parallel()

	clientConn, peerConn := net.Pipe()
	defer peerConn.Close()

	c := &Client{conn: clientConn, logger: slog.Default()}
	if !c.Enabled() {
		t.Fatal("expected client.Enabled to report true with active connection")
	}

	got := make(chan string, 1)
	go func() {
		buf := make([]byte, 256)
		n, _ := peerConn.Read(buf)
		got <- string(buf[:n])
	}()
	c.Timing("auth.login.duration", 1500*time.Microsecond, nil)

	select {
	case line := <-got:
		if line != "auth.login.duration:1.5|ms" {
			t.Fatalf("unexpected line %q", line)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for metric")
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if c.Enabled() {
		t.Fatal("expected client.Enabled to report false after Close")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close (second call) error: %v", err)
	}
}

func TestNilClientIsSafe(t *testing.T) {
	t.Parallel()

	var c *Client
	c.Count("auth.login", 1, nil)
	if c.Enabled() {
		t.Fatal("nil client should report disabled")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("nil client Close error: %v", err)
	}
}

func TestNewClient(t *testing.T) {
	t.Parallel()

	c, err := NewClient(Config{Enabled: true, Address: "   "})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	if c.Enabled() {
		t.Fatal("expected client to stay disabled when address is empty")
	}

	_, err = NewClient(Config{Enabled: true, Address: "bad address"})
	if err == nil || !strings.Contains(err.Error(), "statsd dial") {
		t.Fatalf("expected dial error, got %v", err)
	}
}
