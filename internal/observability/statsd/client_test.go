package statsd

import (
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"
)

func TestMetricName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		prefix, name, want string
	}{
		{"pasta", "job.transition", "pasta.job.transition"},
		{"pasta", " job/admit ", "pasta.job_admit"},
		{"", "reaper..requeued", "reaper.requeued"},
		{"pasta", "  ", ""},
	}

	for _, tt := range tests {
		if got := metricName(tt.prefix, tt.name); got != tt.want {
			t.Fatalf("metricName(%q, %q) = %q, want %q", tt.prefix, tt.name, got, tt.want)
		}
	}
}

func TestLineMergesTags(t *testing.T) {
	t.Parallel()

	c := &Client{
		prefix:     "pasta",
		globalTags: trimTags(map[string]string{"env": "prod", " service ": " runner "}),
	}

	got := c.line("job.transition", "1", "c", map[string]string{"result": " success ", "": "ignored", "env": "stage"})
	want := "pasta.job.transition:1|c|#env:stage,result:success,service:runner"
	if got != want {
		t.Fatalf("line mismatch\n got: %q\nwant: %q", got, want)
	}

	if got := c.line("queue.depth", "3", "g", nil); got != "pasta.queue.depth:3|g|#env:prod,service:runner" {
		t.Fatalf("unexpected gauge line %q", got)
	}
}

func TestClientWritesOverConnection(t *testing.T) {
	t.Parallel()

	clientConn, peerConn := net.Pipe()
	defer peerConn.Close()

	c := &Client{prefix: "pasta", globalTags: map[string]string{}, logger: slog.Default(), conn: clientConn}

	done := make(chan string, 1)
	go func() {
		buf := make([]byte, 256)
		n, _ := peerConn.Read(buf)
		done <- string(buf[:n])
	}()

	c.Timing("job.duration", 1500*time.Millisecond, map[string]string{"transition": "complete"})

	select {
	case got := <-done:
		if got != "pasta.job.duration:1500|ms|#transition:complete" {
			t.Fatalf("unexpected payload %q", got)
		}
	case <-time.After(time.Second):
		t.Fatal("no metric written")
	}
}

func TestClientEnabledAndClose(t *testing.T) {
	t.Parallel()

	clientConn, peerConn := net.Pipe()
	defer peerConn.Close()

	c := &Client{conn: clientConn}
	if !c.Enabled() {
		t.Fatal("expected Enabled with an active connection")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if c.Enabled() {
		t.Fatal("expected Enabled to report false after Close")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close error: %v", err)
	}

	var nilClient *Client
	if nilClient.Enabled() {
		t.Fatal("nil client should report disabled")
	}
	nilClient.Count("noop", 1, nil)
	if err := nilClient.Close(); err != nil {
		t.Fatalf("nil client Close error: %v", err)
	}
}

func TestNewClientDisabledWithoutAddress(t *testing.T) {
	t.Parallel()

	c, err := NewClient(Config{Enabled: true, Address: "   "})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	if c.Enabled() {
		t.Fatal("expected client to stay disabled when address is empty")
	}
	c.Count("job.transition", 1, nil)
}

func TestNewClientDialError(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{Enabled: true, Address: "bad address"})
	if err == nil {
		t.Fatal("expected NewClient to error for invalid address")
	}
	if !strings.Contains(err.Error(), "statsd dial") {
		t.Fatalf("unexpected error: %v", err)
	}
}
