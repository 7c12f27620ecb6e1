package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"snesio/pkg/app/config"
)

const timeout = 5 * time.Second

func newTestApp(t *testing.T) *App {
	t.Helper()

	cfg := config.NewConfig()
	cfg.Gpio.Driver = "sim"
	cfg.Ports = map[int]config.PortConfig{
		1: {Latch: 26, Clock: 25, Data: 27, Cadence: "manual"},
		2: {Latch: 5, Clock: 6, Data: 13, Strategy: "peripheral", Interval: time.Millisecond},
	}
	cfg.Console.Interval = 5 * time.Millisecond

	a, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err = a.init(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func request(t *testing.T, a *App, method, target string, want int) []byte {
	t.Helper()

	res, err := a.web.Test(httptest.NewRequest(method, target, nil), int(timeout/time.Millisecond))
	if err != nil {
		t.Fatalf("%s %s: %v", method, target, err)
	}
	defer func() { _ = res.Body.Close() }()

	var b bytes.Buffer
	if _, err = b.ReadFrom(res.Body); err != nil {
		t.Fatal(err)
	}
	if res.StatusCode != want {
		t.Fatalf("%s %s: status %d, want %d: %s", method, target, res.StatusCode, want, b.String())
	}
	return b.Bytes()
}

func portResp(t *testing.T, a *App, id string) resp {
	t.Helper()

	var r resp
	if err := json.Unmarshal(request(t, a, http.MethodGet, "/port/"+id, http.StatusOK), &r); err != nil {
		t.Fatal(err)
	}
	return r
}

func TestPortRoutes(t *testing.T) {
	a := newTestApp(t)

	r := portResp(t, a, "1")
	if r.State != 0xFFFF || r.Status != "running" || len(r.Pressed) != 0 {
		t.Errorf("port 1 before the first commit = %+v", r)
	}

	// press B and Start on the emulated controller of port 1
	request(t, a, http.MethodPost, "/sim/1/0x0ff6", http.StatusOK)

	deadline := time.Now().Add(timeout)
	for r.State != 0x0FF6 {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for commit, port 1 = %+v", r)
		}
		request(t, a, http.MethodPost, "/port/1/trigger", http.StatusAccepted)
		time.Sleep(time.Millisecond)
		r = portResp(t, a, "1")
	}

	if r.Hex != "0x0ff6" || r.Bits != "011011111111" {
		t.Errorf("port 1 = %+v", r)
	}
	if strings.Join(r.Pressed, ",") != "B,Start" {
		t.Errorf("pressed = %v, want [B Start]", r.Pressed)
	}

	request(t, a, http.MethodGet, "/port/9", http.StatusNotFound)
	request(t, a, http.MethodGet, "/port/one", http.StatusBadRequest)
	request(t, a, http.MethodPost, "/sim/9/0x0fff", http.StatusNotFound)
	request(t, a, http.MethodPost, "/sim/1/buttons", http.StatusBadRequest)

	// a stopped port keeps its state and refuses triggers
	request(t, a, http.MethodPost, "/port/1/stop", http.StatusOK)
	if r = portResp(t, a, "1"); r.Status != "stopped" || r.State != 0x0FF6 {
		t.Errorf("port 1 after stop = %+v", r)
	}
	request(t, a, http.MethodPost, "/port/1/trigger", http.StatusConflict)

	request(t, a, http.MethodPost, "/port/1/start", http.StatusOK)
	request(t, a, http.MethodPost, "/port/1/start", http.StatusConflict)
	request(t, a, http.MethodPost, "/port/7/start", http.StatusNotFound)
	if r = portResp(t, a, "1"); r.Status != "running" || r.State != 0x0FF6 {
		t.Errorf("port 1 after restart = %+v", r)
	}
}

func TestDataRoute(t *testing.T) {
	a := newTestApp(t)

	request(t, a, http.MethodPost, "/sim/2/0x0eff", http.StatusOK)

	var data []resp
	deadline := time.Now().Add(timeout)
	for {
		if err := json.Unmarshal(request(t, a, http.MethodGet, "/data", http.StatusOK), &data); err != nil {
			t.Fatal(err)
		}
		if len(data) != 2 {
			t.Fatalf("%d ports, want 2", len(data))
		}
		if data[1].State == 0x0EFF {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for port 2: %+v", data[1])
		}
		time.Sleep(time.Millisecond)
	}

	if data[0].Port != 1 || data[1].Port != 2 {
		t.Errorf("ports aren't ordered: %d, %d", data[0].Port, data[1].Port)
	}
	if data[0].State != 0xFFFF {
		t.Errorf("manual port 1 committed %#04x without trigger", data[0].State)
	}
	if len(data[1].Pressed) != 1 || data[1].Pressed[0] != "A" {
		t.Errorf("port 2 pressed = %v, want [A]", data[1].Pressed)
	}
}

func TestDefaultRoutes(t *testing.T) {
	a := newTestApp(t)

	var v map[string]string
	if err := json.Unmarshal(request(t, a, http.MethodGet, "/version", http.StatusOK), &v); err != nil {
		t.Fatal(err)
	}
	if v["description"] != MODULE || v["version"] != VERSION {
		t.Errorf("version = %v", v)
	}

	var h struct {
		Version string
		Ready   bool
		Ports   map[string]string
	}
	if err := json.Unmarshal(request(t, a, http.MethodGet, "/health", http.StatusOK), &h); err != nil {
		t.Fatal(err)
	}
	if h.Ports["1"] != "running" || h.Ports["2"] != "running" {
		t.Errorf("health ports = %v", h.Ports)
	}

	a.ready.Set(true)
	var ready map[string]bool
	if err := json.Unmarshal(request(t, a, http.MethodGet, "/ready", http.StatusOK), &ready); err != nil {
		t.Fatal(err)
	}
	if !ready["ready"] {
		t.Error("ready = false after provisioning")
	}
}

func TestShouldPublish(t *testing.T) {
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		last     published
		sent     bool
		state    uint16
		interval time.Duration
		want     bool
	}{
		{"first message", published{}, false, 0xFFFF, time.Minute, true},
		{"state changed", published{0xFFFF, now}, true, 0x0FFE, time.Minute, true},
		{"unchanged", published{0x0FFE, now.Add(-time.Second)}, true, 0x0FFE, time.Minute, false},
		{"interval elapsed", published{0x0FFE, now.Add(-time.Minute)}, true, 0x0FFE, time.Minute, true},
		{"no interval", published{0x0FFE, now.Add(-time.Hour)}, true, 0x0FFE, 0, false},
	}

	for _, tc := range tests {
		if got := shouldPublish(tc.last, tc.sent, tc.state, now, tc.interval); got != tc.want {
			t.Errorf("%s: shouldPublish = %v, want %v", tc.name, got, tc.want)
		}
	}
}

// syncBuffer is a bytes.Buffer safe for one writer and one reader.
type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

func TestDumpConsole(t *testing.T) {
	a := newTestApp(t)

	var w syncBuffer
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.dumpConsole(ctx, &w)
		close(done)
	}()

	want := "1:111111111111\r\n2:111111111111\r\n"
	deadline := time.Now().Add(timeout)
	for !strings.HasPrefix(w.String(), want) {
		if time.Now().After(deadline) {
			cancel()
			t.Fatalf("console = %q, want prefix %q", w.String(), want)
		}
		time.Sleep(time.Millisecond)
	}

	cancel()
	<-done
}
