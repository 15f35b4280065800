package main

import (
	"bufio"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// readLines streams response lines on a channel until the body closes.
func readLines(resp *http.Response) <-chan string {
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()
	return lines
}

func TestKeepaliveOnIdleStream(t *testing.T) {
	const interval = 50 * time.Millisecond

	idle := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	})

	srv := httptest.NewServer(sseWithKeepalive(idle, interval))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	lines := readLines(resp)
	deadline := time.After(5 * time.Second)
	seen := 0
	for seen < 2 {
		select {
		case line, ok := <-lines:
			if !ok {
				t.Fatal("stream closed before two keepalives")
			}
			if strings.TrimSpace(line) == ": keepalive" {
				seen++
			}
		case <-deadline:
			t.Fatalf("timed out waiting for keepalives (saw %d)", seen)
		}
	}
}

func TestKeepaliveDoesNotSplitEvents(t *testing.T) {
	const interval = 30 * time.Millisecond

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		time.Sleep(interval / 2)
		w.Write([]byte("event: message\ndata: {\"id\":1}\n\n"))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	})

	srv := httptest.NewServer(sseWithKeepalive(handler, interval))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	lines := readLines(resp)
	deadline := time.After(5 * time.Second)
	sawData, sawKeepalive := false, false
	for !sawData || !sawKeepalive {
		select {
		case line, ok := <-lines:
			if !ok {
				t.Fatal("stream closed early")
			}
			switch strings.TrimSpace(line) {
			case ": keepalive":
				sawKeepalive = true
			case `data: {"id":1}`:
				sawData = true
			case "event: message", "":
			default:
				t.Errorf("unexpected line %q", line)
			}
		case <-deadline:
			t.Fatalf("timed out (data=%v keepalive=%v)", sawData, sawKeepalive)
		}
	}
}

func TestKeepalivePassThrough(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := w.(*lockedWriter); ok {
			t.Errorf("%s request was wrapped", r.Method)
		}
		w.WriteHeader(http.StatusAccepted)
	})

	tests := []struct {
		name     string
		interval time.Duration
		method   string
	}{
		{"post", 50 * time.Millisecond, http.MethodPost},
		{"disabled", 0, http.MethodGet},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(tt.method, "/sse", strings.NewReader("{}"))
			sseWithKeepalive(inner, tt.interval).ServeHTTP(rec, req)
			if rec.Code != http.StatusAccepted {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusAccepted)
			}
		})
	}
}
