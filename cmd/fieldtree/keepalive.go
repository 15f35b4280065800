package main

import (
	"log/slog"
	"net/http"
	"sync"
	"time"
)

const defaultSSEKeepaliveInterval = 30 * time.Second

var keepaliveComment = []byte(": keepalive\n\n")

// lockedWriter serializes writes so keepalive comments never land in the
// middle of an SSE event written by the MCP handler.
type lockedWriter struct {
	http.ResponseWriter
	mu     sync.Mutex
	closed bool // set once the wrapped handler has returned
}

func (w *lockedWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ResponseWriter.Write(p)
}

func (w *lockedWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.flushLocked()
}

func (w *lockedWriter) flushLocked() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// ping writes one keepalive comment and reports whether the client is still
// reachable.
func (w *lockedWriter) ping() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return false
	}
	if _, err := w.ResponseWriter.Write(keepaliveComment); err != nil {
		slog.Debug("sse keepalive write failed", "error", err)
		return false
	}
	w.flushLocked()
	return true
}

// sseWithKeepalive sends an SSE comment every interval on GET streams so idle
// MCP sessions are not dropped. Other methods pass through untouched.
func sseWithKeepalive(next http.Handler, interval time.Duration) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || interval <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		lw := &lockedWriter{ResponseWriter: w}
		done := make(chan struct{})
		defer func() {
			close(done)
			lw.mu.Lock()
			lw.closed = true
			lw.mu.Unlock()
		}()

		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return
				case <-ticker.C:
					if !lw.ping() {
						return
					}
				}
			}
		}()

		next.ServeHTTP(lw, r)
	})
}
