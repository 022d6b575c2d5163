package middleware

import (
	"log"
	"net/http"
	"strings"
	"time"

	"tailor-pos/internal/timeutil"
)

// slowRequest marks access-log lines worth a look
const slowRequest = 2 * time.Second

type accessEntry struct {
	at       time.Time
	method   string
	path     string
	status   int
	duration time.Duration
	size     int
	ip       string
}

// APILogger writes one access-log line per API request from a background
// goroutine so a slow log sink never holds up a checkout
type APILogger struct {
	entries chan accessEntry
	logf    func(format string, args ...any)
}

func NewAPILogger() *APILogger {
	m := &APILogger{
		entries: make(chan accessEntry, 1000),
		logf:    log.Printf,
	}
	go m.run()
	return m
}

func (m *APILogger) run() {
	for e := range m.entries {
		flag := ""
		if e.duration >= slowRequest {
			flag = " SLOW"
		}
		m.logf("[API] %s %s %s -> %d %dB in %s from %s%s",
			e.at.Format("15:04:05"), e.method, e.path, e.status, e.size,
			e.duration.Round(time.Millisecond), e.ip, flag)
	}
}

// Close stops the writer after draining queued lines
func (m *APILogger) Close() {
	close(m.entries)
}

func (m *APILogger) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if shouldSkipLogging(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		entry := accessEntry{
			at:       timeutil.Now(),
			method:   r.Method,
			path:     sanitizePath(r.URL.Path),
			status:   wrapped.statusCode,
			duration: time.Since(start),
			size:     wrapped.bytes,
			ip:       getClientIP(r),
		}
		select {
		case m.entries <- entry:
		default:
			log.Printf("[API] log buffer full, dropping entry for %s", entry.path)
		}
	})
}

// shouldSkipLogging returns true for paths that shouldn't be logged
func shouldSkipLogging(path string) bool {
	for _, skip := range []string{"/health", "/metrics", "/ws", "/favicon.ico"} {
		if strings.HasPrefix(path, skip) {
			return true
		}
	}
	return false
}

func sanitizePath(path string) string {
	if len(path) > 500 {
		path = path[:500]
	}
	return path
}

// getClientIP extracts the client IP from the request
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}
