package httpapi

import (
	"net/http"
	"strings"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/webchat/schema"
)

type responseRecorder struct {
	status  int
	bytes   int64
	kind    schema.MessageKind
	outcome schema.ActionOutcome
	writer  http.ResponseWriter
}

// noteMessage attaches the relay message kind and outcome to the request
// log line written once the handler returns.
func noteMessage(w http.ResponseWriter, kind schema.MessageKind, outcome schema.ActionOutcome) {
	if rec, ok := w.(*responseRecorder); ok {
		rec.kind = kind
		rec.outcome = outcome
	}
}

func (r *responseRecorder) Header() http.Header {
	return r.writer.Header()
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.writer.WriteHeader(status)
}

func (r *responseRecorder) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.writer.Write(p)
	r.bytes += int64(n)
	return n, err
}

func (r *responseRecorder) Flush() {
	if f, ok := r.writer.(http.Flusher); ok {
		f.Flush()
	}
}

func withRequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &responseRecorder{writer: w}
		next.ServeHTTP(rec, r)
		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		logger := pslog.Ctx(r.Context()).With("remote", clientIP(r))
		// Tokens travel in the query for event streams; never log it.
		path := r.URL.Path
		if audience := r.URL.Query().Get("audience"); audience != "" {
			logger = logger.With("audience", audience)
		}
		if rec.kind != "" {
			logger = logger.With("kind", rec.kind)
		}
		if rec.outcome != "" {
			logger = logger.With("outcome", rec.outcome)
		}
		if status >= http.StatusInternalServerError {
			logger.Warn("http request failed", "method", r.Method, "path", path, "status", status, "duration_ms", time.Since(start).Milliseconds())
			return
		}
		logger.Info("http request", "method", r.Method, "path", path, "status", status, "bytes", rec.bytes, "duration_ms", time.Since(start).Milliseconds())
		logger.Debug("http request details", "ua", r.UserAgent())
	})
}

func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	return r.RemoteAddr
}
