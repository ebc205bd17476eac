package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/middleware"

	"github.com/frahmantamala/wallet-payments/internal/core/common/validation"
)

const filtered = "[FILTERED]"

// body fields matched by substring are dropped entirely
var secretFields = []string{
	"password",
	"token",
	"authorization",
	"secret",
	"api_key",
	"credential",
}

type redaction int

const (
	keep redaction = iota
	drop
	maskCard
	stripQuery
)

func redactionFor(key string) redaction {
	k := strings.ToLower(key)
	for _, s := range secretFields {
		if strings.Contains(k, s) {
			return drop
		}
	}
	switch k {
	case "cardnumber", "card_number":
		return maskCard
	case "payment_url", "paymenturl":
		// gateway session parameters travel in the query
		return stripQuery
	}
	return keep
}

func LoggingMiddleware(base *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			log := base.With("request_id", middleware.GetReqID(r.Context()))
			if traceID := w.Header().Get(TraceHeader); traceID != "" {
				log = log.With("trace_id", traceID)
			}

			var reqBody []byte
			if r.Body != nil {
				reqBody, _ = io.ReadAll(r.Body)
				r.Body = io.NopCloser(bytes.NewReader(reqBody))
			}

			log.Info("incoming request",
				"method", r.Method,
				"path", r.URL.Path,
				"query", r.URL.RawQuery,
				"remote_addr", r.RemoteAddr,
				"user_agent", r.UserAgent(),
				"headers", redactHeaders(r.Header),
				"body", redactBody(reqBody),
			)

			rec := &recordingWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			log.Log(r.Context(), levelFor(rec.status), "response",
				"status_code", rec.status,
				"duration_ms", time.Since(start).Milliseconds(),
				"response_size", rec.body.Len(),
				"body", redactBody(rec.body.Bytes()),
			)
		})
	}
}

func levelFor(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// recordingWriter keeps a copy of the response for the log line.
type recordingWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (rw *recordingWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *recordingWriter) Write(b []byte) (int, error) {
	rw.body.Write(b)
	return rw.ResponseWriter.Write(b)
}

func redactHeaders(headers http.Header) map[string]string {
	out := make(map[string]string, len(headers))
	for name, values := range headers {
		if redactionFor(name) == drop {
			out[name] = filtered
			continue
		}
		out[name] = strings.Join(values, ", ")
	}
	return out
}

func redactBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}

	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		lower := strings.ToLower(string(body))
		for _, s := range secretFields {
			if strings.Contains(lower, s) {
				return "[FILTERED - Contains sensitive data]"
			}
		}
		return string(body)
	}

	out, err := json.Marshal(redactValue(decoded))
	if err != nil {
		return "[ERROR - Failed to marshal filtered JSON]"
	}
	return string(out)
}

func redactValue(data any) any {
	switch v := data.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, value := range v {
			out[key] = redactField(key, value)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = redactValue(item)
		}
		return out
	default:
		return v
	}
}

func redactField(key string, value any) any {
	rule := redactionFor(key)
	if rule == drop {
		return filtered
	}

	s, ok := value.(string)
	if !ok {
		return redactValue(value)
	}
	switch rule {
	case maskCard:
		return validation.MaskCardNumber(s)
	case stripQuery:
		if u, err := url.Parse(s); err == nil && u.RawQuery != "" {
			u.RawQuery = ""
			return u.String() + "?" + filtered
		}
	}
	return s
}
