package httptransport

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"claw-colosseum/internal/logging"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog/v3"
)

// routeParams are lifted out of the URL into their own log fields.
var routeParams = []string{"match_id", "agent_id"}

// APILogMiddleware writes one JSON access line per request to the log sink.
func APILogMiddleware() func(http.Handler) http.Handler {
	return httplog.RequestLogger(
		slog.New(slog.NewJSONHandler(logging.Writer(), nil)),
		&httplog.Options{
			Level:         slog.LevelInfo,
			Schema:        httplog.Schema{ResponseStatus: "status", ResponseDuration: "duration_ms"},
			LogExtraAttrs: routeAttrs,
		},
	)
}

func routeAttrs(req *http.Request, _ string, _ int) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("request_id", chimw.GetReqID(req.Context())),
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
	}
	rc := chi.RouteContext(req.Context())
	if rc == nil {
		return append(attrs, slog.String("route", req.URL.Path))
	}
	route := rc.RoutePattern()
	if route == "" {
		route = req.URL.Path
	}
	attrs = append(attrs, slog.String("route", route))
	for _, key := range routeParams {
		if v := rc.URLParam(key); v != "" {
			attrs = append(attrs, slog.String(key, v))
		}
	}
	return attrs
}

// BodyCaptureMiddleware attaches the request and response bodies, cut at
// limit bytes, to the access line. Streams are passed through untouched.
func BodyCaptureMiddleware(limit int) func(http.Handler) http.Handler {
	if limit <= 0 {
		limit = 4096
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isStreamRequest(r) {
				next.ServeHTTP(w, r)
				return
			}
			reqBody, _ := io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(reqBody))

			cw := &captureWriter{ResponseWriter: w, limit: limit}
			next.ServeHTTP(cw, r)

			reqLog, reqCut := clip(reqBody, limit)
			httplog.SetAttrs(r.Context(),
				slog.Any("request_body", bodyLogValue(reqLog)),
				slog.Any("response_body", bodyLogValue(cw.body.Bytes())),
				slog.Bool("request_body_truncated", reqCut),
				slog.Bool("response_body_truncated", cw.cut),
			)
		})
	}
}

type captureWriter struct {
	http.ResponseWriter
	body  bytes.Buffer
	limit int
	cut   bool
}

func (c *captureWriter) Write(p []byte) (int, error) {
	if room := c.limit - c.body.Len(); room > 0 {
		kept, cut := clip(p, room)
		c.body.Write(kept)
		c.cut = c.cut || cut
	} else if len(p) > 0 {
		c.cut = true
	}
	return c.ResponseWriter.Write(p)
}

func (c *captureWriter) Flush() {
	if f, ok := c.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func clip(b []byte, n int) ([]byte, bool) {
	if len(b) > n {
		return b[:n], true
	}
	return b, false
}

// bodyLogValue logs JSON bodies as structured values and anything else as text.
func bodyLogValue(b []byte) any {
	if len(b) == 0 {
		return ""
	}
	var out any
	if json.Unmarshal(b, &out) == nil {
		return out
	}
	return string(b)
}

func isStreamRequest(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/event-stream") ||
		strings.HasSuffix(r.URL.Path, "/events")
}

func WriteHTTPError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]any{"error": code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// AdminAuthMiddleware guards operator routes with the admin key, taken from
// X-Admin-Key or a bearer token. An empty key leaves the routes open.
func AdminAuthMiddleware(adminKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if adminKey != "" && !CheckAdminAuth(r, adminKey) {
				WriteHTTPError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func CheckAdminAuth(r *http.Request, adminKey string) bool {
	presented := r.Header.Get("X-Admin-Key")
	if presented == "" {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			return false
		}
		presented = token
	}
	return presented != "" && subtle.ConstantTimeCompare([]byte(presented), []byte(adminKey)) == 1
}

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// ParsePagination reads limit and offset, clamping limit to [1, 500].
// Unparseable values fall back to the defaults.
func ParsePagination(r *http.Request) (limit, offset int) {
	limit, offset = defaultPageSize, 0
	q := r.URL.Query()
	if n, err := strconv.Atoi(q.Get("limit")); err == nil {
		limit = min(max(n, 1), maxPageSize)
	}
	if n, err := strconv.Atoi(q.Get("offset")); err == nil {
		offset = max(n, 0)
	}
	return limit, offset
}
