package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog/v3"
	"github.com/rs/zerolog"

	"ionia-ingest/internal/auth"
	"ionia-ingest/internal/logging"
)

type teamContextKey struct{}
type adminContextKey struct{}

// TeamFromContext returns the team identity the auth gate attached.
func TeamFromContext(ctx context.Context) (string, bool) {
	teamID, ok := ctx.Value(teamContextKey{}).(string)
	return teamID, ok && teamID != ""
}

// IsAdmin reports whether the auth gate marked the request admin-scoped.
func IsAdmin(ctx context.Context) bool {
	v, ok := ctx.Value(adminContextKey{}).(bool)
	return ok && v
}

// BearerAuthMiddleware is the sole authorization checkpoint. Public paths
// pass through untouched; /admin/* is checked against the configured admin
// bearer; everything else must carry a bearer that resolves to a team, which
// is attached to the request context for the handlers to trust.
func BearerAuthMiddleware(keyring *auth.Keyring, publicPaths map[string]struct{}) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			if _, ok := publicPaths[path]; ok || strings.HasPrefix(path, "/docs") {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				WriteHTTPError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			bearer := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
			if bearer == "" {
				WriteHTTPError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			if strings.HasPrefix(path, "/admin/") {
				if !keyring.AdminConfigured() {
					WriteHTTPError(w, http.StatusServiceUnavailable, "admin bearer not configured")
					return
				}
				if !keyring.IsAdminBearer(bearer) {
					WriteHTTPError(w, http.StatusUnauthorized, "invalid admin bearer")
					return
				}
				ctx := context.WithValue(r.Context(), adminContextKey{}, true)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			teamID, ok := keyring.ResolveTeam(bearer)
			if !ok {
				WriteHTTPError(w, http.StatusUnauthorized, "invalid bearer token")
				return
			}
			ctx := context.WithValue(r.Context(), teamContextKey{}, teamID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// APILogMiddleware logs every request as one JSON line through the shared
// log writer.
func APILogMiddleware() func(http.Handler) http.Handler {
	return httplog.RequestLogger(
		slog.New(slog.NewJSONHandler(logging.Writer(), &slog.HandlerOptions{})),
		&httplog.Options{
			Level:              slog.LevelInfo,
			Schema:             httplog.Schema{ResponseStatus: "status", ResponseDuration: "duration_ms"},
			LogRequestBody:     func(*http.Request) bool { return false },
			LogResponseBody:    func(*http.Request) bool { return false },
			LogRequestHeaders:  []string{},
			LogResponseHeaders: []string{},
			LogExtraAttrs: func(req *http.Request, _ string, _ int) []slog.Attr {
				rc := chi.RouteContext(req.Context())
				route := req.URL.Path
				if rc != nil && rc.RoutePattern() != "" {
					route = rc.RoutePattern()
				}
				return []slog.Attr{
					slog.String("request_id", chimw.GetReqID(req.Context())),
					slog.String("method", req.Method),
					slog.String("route", route),
					slog.String("path", req.URL.Path),
				}
			},
		},
	)
}

// BodyCaptureMiddleware attaches request and response bodies to the request
// log line when debug logging is on. /activate is never captured; its body
// carries credential material.
func BodyCaptureMiddleware(maxCaptureBytes int) func(http.Handler) http.Handler {
	if maxCaptureBytes <= 0 {
		maxCaptureBytes = 4096
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if zerolog.GlobalLevel() > zerolog.DebugLevel || r.URL.Path == "/activate" {
				next.ServeHTTP(w, r)
				return
			}
			reqBody, err := io.ReadAll(r.Body)
			if err != nil {
				reqBody = nil
			}
			r.Body = io.NopCloser(bytes.NewReader(reqBody))

			cw := &captureWriter{ResponseWriter: w, maxBytes: maxCaptureBytes}
			next.ServeHTTP(cw, r)

			reqLog := reqBody
			if len(reqLog) > maxCaptureBytes {
				reqLog = reqLog[:maxCaptureBytes]
			}
			if len(reqLog) > 0 {
				httplog.SetAttrs(r.Context(), slog.Any("request_body", parseMaybeJSON(reqLog)))
			} else {
				httplog.SetAttrs(r.Context(), slog.Any("request_body", ""))
			}
			httplog.SetAttrs(r.Context(), slog.Any("response_body", parseMaybeJSON(cw.body.Bytes())))
			httplog.SetAttrs(r.Context(), slog.Bool("request_body_truncated", len(reqBody) > maxCaptureBytes))
			httplog.SetAttrs(r.Context(), slog.Bool("response_body_truncated", cw.truncated))
		})
	}
}

type captureWriter struct {
	http.ResponseWriter
	body      bytes.Buffer
	maxBytes  int
	truncated bool
}

func (c *captureWriter) Write(p []byte) (int, error) {
	if !c.truncated {
		remain := c.maxBytes - c.body.Len()
		if remain > 0 {
			if len(p) <= remain {
				_, _ = c.body.Write(p)
			} else {
				_, _ = c.body.Write(p[:remain])
				c.truncated = true
			}
		} else {
			c.truncated = true
		}
	}
	return c.ResponseWriter.Write(p)
}

func parseMaybeJSON(b []byte) any {
	if len(b) == 0 {
		return ""
	}
	var out any
	if err := json.Unmarshal(b, &out); err == nil {
		return out
	}
	return string(b)
}

// WriteHTTPError emits the error envelope every failure path uses.
func WriteHTTPError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": message})
}
