package server

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/estate-crm/internal/model"
)

const (
	headerRequestID = "X-Request-Id"
	headerStaffID   = "X-Staff-Id"
	headerStaffName = "X-Staff-Name"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	actorKey
)

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(headerRequestID, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusResponseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.String("request_id", requestIDFrom(r.Context())),
		)
	})
}

type statusResponseWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusResponseWriter) WriteHeader(statusCode int) {
	w.status = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

// Hijack lets WebSocket upgrades pass through the logger.
func (w *statusResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, eris.New("server: response writer cannot hijack")
	}
	w.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// actorFrom reads the acting staff member from headers, falling back to
// query parameters for WebSocket clients that cannot set headers.
func actorFrom(r *http.Request) (model.Actor, bool) {
	a := model.Actor{
		ID:   strings.TrimSpace(r.Header.Get(headerStaffID)),
		Name: strings.TrimSpace(r.Header.Get(headerStaffName)),
	}
	if a.ID == "" {
		q := r.URL.Query()
		a.ID = strings.TrimSpace(q.Get("staff_id"))
		a.Name = strings.TrimSpace(q.Get("staff_name"))
	}
	if a.Name == "" {
		a.Name = a.ID
	}
	return a, a.ID != ""
}

func requireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a, ok := actorFrom(r)
		if !ok {
			writeError(w, r, http.StatusUnauthorized, "unauthorized", "staff identity is required", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey, a)))
	})
}

func actorFromContext(ctx context.Context) model.Actor {
	a, _ := ctx.Value(actorKey).(model.Actor)
	return a
}
