// Package server exposes the CRM over HTTP: a JSON API for clients, imports,
// activity and stats, and a WebSocket endpoint that drives inline editing
// against a live client grid.
package server

import (
	"context"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/estate-crm/internal/config"
	"github.com/sells-group/estate-crm/internal/crm"
	"github.com/sells-group/estate-crm/internal/monitoring"
	"github.com/sells-group/estate-crm/internal/store"
)

// Deps are the collaborators a Server is built from.
type Deps struct {
	Store         store.Store
	Service       *crm.Service
	Collector     *monitoring.Collector
	Server        config.ServerConfig
	Import        config.ImportConfig
	LookbackHours int
}

// Server serves the CRM API.
type Server struct {
	st        store.Store
	svc       *crm.Service
	collector *monitoring.Collector
	cfg       config.ServerConfig
	importCfg config.ImportConfig
	lookback  int

	imports  *rate.Limiter
	validate *validator.Validate
	upgrader websocket.Upgrader
}

// New creates a Server.
func New(d Deps) *Server {
	perMin := d.Server.ImportRatePerMin
	if perMin <= 0 {
		perMin = 30
	}
	s := &Server{
		st:        d.Store,
		svc:       d.Service,
		collector: d.Collector,
		cfg:       d.Server,
		importCfg: d.Import,
		lookback:  d.LookbackHours,
		imports:   rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMin)), perMin),
		validate:  newValidator(),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// Handler builds the routing tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(logRequests)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", headerRequestID, headerStaffID, headerStaffName},
		ExposedHeaders:   []string{headerRequestID},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/clients", s.handleListClients)
		r.Get("/clients/export", s.handleExportClients)
		r.Get("/clients/{id}", s.handleGetClient)
		r.Get("/activity", s.handleListActivity)
		r.Get("/stats", s.handleStats)
		r.Get("/sheets", s.handleListSheets)
		r.Get("/ws", s.handleWS)

		r.Group(func(r chi.Router) {
			r.Use(requireActor)
			r.Patch("/clients/{id}", s.handleUpdateField)
			r.Delete("/clients/{id}", s.handleDeleteClient)
			r.Post("/clients/{id}/comments", s.handleAddComment)
			r.Post("/imports", s.handleImport)
			r.Put("/sheets/{id}", s.handleUpsertSheet)
		})
	})

	return r
}

// ListenAndServe serves on port until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	zap.L().Info("starting server", zap.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server: listen")
	}
	return nil
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]string{"status": "ok"}
	if _, err := s.st.ListSheets(r.Context()); err != nil {
		status = http.StatusServiceUnavailable
		body = map[string]string{"status": "degraded", "error": err.Error()}
	}
	writeJSON(w, status, body)
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.cfg.CORSAllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}
