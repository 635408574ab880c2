package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/rest/logger"
	"github.com/go-pkgz/routegroup"

	"github.com/tritonhub/tritonhub/pkg/domain"
	"github.com/tritonhub/tritonhub/pkg/pipeline"
)

// Server represents HTTP server instance
type Server struct {
	config  ConfigProvider
	feed    Feed
	store   Store
	parser  Parser // nil when the LLM parser is disabled
	loc     *time.Location
	version string
	debug   bool

	lock       sync.Mutex
	httpServer *http.Server
	router     *routegroup.Bundle
}

// Feed interface for snapshot access and on-demand sync
type Feed interface {
	Snapshot() (*pipeline.Snapshot, error)
	SyncNow(ctx context.Context) (*pipeline.Snapshot, error)
	LastError() error
}

// Store interface for notification and item state operations
type Store interface {
	ListNotifications(ctx context.Context, userID string) ([]domain.Notification, error)
	CreateNotification(ctx context.Context, n *domain.Notification) error
	SetNotificationCompleted(ctx context.Context, userID string, id int64, completed bool) error
	MarkItemRead(ctx context.Context, userID, itemID string) error
	MarkItemCompleted(ctx context.Context, userID, itemID string) error
}

// Parser interface for free-form notification text parsing
type Parser interface {
	Parse(ctx context.Context, text string) ([]domain.Notification, error)
}

// ConfigProvider provides server configuration
type ConfigProvider interface {
	GetServerConfig() (listen string, timeout time.Duration)
}

// New initializes a new server instance. Parser may be nil.
func New(cfg ConfigProvider, feed Feed, store Store, parser Parser, loc *time.Location, version string, debug bool) *Server {
	if loc == nil {
		loc = time.Local
	}
	s := &Server{
		config:  cfg,
		feed:    feed,
		store:   store,
		parser:  parser,
		loc:     loc,
		version: version,
		debug:   debug,
		router:  routegroup.New(http.NewServeMux()),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Run starts the HTTP server and handles graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	listen, timeout := s.config.GetServerConfig()
	log.Printf("[INFO] starting server on %s", listen)

	s.lock.Lock()
	s.httpServer = &http.Server{
		Addr:         listen,
		Handler:      s.router,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	}
	s.lock.Unlock()

	go func() {
		<-ctx.Done()
		log.Printf("[INFO] shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("[WARN] server shutdown error: %v", err)
		}
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}

	return nil
}

// setupMiddleware configures standard middleware for the server
func (s *Server) setupMiddleware() {
	s.router.Use(rest.AppInfo("tritonhub", "tritonhub", s.version))
	s.router.Use(rest.Ping)

	if s.debug {
		s.router.Use(logger.New(logger.Log(lgr.Default()), logger.Prefix("[DEBUG]")).Handler)
	}

	s.router.Use(rest.Recoverer(lgr.Default()))
	s.router.Use(rest.Throttle(100))
	s.router.Use(rest.SizeLimit(1024 * 1024)) // 1MB
}

// setupRoutes configures application routes
func (s *Server) setupRoutes() {
	s.router.Mount("/api/v1").Route(func(r *routegroup.Bundle) {
		r.HandleFunc("GET /status", s.statusHandler)
		r.HandleFunc("POST /sync", s.syncHandler)
		r.HandleFunc("GET /feed", s.feedHandler)
		r.HandleFunc("GET /courses", s.coursesHandler)
		r.HandleFunc("GET /calendar", s.calendarHandler)

		r.HandleFunc("GET /notifications", s.listNotificationsHandler)
		r.HandleFunc("POST /notifications", s.createNotificationHandler)
		r.HandleFunc("POST /notifications/parse", s.parseNotificationsHandler)
		r.HandleFunc("PUT /notifications/{id}/complete", s.completeNotificationHandler)

		r.HandleFunc("POST /items/{id}/read", s.markItemReadHandler)
		r.HandleFunc("POST /items/{id}/complete", s.markItemCompletedHandler)
	})
}

// renderJSON sends JSON response
func renderJSON(w http.ResponseWriter, _ *http.Request, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("[ERROR] can't encode response to JSON: %v", err)
		}
	}
}

// renderError sends error response as JSON
func renderError(w http.ResponseWriter, r *http.Request, err error, code int) {
	errMsg := "unknown error"
	if err != nil {
		errMsg = err.Error()
	}
	renderJSON(w, r, code, map[string]string{"error": errMsg})
}
