// Package http exposes the chat and doctor recommendation services over a
// JSON API built on gin.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"docseek/internal/core"
	"docseek/internal/db"
)

// Notifier publishes and subscribes to recommendation events. It is only
// available on Postgres.
type Notifier interface {
	Notify(ctx context.Context, threadID string) error
	Listen(ctx context.Context) (<-chan string, error)
}

// Server bundles together the dependencies required by HTTP handlers.
type Server struct {
	gin    *gin.Engine
	logger *zap.Logger
	port   int
	mode   string

	store    db.Store
	notifier Notifier
	chat     *core.ChatService
	doctors  *core.DoctorService
	router   *core.Router
	titles   *core.TitleGenerator

	messageCap   int
	historyLimit int
	limiter      *rateLimiter

	// background tracks title generation started by requests.
	background sync.WaitGroup
}

// Config is the dependency bag passed to New. Notifier and Titles are
// optional.
type Config struct {
	Logger *zap.Logger
	Port   int
	Mode   string

	Store    db.Store
	Notifier Notifier
	Chat     *core.ChatService
	Doctors  *core.DoctorService
	Router   *core.Router
	Titles   *core.TitleGenerator

	MessageCap      int
	HistoryLimit    int
	RateLimitPerMin int
}

// New creates a Server and registers its routes.
func New(cfg Config) (*Server, error) {
	srv := &Server{
		logger:       cfg.Logger,
		port:         cfg.Port,
		mode:         cfg.Mode,
		store:        cfg.Store,
		notifier:     cfg.Notifier,
		chat:         cfg.Chat,
		doctors:      cfg.Doctors,
		router:       cfg.Router,
		titles:       cfg.Titles,
		messageCap:   cfg.MessageCap,
		historyLimit: cfg.HistoryLimit,
	}
	if err := srv.validate(); err != nil {
		return nil, err
	}
	if cfg.RateLimitPerMin > 0 {
		srv.limiter = newRateLimiter(cfg.RateLimitPerMin)
	}

	registerValidations()
	gin.SetMode(srv.mode)
	srv.gin = gin.New()
	srv.mapHandlers()
	return srv, nil
}

func (srv *Server) validate() error {
	if srv.logger == nil {
		return errors.New("logger is required")
	}
	switch srv.mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
	default:
		return fmt.Errorf("unsupported gin mode %q", srv.mode)
	}
	if srv.store == nil {
		return errors.New("store is required")
	}
	if srv.chat == nil || srv.doctors == nil || srv.router == nil {
		return errors.New("chat, doctor and router services are required")
	}
	if srv.messageCap <= 0 {
		return errors.New("message cap must be positive")
	}
	return nil
}

// Handler returns the gin engine.
func (srv *Server) Handler() http.Handler { return srv.gin }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (srv *Server) Run(ctx context.Context) error {
	if srv.port == 0 {
		return errors.New("port is required")
	}
	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", srv.port),
		Handler:           srv.gin,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		srv.logger.Info("http server listening", zap.Int("port", srv.port))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	srv.logger.Info("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	err := httpSrv.Shutdown(shutdownCtx)
	srv.background.Wait()
	return err
}

func (srv *Server) mapHandlers() {
	srv.gin.Use(gin.Recovery(), requestLogger(srv.logger))

	srv.gin.GET("/health", srv.healthCheck)
	srv.gin.GET("/ready", srv.readyCheck)
	srv.gin.GET("/live", srv.liveCheck)

	api := srv.gin.Group("/api")
	if srv.limiter != nil {
		api.Use(rateLimit(srv.limiter))
	}
	api.POST("/threads", srv.createThread)
	api.GET("/threads/:id", srv.getThread)
	api.POST("/threads/:id/messages", srv.postMessage)
	api.GET("/threads/:id/stream", srv.streamThread)
	api.POST("/recommendations", srv.recommend)
	api.GET("/specialties", srv.listSpecialties)
	api.GET("/doctors/route", srv.routeDoctor)
}
