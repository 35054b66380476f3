// Package restserver exposes the analysis pipeline over HTTP.
package restserver

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/glucolab/agata/internal/log"
)

// Config holds the REST server settings.
type Config struct {
	ListenAddr     string
	Port           int
	TLSCertPath    string
	TLSKeyPath     string
	DefaultProfile string
}

// Controller represents the REST server controller
type Controller struct {
	ctx      context.Context
	wg       *sync.WaitGroup
	cfg      Config
	Server   http.Server
	logger   *zap.SugaredLogger
	handlers *Handlers
}

// NewController creates a new REST server controller
func NewController(ctx context.Context, wg *sync.WaitGroup, cfg Config, logger *zap.SugaredLogger) (*Controller, error) {
	if cfg.DefaultProfile == "" {
		cfg.DefaultProfile = "diabetes"
	}

	ctrl := &Controller{
		ctx:    ctx,
		wg:     wg,
		cfg:    cfg,
		logger: logger,
	}
	ctrl.handlers = NewHandlers(ctrl)

	router, err := ctrl.setupRouter()
	if err != nil {
		return nil, err
	}
	ctrl.Server.Addr = fmt.Sprintf("%v:%v", cfg.ListenAddr, cfg.Port)
	ctrl.Server.Handler = router
	ctrl.Server.ReadHeaderTimeout = 10 * time.Second

	return ctrl, nil
}

// StartController starts the REST server
func (c *Controller) StartController() error {
	log.Info("Starting REST server controller...")
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()

		if c.cfg.TLSCertPath != "" && c.cfg.TLSKeyPath != "" {
			if err := c.Server.ListenAndServeTLS(c.cfg.TLSCertPath, c.cfg.TLSKeyPath); err != http.ErrServerClosed {
				log.Errorf("REST server error: %v", err)
			}
		} else {
			if err := c.Server.ListenAndServe(); err != http.ErrServerClosed {
				log.Errorf("REST server error: %v", err)
			}
		}
	}()

	go func() {
		<-c.ctx.Done()
		log.Info("Shutting down the REST server...")
		c.Server.Shutdown(context.Background())
	}()

	return nil
}

// setupRouter configures the HTTP router with all endpoints
func (c *Controller) setupRouter() (http.Handler, error) {
	router := mux.NewRouter()

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/analyze", c.handlers.Analyze).Methods(http.MethodPost)
	api.HandleFunc("/compare", c.handlers.Compare).Methods(http.MethodPost)
	api.HandleFunc("/targets", c.handlers.ListTargets).Methods(http.MethodGet)
	api.HandleFunc("/health", c.handlers.Health).Methods(http.MethodGet)

	router.Use(c.requestLogger)

	return handlers.RecoveryHandler()(handlers.CompressHandler(router)), nil
}

// requestLogger logs each request with its handling time.
func (c *Controller) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		next.ServeHTTP(w, r)
		c.logger.Debugw("handled request",
			"method", r.Method,
			"path", r.URL.Path,
			"remote", r.RemoteAddr,
			"elapsed", time.Since(started),
		)
	})
}
