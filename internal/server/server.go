// Package server assembles all HTTP handlers and starts the server.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/matthewbaird/dashgen/internal/crud"
	"github.com/matthewbaird/dashgen/internal/generator"
	"github.com/matthewbaird/dashgen/internal/handler"
	"github.com/matthewbaird/dashgen/internal/wire"
)

// Config holds server configuration. Drafts and History are optional.
type Config struct {
	Port      int
	Log       logrus.FieldLogger
	Generator *generator.Service
	Modules   *crud.Registry
	Records   *crud.Service
	Drafts    handler.DraftStore
	History   handler.RunLister
	Sessions  *wire.Sessions
}

// NewRouter registers every route on a chi router.
func NewRouter(cfg Config) http.Handler {
	log := cfg.Log
	if cfg.Sessions == nil {
		cfg.Sessions = wire.NewSessions()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(handler.Recovery(log))
	r.Use(handler.Logging(log))

	// Health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","modules":%d,"previews":%d}`, len(cfg.Modules.Names()), cfg.Sessions.Len())
	})

	// --- Generator ---
	gh := handler.NewGenerateHandler(cfg.Generator, log)
	r.Post("/api/generate", gh.Generate)
	r.Post("/api/preview", gh.Preview)
	r.Method(http.MethodGet, "/ws/preview", wire.NewHandler(cfg.Sessions, cfg.Generator, log))

	if cfg.Drafts != nil {
		dh := handler.NewDraftHandler(cfg.Drafts, log)
		r.Get("/api/drafts", dh.List)
		r.Post("/api/drafts", dh.Save)
		r.Get("/api/drafts/{id}", dh.Get)
		r.Delete("/api/drafts/{id}", dh.Delete)
	}
	if cfg.History != nil {
		r.Get("/api/generations", handler.NewHistoryHandler(cfg.History, log).List)
	}

	// --- Generated module runtime ---
	mh := handler.NewModuleHandler(cfg.Modules, cfg.Records, log)
	r.Route("/api/generate/{module}/v1", mh.Routes)
	r.Route("/api/{module}/v1", mh.Routes)

	return r
}

// shutdownTimeout bounds how long Run waits for in-flight requests.
const shutdownTimeout = 30 * time.Second

// Run starts the HTTP server. When ctx is done it stops accepting requests and
// returns only after the in-flight ones have finished.
func Run(ctx context.Context, cfg Config) error {
	addr := fmt.Sprintf(":%d", cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	cfg.Log.WithFields(logrus.Fields{"addr": addr, "modules": cfg.Modules.Names()}).Info("starting server")
	return serve(ctx, ln, NewRouter(cfg), cfg.Log)
}

func serve(ctx context.Context, ln net.Listener, h http.Handler, log logrus.FieldLogger) error {
	server := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	quit := make(chan struct{})
	shutdown := make(chan error, 1)
	go func() {
		select {
		case <-ctx.Done():
		case <-quit:
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		shutdown <- server.Shutdown(shutdownCtx)
	}()

	if err := server.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		close(quit)
		return err
	}
	// Serve returns as soon as Shutdown begins; wait for it to drain.
	if err := <-shutdown; err != nil {
		log.WithError(err).Warn("server shutdown")
		return err
	}
	return nil
}
