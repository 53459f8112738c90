// Package httpapi exposes menu sessions and the recognition proxy over HTTP.
//
// Responses use a JSON envelope (APIResponse) except for the recognition
// proxy, which returns the recognizer's payload unchanged, and the PNG
// preview endpoints.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/ironsheep/menu-lens/internal/logging"
	"github.com/ironsheep/menu-lens/internal/menu"
	"github.com/ironsheep/menu-lens/internal/ocr"
	"github.com/ironsheep/menu-lens/internal/session"
)

// DefaultMaxUploadBytes bounds request bodies when Options leaves it unset.
const DefaultMaxUploadBytes = 20 << 20

const shutdownTimeout = 10 * time.Second

// Options configures an API.
type Options struct {
	Sessions       *session.Registry
	Recognizer     ocr.Recognizer
	Menu           *menu.Map
	MaxUploadBytes int64
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	Logger         *slog.Logger
}

// API is the HTTP front end.
type API struct {
	handler *Handler
	router  *mux.Router
	opts    Options
	log     *slog.Logger
}

// New builds the router and middleware stack.
func New(opts Options) *API {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if opts.Menu == nil {
		opts.Menu = menu.New(nil)
	}

	a := &API{
		handler: &Handler{
			sessions:       opts.Sessions,
			recognizer:     opts.Recognizer,
			menu:           opts.Menu,
			maxUploadBytes: opts.MaxUploadBytes,
		},
		router: mux.NewRouter(),
		opts:   opts,
		log:    opts.Logger.With("component", "http"),
	}
	a.handler.RegisterRoutes(a.router)
	a.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writer(w, r).NotFound("no route for " + r.URL.Path)
	})
	return a
}

// Handler returns the routed handler wrapped in request ID, recovery and
// access logging middleware.
func (a *API) Handler() http.Handler {
	return Chain(a.router,
		RequestIDMiddleware(),
		LoggingMiddleware(a.log),
		RecoveryMiddleware(a.log),
	)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (a *API) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      a.Handler(),
		ReadTimeout:  a.opts.ReadTimeout,
		WriteTimeout: a.opts.WriteTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		a.log.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
