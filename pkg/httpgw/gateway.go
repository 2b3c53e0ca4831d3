// Package httpgw is an HTTP server capability provider. Each request is turned into one dispatch
// to the actor named in the path.
package httpgw

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/morezero/actor-dispatch/pkg/dispatcher"
)

const logPrefix = "httpgw:gateway"

// DefaultMaxBodyBytes caps request bodies when Config.MaxBodyBytes is zero.
const DefaultMaxBodyBytes = 1 << 20

// Dispatcher is the part of *dispatcher.Dispatcher the gateway needs.
type Dispatcher interface {
	Dispatch(ctx context.Context, actorID, operation string, payload []byte) ([]byte, error)
}

// Config holds gateway configuration.
type Config struct {
	Listen       string
	MaxBodyBytes int64
}

// Gateway serves POST /actors/{actorID}/{operation}.
type Gateway struct {
	config   Config
	disp     Dispatcher
	listener net.Listener
	server   *http.Server
}

// New creates a Gateway that dispatches through disp.
func New(config Config, disp Dispatcher) *Gateway {
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return &Gateway{config: config, disp: disp}
}

// Routes builds the gateway router.
func (g *Gateway) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Post("/actors/{actorID}/{operation}", g.handleDispatch)
	return r
}

// Listen binds the configured address without serving, so callers learn about a taken port before Start.
func (g *Gateway) Listen() error {
	if g.listener != nil {
		return nil
	}
	ln, err := net.Listen("tcp", g.config.Listen)
	if err != nil {
		return fmt.Errorf("%s - failed to listen on %s: %w", logPrefix, g.config.Listen, err)
	}
	g.listener = ln
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (g *Gateway) Addr() net.Addr {
	if g.listener == nil {
		return nil
	}
	return g.listener.Addr()
}

// Close releases a listener that was bound but never served.
func (g *Gateway) Close() error {
	if g.listener == nil || g.server != nil {
		return nil
	}
	err := g.listener.Close()
	g.listener = nil
	return err
}

// Start serves until ctx is cancelled, then shuts the listener down. It binds first when Listen was not called.
func (g *Gateway) Start(ctx context.Context) error {
	if err := g.Listen(); err != nil {
		return err
	}
	g.server = &http.Server{
		Handler:           g.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info(fmt.Sprintf("%s - HTTP gateway listening on %s", logPrefix, g.listener.Addr()))

	errCh := make(chan error, 1)
	go func() {
		if err := g.server.Serve(g.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := g.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s - shutdown failed: %w", logPrefix, err)
		}
		return nil
	case err := <-errCh:
		return fmt.Errorf("%s - server error: %w", logPrefix, err)
	}
}

func (g *Gateway) handleDispatch(w http.ResponseWriter, r *http.Request) {
	actorID := chi.URLParam(r, "actorID")
	operation := chi.URLParam(r, "operation")

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, g.config.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "", fmt.Sprintf("body exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, "", "failed to read body")
		return
	}

	reply, err := g.disp.Dispatch(r.Context(), actorID, operation, payload)
	if err != nil {
		status := statusFor(err)
		slog.Debug(fmt.Sprintf("%s - Dispatch %s/%s failed (%d): %v", logPrefix, actorID, operation, status, err))
		kind := ""
		if k := dispatcher.KindOf(err); k != 0 {
			kind = k.String()
		}
		writeError(w, status, kind, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	w.Write(reply)
}

// statusFor maps a dispatch error to an HTTP status: application failures are the actor's fault,
// transport failures are an upstream problem.
func statusFor(err error) int {
	switch {
	case dispatcher.IsApplication(err):
		return http.StatusInternalServerError
	case dispatcher.IsTimeout(err):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorBody{Error: message, Kind: kind})
}
