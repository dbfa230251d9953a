// internal/httpapi/server.go
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tamzrod/attendance-notifier/internal/attendance"
	"github.com/tamzrod/attendance-notifier/internal/poller"
	"github.com/tamzrod/attendance-notifier/internal/session"
	"github.com/tamzrod/attendance-notifier/internal/status"
)

const shutdownTimeout = 5 * time.Second

// Poller runs a cycle on demand.
type Poller interface {
	PollOnce(ctx context.Context) poller.PollResult
}

// Sessions exposes read-only session state.
type Sessions interface {
	State() session.State
	Ledger() session.Ledger
	Current() (session.Session, bool)
}

// Status exposes the current health snapshot.
type Status interface {
	Snapshot() status.Snapshot
}

// Snapshots reads the stored attendance snapshot.
type Snapshots interface {
	Load(ctx context.Context) (attendance.Snapshot, error)
}

// Deps are the read sides the API serves. OnResult, when set, receives
// the result of every cycle triggered through POST /poll.
type Deps struct {
	Poller    Poller
	Sessions  Sessions
	Status    Status
	Snapshots Snapshots
	OnResult  func(poller.PollResult)
	Logger    *slog.Logger
}

// Server is the HTTP status surface.
type Server struct {
	listen string
	d      Deps
	engine *gin.Engine
}

func New(listen string, d Deps) *Server {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	d.Logger = d.Logger.With("component", "httpapi")

	s := &Server{listen: listen, d: d}
	s.engine = s.routes()
	return s
}

// Handler returns the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLog())

	h := &handler{d: s.d}

	r.GET("/healthz", h.health)
	r.GET("/status", h.status)
	r.GET("/attendance", h.attendance)
	r.POST("/poll", h.poll)

	return r
}

// Serve listens until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.listen,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.d.Logger.Info("http api listening", "addr", s.listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.d.Logger.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"took", time.Since(start),
		)
	}
}
