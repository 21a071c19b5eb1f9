package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/sync/errgroup"

	"github.com/mattt/mcpdemo/internal/apidoc"
	"github.com/mattt/mcpdemo/tools"
)

const (
	maxBodySize     = 1024 * 1024
	shutdownTimeout = 5 * time.Second
)

// HTTPConfig configures an HTTPServer.
type HTTPConfig struct {
	// EnableCORS allows cross-origin requests from any origin.
	EnableCORS bool

	// Toolset and APIDoc feed the index page. Both are optional.
	Toolset tools.Toolset
	APIDoc  *apidoc.Document

	Logger *slog.Logger
}

// HTTPServer serves a Handler over HTTP: one request per POST /mcp call.
type HTTPServer struct {
	handler Handler
	cfg     HTTPConfig
	logger  *slog.Logger
	router  *chi.Mux
}

// NewHTTPServer creates the router and its routes.
func NewHTTPServer(handler Handler, cfg HTTPConfig) *HTTPServer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s := &HTTPServer{
		handler: handler,
		cfg:     cfg,
		logger:  logger,
		router:  chi.NewRouter(),
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.logRequests)
	s.router.Use(s.recoverer)
	if cfg.EnableCORS {
		s.router.Use(cors.AllowAll().Handler)
	}

	s.router.Post("/mcp", s.handleMCP)
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/", s.handleIndex)
	s.router.Get("/openapi.yaml", s.handleAPIDoc)

	return s
}

// Router exposes the root HTTP handler for the server.
func (s *HTTPServer) Router() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully. It returns nil after a clean shutdown.
func (s *HTTPServer) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("HTTP MCP server running", "addr", addr)
		for _, e := range s.endpoints() {
			s.logger.Info("endpoint", "method", e.Method, "path", e.Path, "summary", e.Summary)
		}
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		s.logger.Info("HTTP server closed")
		return nil
	})

	return g.Wait()
}

func (s *HTTPServer) handleMCP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		s.logger.Error("error reading HTTP request", "error", err)
		s.writeJSON(w, http.StatusBadRequest, TransportError{Error: NewError(ErrBadRequest, "malformed request: %v", err)})
		return
	}
	s.logger.Debug("received HTTP request", "body", string(body))

	request, err := Decode(body)
	if err != nil {
		var derr *DecodeError
		if errors.As(err, &derr) && derr.Syntax {
			s.logger.Error("error processing HTTP request", "error", err)
			s.writeJSON(w, http.StatusBadRequest, TransportError{Error: NewError(ErrBadRequest, "request body must be valid JSON")})
			return
		}
		s.logger.Error("error handling MCP request", "error", err)
		s.writeJSON(w, http.StatusInternalServerError, TransportError{Error: NewError(ErrInternalServer, "internal error while processing request")})
		return
	}

	s.writeJSON(w, http.StatusOK, s.handler.Handle(r.Context(), request))
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleAPIDoc(w http.ResponseWriter, r *http.Request) {
	if s.cfg.APIDoc == nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(s.cfg.APIDoc.Raw())
}

var indexTemplate = template.Must(template.New("index").Parse(`<html>
  <head><title>{{.Title}}</title></head>
  <body>
    <h1>{{.Title}}</h1>
    <p>A Model Context Protocol demo service providing the following tools:</p>
    <ul>
      {{- range .Toolset.Tools}}
      <li><strong>{{.Name}}</strong>: {{.Description}}</li>
      {{- end}}
    </ul>
    <h2>API endpoints</h2>
    <ul>
      {{- range .Endpoints}}
      <li><code>{{.Method}} {{.Path}}</code> - {{.Summary}}</li>
      {{- end}}
    </ul>
  </body>
</html>
`))

func (s *HTTPServer) handleIndex(w http.ResponseWriter, _ *http.Request) {
	title := "MCP Service API"
	if s.cfg.APIDoc != nil && s.cfg.APIDoc.Title() != "" {
		title = s.cfg.APIDoc.Title()
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := indexTemplate.Execute(w, struct {
		Title     string
		Toolset   tools.Toolset
		Endpoints []apidoc.Endpoint
	}{title, s.cfg.Toolset, s.endpoints()}); err != nil {
		s.logger.Error("error rendering index", "error", err)
	}
}

func (s *HTTPServer) endpoints() []apidoc.Endpoint {
	if s.cfg.APIDoc == nil {
		return nil
	}
	return s.cfg.APIDoc.Endpoints()
}

// logRequests logs each request once its response has been written.
func (s *HTTPServer) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("handled HTTP request",
			"request_id", middleware.GetReqID(r.Context()),
			"remote", r.RemoteAddr,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start))
	})
}

// recoverer answers a panicking request with an InternalServerError envelope.
func (s *HTTPServer) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				s.logger.Error("error handling MCP request", "panic", rec, "stack", string(debug.Stack()))
				s.writeJSON(w, http.StatusInternalServerError, TransportError{Error: NewError(ErrInternalServer, "internal error while processing request")})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// writeJSON marshals v before writing the status, so a value that cannot be
// encoded becomes a 500 InternalServerError rather than an empty reply.
func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		s.logger.Error("error encoding response", "error", err)
		buf.Reset()
		_ = enc.Encode(TransportError{Error: NewError(ErrInternalServer, "internal error while processing request")})
		status = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
