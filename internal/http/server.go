package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"gagyebu/internal/cache"
	"gagyebu/internal/charts"
	"gagyebu/internal/export"
	"gagyebu/internal/ingest"
	"gagyebu/internal/log"
	"gagyebu/internal/middleware/ratelimit"
	"gagyebu/internal/middleware/security"
	"gagyebu/internal/session"
	"gagyebu/internal/sheets"
	appweb "gagyebu/web"

	"github.com/shopspring/decimal"
)

// Options are the dashboard settings the server needs.
type Options struct {
	Addr           string
	Title          string
	Budget         decimal.Decimal // used as given; zero is a valid budget
	ExportPrefix   string
	MaxUploadBytes int64
	// RunCacheTTL bounds how long a computed dashboard is reused.
	RunCacheTTL time.Duration
}

// Deps are the collaborators the server wires together. Remote, when set,
// replaces uploads as the workbook source.
type Deps struct {
	Controller *ingest.Controller
	Sessions   *session.Store
	Charts     *charts.Renderer
	Remote     sheets.Workbook
	Limiter    *ratelimit.Limiter
	Logger     *log.Logger
	Clock      func() time.Time
}

type Server struct {
	http.Server
	opts       Options
	templates  *template.Template
	controller *ingest.Controller
	sessions   *session.Store
	charts     *charts.Renderer
	remote     sheets.Workbook
	limiter    *ratelimit.Limiter
	headers    *security.HeadersMiddleware
	logger     *log.Logger
	now        func() time.Time

	runs   *cache.LRUCache[pageRun]
	caches *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and templates and starts background cleanup.
// Call Shutdown to stop it.
func NewServer(opts Options, deps Deps) *Server {
	if opts.ExportPrefix == "" {
		opts.ExportPrefix = export.DefaultPrefix
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 20 << 20
	}
	if opts.RunCacheTTL <= 0 {
		opts.RunCacheTTL = 5 * time.Minute
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.Discard()
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	renderer := deps.Charts
	if renderer == nil {
		renderer = charts.NewRenderer(charts.FormatSVG, nil)
	}
	limiter := deps.Limiter
	if limiter == nil {
		limiter = ratelimit.NewLimiter(ratelimit.DefaultConfig())
	}

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              opts.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		opts:       opts,
		controller: deps.Controller,
		sessions:   deps.Sessions,
		charts:     renderer,
		remote:     deps.Remote,
		limiter:    limiter,
		headers:    security.NewHeadersMiddleware(security.DefaultHeadersConfig()),
		logger:     logger.WithComponent(log.ComponentHTTP),
		now:        now,
		runs:       cache.NewLRUCache[pageRun](200, opts.RunCacheTTL, cache.WithClock(now)),
		caches:     cache.NewManager(logger),
	}

	s.caches.Register("runs", s.runs)
	if s.sessions != nil {
		s.caches.Register("sessions", s.sessions.Cleaner())
	}
	s.caches.StartCleanup(10 * time.Minute)
	s.limiter.Start()

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates", log.FieldError, err.Error())
	}
	s.templates = t

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", s.headers.Middleware(security.StaticAssetMiddleware(3600)(static)))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err.Error())
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /{$}", s.withSecurityHeaders(s.handleIndex))
	mux.Handle("GET /charts/{name}", s.withSecurityHeaders(s.handleChart))
	mux.Handle("GET /export.csv", s.withSecurityHeaders(s.handleExport))
	mux.Handle("GET /api/report", s.withSecurityHeaders(s.handleReport))
	if s.remote == nil {
		mux.Handle("POST /upload", s.withSecurityHeaders(s.handleUpload))
		mux.Handle("POST /reset", s.withSecurityHeaders(s.handleReset))
	}

	return s
}

// Shutdown stops background cleanup and the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withSecurityHeaders adds request logging, security headers and rate
// limiting on POST.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.Handler {
	limited := s.limiter.Middleware(extractClientIP, nil, http.MethodPost)(next)
	chain := log.Middleware(s.logger)(log.RequestIDMiddleware(requestIDFrom)(s.headers.Middleware(limited)))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)
		requestID := generateRequestID()
		r.Header.Set(requestIDHeader, requestID)
		w.Header().Set(requestIDHeader, requestID)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		chain.ServeHTTP(rw, r)

		log.NewStructuredLogger(s.logger.With(log.FieldRequestID, requestID)).
			LogHTTPEnd(r.Context(), r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	})
}

const requestIDHeader = "X-Request-ID"

func requestIDFrom(r *http.Request) string { return r.Header.Get(requestIDHeader) }

// responseWriter captures the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter { return rw.ResponseWriter }

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil || s.controller == nil {
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
