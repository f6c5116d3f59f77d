package http

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"braces/internal/cache"
	"braces/internal/core"
	"braces/internal/ledger"
	"braces/internal/log"
	"braces/internal/middleware/ratelimit"
	"braces/internal/middleware/security"
	"braces/internal/middleware/trace"
	"braces/internal/services"
	appweb "braces/web"
)

// StatsFunc reports ledger write counters for /metrics.
type StatsFunc func() services.Stats

// Options tunes a Server. Zero values pick defaults.
type Options struct {
	CurrencySymbol     string
	RateLimitPerMinute int
	Logger             *log.Logger
	Stats              StatsFunc
	Now                func() time.Time
}

// Server renders the patient ledger and accepts the add-patient and
// add-payment forms.
type Server struct {
	http.Server
	templates *template.Template
	store     ledger.Store
	money     core.Formatter
	logger    *log.Logger
	stats     StatsFunc
	now       func() time.Time
	started   time.Time

	detector *security.Detector
	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware

	// idempotent remembers created responses by Idempotency-Key.
	idempotent  *cache.LRU[storedResponse]
	stopJanitor context.CancelFunc

	shutdownOnce sync.Once
}

const (
	idempotencyCacheSize = 1024
	idempotencyTTL       = 10 * time.Minute
)

// NewServer wires routes and middleware around store.
func NewServer(addr string, store ledger.Store, opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	limitCfg := ratelimit.DefaultConfig()
	if opts.RateLimitPerMinute > 0 {
		limitCfg.RequestsPerMinute = opts.RateLimitPerMinute
	}

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		templates: t,
		store:     store,
		money:     core.NewFormatter(opts.CurrencySymbol),
		logger:    logger.WithComponent(log.ComponentHTTP),
		stats:     opts.Stats,
		now:       now,
		started:   now(),
		detector:  security.NewDetector(),
		limiter:   ratelimit.NewLimiter(limitCfg),
	}
	s.idempotent = cache.NewLRU[storedResponse](idempotencyCacheSize, idempotencyTTL, cache.WithClock(now))
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, s.logger)

	router, err := s.routes()
	if err != nil {
		s.limiter.Stop()
		return nil, err
	}

	janitorCtx, cancel := context.WithCancel(context.Background())
	s.stopJanitor = cancel
	go cache.NewJanitor(time.Minute, s.logger, s.idempotent).Run(janitorCtx)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() (*chi.Mux, error) {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(s.tracer.Middleware)
	r.Use(s.detector.Middleware(s.logger))
	r.Use(security.Headers(security.DefaultHeadersConfig()))
	r.Use(s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimit))

	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static assets: %w", err)
	}
	r.With(security.StaticAssetMiddleware(3600)).
		Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	r.Get("/", s.handleIndex)
	r.Get("/ui/patients", s.handlePatientRows)

	r.Route("/patients", func(r chi.Router) {
		r.Post("/", s.handleCreatePatient)
		r.Get("/{id}", s.handlePatient)
		r.Post("/{id}/payments", s.handleAddPayment)
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("Page not found").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})
	return r, nil
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	s.logger.WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Too many requests, please wait a minute").Write(w)
}

// render executes name into a buffer so a template failure still yields a
// clean 500.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	if s.templates == nil {
		s.fail(w, r, errTemplatesMissing, log.OpRender)
		return
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.ErrorContext(r.Context(), "Template execution failed",
			log.FieldTemplate, name,
			log.FieldError, err,
			"error_type", log.ErrorTypeInternal)
		http.Error(w, "render error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, op string) {
	log.NewStructuredLogger(s.logger).LogError(r.Context(), "Request failed", err, log.ComponentHTTP, op, nil)
	ErrorResponse(http.StatusInternalServerError, "Something went wrong").Write(w)
}

// Shutdown stops background work and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		s.stopJanitor()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
