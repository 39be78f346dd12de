package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/spigell/assessment-finder/internal/metrics"
	"github.com/spigell/assessment-finder/internal/query"
	"github.com/spigell/assessment-finder/internal/recommend"
)

const (
	sessionCookie = "assessment_finder_session"
	sweepInterval = time.Minute
	shutdownGrace = 10 * time.Second
)

//go:embed templates/*.tmpl
var templates embed.FS

// Upstream is the recommendation API as seen by the web server.
type Upstream interface {
	query.Fetcher
	Health(ctx context.Context) error
}

type Config struct {
	Listen         string        `mapstructure:"listen"`
	SessionTTL     time.Duration `mapstructure:"session-ttl"`
	RateLimit      float64       `mapstructure:"rate-limit"`
	RateBurst      int           `mapstructure:"rate-burst"`
	AllowedOrigins []string      `mapstructure:"allowed-origins"`
}

// Deps aggregates what the server needs beyond its configuration.
type Deps struct {
	Upstream Upstream
	Logger   *zap.Logger
	// Metrics and Gatherer are optional; without them /metrics is not served.
	Metrics  *metrics.Collector
	Gatherer prometheus.Gatherer
	Version  string
}

type Server struct {
	cfg      Config
	deps     Deps
	logger   *zap.Logger
	engine   *gin.Engine
	sessions *sessions
	limiter  *rate.Limiter
}

func New(cfg Config, deps Deps) (*Server, error) {
	if deps.Upstream == nil {
		return nil, errors.New("upstream is required")
	}

	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 30 * time.Minute
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}

	s := &Server{
		cfg:     cfg,
		deps:    deps,
		logger:  deps.Logger,
		limiter: rate.NewLimiter(limit, burst),
	}
	s.sessions = newSessions(cfg.SessionTTL, s.newSubmitter)

	engine, err := s.router()
	if err != nil {
		return nil, err
	}
	s.engine = engine

	return s, nil
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.sessions.run(ctx, sweepInterval, func(removed, left int) {
		if removed > 0 {
			s.logger.Debug("swept idle sessions", zap.Int("removed", removed), zap.Int("left", left))
		}
	})

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("start serving", zap.String("listen", s.cfg.Listen))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen on %s: %w", s.cfg.Listen, err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down", zap.String("reason", context.Cause(ctx).Error()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

func (s *Server) newSubmitter() *query.Submitter {
	sub := query.New(s.deps.Upstream, s.logger)
	if s.deps.Metrics != nil {
		sub.Subscribe(s.deps.Metrics.StateObserver())
	}
	return sub
}

func (s *Server) router() (*gin.Engine, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"inc": func(i int) int { return i + 1 },
	}).ParseFS(templates, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	router := gin.New()
	router.SetHTMLTemplate(tmpl)
	router.Use(gin.Recovery(), requestID(), accessLog(s.logger))

	// preflight requests never match a route, so cors has to sit on the engine
	if len(s.cfg.AllowedOrigins) > 0 {
		corsCfg := cors.DefaultConfig()
		corsCfg.AllowOrigins = s.cfg.AllowedOrigins
		corsCfg.AllowCredentials = true
		corsCfg.AllowMethods = []string{http.MethodGet, http.MethodPost}
		// cors.New panics on a bad config
		if err := corsCfg.Validate(); err != nil {
			return nil, fmt.Errorf("server.allowed-origins: %w", err)
		}
		router.Use(cors.New(corsCfg))
	}

	if s.deps.Gatherer != nil {
		p := ginprometheus.NewPrometheus("gin")

		// serve /metrics from our own gatherer rather than through p.Use
		router.Use(p.HandlerFunc())
		h := promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{})
		router.GET(p.MetricsPath, gin.WrapH(h))
	}

	router.GET("/favicon.ico", ignoreHandler)
	router.GET("/version", s.versionHandler)
	router.GET("/healthcheck", s.healthCheckHandler)

	router.GET("/", s.pageHandler)
	router.POST("/", s.submitFormHandler)

	api := router.Group("/api")
	api.GET("/state", s.stateHandler)
	api.POST(recommend.RecommendPath, s.submitJSONHandler)

	return router, nil
}
