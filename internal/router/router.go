package router

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/medflow/medflow-api/internal/handler/appointment"
	"github.com/medflow/medflow-api/internal/handler/audit"
	"github.com/medflow/medflow-api/internal/handler/auth"
	"github.com/medflow/medflow-api/internal/handler/billing"
	"github.com/medflow/medflow-api/internal/handler/health"
	"github.com/medflow/medflow-api/internal/handler/inventory"
	"github.com/medflow/medflow-api/internal/handler/medical"
	"github.com/medflow/medflow-api/internal/handler/patient"
	"github.com/medflow/medflow-api/internal/handler/rbac"
	"github.com/medflow/medflow-api/internal/handler/user"
	"github.com/medflow/medflow-api/internal/middleware"
)

type Handlers struct {
	Auth        *auth.Handler
	User        *user.Handler
	Patient     *patient.Handler
	Appointment *appointment.Handler
	RBAC        *rbac.Handler
	Medical     *medical.Handler
	Billing     *billing.Handler
	Inventory   *inventory.Handler
	Audit       *audit.Handler
	Health      *health.Handler
}

type Config struct {
	RateLimitRPS   float64
	RateLimitBurst int
	RequestTimeout time.Duration
	CORS           middleware.CORSConfig
	MetricsPrefix  string
}

type Router struct {
	engine   *gin.Engine
	auth     *middleware.AuthMiddleware
	handlers Handlers
	metrics  *routerMetrics
}

type routerMetrics struct {
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
}

func NewRouter(authMw *middleware.AuthMiddleware, handlers Handlers, config Config) *Router {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()

	if config.RequestTimeout == 0 {
		config.RequestTimeout = 30 * time.Second
	}

	r := &Router{
		engine:   engine,
		auth:     authMw,
		handlers: handlers,
		metrics:  initRouterMetrics(config.MetricsPrefix),
	}

	engine.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.ErrorHandler(),
		r.metricsMiddleware(),
		middleware.Timeout(middleware.TimeoutConfig{Duration: config.RequestTimeout}),
		middleware.CORS(config.CORS),
	)

	rateLimiter := middleware.NewRateLimiter(config.RateLimitRPS, config.RateLimitBurst)
	engine.Use(rateLimiter.RateLimit())

	return r
}

func (r *Router) Setup() {
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.engine.Group("/api/v1")

	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})

	r.handlers.Health.RegisterRoutes(api)
	r.handlers.Auth.RegisterRoutes(api)

	protected := api.Group("")
	protected.Use(r.auth.Authenticate())

	r.handlers.User.RegisterRoutes(protected, r.auth)
	r.handlers.Patient.RegisterRoutes(protected, r.auth)
	r.handlers.Appointment.RegisterRoutes(protected, r.auth)
	r.handlers.RBAC.RegisterRoutes(protected, r.auth)
	r.handlers.Medical.RegisterRoutes(protected, r.auth)
	r.handlers.Billing.RegisterRoutes(protected, r.auth)
	r.handlers.Inventory.RegisterRoutes(protected, r.auth)
	r.handlers.Audit.RegisterRoutes(protected, r.auth)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func initRouterMetrics(prefix string) *routerMetrics {
	if prefix == "" {
		prefix = "medflow_api"
	}
	return &routerMetrics{
		requestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: prefix + "_request_duration_seconds",
				Help: "Duration of HTTP requests in seconds",
			},
			[]string{"method", "path", "status"},
		),
		requestTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
	}
}

func (r *Router) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		r.metrics.requestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
		r.metrics.requestTotal.WithLabelValues(c.Request.Method, path, status).Inc()
	}
}
