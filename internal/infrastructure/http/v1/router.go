package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"kitanda/internal/domain/audit"
	"kitanda/internal/domain/auth"
	"kitanda/internal/domain/currency"
	"kitanda/internal/domain/documents"
	"kitanda/internal/domain/reports/model7"
	"kitanda/internal/domain/series"
	"kitanda/internal/infrastructure/http/v1/handlers"
	"kitanda/internal/infrastructure/http/v1/middleware"
	"kitanda/pkg/logger"
)

// RouterConfig holds the services the API exposes.
type RouterConfig struct {
	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation. Required unless AuthDisabled.
	JWTValidator middleware.JWTValidator

	// AuthDisabled serves every request as a local admin (memory dev mode)
	AuthDisabled bool

	Documents *documents.Service
	Series    *series.Service
	Allocator *series.Allocator
	Converter *currency.Converter
	Model7    *model7.Service

	// History serves document audit trails; nil disables the endpoint body
	History audit.Reader

	// Requests observes request latency; nil disables it
	Requests middleware.RequestObserver

	// Gatherer backs /metrics; nil uses the default registry
	Gatherer prometheus.Gatherer

	// HealthChecks run on /health/ready
	HealthChecks map[string]handlers.Pinger
	Version      string
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	if cfg.Requests != nil {
		router.Use(middleware.Metrics(cfg.Requests))
	}
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.Version, cfg.HealthChecks)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}

	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"code": "NOT_FOUND", "message": "route not found"})
	})

	v1 := router.Group("/api/v1")
	if cfg.AuthDisabled {
		v1.Use(middleware.LocalAdmin())
	} else {
		v1.Use(middleware.Auth(cfg.JWTValidator))
	}

	base := handlers.NewBaseHandler()
	registerDocumentRoutes(v1, base, cfg)
	registerSeriesRoutes(v1, base, cfg)
	registerCurrencyRoutes(v1, base, cfg)
	registerReportRoutes(v1, base, cfg)

	return router
}

func registerDocumentRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	h := handlers.NewDocumentHandler(base, cfg.Documents, cfg.Converter, cfg.History)

	registerRoutes(rg.Group("/documents"), []route{
		{http.MethodPost, "/totals", auth.PermDocumentsRead, h.Totals},
		{http.MethodPost, "", auth.PermDocumentsWrite, h.Create},
		{http.MethodGet, "", auth.PermDocumentsRead, h.List},
		{http.MethodGet, "/:id", auth.PermDocumentsRead, h.Get},
		{http.MethodPatch, "/:id", auth.PermDocumentsWrite, h.Update},
		{http.MethodGet, "/:id/history", auth.PermDocumentsRead, h.History},
		{http.MethodPost, "/:id/issue", auth.PermDocumentsIssue, h.Issue},
		{http.MethodPost, "/:id/cancel", auth.PermDocumentsVoid, h.Cancel},
		{http.MethodPost, "/:id/credit-note", auth.PermDocumentsWrite, h.CreditNote},
		{http.MethodPost, "/:id/receipt", auth.PermDocumentsWrite, h.Receipt},
		{http.MethodPost, "/:id/pay", auth.PermDocumentsWrite, h.Pay},
	})
	registerRoutes(rg.Group("/purchases"), []route{
		{http.MethodPost, "", auth.PermDocumentsWrite, h.RegisterPurchase},
	})
}

func registerSeriesRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	h := handlers.NewSeriesHandler(base, cfg.Series, cfg.Allocator)

	registerRoutes(rg.Group("/series"), []route{
		{http.MethodGet, "", auth.PermSeriesRead, h.List},
		{http.MethodPost, "", auth.PermSeriesManage, h.Create},
		{http.MethodGet, "/:id", auth.PermSeriesRead, h.Get},
		{http.MethodPatch, "/:id/active", auth.PermSeriesManage, h.SetActive},
		{http.MethodPut, "/:id/users", auth.PermSeriesManage, h.SetAllowedUsers},
		{http.MethodPost, "/:id/allocate", auth.PermDocumentsIssue, h.Allocate},
		{http.MethodPost, "/:id/manual", auth.PermDocumentsIssue, h.RecordManual},
		{http.MethodPost, "/:id/next", auth.PermSeriesManage, h.SetNext},
		{http.MethodGet, "/:id/counters/:docType", auth.PermSeriesRead, h.Counter},
	})
}

func registerCurrencyRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	h := handlers.NewCurrencyHandler(base, cfg.Converter)

	registerRoutes(rg.Group("/currencies"), []route{
		{http.MethodGet, "/rates", auth.PermDocumentsRead, h.Rates},
		{http.MethodPut, "/:code/rate", auth.PermRatesManage, h.SetRate},
	})
}

func registerReportRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	h := handlers.NewReportsHandler(base, cfg.Model7)

	registerRoutes(rg.Group("/reports"), []route{
		{http.MethodGet, "/model7", auth.PermReportsRead, h.Model7},
	})
}
