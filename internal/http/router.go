// Package httpapi wires the HTTP transport (Gin) to the session services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging, panic recovery, metrics, CORS,
// security headers, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/avlonitis/go-shop-backend/internal/auth"
	"github.com/avlonitis/go-shop-backend/internal/cart"
	"github.com/avlonitis/go-shop-backend/internal/catalog"
	"github.com/avlonitis/go-shop-backend/internal/checkout"
	"github.com/avlonitis/go-shop-backend/internal/config"
	"github.com/avlonitis/go-shop-backend/internal/http/handlers"
	"github.com/avlonitis/go-shop-backend/internal/http/middleware"
	"github.com/avlonitis/go-shop-backend/internal/notify"
	"github.com/avlonitis/go-shop-backend/internal/remote"
	"github.com/avlonitis/go-shop-backend/internal/services"
	"github.com/avlonitis/go-shop-backend/internal/store"
)

// Deps carries the long-lived components built in main. They are constructed
// there rather than here because the broker and rate limiter own background
// goroutines that main must stop on shutdown.
type Deps struct {
	DB      *gorm.DB
	Durable store.KV
	Remote  *remote.Client
	Broker  *notify.Broker
	Perms   *auth.PermissionCache
	Catalog *catalog.Cache
	Cart    *cart.Store
	Limiter *middleware.RateLimiter
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine: observability (tracing, metrics), rate limiting, CORS and security
// headers, health and metrics endpoints, and then the storefront API under
// cfg.APIBasePath with the admin console nested behind the permission guard.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured request logs
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Response compression
//  7. Metrics
//  8. Rate limiter (per user/IP)
//  9. CORS and security headers
func RegisterRoutes(r *gin.Engine, d Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured request logging
	r.Use(middleware.Logger())

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Response compression (catalog snapshots are large and repetitive)
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8) Token-bucket rate limiter per user/IP
	r.Use(d.Limiter.Handler())

	// 9) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", "X-User-Email", "Idempotency-Key"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", "X-User-Email", "Idempotency-Key"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Interactive API docs
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← remote client / stores / broker
	coord := checkout.New(d.Cart, d.Catalog, d.Remote, d.Broker, log.Logger)
	orderSvc := &services.OrderService{API: d.Remote, KV: d.Durable, Titles: d.Catalog, Log: log.Logger}
	ticketSvc := &services.TicketService{API: d.Remote}
	accountSvc := &services.AccountService{API: d.Remote, Notify: d.Broker, Log: log.Logger}

	sf := &handlers.Storefront{
		Catalog:    d.Catalog,
		Cart:       d.Cart,
		Checkout:   coord,
		Notify:     d.Broker,
		Orders:     orderSvc,
		Tickets:    ticketSvc,
		DB:         d.DB,
		ReceiptTTL: cfg.ReceiptTTL,
		Locale:     language.Make(cfg.Locale),
	}
	ad := &handlers.Admin{
		Products: d.Remote,
		Orders:   orderSvc,
		Tickets:  ticketSvc,
		Accounts: accountSvc,
		Notify:   d.Broker,
	}

	// Storefront API
	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		// Catalog
		api.GET("/catalog", sf.ListCatalog)
		api.POST("/catalog/refresh", sf.RefreshCatalog)
		api.GET("/catalog/product", sf.GetProduct)
		api.GET("/catalog/search", sf.SearchCatalog)

		// Cart
		api.GET("/cart", sf.GetCart)
		api.POST("/cart/items", sf.AddCartItem)
		api.PUT("/cart/items", sf.SetCartQuantity)
		api.DELETE("/cart/items", sf.RemoveCartItem)
		api.DELETE("/cart", sf.ClearCart)

		// Checkout
		api.POST("/checkout", sf.SubmitCheckout)

		// Orders and tickets
		api.GET("/orders", sf.ListMyOrders)
		api.POST("/tickets", sf.OpenTicket)

		// Notifications
		api.GET("/notifications", sf.ListNotifications)
		api.DELETE("/notifications/:id", sf.DismissNotification)

		// Admin console, guarded by the cached permission check
		admin := api.Group("/admin", middleware.AdminGuard(d.Perms))
		{
			admin.GET("/products", ad.ListProducts)
			admin.POST("/products", ad.CreateProduct)
			admin.PUT("/products", ad.UpdateProduct)
			admin.DELETE("/products", ad.DeleteProduct)
			admin.PUT("/products/stock", ad.SetStock)
			admin.PUT("/products/visibility", ad.SetVisibility)

			admin.POST("/groups", ad.CreateGroup)
			admin.POST("/groups/members", ad.AppendGroupMember)
			admin.DELETE("/groups/members", ad.DetachGroupMember)

			admin.GET("/orders/detail", ad.GetOrder)
			admin.PUT("/orders/status", ad.SetOrderStatus)
			admin.POST("/orders/fulfill", ad.FulfillOrder)

			admin.GET("/tickets", ad.ListTickets)
			admin.PUT("/tickets/close", ad.CloseTicket)
			admin.PUT("/tickets/read", ad.MarkTicketRead)

			admin.GET("/staff", ad.ListStaff)
			admin.PUT("/staff", ad.UpdateStaff)
			admin.GET("/users", ad.ListUsers)
			admin.PUT("/users", ad.UpdateUser)
			admin.POST("/credit", ad.AdjustCredit)
			admin.GET("/audit", ad.ListAudit)
			admin.POST("/images", ad.UploadImage)
		}
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
