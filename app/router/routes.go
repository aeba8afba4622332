// Package router provides HTTP routing, middleware configuration, and server setup for the web application
package router

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/amirphl/pick-intro/app/dto"
	"github.com/amirphl/pick-intro/app/handlers"
	"github.com/amirphl/pick-intro/app/middleware"
	"github.com/amirphl/pick-intro/config"
	_ "github.com/amirphl/pick-intro/docs"
	"github.com/amirphl/pick-intro/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cache"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/swaggo/swag"
)

const healthPath = "/api/v1/health"

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	GetApp() *fiber.App
}

// HealthCheck checks a dependency. A non-nil error marks it unhealthy.
type HealthCheck func(ctx context.Context) error

// Handlers groups the API handlers mounted by the router
type Handlers struct {
	Draft    handlers.DraftHandlerInterface
	Interest handlers.InterestHandlerInterface
	Match    handlers.MatchHandlerInterface
	Report   handlers.ReportHandlerInterface
	Feedback handlers.FeedbackHandlerInterface
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app          *fiber.App
	cfg          *config.ProductionConfig
	logger       zerolog.Logger
	auth         *middleware.AuthMiddleware
	handlers     Handlers
	healthChecks map[string]HealthCheck
}

// NewFiberRouter creates a new Fiber router
func NewFiberRouter(cfg *config.ProductionConfig, logger zerolog.Logger, auth *middleware.AuthMiddleware, hs Handlers) *FiberRouter {
	app := fiber.New(fiber.Config{
		AppName:      "Pick Intro API",
		ServerHeader: "Pick",
		ErrorHandler: errorHandler,
		BodyLimit:    cfg.Server.BodyLimit,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	return &FiberRouter{
		app:          app,
		cfg:          cfg,
		logger:       logger.With().Str("component", "router").Logger(),
		auth:         auth,
		handlers:     hs,
		healthChecks: make(map[string]HealthCheck),
	}
}

// AddHealthCheck registers a dependency check reported by the health endpoint
func (r *FiberRouter) AddHealthCheck(name string, check HealthCheck) {
	r.healthChecks[name] = check
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	r.setupMiddleware()

	if r.cfg.Metrics.Enabled {
		r.app.Get(r.cfg.Metrics.Path, adaptor.HTTPHandler(promhttp.Handler()))
	}

	api := r.app.Group("/api/v1")

	// Health check route (no rate limiting)
	api.Get("/health", r.healthCheck)

	// API documentation route (development only)
	if r.cfg.Deployment.IsDevelopment() {
		api.Get("/docs", r.getAPIDocumentation)
		api.Get("/swagger.json", r.serveSwaggerJSON)
		r.app.Get("/swagger", r.serveSwaggerUI)
		r.logger.Info().Msg("API documentation enabled for development")
	}

	api.Use(limiter.New(limiter.Config{
		Max:        r.cfg.Security.GlobalRateLimit,
		Expiration: r.cfg.Security.RateLimitWindow,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: rateLimitReached,
		Next: func(c fiber.Ctx) bool {
			return c.Path() == healthPath
		},
	}))

	authenticate := r.auth.Authenticate()

	// Per-user budget for intro generation
	introLimiter := limiter.New(limiter.Config{
		Max:        r.cfg.Security.IntroRateLimit,
		Expiration: r.cfg.Security.RateLimitWindow,
		KeyGenerator: func(c fiber.Ctx) string {
			if userID, ok := middleware.GetUserIDFromContext(c); ok {
				return "intro:" + userID
			}
			return "intro:" + c.IP()
		},
		LimitReached: rateLimitReached,
	})

	draft := api.Group("/profile/draft", authenticate)
	draft.Get("", r.handlers.Draft.GetDraft)
	draft.Patch("", r.handlers.Draft.UpdateDraft)
	draft.Put("/fields/:field", r.handlers.Draft.UpdateField)
	draft.Put("/cities", r.handlers.Draft.UpdateCities)
	draft.Post("/interests", r.handlers.Interest.Select)
	draft.Post("/interests/:id/toggle", r.handlers.Draft.ToggleInterest)
	draft.Delete("/interests/:id", r.handlers.Draft.RemoveInterest)
	draft.Put("/photo", r.handlers.Draft.UploadPhoto)
	draft.Delete("/photo", r.handlers.Draft.DeletePhoto)
	draft.Post("/submit", r.handlers.Draft.SubmitDraft)

	interests := api.Group("/interests", authenticate)
	interests.Get("/search", r.handlers.Interest.Search)
	interests.Post("/resolve", r.handlers.Interest.Resolve)

	matches := api.Group("/matches", authenticate)
	matches.Get("", r.handlers.Match.ListMatches)
	matches.Get("/board", r.handlers.Match.GetBoard)
	matches.Get("/dashboard", r.handlers.Match.GetDashboard)
	matches.Post("/:id/intro", introLimiter, r.handlers.Match.RequestIntro)
	matches.Post("/:id/preview", introLimiter, r.handlers.Match.RefreshPreview)
	matches.Post("/:id/open", introLimiter, r.handlers.Match.OpenIntro)

	feedback := api.Group("/feedback", authenticate)
	feedback.Get("/eligibility", r.handlers.Feedback.GetEligibility)
	feedback.Post("", r.handlers.Feedback.Submit)
	feedback.Post("/dismiss", r.handlers.Feedback.Dismiss)

	api.Post("/reports", authenticate, r.handlers.Report.ReportUser)

	// Not found handler
	r.app.Use(r.notFoundHandler)

	r.logger.Info().Msg("Routes configured successfully")
}

// setupMiddleware configures global middleware
func (r *FiberRouter) setupMiddleware() {
	// Request ID middleware - must be first
	r.app.Use(requestid.New(requestid.Config{
		Header: fiber.HeaderXRequestID,
		Generator: func() string {
			return generateRequestID()
		},
	}))

	r.app.Use(middleware.Metrics(r.cfg.Metrics.Path, healthPath))

	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:             "1; mode=block",
		ContentTypeNosniff:        "nosniff",
		XFrameOptions:             "DENY",
		HSTSMaxAge:                31536000, // 1 year
		HSTSExcludeSubdomains:     false,
		ContentSecurityPolicy:     r.cfg.Security.CSPPolicy,
		ReferrerPolicy:            r.cfg.Security.ReferrerPolicy,
		CrossOriginEmbedderPolicy: "require-corp",
		CrossOriginOpenerPolicy:   "same-origin",
		CrossOriginResourcePolicy: "cross-origin",
		OriginAgentCluster:        "?1",
		XDNSPrefetchControl:       "off",
		XDownloadOptions:          "noopen",
		XPermittedCrossDomain:     "none",
	}))

	r.app.Use(cors.New(cors.Config{
		AllowOrigins: r.cfg.Security.AllowedOrigins,
		AllowMethods: []string{
			fiber.MethodGet,
			fiber.MethodPost,
			fiber.MethodPut,
			fiber.MethodPatch,
			fiber.MethodDelete,
			fiber.MethodOptions,
		},
		AllowHeaders: []string{
			fiber.HeaderOrigin,
			fiber.HeaderContentType,
			fiber.HeaderAccept,
			fiber.HeaderAuthorization,
			fiber.HeaderXRequestID,
		},
		ExposeHeaders: []string{
			fiber.HeaderXRequestID,
			fiber.HeaderRetryAfter,
		},
		AllowCredentials: r.cfg.Security.AllowCredentials,
		MaxAge:           utils.CORSMaxAge,
	}))

	if r.cfg.Server.EnableCompression {
		r.app.Use(compress.New(compress.Config{
			Level: compress.LevelBestSpeed,
			Next: func(c fiber.Ctx) bool {
				contentType := c.Get(fiber.HeaderContentType)
				return strings.Contains(contentType, "image/") ||
					strings.Contains(contentType, "multipart/")
			},
		}))
	}

	// Only the generated API docs are cacheable; every other response is per user
	r.app.Use(cache.New(cache.Config{
		Next: func(c fiber.Ctx) bool {
			return c.Method() != fiber.MethodGet ||
				!strings.HasPrefix(c.Path(), "/api/v1/docs") &&
					!strings.HasPrefix(c.Path(), "/api/v1/swagger.json")
		},
		Expiration: 30 * time.Minute,
	}))

	r.app.Use(logger.New(logger.Config{
		Format:     `{"time":"${time}","pid":"${pid}","request_id":"${respHeader:X-Request-ID}","level":"info","method":"${method}","path":"${path}","protocol":"${protocol}","ip":"${ip}","user_agent":"${ua}","status":${status},"latency":"${latency}","bytes_in":${bytesReceived},"bytes_out":${bytesSent},"referer":"${referer}"}` + "\n",
		TimeFormat: time.RFC3339,
		TimeZone:   "UTC",
		Next: func(c fiber.Ctx) bool {
			return c.Path() == healthPath || c.Path() == r.cfg.Metrics.Path
		},
	}))

	r.app.Use(r.securityMiddleware)

	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e any) {
			r.logger.Error().
				Str("request_id", middleware.GetRequestID(c)).
				Str("event", "panic").
				Interface("error", e).
				Str("path", c.Path()).
				Str("method", c.Method()).
				Str("ip", c.IP()).
				Msg("recovered from panic")
		},
	}))
}

func (r *FiberRouter) securityMiddleware(c fiber.Ctx) error {
	c.Set("X-Response-Time", utils.UTCNow().Format(time.RFC3339))
	c.Set("Server", "Pick")
	return c.Next()
}

// Start starts the HTTP server
func (r *FiberRouter) Start(address string) error {
	r.logger.Info().Str("address", address).Msg("Starting server")
	return r.app.Listen(address)
}

// GetApp returns the Fiber app instance
func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

// Health check endpoint
func (r *FiberRouter) healthCheck(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	checks := make(map[string]string, len(r.healthChecks))
	healthy := true
	for name, check := range r.healthChecks {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			healthy = false
			continue
		}
		checks[name] = "ok"
	}

	status := fiber.StatusOK
	message := "Service is healthy"
	if !healthy {
		status = fiber.StatusServiceUnavailable
		message = "Service is degraded"
	}
	return c.Status(status).JSON(dto.APIResponse{
		Success: healthy,
		Message: message,
		Data: fiber.Map{
			"status":    map[bool]string{true: "healthy", false: "degraded"}[healthy],
			"timestamp": utils.UTCNow().Format(time.RFC3339),
			"version":   r.cfg.Deployment.Version,
			"commit":    r.cfg.Deployment.CommitHash,
			"checks":    checks,
		},
	})
}

// API documentation endpoint
func (r *FiberRouter) getAPIDocumentation(c fiber.Ctx) error {
	return c.JSON(dto.APIResponse{
		Success: true,
		Message: "API documentation retrieved successfully",
		Data: fiber.Map{
			"title":     "Pick Intro API",
			"version":   r.cfg.Deployment.Version,
			"base_url":  "/api/v1",
			"endpoints": GetRouteDocumentation(),
		},
	})
}

// Serve Swagger UI HTML page
func (r *FiberRouter) serveSwaggerUI(c fiber.Ctx) error {
	htmlContent := `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Pick Intro API - Swagger UI</title>
    <link rel="stylesheet" type="text/css" href="https://unpkg.com/swagger-ui-dist@5.9.0/swagger-ui.css" />
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5.9.0/swagger-ui-bundle.js"></script>
    <script>
        window.onload = function() {
            SwaggerUIBundle({
                url: '/api/v1/swagger.json',
                dom_id: '#swagger-ui',
                deepLinking: true,
                validatorUrl: null
            });
        };
    </script>
</body>
</html>`

	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.SendString(htmlContent)
}

// Serve Swagger JSON specification from the registered swag doc
func (r *FiberRouter) serveSwaggerJSON(c fiber.Ctx) error {
	doc, err := swag.ReadDoc()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.APIResponse{
			Success: false,
			Message: "Failed to load Swagger documentation",
			Error: dto.ErrorDetail{
				Code: "SWAGGER_LOAD_ERROR",
			},
		})
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.SendString(doc)
}

// Not found handler
func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "The requested resource was not found",
		Error: dto.ErrorDetail{
			Code: "NOT_FOUND",
			Details: fiber.Map{
				"path":       c.Path(),
				"method":     c.Method(),
				"request_id": middleware.GetRequestID(c),
			},
		},
	})
}

func rateLimitReached(c fiber.Ctx) error {
	return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
		Success: false,
		Message: "Too many requests. Please try again later.",
		Error: dto.ErrorDetail{
			Code: "RATE_LIMIT_EXCEEDED",
		},
	})
}

// Global error handler
func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	errorCode := "INTERNAL_ERROR"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
		switch code {
		case fiber.StatusRequestEntityTooLarge:
			errorCode = "PAYLOAD_TOO_LARGE"
		case fiber.StatusMethodNotAllowed:
			errorCode = "METHOD_NOT_ALLOWED"
		case fiber.StatusNotFound:
			errorCode = "NOT_FOUND"
		case fiber.StatusBadRequest:
			errorCode = "BAD_REQUEST"
		}
	}

	return c.Status(code).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code: errorCode,
		},
	})
}

// generateRequestID generates a unique request ID
func generateRequestID() string {
	return uuid.NewString()
}

// GetRouteDocumentation returns a plain description of every API route
func GetRouteDocumentation() []map[string]any {
	return []map[string]any{
		{"method": "GET", "path": "/api/v1/health", "description": "Health check endpoint", "auth": false},
		{"method": "GET", "path": "/api/v1/profile/draft", "description": "Get the caller's profile draft and its derived state", "auth": true},
		{"method": "PATCH", "path": "/api/v1/profile/draft", "description": "Merge text fields into the draft", "auth": true},
		{"method": "PUT", "path": "/api/v1/profile/draft/fields/:field", "description": "Set one text field", "auth": true},
		{"method": "PUT", "path": "/api/v1/profile/draft/cities", "description": "Replace the ordered city list", "auth": true},
		{"method": "POST", "path": "/api/v1/profile/draft/interests", "description": "Resolve a label and select the interest", "auth": true},
		{"method": "POST", "path": "/api/v1/profile/draft/interests/:id/toggle", "description": "Select or deselect an interest id", "auth": true},
		{"method": "DELETE", "path": "/api/v1/profile/draft/interests/:id", "description": "Deselect an interest id", "auth": true},
		{"method": "PUT", "path": "/api/v1/profile/draft/photo", "description": "Upload a photo (multipart field photo)", "auth": true},
		{"method": "DELETE", "path": "/api/v1/profile/draft/photo", "description": "Remove the pending and stored photo", "auth": true},
		{"method": "POST", "path": "/api/v1/profile/draft/submit", "description": "Validate and save the draft", "auth": true},
		{"method": "GET", "path": "/api/v1/interests/search", "description": "Search interests (query param q)", "auth": true},
		{"method": "POST", "path": "/api/v1/interests/resolve", "description": "Resolve free text to an interest id", "auth": true},
		{"method": "GET", "path": "/api/v1/matches", "description": "Load recommendations (query param limit, 1..20)", "auth": true},
		{"method": "GET", "path": "/api/v1/matches/board", "description": "Current matches with intro previews", "auth": true},
		{"method": "GET", "path": "/api/v1/matches/dashboard", "description": "Load matches with intro previews attached", "auth": true},
		{"method": "POST", "path": "/api/v1/matches/:id/intro", "description": "Generate an intro reusing the match code", "auth": true},
		{"method": "POST", "path": "/api/v1/matches/:id/preview", "description": "Generate a fresh intro preview", "auth": true},
		{"method": "POST", "path": "/api/v1/matches/:id/open", "description": "Generate an intro and plan the WhatsApp hand-off", "auth": true},
		{"method": "GET", "path": "/api/v1/feedback/eligibility", "description": "Whether to prompt for intro feedback", "auth": true},
		{"method": "POST", "path": "/api/v1/feedback", "description": "Rate the intro message and report the outcome", "auth": true},
		{"method": "POST", "path": "/api/v1/feedback/dismiss", "description": "Hide the feedback prompt", "auth": true},
		{"method": "POST", "path": "/api/v1/reports", "description": "Report a user", "auth": true},
	}
}
