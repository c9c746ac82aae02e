package handlers

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"

	"ocrtranslate/internal/api"
	"ocrtranslate/internal/config"
	"ocrtranslate/internal/middleware"
	"ocrtranslate/internal/observability"
	"ocrtranslate/internal/serviceinterfaces"
	"ocrtranslate/internal/version"
)

// When adding new API endpoints, document them in internal/api/openapi.yaml;
// responses of documented endpoints are checked against it when validation is enabled.

// NewRouter creates a new router with all the necessary middleware and routes
func NewRouter(
	cfg *config.Config,
	pipeline serviceinterfaces.OCRPipeline,
	recognizer serviceinterfaces.TextRecognizer,
	translator serviceinterfaces.TranslationService,
	schemaLoader *middleware.SchemaLoader,
	logger *observability.Logger,
) *gin.Engine {
	// Setup Gin mode
	gin.SetMode(gin.ReleaseMode)
	if cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
	}

	serviceName := cfg.OpenTelemetry.ServiceName
	if serviceName == "" {
		serviceName = "ocr-backend"
	}

	router := gin.New()
	router.Use(middleware.ErrorRecoveryMiddleware(logger))
	router.Use(requestLoggingMiddleware(logger))

	// Add OpenTelemetry middleware for HTTP tracing and context propagation with automatic error attributes
	router.Use(observability.GinMiddlewareWithErrorHandling(serviceName)...)

	// Disable automatic redirection for trailing slashes, which is better for APIs
	router.RedirectTrailingSlash = false

	router.Use(cors.New(corsConfig(cfg.Server.CORSOrigins)))

	// Security middleware
	secureConfig := secure.DefaultConfig()
	secureConfig.SSLRedirect = false
	secureConfig.IsDevelopment = cfg.Server.Debug
	router.Use(secure.New(secureConfig))

	if cfg.Server.ValidateResponses && schemaLoader != nil {
		router.Use(middleware.ResponseValidationMiddleware(schemaLoader, logger))
	}

	router.GET("/health", func(c *gin.Context) {
		resp := api.HealthResponse{Status: "ok", Service: serviceName}
		if recognizer != nil {
			resp.Tesseract = recognizer.Version()
		}
		c.JSON(http.StatusOK, resp)
	})

	router.GET("/openapi.yaml", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/yaml", api.OpenAPISpec)
	})

	ocrHandler := NewOCRHandler(pipeline, cfg, logger)
	router.POST("/ocr", ocrHandler.Recognize)

	v1 := router.Group("/v1")
	{
		v1.GET("/version", func(c *gin.Context) {
			info := version.Get()
			c.JSON(http.StatusOK, api.VersionResponse{
				Service:   serviceName,
				Version:   info.Version,
				Commit:    info.Commit,
				BuildTime: info.BuildTime,
			})
		})

		v1.GET("/languages", func(c *gin.Context) {
			languages := []string{}
			if translator != nil {
				languages = append(languages, translator.GetSupportedLanguages()...)
			}
			c.JSON(http.StatusOK, api.LanguagesResponse{
				Languages: languages,
				Default:   cfg.Server.DefaultLanguage,
			})
		})
	}

	return router
}

// corsConfig allows any origin unless specific origins are configured
func corsConfig(origins []string) cors.Config {
	corsConfig := cors.DefaultConfig()
	if len(origins) == 0 || slices.Contains(origins, "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = origins
	}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "X-Requested-With"}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	return corsConfig
}

// requestLoggingMiddleware logs every request through the observability logger
func requestLoggingMiddleware(logger *observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		statusCode := c.Writer.Status()
		fields := map[string]interface{}{
			"http.method":      c.Request.Method,
			"http.path":        c.Request.URL.Path,
			"http.status_code": statusCode,
			"http.latency_ms":  time.Since(start).Milliseconds(),
			"http.client_ip":   c.ClientIP(),
			"http.user_agent":  c.Request.UserAgent(),
		}

		if len(c.Errors) > 0 {
			fields["http.error"] = c.Errors.String()
		}

		if statusCode >= 400 {
			if c.Writer.Size() > 0 {
				fields["http.response_size"] = c.Writer.Size()
			}
			if statusCode >= 500 {
				fields["http.error_type"] = "server_error"
			} else {
				fields["http.error_type"] = "client_error"
			}
		}

		switch {
		case statusCode >= 500:
			logger.Error(c.Request.Context(), "HTTP request failed", nil, fields)
		case statusCode >= 400:
			logger.Warn(c.Request.Context(), "HTTP request warning", fields)
		default:
			logger.Info(c.Request.Context(), "HTTP request", fields)
		}
	}
}
