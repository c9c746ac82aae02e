// Package di provides dependency injection container for managing service lifecycle and dependencies.
package di

import (
	"context"
	"sync"

	"ocrtranslate/internal/api"
	"ocrtranslate/internal/config"
	"ocrtranslate/internal/handlers"
	"ocrtranslate/internal/middleware"
	"ocrtranslate/internal/observability"
	"ocrtranslate/internal/serviceinterfaces"
	"ocrtranslate/internal/services"
	contextutils "ocrtranslate/internal/utils"

	"github.com/gin-gonic/gin"
)

// Registered service names
const (
	ServiceRecognizer   = "recognizer"
	ServiceTranslation  = "translation"
	ServicePipeline     = "pipeline"
	ServiceSchemaLoader = "schema_loader"
)

// ServiceContainerInterface defines the interface for service containers
type ServiceContainerInterface interface {
	GetService(name string) (interface{}, error)
	GetRecognizer() (serviceinterfaces.TextRecognizer, error)
	GetTranslationService() (serviceinterfaces.TranslationService, error)
	GetPipeline() (serviceinterfaces.OCRPipeline, error)
	GetConfig() *config.Config
	GetLogger() *observability.Logger
	Router() (*gin.Engine, error)
	Initialize(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// ServiceContainer manages all service dependencies and lifecycle
type ServiceContainer struct {
	cfg           *config.Config
	logger        *observability.Logger
	services      map[string]interface{}
	mu            sync.RWMutex
	shutdownFuncs []func(context.Context) error
}

var _ ServiceContainerInterface = (*ServiceContainer)(nil)

// NewServiceContainer creates a new dependency injection container
func NewServiceContainer(cfg *config.Config, logger *observability.Logger) *ServiceContainer {
	return &ServiceContainer{
		cfg:      cfg,
		logger:   logger,
		services: make(map[string]interface{}),
	}
}

// Initialize sets up all services and their dependencies
func (sc *ServiceContainer) Initialize(ctx context.Context) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if err := sc.initializeServices(ctx); err != nil {
		_ = sc.cleanup(ctx)
		return contextutils.WrapError(err, "failed to initialize services")
	}
	return nil
}

// AddShutdownFunc registers a function run in reverse order by Shutdown
func (sc *ServiceContainer) AddShutdownFunc(fn func(context.Context) error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.shutdownFuncs = append(sc.shutdownFuncs, fn)
}

// GetService retrieves a service by name with type assertion
func (sc *ServiceContainer) GetService(name string) (interface{}, error) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	service, exists := sc.services[name]
	if !exists {
		return nil, contextutils.ErrorWithContextf("service %s not found", name)
	}
	return service, nil
}

// GetServiceAs performs type-safe service retrieval
func GetServiceAs[T any](sc *ServiceContainer, name string) (T, error) {
	var zero T
	service, err := sc.GetService(name)
	if err != nil {
		return zero, err
	}

	typed, ok := service.(T)
	if !ok {
		return zero, contextutils.ErrorWithContextf("service %s is not of expected type %T", name, zero)
	}
	return typed, nil
}

// GetRecognizer returns the OCR engine wrapper
func (sc *ServiceContainer) GetRecognizer() (serviceinterfaces.TextRecognizer, error) {
	return GetServiceAs[serviceinterfaces.TextRecognizer](sc, ServiceRecognizer)
}

// GetTranslationService returns the configured translation provider
func (sc *ServiceContainer) GetTranslationService() (serviceinterfaces.TranslationService, error) {
	return GetServiceAs[serviceinterfaces.TranslationService](sc, ServiceTranslation)
}

// GetPipeline returns the OCR pipeline
func (sc *ServiceContainer) GetPipeline() (serviceinterfaces.OCRPipeline, error) {
	return GetServiceAs[serviceinterfaces.OCRPipeline](sc, ServicePipeline)
}

// GetConfig returns the configuration
func (sc *ServiceContainer) GetConfig() *config.Config {
	return sc.cfg
}

// GetLogger returns the logger
func (sc *ServiceContainer) GetLogger() *observability.Logger {
	return sc.logger
}

// Router builds the HTTP router from the initialized services
func (sc *ServiceContainer) Router() (*gin.Engine, error) {
	recognizer, err := sc.GetRecognizer()
	if err != nil {
		return nil, err
	}
	translator, err := sc.GetTranslationService()
	if err != nil {
		return nil, err
	}
	pipeline, err := sc.GetPipeline()
	if err != nil {
		return nil, err
	}
	loader, err := GetServiceAs[*middleware.SchemaLoader](sc, ServiceSchemaLoader)
	if err != nil {
		return nil, err
	}

	return handlers.NewRouter(sc.cfg, pipeline, recognizer, translator, loader, sc.logger), nil
}

// Shutdown gracefully shuts down all services
func (sc *ServiceContainer) Shutdown(ctx context.Context) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	return sc.cleanup(ctx)
}

// cleanup runs the registered shutdown functions in reverse order
func (sc *ServiceContainer) cleanup(ctx context.Context) error {
	var errs []error
	for i := len(sc.shutdownFuncs) - 1; i >= 0; i-- {
		if err := sc.shutdownFuncs[i](ctx); err != nil {
			sc.logger.Error(ctx, "Shutdown step failed", err, nil)
			errs = append(errs, err)
		}
	}
	sc.shutdownFuncs = nil

	if len(errs) > 0 {
		return contextutils.ErrorWithContextf("shutdown errors: %v", errs)
	}
	return nil
}

// initializeServices sets up all service dependencies
func (sc *ServiceContainer) initializeServices(ctx context.Context) error {
	recognizer := services.NewTesseractRecognizer(sc.cfg.OCR, sc.logger)
	translator := services.NewTranslationService(sc.cfg, sc.logger)

	metrics, err := observability.NewPipelineMetrics(nil)
	if err != nil {
		return contextutils.WrapError(err, "failed to create pipeline metrics")
	}

	loader := middleware.NewSchemaLoader()
	if err := loader.LoadSchemas(api.OpenAPISpec); err != nil {
		return contextutils.WrapError(err, "failed to load API schemas")
	}

	sc.services[ServiceRecognizer] = recognizer
	sc.services[ServiceTranslation] = translator
	sc.services[ServicePipeline] = services.NewOCRPipelineService(recognizer, translator, metrics, sc.logger,
		services.WithMaxImagePixels(sc.cfg.OCR.MaxPixels))
	sc.services[ServiceSchemaLoader] = loader

	sc.logger.Info(ctx, "Services initialized", map[string]interface{}{
		"translation_enabled":  sc.cfg.Translation.Enabled,
		"translation_provider": sc.cfg.Translation.DefaultProvider,
		"ocr_languages":        sc.cfg.OCR.Languages,
	})
	return nil
}
