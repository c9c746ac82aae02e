// Package config handles application configuration loading from a YAML file and environment variables.
package config

import (
	"errors"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	contextutils "ocrtranslate/internal/utils"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig `json:"server" yaml:"server"`

	// OCR engine configuration
	OCR OCRConfig `json:"ocr" yaml:"ocr"`

	// Translation providers
	Translation TranslationConfig `json:"translation" yaml:"translation"`

	// OpenTelemetry Configuration
	OpenTelemetry OpenTelemetryConfig `json:"open_telemetry" yaml:"open_telemetry"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host              string        `json:"host" yaml:"host"`
	Port              string        `json:"port" yaml:"port" validate:"required,numeric"`
	Debug             bool          `json:"debug" yaml:"debug"`
	LogLevel          string        `json:"log_level" yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	CORSOrigins       []string      `json:"cors_origins" yaml:"cors_origins"`
	MaxUploadBytes    int64         `json:"max_upload_bytes" yaml:"max_upload_bytes" validate:"gt=0"`
	DefaultLanguage   string        `json:"default_language" yaml:"default_language" validate:"required,langcode"`
	ValidateResponses bool          `json:"validate_responses" yaml:"validate_responses"`
	ReadHeaderTimeout time.Duration `json:"read_header_timeout" yaml:"read_header_timeout" validate:"gte=0"`
	ShutdownTimeout   time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" validate:"gte=0"`
}

// Address returns the host:port the HTTP server binds to
func (s ServerConfig) Address() string {
	return s.Host + ":" + s.Port
}

// OCRConfig configures the Tesseract engine. It is injected into the recognizer at construction.
type OCRConfig struct {
	// TessdataPrefix points at the engine's tessdata directory; empty uses the engine default
	TessdataPrefix string `json:"tessdata_prefix" yaml:"tessdata_prefix"`
	// Languages are the engine language packs to load; empty uses the engine default
	Languages []string `json:"languages" yaml:"languages"`
	// PageSegMode is Tesseract's page segmentation mode (0-13); 3 is fully automatic
	PageSegMode int `json:"page_seg_mode" yaml:"page_seg_mode" validate:"gte=0,lte=13"`
	// Timeout bounds a single recognition; 0 disables the bound
	Timeout time.Duration `json:"timeout" yaml:"timeout" validate:"gte=0"`
	// MaxPixels caps width*height of an upload, checked before the raster is allocated; 0 disables the cap
	MaxPixels int64 `json:"max_pixels" yaml:"max_pixels" validate:"gte=0"`
}

// TranslationConfig holds the available translation providers
type TranslationConfig struct {
	Enabled         bool                                 `json:"enabled" yaml:"enabled"`
	DefaultProvider string                               `json:"default_provider" yaml:"default_provider" validate:"required_if=Enabled true"`
	Providers       map[string]TranslationProviderConfig `json:"providers" yaml:"providers" validate:"dive"`
}

// TranslationProviderConfig configures a single translation backend
type TranslationProviderConfig struct {
	Name          string        `json:"name" yaml:"name"`
	Code          string        `json:"code" yaml:"code" validate:"required,oneof=google google_web noop"`
	BaseURL       string        `json:"base_url" yaml:"base_url" validate:"omitempty,url"`
	APIEndpoint   string        `json:"api_endpoint" yaml:"api_endpoint"`
	APIKey        string        `json:"api_key" yaml:"api_key"`
	MaxTextLength int           `json:"max_text_length" yaml:"max_text_length" validate:"gte=0"`
	Timeout       time.Duration `json:"timeout" yaml:"timeout" validate:"gte=0"`
}

// OpenTelemetryConfig holds all OpenTelemetry-related configuration
type OpenTelemetryConfig struct {
	Endpoint       string            `json:"endpoint" yaml:"endpoint"`               // Default: "localhost:4317"
	Protocol       string            `json:"protocol" yaml:"protocol"`               // "grpc" or "http", default: "grpc"
	Insecure       bool              `json:"insecure" yaml:"insecure"`               // Default: true (for localhost)
	Headers        map[string]string `json:"headers" yaml:"headers"`                 // For authenticated endpoints
	ServiceName    string            `json:"service_name" yaml:"service_name"`       // Default: "ocr-backend"
	ServiceVersion string            `json:"service_version" yaml:"service_version"` // From version package
	EnableTracing  bool              `json:"enable_tracing" yaml:"enable_tracing"`
	EnableMetrics  bool              `json:"enable_metrics" yaml:"enable_metrics"`
	EnableLogging  bool              `json:"enable_logging" yaml:"enable_logging"`
	UseAutoSDK     bool              `json:"use_auto_sdk" yaml:"use_auto_sdk"`
	SamplingRate   float64           `json:"sampling_rate" yaml:"sampling_rate" validate:"gte=0,lte=1"`
}

// DefaultConfig returns the configuration used when no file is present
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              DefaultPort,
			LogLevel:          "info",
			CORSOrigins:       []string{"*"},
			MaxUploadBytes:    DefaultMaxUploadBytes,
			DefaultLanguage:   DefaultTargetLanguage,
			ReadHeaderTimeout: DefaultReadHeaderTimeout,
			ShutdownTimeout:   DefaultShutdownTimeout,
		},
		OCR: OCRConfig{
			PageSegMode: DefaultPageSegMode,
			MaxPixels:   DefaultMaxImagePixels,
		},
		Translation: TranslationConfig{
			Enabled:         true,
			DefaultProvider: ProviderGoogleWeb,
			Providers: map[string]TranslationProviderConfig{
				ProviderGoogleWeb: {
					Name:          "Google Translate (web)",
					Code:          ProviderGoogleWeb,
					BaseURL:       GoogleWebBaseURL,
					APIEndpoint:   GoogleWebEndpoint,
					MaxTextLength: DefaultMaxTextLength,
					Timeout:       DefaultTranslationTimeout,
				},
				ProviderGoogle: {
					Name:          "Google Cloud Translation",
					Code:          ProviderGoogle,
					BaseURL:       GoogleCloudBaseURL,
					APIEndpoint:   GoogleCloudEndpoint,
					MaxTextLength: DefaultMaxTextLength,
					Timeout:       DefaultTranslationTimeout,
				},
			},
		},
		OpenTelemetry: OpenTelemetryConfig{
			Endpoint:      "localhost:4317",
			Protocol:      "grpc",
			Insecure:      true,
			ServiceName:   "ocr-backend",
			EnableLogging: true,
			SamplingRate:  1.0,
		},
	}
}

// NewConfig loads configuration from YAML file first, then overrides with environment variables
func NewConfig() (result0 *Config, err error) {
	config, err := loadConfigWithOverrides()
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to load config: %w", err)
	}

	config.overrideFromEnv()
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the configuration against its struct tags
func (c *Config) Validate() error {
	if err := contextutils.ValidateStruct(c); err != nil {
		return contextutils.WrapError(err, "invalid configuration")
	}
	if c.Translation.Enabled {
		if _, ok := c.Translation.Providers[c.Translation.DefaultProvider]; !ok {
			return contextutils.NewAppError(contextutils.ErrorCodeInvalidInput, contextutils.SeverityError,
				"invalid configuration", "translation provider not configured: "+c.Translation.DefaultProvider)
		}
	}
	return nil
}

// applyDefaults fills values a partial YAML provider block leaves empty
func (c *Config) applyDefaults() {
	for key, provider := range c.Translation.Providers {
		if provider.Code == "" {
			provider.Code = key
		}
		if provider.MaxTextLength == 0 {
			provider.MaxTextLength = DefaultMaxTextLength
		}
		if provider.Timeout == 0 {
			provider.Timeout = DefaultTranslationTimeout
		}
		switch provider.Code {
		case ProviderGoogleWeb:
			if provider.BaseURL == "" {
				provider.BaseURL = GoogleWebBaseURL
			}
			if provider.APIEndpoint == "" {
				provider.APIEndpoint = GoogleWebEndpoint
			}
		case ProviderGoogle:
			if provider.BaseURL == "" {
				provider.BaseURL = GoogleCloudBaseURL
			}
			if provider.APIEndpoint == "" {
				provider.APIEndpoint = GoogleCloudEndpoint
			}
		}
		c.Translation.Providers[key] = provider
	}
}

// overrideFromEnv overrides config values with environment variables using reflection
func (c *Config) overrideFromEnv() {
	overrideStructFromEnvWithPrefix(c, "")

	// PaaS-style bind port
	if port := os.Getenv("PORT"); port != "" && os.Getenv("SERVER_PORT") == "" {
		c.Server.Port = port
	}
}

var durationType = reflect.TypeOf(time.Duration(0))

// overrideStructFromEnvWithPrefix recursively overrides struct fields with environment variables
func overrideStructFromEnvWithPrefix(v interface{}, prefix string) {
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	if val.Kind() != reflect.Struct {
		return
	}

	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)

		if !field.CanSet() {
			continue
		}

		yamlTag := strings.Split(fieldType.Tag.Get("yaml"), ",")[0]
		if yamlTag == "" || yamlTag == "-" {
			continue
		}

		envKey := envName(prefix, yamlTag)

		switch field.Kind() {
		case reflect.String:
			if envVal := os.Getenv(envKey); envVal != "" {
				field.SetString(envVal)
			}
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			envVal := os.Getenv(envKey)
			if envVal == "" {
				continue
			}
			if field.Type() == durationType {
				if d, err := time.ParseDuration(envVal); err == nil {
					field.SetInt(int64(d))
				}
				continue
			}
			if intVal, err := strconv.ParseInt(envVal, 10, 64); err == nil {
				field.SetInt(intVal)
			}
		case reflect.Float32, reflect.Float64:
			if envVal := os.Getenv(envKey); envVal != "" {
				if floatVal, err := strconv.ParseFloat(envVal, 64); err == nil {
					field.SetFloat(floatVal)
				}
			}
		case reflect.Bool:
			if envVal := os.Getenv(envKey); envVal != "" {
				if boolVal, err := strconv.ParseBool(envVal); err == nil {
					field.SetBool(boolVal)
				}
			}
		case reflect.Slice:
			if envVal := os.Getenv(envKey); envVal != "" {
				if field.Type().Elem().Kind() == reflect.String {
					slice := strings.Split(envVal, ",")
					for j := range slice {
						slice[j] = strings.TrimSpace(slice[j])
					}
					field.Set(reflect.ValueOf(slice))
				}
			}
		case reflect.Struct:
			if field.CanAddr() {
				overrideStructFromEnvWithPrefix(field.Addr().Interface(), envKey)
			}
		case reflect.Map:
			// Map entries of structs, e.g. TRANSLATION_PROVIDERS_GOOGLE_API_KEY
			if field.IsNil() || field.Type().Key().Kind() != reflect.String || field.Type().Elem().Kind() != reflect.Struct {
				continue
			}
			for _, key := range field.MapKeys() {
				entry := reflect.New(field.Type().Elem())
				entry.Elem().Set(field.MapIndex(key))
				overrideStructFromEnvWithPrefix(entry.Interface(), envName(envKey, key.String()))
				field.SetMapIndex(key, entry.Elem())
			}
		}
	}
}

func envName(prefix, name string) string {
	key := strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
	if prefix != "" {
		key = prefix + "_" + key
	}
	return key
}

// loadConfigWithOverrides loads the config file named by OCR_CONFIG_FILE, falling back to
// config.yaml and finally to built-in defaults
func loadConfigWithOverrides() (result0 *Config, err error) {
	if envPath := os.Getenv(ConfigFileEnv); envPath != "" {
		config, err := loadConfigFromFile(envPath)
		if err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to load config from %s: %w", envPath, err)
		}
		return config, nil
	}

	config, err := loadConfigFromFile(DefaultConfigFile)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultConfig(), nil
	}
	return config, err
}

// loadConfigFromFile loads configuration from a specific file on top of the defaults
func loadConfigFromFile(path string) (result0 *Config, err error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(yamlFile, config); err != nil {
		return nil, err
	}

	return config, nil
}
