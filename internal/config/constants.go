package config

import "time"

// Config file lookup
const (
	ConfigFileEnv     = "OCR_CONFIG_FILE"
	DefaultConfigFile = "config.yaml"
)

// Server defaults
const (
	DefaultPort              = "5001"
	DefaultMaxUploadBytes    = 20 << 20
	DefaultTargetLanguage    = "en"
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultShutdownTimeout   = 30 * time.Second
	TestTimeout              = 100 * time.Millisecond
)

// Request field names of the multipart upload
const (
	FormFieldFile     = "file"
	FormFieldLanguage = "lang"
)

// OCR defaults
const (
	// DefaultPageSegMode is PSM_AUTO: fully automatic page segmentation without OSD
	DefaultPageSegMode = 3
	// DefaultMaxImagePixels caps decoded rasters at about 179 megapixels
	DefaultMaxImagePixels int64 = 2 * 89_478_485
)

// Translation providers
const (
	ProviderGoogle    = "google"
	ProviderGoogleWeb = "google_web"
	ProviderNoop      = "noop"

	// SourceLanguageAuto asks the provider to detect the source language
	SourceLanguageAuto = "auto"

	GoogleWebBaseURL    = "https://translate.google.com"
	GoogleWebEndpoint   = "/m"
	GoogleCloudBaseURL  = "https://translation.googleapis.com"
	GoogleCloudEndpoint = "/language/translate/v2"

	DefaultMaxTextLength      = 5000
	DefaultTranslationTimeout = 30 * time.Second
)
