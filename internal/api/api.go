// Package api holds the HTTP contract: the embedded OpenAPI document and the
// response bodies it describes.
package api

import (
	_ "embed"
)

// OpenAPISpec is the OpenAPI document served at /openapi.yaml and used for response validation
//
//go:embed openapi.yaml
var OpenAPISpec []byte

// OCRResponse is returned by POST /ocr on success
type OCRResponse struct {
	Original   string `json:"original"`
	Translated string `json:"translated"`
}

// ErrorResponse is returned for every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Tesseract string `json:"tesseract,omitempty"`
}

// VersionResponse is returned by GET /v1/version
type VersionResponse struct {
	Service   string `json:"service"`
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
}

// LanguagesResponse is returned by GET /v1/languages
type LanguagesResponse struct {
	Languages []string `json:"languages"`
	Default   string   `json:"default"`
}
