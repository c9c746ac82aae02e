package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"ocrtranslate/internal/config"
	"ocrtranslate/internal/observability"
	"ocrtranslate/internal/serviceinterfaces"
	contextutils "ocrtranslate/internal/utils"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/html"
)

// TranslationServiceInterface defines the interface for translation services
type TranslationServiceInterface = serviceinterfaces.TranslationService

// webUserAgent is sent to the keyless web endpoint, which serves the plain mobile page to browsers only
const webUserAgent = "Mozilla/5.0 (Linux; Android 10) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Mobile Safari/537.36"

// googleLanguages maps the language names Google Translate accepts to their codes
var googleLanguages = map[string]string{
	"afrikaans": "af", "albanian": "sq", "amharic": "am", "arabic": "ar", "armenian": "hy", "assamese": "as",
	"aymara": "ay", "azerbaijani": "az", "bambara": "bm", "basque": "eu", "belarusian": "be", "bengali": "bn",
	"bhojpuri": "bho", "bosnian": "bs", "bulgarian": "bg", "catalan": "ca", "cebuano": "ceb", "chichewa": "ny",
	"chinese (simplified)": "zh-CN", "chinese (traditional)": "zh-TW", "corsican": "co", "croatian": "hr",
	"czech": "cs", "danish": "da", "dhivehi": "dv", "dogri": "doi", "dutch": "nl", "english": "en",
	"esperanto": "eo", "estonian": "et", "ewe": "ee", "filipino": "tl", "finnish": "fi", "french": "fr",
	"frisian": "fy", "galician": "gl", "georgian": "ka", "german": "de", "greek": "el", "guarani": "gn",
	"gujarati": "gu", "haitian creole": "ht", "hausa": "ha", "hawaiian": "haw", "hebrew": "iw", "hindi": "hi",
	"hmong": "hmn", "hungarian": "hu", "icelandic": "is", "igbo": "ig", "ilocano": "ilo", "indonesian": "id",
	"irish": "ga", "italian": "it", "japanese": "ja", "javanese": "jw", "kannada": "kn", "kazakh": "kk",
	"khmer": "km", "kinyarwanda": "rw", "konkani": "gom", "korean": "ko", "krio": "kri",
	"kurdish (kurmanji)": "ku", "kurdish (sorani)": "ckb", "kyrgyz": "ky", "lao": "lo", "latin": "la",
	"latvian": "lv", "lingala": "ln", "lithuanian": "lt", "luganda": "lg", "luxembourgish": "lb",
	"macedonian": "mk", "maithili": "mai", "malagasy": "mg", "malay": "ms", "malayalam": "ml", "maltese": "mt",
	"maori": "mi", "marathi": "mr", "meiteilon (manipuri)": "mni-Mtei", "mizo": "lus", "mongolian": "mn",
	"myanmar": "my", "nepali": "ne", "norwegian": "no", "odia (oriya)": "or", "oromo": "om", "pashto": "ps",
	"persian": "fa", "polish": "pl", "portuguese": "pt", "punjabi": "pa", "quechua": "qu", "romanian": "ro",
	"russian": "ru", "samoan": "sm", "sanskrit": "sa", "scots gaelic": "gd", "sepedi": "nso", "serbian": "sr",
	"sesotho": "st", "shona": "sn", "sindhi": "sd", "sinhala": "si", "slovak": "sk", "slovenian": "sl",
	"somali": "so", "spanish": "es", "sundanese": "su", "swahili": "sw", "swedish": "sv", "tajik": "tg",
	"tamil": "ta", "tatar": "tt", "telugu": "te", "thai": "th", "tigrinya": "ti", "tsonga": "ts", "turkish": "tr",
	"turkmen": "tk", "twi": "ak", "ukrainian": "uk", "urdu": "ur", "uyghur": "ug", "uzbek": "uz",
	"vietnamese": "vi", "welsh": "cy", "xhosa": "xh", "yiddish": "yi", "yoruba": "yo", "zulu": "zu",
}

// googleSupportedLanguages lists target codes accepted by both Google providers
var googleSupportedLanguages = languageCodes(googleLanguages)

func languageCodes(names map[string]string) []string {
	codes := make([]string, 0, len(names))
	for _, code := range names {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	return codes
}

// resolveGoogleLanguage maps a language code or name onto the code Google expects.
// Codes match case-insensitively, so "zh-cn" resolves to "zh-CN".
func resolveGoogleLanguage(lang string) (string, error) {
	lang = strings.TrimSpace(lang)
	for _, code := range googleSupportedLanguages {
		if strings.EqualFold(code, lang) {
			return code, nil
		}
	}
	if code, ok := googleLanguages[strings.ToLower(lang)]; ok {
		return code, nil
	}
	return "", contextutils.NewAppError(contextutils.ErrorCodeInvalidInput, contextutils.SeverityWarn,
		"Unsupported language", fmt.Sprintf("language %q is not supported by Google Translate", lang))
}

func newInstrumentedClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithSpanOptions(trace.WithSpanKind(trace.SpanKindClient)),
		),
	}
}

// validateLanguageCode validates that a language code is properly formatted
func validateLanguageCode(langCode string) error {
	if !contextutils.IsValidLanguageCode(langCode) {
		return contextutils.NewAppError(contextutils.ErrorCodeInvalidInput, contextutils.SeverityWarn,
			"Invalid language code", fmt.Sprintf("invalid language code: %q", langCode))
	}
	return nil
}

// prepareGoogleRequest checks the text and resolves both languages to Google codes.
// An empty or "auto" source is left for Google to detect.
func prepareGoogleRequest(req serviceinterfaces.TranslateRequest, maxTextLength int) (serviceinterfaces.TranslateRequest, error) {
	target, err := resolveGoogleLanguage(req.TargetLanguage)
	if err != nil {
		return req, err
	}
	req.TargetLanguage = target

	if req.SourceLanguage != "" && req.SourceLanguage != config.SourceLanguageAuto {
		source, err := resolveGoogleLanguage(req.SourceLanguage)
		if err != nil {
			return req, err
		}
		req.SourceLanguage = source
	}

	if strings.TrimSpace(req.Text) == "" {
		return req, contextutils.NewAppError(contextutils.ErrorCodeInvalidInput, contextutils.SeverityWarn, "Text cannot be empty", "")
	}
	if n := utf8.RuneCountInString(req.Text); maxTextLength > 0 && n > maxTextLength {
		return req, contextutils.NewAppError(contextutils.ErrorCodeInvalidInput, contextutils.SeverityWarn, "Text too long",
			fmt.Sprintf("text length %d exceeds the translation limit of %d characters", n, maxTextLength))
	}
	return req, nil
}

func closeBody(ctx context.Context, logger *observability.Logger, body io.Closer) {
	if cerr := body.Close(); cerr != nil {
		logger.Warn(ctx, "Failed to close response body", map[string]interface{}{"error": cerr.Error()})
	}
}

// GoogleTranslationService handles translation requests using the Google Cloud Translation v2 API
type GoogleTranslationService struct {
	provider   config.TranslationProviderConfig
	httpClient *http.Client
	logger     *observability.Logger
}

// NewGoogleTranslationService creates a new Google translation service instance
func NewGoogleTranslationService(provider config.TranslationProviderConfig, logger *observability.Logger) *GoogleTranslationService {
	return &GoogleTranslationService{
		provider:   provider,
		httpClient: newInstrumentedClient(provider.Timeout),
		logger:     logger,
	}
}

// GoogleTranslateRequest represents the request format for Google Translate API
type GoogleTranslateRequest struct {
	Q      []string `json:"q"`
	Target string   `json:"target"`
	Source string   `json:"source,omitempty"`
	Format string   `json:"format"`
}

// GoogleTranslateResponse represents the response format from Google Translate API
type GoogleTranslateResponse struct {
	Data struct {
		Translations []struct {
			TranslatedText         string `json:"translatedText"`
			DetectedSourceLanguage string `json:"detectedSourceLanguage"`
		} `json:"translations"`
	} `json:"data"`
}

// Translate translates text using the Google Cloud Translation API
func (s *GoogleTranslationService) Translate(ctx context.Context, req serviceinterfaces.TranslateRequest) (result *serviceinterfaces.TranslateResponse, err error) {
	ctx, span := observability.TraceTranslationFunction(ctx, "translate_google",
		attribute.String("translation.provider", s.provider.Code),
		observability.AttributeTargetLanguage(req.TargetLanguage),
		attribute.String("translation.source_language", req.SourceLanguage),
		observability.AttributeTextLength(len(req.Text)),
	)
	defer observability.FinishSpan(span, &err)

	if s.provider.APIKey == "" {
		return nil, contextutils.NewAppError(contextutils.ErrorCodeServiceUnavailable, contextutils.SeverityError,
			"Google Translate API key not configured", "")
	}

	req, err = prepareGoogleRequest(req, s.provider.MaxTextLength)
	if err != nil {
		return nil, err
	}

	requestBody := GoogleTranslateRequest{
		Q:      []string{req.Text},
		Target: req.TargetLanguage,
		Format: "text",
	}
	if req.SourceLanguage != config.SourceLanguageAuto {
		requestBody.Source = req.SourceLanguage
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to marshal request")
	}

	endpoint := fmt.Sprintf("%s%s?key=%s", s.provider.BaseURL, s.provider.APIEndpoint, url.QueryEscape(s.provider.APIKey))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, contextutils.NewAppErrorWithCause(contextutils.ErrorCodeServiceUnavailable, contextutils.SeverityError,
			"Translation request failed", err.Error(), err)
	}
	defer closeBody(ctx, s.logger, resp.Body)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, contextutils.NewAppError(contextutils.ErrorCodeServiceUnavailable, contextutils.SeverityError,
			"Google Translate API error", fmt.Sprintf("%d - %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var googleResp GoogleTranslateResponse
	if err := json.NewDecoder(resp.Body).Decode(&googleResp); err != nil {
		return nil, contextutils.WrapError(err, "failed to decode response")
	}

	if len(googleResp.Data.Translations) == 0 {
		return nil, contextutils.NewAppError(contextutils.ErrorCodeServiceUnavailable, contextutils.SeverityError,
			"No translation returned from Google Translate API", "")
	}

	translation := googleResp.Data.Translations[0]
	source := req.SourceLanguage
	if translation.DetectedSourceLanguage != "" {
		source = translation.DetectedSourceLanguage
	}

	return &serviceinterfaces.TranslateResponse{
		TranslatedText: translation.TranslatedText,
		SourceLanguage: source,
		TargetLanguage: req.TargetLanguage,
		Provider:       config.ProviderGoogle,
	}, nil
}

// ValidateLanguageCode accepts any code or language name Google Translate supports
func (s *GoogleTranslationService) ValidateLanguageCode(langCode string) error {
	_, err := resolveGoogleLanguage(langCode)
	return err
}

// GetSupportedLanguages returns a list of supported target languages for translation
func (s *GoogleTranslationService) GetSupportedLanguages() []string {
	return googleSupportedLanguages
}

// GoogleWebTranslationService translates through the keyless Google Translate mobile page
type GoogleWebTranslationService struct {
	provider   config.TranslationProviderConfig
	httpClient *http.Client
	logger     *observability.Logger
}

// NewGoogleWebTranslationService creates a new keyless Google translation service instance
func NewGoogleWebTranslationService(provider config.TranslationProviderConfig, logger *observability.Logger) *GoogleWebTranslationService {
	return &GoogleWebTranslationService{
		provider:   provider,
		httpClient: newInstrumentedClient(provider.Timeout),
		logger:     logger,
	}
}

// Translate fetches the translated page and extracts the result-container text
func (s *GoogleWebTranslationService) Translate(ctx context.Context, req serviceinterfaces.TranslateRequest) (result *serviceinterfaces.TranslateResponse, err error) {
	ctx, span := observability.TraceTranslationFunction(ctx, "translate_google_web",
		attribute.String("translation.provider", s.provider.Code),
		observability.AttributeTargetLanguage(req.TargetLanguage),
		observability.AttributeTextLength(len(req.Text)),
	)
	defer observability.FinishSpan(span, &err)

	req, err = prepareGoogleRequest(req, s.provider.MaxTextLength)
	if err != nil {
		return nil, err
	}

	source := req.SourceLanguage
	if source == "" {
		source = config.SourceLanguageAuto
	}

	query := url.Values{}
	query.Set("sl", source)
	query.Set("tl", req.TargetLanguage)
	query.Set("hl", req.TargetLanguage)
	query.Set("q", req.Text)
	endpoint := s.provider.BaseURL + s.provider.APIEndpoint + "?" + query.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to create request")
	}
	httpReq.Header.Set("User-Agent", webUserAgent)

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, contextutils.NewAppErrorWithCause(contextutils.ErrorCodeServiceUnavailable, contextutils.SeverityError,
			"Translation request failed", err.Error(), err)
	}
	defer closeBody(ctx, s.logger, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, contextutils.NewAppError(contextutils.ErrorCodeServiceUnavailable, contextutils.SeverityError,
			"Google Translate request failed", fmt.Sprintf("request to Google Translate failed with status %d", resp.StatusCode))
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to parse translation page")
	}

	translated, ok := findResultContainer(doc)
	if !ok {
		return nil, contextutils.NewAppError(contextutils.ErrorCodeServiceUnavailable, contextutils.SeverityError,
			"No translation returned from Google Translate", "no translation found in the Google Translate response")
	}

	return &serviceinterfaces.TranslateResponse{
		TranslatedText: translated,
		SourceLanguage: source,
		TargetLanguage: req.TargetLanguage,
		Provider:       config.ProviderGoogleWeb,
	}, nil
}

// findResultContainer returns the text of the first div carrying the result-container class
func findResultContainer(n *html.Node) (string, bool) {
	if n.Type == html.ElementNode && n.Data == "div" && hasClass(n, "result-container") {
		var sb strings.Builder
		extractText(n, &sb)
		return sb.String(), true
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if text, ok := findResultContainer(c); ok {
			return text, true
		}
	}
	return "", false
}

func hasClass(n *html.Node, class string) bool {
	for _, attr := range n.Attr {
		if attr.Key != "class" {
			continue
		}
		for _, field := range strings.Fields(attr.Val) {
			if field == class {
				return true
			}
		}
	}
	return false
}

func extractText(n *html.Node, sb *strings.Builder) {
	switch {
	case n.Type == html.TextNode:
		sb.WriteString(n.Data)
	case n.Type == html.ElementNode && n.Data == "br":
		sb.WriteString("\n")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		extractText(c, sb)
	}
}

// ValidateLanguageCode accepts any code or language name Google Translate supports
func (s *GoogleWebTranslationService) ValidateLanguageCode(langCode string) error {
	_, err := resolveGoogleLanguage(langCode)
	return err
}

// GetSupportedLanguages returns a list of supported target languages for translation
func (s *GoogleWebTranslationService) GetSupportedLanguages() []string {
	return googleSupportedLanguages
}

// NoopTranslationService is a no-operation implementation for testing and development
type NoopTranslationService struct{}

// NewNoopTranslationService creates a new noop translation service instance
func NewNoopTranslationService() *NoopTranslationService {
	return &NoopTranslationService{}
}

// Translate returns the original text unchanged (no-op)
func (s *NoopTranslationService) Translate(_ context.Context, req serviceinterfaces.TranslateRequest) (*serviceinterfaces.TranslateResponse, error) {
	return &serviceinterfaces.TranslateResponse{
		TranslatedText: req.Text,
		SourceLanguage: req.SourceLanguage,
		TargetLanguage: req.TargetLanguage,
		Provider:       config.ProviderNoop,
		Confidence:     1.0,
	}, nil
}

// ValidateLanguageCode only checks the code is well formed; the noop service translates nothing
func (s *NoopTranslationService) ValidateLanguageCode(langCode string) error {
	return validateLanguageCode(langCode)
}

// GetSupportedLanguages returns a list of supported target languages for translation
func (s *NoopTranslationService) GetSupportedLanguages() []string {
	return []string{
		"en", "es", "fr", "de", "it", "pt", "ru", "ja", "ko", "zh",
	}
}

// NewTranslationService creates a translation service based on configuration.
// Disabled translation, or a default provider that is not configured, yields the noop service.
func NewTranslationService(cfg *config.Config, logger *observability.Logger) TranslationServiceInterface {
	if !cfg.Translation.Enabled {
		return NewNoopTranslationService()
	}

	providerConfig, exists := cfg.Translation.Providers[cfg.Translation.DefaultProvider]
	if !exists {
		logger.Warn(context.Background(), "Translation provider not configured, using noop", map[string]interface{}{
			"provider": cfg.Translation.DefaultProvider,
		})
		return NewNoopTranslationService()
	}

	switch providerConfig.Code {
	case config.ProviderGoogle:
		return NewGoogleTranslationService(providerConfig, logger)
	case config.ProviderGoogleWeb:
		return NewGoogleWebTranslationService(providerConfig, logger)
	default:
		return NewNoopTranslationService()
	}
}
