package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"ocrtranslate/internal/config"
	"ocrtranslate/internal/observability"
	"ocrtranslate/internal/serviceinterfaces"
	contextutils "ocrtranslate/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func googleProvider(baseURL string) config.TranslationProviderConfig {
	return config.TranslationProviderConfig{
		Name:          "Google Cloud Translation",
		Code:          config.ProviderGoogle,
		BaseURL:       baseURL,
		APIEndpoint:   config.GoogleCloudEndpoint,
		APIKey:        "test-key",
		MaxTextLength: config.DefaultMaxTextLength,
		Timeout:       5 * time.Second,
	}
}

func googleWebProvider(baseURL string) config.TranslationProviderConfig {
	return config.TranslationProviderConfig{
		Name:          "Google Translate",
		Code:          config.ProviderGoogleWeb,
		BaseURL:       baseURL,
		APIEndpoint:   config.GoogleWebEndpoint,
		MaxTextLength: config.DefaultMaxTextLength,
		Timeout:       5 * time.Second,
	}
}

func TestNoopTranslationService_Translate(t *testing.T) {
	service := NewNoopTranslationService()

	result, err := service.Translate(context.Background(), serviceinterfaces.TranslateRequest{
		Text:           "Hello world",
		SourceLanguage: config.SourceLanguageAuto,
		TargetLanguage: "es",
	})
	require.NoError(t, err)
	assert.Equal(t, serviceinterfaces.TranslateResponse{
		TranslatedText: "Hello world",
		SourceLanguage: "auto",
		TargetLanguage: "es",
		Provider:       "noop",
		Confidence:     1.0,
	}, *result)
}

func TestTranslationServices_ValidateLanguageCode(t *testing.T) {
	google := map[string]TranslationServiceInterface{
		"google":     NewGoogleTranslationService(googleProvider("http://unused"), observability.NewNopLogger()),
		"google_web": NewGoogleWebTranslationService(googleWebProvider("http://unused"), observability.NewNopLogger()),
	}

	supported := []string{"en", "es", "zh-CN", "zh-cn", "iw", "english", "German", "chinese (traditional)"}
	unsupported := []string{"", "a", "xx", "zz9", "eng", "pt-BR", "qq-QQ", "klingon", "invalid@code"}

	for name, service := range google {
		for _, code := range supported {
			t.Run(name+"_supported_"+code, func(t *testing.T) {
				assert.NoError(t, service.ValidateLanguageCode(code))
			})
		}
		for _, code := range unsupported {
			t.Run(name+"_unsupported_"+code, func(t *testing.T) {
				assert.ErrorIs(t, service.ValidateLanguageCode(code), contextutils.ErrInvalidInput)
			})
		}
	}

	noop := NewNoopTranslationService()
	for _, code := range []string{"en", "pt-BR", "xx"} {
		assert.NoError(t, noop.ValidateLanguageCode(code), code)
	}
	for _, code := range []string{"", "a", "toolonglanguagecode", "invalid@code"} {
		assert.ErrorIs(t, noop.ValidateLanguageCode(code), contextutils.ErrInvalidInput, code)
	}
}

func TestResolveGoogleLanguage(t *testing.T) {
	tests := map[string]string{
		"fr":                   "fr",
		" de ":                 "de",
		"ZH-tw":                "zh-TW",
		"english":              "en",
		"Spanish":              "es",
		"chinese (simplified)": "zh-CN",
		"meiteilon (manipuri)": "mni-Mtei",
	}
	for input, want := range tests {
		got, err := resolveGoogleLanguage(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := resolveGoogleLanguage("xx")
	var appErr *contextutils.AppError
	require.True(t, contextutils.AsError(err, &appErr))
	assert.Equal(t, contextutils.ErrorCodeInvalidInput, appErr.Code)
	assert.Equal(t, "Unsupported language", appErr.Message)
	assert.Contains(t, appErr.Details, `"xx"`)
}

func TestTranslationServices_GetSupportedLanguages(t *testing.T) {
	google := NewGoogleTranslationService(googleProvider("http://unused"), observability.NewNopLogger())
	assert.Contains(t, google.GetSupportedLanguages(), "zh-CN")
	assert.Contains(t, google.GetSupportedLanguages(), "en")

	web := NewGoogleWebTranslationService(googleWebProvider("http://unused"), observability.NewNopLogger())
	assert.Equal(t, google.GetSupportedLanguages(), web.GetSupportedLanguages())

	assert.Contains(t, NewNoopTranslationService().GetSupportedLanguages(), "fr")
}

func TestGoogleTranslationService_Translate(t *testing.T) {
	var captured GoogleTranslateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, config.GoogleCloudEndpoint, r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"translations":[{"translatedText":"Bonjour le monde","detectedSourceLanguage":"en"}]}}`))
	}))
	defer server.Close()

	service := NewGoogleTranslationService(googleProvider(server.URL), observability.NewNopLogger())
	result, err := service.Translate(context.Background(), serviceinterfaces.TranslateRequest{
		Text:           "Hello world",
		SourceLanguage: config.SourceLanguageAuto,
		TargetLanguage: "fr",
	})
	require.NoError(t, err)

	assert.Equal(t, "Bonjour le monde", result.TranslatedText)
	assert.Equal(t, "en", result.SourceLanguage)
	assert.Equal(t, "fr", result.TargetLanguage)

	assert.Equal(t, []string{"Hello world"}, captured.Q)
	assert.Equal(t, "fr", captured.Target)
	assert.Empty(t, captured.Source, "auto source is left for the API to detect")
	assert.Equal(t, "text", captured.Format)
}

func TestGoogleTranslationService_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req GoogleTranslateRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		switch req.Target {
		case "la":
			http.Error(w, `{"error":{"message":"Invalid Value"}}`, http.StatusBadRequest)
		default:
			_, _ = w.Write([]byte(`{"data":{"translations":[]}}`))
		}
	}))
	defer server.Close()

	t.Run("api error", func(t *testing.T) {
		service := NewGoogleTranslationService(googleProvider(server.URL), observability.NewNopLogger())
		_, err := service.Translate(context.Background(), serviceinterfaces.TranslateRequest{Text: "Hello", TargetLanguage: "la"})
		require.Error(t, err)

		var appErr *contextutils.AppError
		require.True(t, contextutils.AsError(err, &appErr))
		assert.Equal(t, contextutils.ErrorCodeServiceUnavailable, appErr.Code)
		assert.Contains(t, appErr.PublicMessage(), "400")
		assert.Contains(t, appErr.PublicMessage(), "Invalid Value")
	})

	t.Run("empty translations", func(t *testing.T) {
		service := NewGoogleTranslationService(googleProvider(server.URL), observability.NewNopLogger())
		_, err := service.Translate(context.Background(), serviceinterfaces.TranslateRequest{Text: "Hello", TargetLanguage: "de"})
		assert.ErrorIs(t, err, contextutils.ErrServiceUnavailable)
	})

	t.Run("missing api key", func(t *testing.T) {
		provider := googleProvider(server.URL)
		provider.APIKey = ""
		service := NewGoogleTranslationService(provider, observability.NewNopLogger())
		_, err := service.Translate(context.Background(), serviceinterfaces.TranslateRequest{Text: "Hello", TargetLanguage: "de"})
		assert.ErrorIs(t, err, contextutils.ErrServiceUnavailable)
	})

	t.Run("invalid target language", func(t *testing.T) {
		service := NewGoogleTranslationService(googleProvider(server.URL), observability.NewNopLogger())
		_, err := service.Translate(context.Background(), serviceinterfaces.TranslateRequest{Text: "Hello", TargetLanguage: "not a code"})
		assert.ErrorIs(t, err, contextutils.ErrInvalidInput)
	})

	t.Run("unreachable server", func(t *testing.T) {
		service := NewGoogleTranslationService(googleProvider("http://127.0.0.1:1"), observability.NewNopLogger())
		_, err := service.Translate(context.Background(), serviceinterfaces.TranslateRequest{Text: "Hello", TargetLanguage: "de"})
		assert.ErrorIs(t, err, contextutils.ErrServiceUnavailable)
	})
}

const resultPage = `<!DOCTYPE html>
<html><head><title>Google Translate</title></head>
<body>
<div class="header">Google Translate</div>
<div class="result-container">Hallo &amp; willkommen<br>zweite Zeile</div>
</body></html>`

func TestGoogleWebTranslationService_Translate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, config.GoogleWebEndpoint, r.URL.Path)
		assert.Equal(t, "auto", r.URL.Query().Get("sl"))
		assert.Equal(t, "de", r.URL.Query().Get("tl"))
		assert.Equal(t, "Hello & welcome\nsecond line", r.URL.Query().Get("q"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(resultPage))
	}))
	defer server.Close()

	service := NewGoogleWebTranslationService(googleWebProvider(server.URL), observability.NewNopLogger())
	result, err := service.Translate(context.Background(), serviceinterfaces.TranslateRequest{
		Text:           "Hello & welcome\nsecond line",
		SourceLanguage: config.SourceLanguageAuto,
		TargetLanguage: "de",
	})
	require.NoError(t, err)

	assert.Equal(t, "Hallo & willkommen\nzweite Zeile", result.TranslatedText)
	assert.Equal(t, "auto", result.SourceLanguage)
	assert.Equal(t, "de", result.TargetLanguage)
}

func TestGoogleWebTranslationService_Errors(t *testing.T) {
	t.Run("no result container", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`<html><body><div class="other">nothing</div></body></html>`))
		}))
		defer server.Close()

		service := NewGoogleWebTranslationService(googleWebProvider(server.URL), observability.NewNopLogger())
		_, err := service.Translate(context.Background(), serviceinterfaces.TranslateRequest{Text: "Hello", TargetLanguage: "de"})
		require.Error(t, err)
		assert.ErrorIs(t, err, contextutils.ErrServiceUnavailable)
	})

	t.Run("upstream status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		service := NewGoogleWebTranslationService(googleWebProvider(server.URL), observability.NewNopLogger())
		_, err := service.Translate(context.Background(), serviceinterfaces.TranslateRequest{Text: "Hello", TargetLanguage: "de"})

		var appErr *contextutils.AppError
		require.True(t, contextutils.AsError(err, &appErr))
		assert.Contains(t, appErr.PublicMessage(), "429")
	})

	t.Run("text too long", func(t *testing.T) {
		service := NewGoogleWebTranslationService(googleWebProvider("http://unused"), observability.NewNopLogger())
		_, err := service.Translate(context.Background(), serviceinterfaces.TranslateRequest{
			Text:           strings.Repeat("ä", config.DefaultMaxTextLength+1),
			TargetLanguage: "de",
		})
		assert.ErrorIs(t, err, contextutils.ErrInvalidInput)
	})

	t.Run("text at limit counts characters", func(t *testing.T) {
		_, err := prepareGoogleRequest(serviceinterfaces.TranslateRequest{
			Text:           strings.Repeat("ä", config.DefaultMaxTextLength),
			TargetLanguage: "de",
		}, config.DefaultMaxTextLength)
		assert.NoError(t, err)
	})

	t.Run("blank text", func(t *testing.T) {
		service := NewGoogleWebTranslationService(googleWebProvider("http://unused"), observability.NewNopLogger())
		_, err := service.Translate(context.Background(), serviceinterfaces.TranslateRequest{Text: " \n", TargetLanguage: "de"})
		assert.ErrorIs(t, err, contextutils.ErrInvalidInput)
	})
}

func TestGoogleWebTranslationService_UnsupportedLanguageNeverReachesGoogle(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(resultPage))
	}))
	defer server.Close()

	service := NewGoogleWebTranslationService(googleWebProvider(server.URL), observability.NewNopLogger())
	for _, req := range []serviceinterfaces.TranslateRequest{
		{Text: "Hello", TargetLanguage: "xx"},
		{Text: "Hello", TargetLanguage: "eng"},
		{Text: "Hello", TargetLanguage: "de", SourceLanguage: "zz9"},
	} {
		_, err := service.Translate(context.Background(), req)
		assert.ErrorIs(t, err, contextutils.ErrInvalidInput, req.TargetLanguage)
	}
	assert.Zero(t, calls.Load())
}

func TestGoogleWebTranslationService_LanguageNames(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "en", r.URL.Query().Get("sl"))
		assert.Equal(t, "zh-CN", r.URL.Query().Get("tl"))
		_, _ = w.Write([]byte(resultPage))
	}))
	defer server.Close()

	service := NewGoogleWebTranslationService(googleWebProvider(server.URL), observability.NewNopLogger())
	result, err := service.Translate(context.Background(), serviceinterfaces.TranslateRequest{
		Text:           "Hello",
		SourceLanguage: "English",
		TargetLanguage: "chinese (simplified)",
	})
	require.NoError(t, err)
	assert.Equal(t, "zh-CN", result.TargetLanguage)
	assert.Equal(t, "en", result.SourceLanguage)
}

func TestNewTranslationService(t *testing.T) {
	logger := observability.NewNopLogger()

	t.Run("default is google web", func(t *testing.T) {
		service := NewTranslationService(config.DefaultConfig(), logger)
		assert.IsType(t, &GoogleWebTranslationService{}, service)
	})

	t.Run("google", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Translation.DefaultProvider = config.ProviderGoogle
		assert.IsType(t, &GoogleTranslationService{}, NewTranslationService(cfg, logger))
	})

	t.Run("disabled", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Translation.Enabled = false
		assert.IsType(t, &NoopTranslationService{}, NewTranslationService(cfg, logger))
	})

	t.Run("unknown provider", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Translation.DefaultProvider = "missing"
		assert.IsType(t, &NoopTranslationService{}, NewTranslationService(cfg, logger))
	})
}
