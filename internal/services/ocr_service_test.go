package services

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"ocrtranslate/internal/config"
	"ocrtranslate/internal/observability"
	contextutils "ocrtranslate/internal/utils"

	"github.com/otiai10/gosseract/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	mu        sync.Mutex
	prefix    string
	languages []string
	psm       gosseract.PageSegMode
	image     []byte
	closed    bool

	text    string
	textErr error
	setErr  error
	block   chan struct{}
}

func (e *fakeEngine) SetTessdataPrefix(prefix string) error {
	e.prefix = prefix
	return nil
}

func (e *fakeEngine) SetLanguage(langs ...string) error {
	e.languages = langs
	return nil
}

func (e *fakeEngine) SetPageSegMode(mode gosseract.PageSegMode) error {
	e.psm = mode
	return nil
}

func (e *fakeEngine) SetImageFromBytes(data []byte) error {
	e.image = data
	return e.setErr
}

func (e *fakeEngine) Text() (string, error) {
	if e.block != nil {
		<-e.block
	}
	return e.text, e.textErr
}

func (e *fakeEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

func (e *fakeEngine) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

func newTestRecognizer(cfg config.OCRConfig, engine *fakeEngine) *TesseractRecognizer {
	r := NewTesseractRecognizer(cfg, observability.NewNopLogger())
	r.newEngine = func() ocrEngine { return engine }
	r.version = func() string { return "5.3.0" }
	return r
}

func decodedTestImage() *DecodedImage {
	return &DecodedImage{Image: testImage(), Format: "png"}
}

func TestTesseractRecognizer_Recognize(t *testing.T) {
	engine := &fakeEngine{text: "Hello\nWorld\n"}
	r := newTestRecognizer(config.OCRConfig{
		TessdataPrefix: "/opt/tessdata",
		Languages:      []string{"eng", "fra"},
		PageSegMode:    6,
	}, engine)

	text, err := r.Recognize(context.Background(), decodedTestImage())
	require.NoError(t, err)

	assert.Equal(t, "Hello\nWorld\n", text, "text is returned verbatim")
	assert.Equal(t, "/opt/tessdata", engine.prefix)
	assert.Equal(t, []string{"eng", "fra"}, engine.languages)
	assert.Equal(t, gosseract.PageSegMode(6), engine.psm)
	assert.True(t, engine.isClosed())

	decoded, err := DecodeImage(engine.image, 0)
	require.NoError(t, err, "engine receives a PNG re-encoding")
	assert.Equal(t, "png", decoded.Format)
}

func TestTesseractRecognizer_DefaultsLeaveEngineSettings(t *testing.T) {
	engine := &fakeEngine{}
	r := newTestRecognizer(config.OCRConfig{PageSegMode: config.DefaultPageSegMode}, engine)

	text, err := r.Recognize(context.Background(), decodedTestImage())
	require.NoError(t, err)
	assert.Empty(t, text)
	assert.Empty(t, engine.prefix)
	assert.Nil(t, engine.languages)
	assert.Equal(t, gosseract.PSM_AUTO, engine.psm)
}

func TestTesseractRecognizer_Failures(t *testing.T) {
	t.Run("engine error", func(t *testing.T) {
		engine := &fakeEngine{textErr: errors.New("Failed loading language 'eng'")}
		r := newTestRecognizer(config.OCRConfig{}, engine)

		_, err := r.Recognize(context.Background(), decodedTestImage())
		require.Error(t, err)
		assert.ErrorIs(t, err, contextutils.ErrRecognition)

		var appErr *contextutils.AppError
		require.True(t, contextutils.AsError(err, &appErr))
		assert.Equal(t, "Failed loading language 'eng'", appErr.PublicMessage())
		assert.True(t, engine.isClosed())
	})

	t.Run("image rejected", func(t *testing.T) {
		engine := &fakeEngine{setErr: errors.New("failed to read pix from byte array")}
		r := newTestRecognizer(config.OCRConfig{}, engine)

		_, err := r.Recognize(context.Background(), decodedTestImage())
		assert.ErrorIs(t, err, contextutils.ErrRecognition)
	})

	t.Run("missing image", func(t *testing.T) {
		r := newTestRecognizer(config.OCRConfig{}, &fakeEngine{})

		_, err := r.Recognize(context.Background(), &DecodedImage{})
		assert.ErrorIs(t, err, contextutils.ErrRecognition)

		_, err = r.Recognize(context.Background(), nil)
		assert.ErrorIs(t, err, contextutils.ErrRecognition)
	})
}

func TestTesseractRecognizer_Timeout(t *testing.T) {
	engine := &fakeEngine{text: "late", block: make(chan struct{})}
	r := newTestRecognizer(config.OCRConfig{Timeout: 20 * time.Millisecond}, engine)

	start := time.Now()
	_, err := r.Recognize(context.Background(), decodedTestImage())
	require.Error(t, err)
	assert.ErrorIs(t, err, contextutils.ErrRecognition)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)

	// the abandoned engine is still running and is only released once it returns
	assert.False(t, engine.isClosed())
	close(engine.block)
	assert.Eventually(t, engine.isClosed, time.Second, 5*time.Millisecond)
}

func TestTesseractRecognizer_TimeoutNotReached(t *testing.T) {
	engine := &fakeEngine{text: "fast"}
	r := newTestRecognizer(config.OCRConfig{Timeout: time.Second}, engine)

	text, err := r.Recognize(context.Background(), decodedTestImage())
	require.NoError(t, err)
	assert.Equal(t, "fast", text)
}

func TestTesseractRecognizer_Version(t *testing.T) {
	r := newTestRecognizer(config.OCRConfig{}, &fakeEngine{})
	assert.Equal(t, "5.3.0", r.Version())
}

func TestTesseractRecognizer_ConcurrentUse(t *testing.T) {
	r := NewTesseractRecognizer(config.OCRConfig{}, observability.NewNopLogger())
	r.newEngine = func() ocrEngine { return &fakeEngine{text: "x"} }

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			text, err := r.Recognize(context.Background(), &DecodedImage{Image: image.NewGray(image.Rect(0, 0, 2, 2))})
			assert.NoError(t, err)
			assert.Equal(t, "x", text)
		}()
	}
	wg.Wait()
}
