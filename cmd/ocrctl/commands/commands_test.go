package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ocrtranslate/internal/config"
	"ocrtranslate/internal/serviceinterfaces"
	"ocrtranslate/internal/services"
	contextutils "ocrtranslate/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPipeline struct {
	result *serviceinterfaces.OCRResult
	err    error
	last   serviceinterfaces.OCRRequest
}

func (s *stubPipeline) Process(_ context.Context, req serviceinterfaces.OCRRequest) (*serviceinterfaces.OCRResult, error) {
	s.last = req
	return s.result, s.err
}

type stubRecognizer struct{}

func (stubRecognizer) Recognize(context.Context, *serviceinterfaces.DecodedImage) (string, error) {
	return "", nil
}

func (stubRecognizer) Version() string { return "5.3.0" }

func execute(t *testing.T, pipeline *stubPipeline, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand(config.DefaultConfig(), pipeline, stubRecognizer{}, services.NewNoopTranslationService())
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sign.png")
	require.NoError(t, os.WriteFile(path, []byte("image bytes"), 0o600))
	return path
}

func TestRecognize_PrintsResult(t *testing.T) {
	pipeline := &stubPipeline{result: &serviceinterfaces.OCRResult{Original: "Hola", Translated: "Hello"}}
	path := writeImage(t)

	out, err := execute(t, pipeline, "recognize", path, "--lang", "en")
	require.NoError(t, err)

	var body map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	assert.Equal(t, map[string]string{"original": "Hola", "translated": "Hello"}, body)
	assert.Equal(t, "en", pipeline.last.TargetLanguage)
	assert.Equal(t, "sign.png", pipeline.last.Filename)
	assert.Equal(t, []byte("image bytes"), pipeline.last.Image)
}

func TestRecognize_DefaultLanguage(t *testing.T) {
	pipeline := &stubPipeline{result: &serviceinterfaces.OCRResult{}}

	_, err := execute(t, pipeline, "recognize", writeImage(t))
	require.NoError(t, err)
	assert.Equal(t, "en", pipeline.last.TargetLanguage)

	_, err = execute(t, pipeline, "recognize", writeImage(t), "--lang", "")
	require.NoError(t, err)
	assert.Equal(t, "en", pipeline.last.TargetLanguage)
}

func TestRecognize_PipelineFailure(t *testing.T) {
	pipeline := &stubPipeline{err: contextutils.NewStageError(contextutils.ErrImageDecode, errors.New("image: unknown format"))}

	out, err := execute(t, pipeline, "recognize", writeImage(t))
	require.Error(t, err)
	assert.JSONEq(t, `{"error":"image: unknown format"}`, out)
}

func TestRecognize_MissingFile(t *testing.T) {
	pipeline := &stubPipeline{}

	out, err := execute(t, pipeline, "recognize", filepath.Join(t.TempDir(), "nope.png"))
	require.Error(t, err)

	var body map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	assert.Contains(t, body["error"], "nope.png")
	assert.Empty(t, pipeline.last.Filename, "pipeline not called")
}

func TestRecognize_RequiresOneArgument(t *testing.T) {
	_, err := execute(t, &stubPipeline{}, "recognize")
	assert.Error(t, err)
}

func TestLanguages(t *testing.T) {
	out, err := execute(t, &stubPipeline{}, "languages")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Contains(t, lines, "en")
	assert.Contains(t, lines, "ja")
}

func TestVersion(t *testing.T) {
	out, err := execute(t, &stubPipeline{}, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "ocrctl dev"))
	assert.NotContains(t, out, "tesseract")

	out, err = execute(t, &stubPipeline{}, "version", "--engine")
	require.NoError(t, err)
	assert.Contains(t, out, "tesseract 5.3.0")
}
