package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for name := range legacyEnv {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "whisper-1", cfg.OpenAI.TranscriptionModel)
	assert.Equal(t, "gpt-4o", cfg.OpenAI.AnalysisModel)
	assert.InDelta(t, 0.8, cfg.OpenAI.Temperature, 1e-6)
	assert.Equal(t, "prompt.txt", cfg.Templates.PromptFile)
	assert.Equal(t, "esempi", cfg.Templates.ExamplesDir)
	assert.Equal(t, 6, cfg.Templates.NumExamples)
	assert.Equal(t, int64(26214400), cfg.Media.MaxBytes)
	assert.Equal(t, 30*time.Second, cfg.Media.FetchTimeout)
	assert.Equal(t, "8080", cfg.Port)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "zanzara.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
port = "9090"

[openai]
analysis_model = "gpt-4o-mini"
temperature = 0.2

[templates]
num_examples = 3
`), 0o644))

	t.Setenv("ZANZARA_OPENAI__ANALYSIS_MODEL", "gpt-4.1")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("USE_MOCK_LLM", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "gpt-4.1", cfg.OpenAI.AnalysisModel)
	assert.InDelta(t, 0.2, cfg.OpenAI.Temperature, 1e-6)
	assert.Equal(t, 3, cfg.Templates.NumExamples)
	assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
	assert.True(t, cfg.Mock.LLM)
	assert.False(t, cfg.MockOnly())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.OpenAI.Temperature = 3
	cfg.Templates.NumExamples = -1
	cfg.Media.MaxBytes = 0
	cfg.OpenAI.AnalysisModel = ""

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "temperature")
	assert.Contains(t, err.Error(), "num_examples")
	assert.Contains(t, err.Error(), "max_bytes")
	assert.Contains(t, err.Error(), "analysis_model")
}

func TestValidatePattern(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Templates.ExamplePattern = "zanzara.txt"
	assert.Error(t, cfg.Validate())

	cfg.Templates.NumExamples = 0
	assert.NoError(t, cfg.Validate())
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "openai.analysis_model", envKey("ZANZARA_OPENAI__ANALYSIS_MODEL"))
	assert.Equal(t, "log_level", envKey("ZANZARA_LOG_LEVEL"))
}
