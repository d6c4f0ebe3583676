package editing

import (
	"testing"

	"github.com/lehigh-university-libraries/passport/internal/config"
	"github.com/lehigh-university-libraries/passport/internal/gemini"
	"github.com/lehigh-university-libraries/passport/internal/openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	cfg := config.Default()

	e, err := New(cfg)
	require.NoError(t, err)
	assert.IsType(t, &gemini.Gemini{}, e)

	cfg.Provider = config.ProviderOpenAI
	e, err = New(cfg)
	require.NoError(t, err)
	assert.IsType(t, &openai.OpenAI{}, e)

	cfg.Provider = "ollama"
	_, err = New(cfg)
	assert.Error(t, err)
}

func TestDefaultModel(t *testing.T) {
	t.Setenv("GEMINI_MODEL", "")
	t.Setenv("OPENAI_MODEL", "")
	assert.Equal(t, gemini.DefaultModel, DefaultModel(config.ProviderGemini))
	assert.Equal(t, openai.DefaultModel, DefaultModel(config.ProviderOpenAI))
	assert.Empty(t, DefaultModel("unknown"))

	t.Setenv("OPENAI_MODEL", "dall-e-2")
	assert.Equal(t, "dall-e-2", DefaultModel(config.ProviderOpenAI))
}
