// Package editing selects the image editing provider from configuration.
package editing

import (
	"fmt"
	"os"

	"github.com/lehigh-university-libraries/passport/internal/config"
	"github.com/lehigh-university-libraries/passport/internal/gemini"
	"github.com/lehigh-university-libraries/passport/internal/openai"
	"github.com/lehigh-university-libraries/passport/internal/providers"
)

// New returns the editor for cfg.Provider. API keys come from the
// environment.
func New(cfg config.Config) (providers.Editor, error) {
	pc := providers.Config{
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
	}
	if pc.Model == "" {
		pc.Model = DefaultModel(cfg.Provider)
	}

	switch cfg.Provider {
	case config.ProviderGemini:
		g := gemini.New(os.Getenv("GEMINI_API_KEY"), pc)
		if u := os.Getenv("GEMINI_BASE_URL"); u != "" {
			g.WithBaseURL(u)
		}
		return g, nil
	case config.ProviderOpenAI:
		o := openai.New(os.Getenv("OPENAI_API_KEY"), pc)
		if u := os.Getenv("OPENAI_BASE_URL"); u != "" {
			o.WithBaseURL(u)
		}
		return o, nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
}

// DefaultModel returns the model used when none is configured.
func DefaultModel(provider string) string {
	switch provider {
	case config.ProviderGemini:
		if model := os.Getenv("GEMINI_MODEL"); model != "" {
			return model
		}
		return gemini.DefaultModel
	case config.ProviderOpenAI:
		if model := os.Getenv("OPENAI_MODEL"); model != "" {
			return model
		}
		return openai.DefaultModel
	default:
		return ""
	}
}
