package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lehigh-university-libraries/passport/internal/providers"
	"google.golang.org/genai"
)

// DefaultModel is an image-capable Gemini model.
const DefaultModel = "gemini-2.5-flash-image"

// passportAspectRatio is the closest supported ratio to 35x45mm.
const passportAspectRatio = "3:4"

// Gemini is an image editing provider for Google Gemini
type Gemini struct {
	apiKey  string
	config  providers.Config
	baseURL string
}

// New returns a new Gemini provider
func New(apiKey string, config providers.Config) *Gemini {
	if config.Model == "" {
		config.Model = DefaultModel
	}
	return &Gemini{apiKey: apiKey, config: config}
}

// WithBaseURL points the client at a different API endpoint.
func (g *Gemini) WithBaseURL(u string) *Gemini {
	g.baseURL = u
	return g
}

// Edit sends the image and instruction to Gemini and returns the first image
// in the response.
func (g *Gemini) Edit(ctx context.Context, req providers.EditRequest) (*providers.EditResult, error) {
	if g.apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	cc := &genai.ClientConfig{
		APIKey:  g.apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if g.baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: g.baseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create new gemini client: %w", err)
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(req.Image, req.MIMEType),
			genai.NewPartFromText(req.Instruction),
		}, genai.RoleUser),
	}

	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{string(genai.ModalityImage), string(genai.ModalityText)},
		ImageConfig:        &genai.ImageConfig{AspectRatio: passportAspectRatio},
	}
	if g.config.Temperature > 0 {
		config.Temperature = genai.Ptr(float32(g.config.Temperature))
	}

	resp, err := client.Models.GenerateContent(ctx, g.config.Model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	return extractImage(resp, g.config.Model)
}

func extractImage(resp *genai.GenerateContentResponse, model string) (*providers.EditResult, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates returned from Gemini")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return nil, fmt.Errorf("empty content returned from Gemini (finish reason %q)", candidate.FinishReason)
	}

	var notes []string
	for _, part := range candidate.Content.Parts {
		if part == nil {
			continue
		}
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			slog.Debug("Gemini returned image", "model", model, "mime", part.InlineData.MIMEType, "bytes", len(part.InlineData.Data))
			return &providers.EditResult{
				Data:     part.InlineData.Data,
				MIMEType: part.InlineData.MIMEType,
				Provider: "gemini",
				Model:    model,
				Notes:    strings.Join(notes, "\n"),
			}, nil
		}
		if part.Text != "" {
			notes = append(notes, part.Text)
		}
	}

	if len(notes) > 0 {
		return nil, fmt.Errorf("%w: %s", providers.ErrNoImage, strings.Join(notes, " "))
	}
	return nil, providers.ErrNoImage
}
