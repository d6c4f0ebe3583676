package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/bytedance/sonic"
	"github.com/lehigh-university-libraries/passport/internal/providers"
)

// DefaultModel supports image edits.
const DefaultModel = "gpt-image-1"

const defaultBaseURL = "https://api.openai.com"

// passportSize is the supported portrait size closest to 35x45mm.
const passportSize = "1024x1536"

// OpenAI is an image editing provider for OpenAI
type OpenAI struct {
	apiKey  string
	config  providers.Config
	baseURL string
	client  *http.Client
}

// New returns a new OpenAI provider
func New(apiKey string, config providers.Config) *OpenAI {
	if config.Model == "" {
		config.Model = DefaultModel
	}
	return &OpenAI{
		apiKey:  apiKey,
		config:  config,
		baseURL: defaultBaseURL,
		client:  &http.Client{},
	}
}

// WithBaseURL points the client at a different API endpoint.
func (o *OpenAI) WithBaseURL(u string) *OpenAI {
	o.baseURL = u
	return o
}

// Edit posts the image and instruction to the image edits endpoint.
func (o *OpenAI) Edit(ctx context.Context, req providers.EditRequest) (*providers.EditResult, error) {
	if o.apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	body, contentType, err := o.buildForm(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", o.baseURL+"/v1/images/edits", body)
	if err != nil {
		return nil, fmt.Errorf("failed to create new request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("received non-200 status code: %d - %s", resp.StatusCode, string(b))
	}

	var response struct {
		Data []struct {
			B64JSON       string `json:"b64_json"`
			RevisedPrompt string `json:"revised_prompt"`
		} `json:"data"`
		OutputFormat string `json:"output_format"`
	}
	if err := sonic.ConfigStd.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}

	if len(response.Data) == 0 || response.Data[0].B64JSON == "" {
		return nil, providers.ErrNoImage
	}

	data, err := base64.StdEncoding.DecodeString(response.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image data: %w", err)
	}

	format := response.OutputFormat
	if format == "" {
		format = "png"
	}

	return &providers.EditResult{
		Data:     data,
		MIMEType: "image/" + format,
		Provider: "openai",
		Model:    o.config.Model,
		Notes:    response.Data[0].RevisedPrompt,
	}, nil
}

func (o *OpenAI) buildForm(req providers.EditRequest) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := map[string]string{
		"model":  o.config.Model,
		"prompt": req.Instruction,
		"size":   passportSize,
		"n":      "1",
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("failed to write form field %s: %w", k, err)
		}
	}

	mimeType := req.MIMEType
	if mimeType == "" {
		mimeType = "image/png"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="image"; filename="portrait"`)
	h.Set("Content-Type", mimeType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create image part: %w", err)
	}
	if _, err := part.Write(req.Image); err != nil {
		return nil, "", fmt.Errorf("failed to write image part: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
