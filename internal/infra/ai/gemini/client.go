// Package gemini runs skin analysis on Google's Gemini vision models.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	domain "github.com/bryanwahyu/vetscan/internal/domain/analysis"
	"github.com/bryanwahyu/vetscan/internal/infra/ai/prompt"
)

const defaultModel = "gemini-1.5-flash"

// Client implements domain.Inferrer. One genai client is shared by all
// requests; Close releases it at shutdown.
type Client struct {
	cl      *genai.Client
	model   string
	timeout time.Duration
	// Labels are offered to the model as preferred disease keys.
	Labels []string
}

var _ domain.Inferrer = (*Client)(nil)

func NewClient(ctx context.Context, apiKey, model string, timeout time.Duration) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini: api key is required")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: new client: %w", err)
	}
	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	return &Client{cl: cl, model: model, timeout: timeout}, nil
}

func (c *Client) Close() error { return c.cl.Close() }

func (c *Client) Infer(ctx context.Context, image []byte, contentType string) (domain.ProviderPayload, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if contentType == "" {
		contentType = "image/jpeg"
	}

	m := c.cl.GenerativeModel(c.model)
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      ptrFloat32(0),
		ResponseMIMEType: "application/json",
	}
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(prompt.SystemPrompt(c.Labels))},
	}

	// tidak ada retry: satu upload per analisa
	resp, err := m.GenerateContent(ctx,
		genai.Text(prompt.UserPrompt()),
		genai.Blob{MIMEType: contentType, Data: image},
	)
	if err != nil {
		return nil, classify(err)
	}
	return decode(firstText(resp))
}

func decode(text string) (domain.ProviderPayload, error) {
	text = prompt.StripFences(text)
	if text == "" {
		return nil, &domain.InferenceError{Kind: domain.KindMalformed, Message: "empty response"}
	}
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var payload map[string]any
	if err := dec.Decode(&payload); err != nil || payload == nil {
		return nil, &domain.InferenceError{Kind: domain.KindMalformed, Message: "response is not a JSON object", Err: err}
	}
	return domain.ProviderPayload(payload), nil
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

// classify maps Gemini errors onto inference error kinds. Safety blocks
// count as provider errors: the service answered and refused.
func classify(err error) error {
	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return &domain.InferenceError{Kind: domain.KindProvider, Message: "request blocked by model safety filters", Err: err}
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		kind := domain.KindProvider
		if gerr.Code == http.StatusTooManyRequests || gerr.Code >= 500 {
			kind = domain.KindUnavailable
		}
		return &domain.InferenceError{Kind: kind, Message: fmt.Sprintf("gemini returned %d: %s", gerr.Code, gerr.Message), Err: err}
	}
	return &domain.InferenceError{Kind: domain.KindUnavailable, Message: "gemini unreachable", Err: err}
}

func ptrFloat32(v float32) *float32 { return &v }
