// Package openai runs skin analysis on an OpenAI-compatible vision chat model.
package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	domain "github.com/bryanwahyu/vetscan/internal/domain/analysis"
	"github.com/bryanwahyu/vetscan/internal/infra/ai/prompt"
)

const (
	maxTokens    = 512
	defaultModel = "gpt-4o-mini"
)

// Client implements domain.Inferrer on top of the chat completions API.
type Client struct {
	api   *openai.Client
	Model string
	// Labels are offered to the model as preferred disease keys.
	Labels []string
}

var _ domain.Inferrer = (*Client)(nil)

// NewClient builds a client. baseURL is optional and points at any
// OpenAI-compatible gateway, e.g. http://localhost:11434/v1.
func NewClient(apiKey, baseURL, model string, timeout time.Duration) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/"); baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: timeout}
	}
	return &Client{api: openai.NewClientWithConfig(cfg), Model: model}
}

func (c *Client) Infer(ctx context.Context, image []byte, contentType string) (domain.ProviderPayload, error) {
	model := c.Model
	if model == "" {
		model = defaultModel
	}
	if contentType == "" {
		contentType = "image/jpeg"
	}
	dataURL := "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(image)

	req := openai.ChatCompletionRequest{
		Model: model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.SystemPrompt(c.Labels)},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: prompt.UserPrompt()},
					{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
						URL:    dataURL,
						Detail: openai.ImageURLDetailAuto,
					}},
				},
			},
		},
	}
	// reasoning models (o1/o3/o4/gpt-5*) pakai MaxCompletionTokens
	if isReasoningModel(model) {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, classify(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &domain.InferenceError{Kind: domain.KindMalformed, Message: "completion has no choices"}
	}

	content := prompt.StripFences(resp.Choices[0].Message.Content)
	dec := json.NewDecoder(strings.NewReader(content))
	dec.UseNumber()
	var payload map[string]any
	if err := dec.Decode(&payload); err != nil || payload == nil {
		return nil, &domain.InferenceError{Kind: domain.KindMalformed, Message: "completion is not a JSON object", Err: err}
	}
	return domain.ProviderPayload(payload), nil
}

func isReasoningModel(model string) bool {
	for _, p := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, p) {
			return true
		}
	}
	return false
}

// classify maps go-openai errors onto inference error kinds.
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &domain.InferenceError{Kind: kindForStatus(apiErr.HTTPStatusCode), Message: apiErr.Message, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &domain.InferenceError{Kind: kindForStatus(reqErr.HTTPStatusCode), Message: fmt.Sprintf("status %d", reqErr.HTTPStatusCode), Err: err}
	}
	return &domain.InferenceError{Kind: domain.KindUnavailable, Message: "model endpoint unreachable", Err: err}
}

func kindForStatus(code int) domain.InferenceErrorKind {
	switch {
	case code == http.StatusTooManyRequests, code >= 500, code == 0:
		return domain.KindUnavailable
	default:
		return domain.KindProvider
	}
}
