// Package provider talks to the external image inference service over
// multipart HTTP.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	domain "github.com/bryanwahyu/vetscan/internal/domain/analysis"
)

const (
	DefaultPath    = "/predict"
	DefaultTimeout = 2 * time.Minute

	maxBodyBytes = 4 << 20
)

// Client implements domain.Inferrer. It never retries: every retry would be
// another paid upload to the provider.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

var _ domain.Inferrer = (*Client)(nil)

// NewClient validates the base URL; a missing one is a configuration error.
func NewClient(baseURL, path, apiKey string, timeout time.Duration) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("inference base URL is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid inference base URL %q", baseURL)
	}
	if path == "" {
		path = DefaultPath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		endpoint: baseURL + path,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: timeout},
	}, nil
}

// Infer uploads the image as the "file" field and decodes the JSON object reply.
func (c *Client) Infer(ctx context.Context, image []byte, contentType string) (domain.ProviderPayload, error) {
	body, formType, err := multipartBody(image, contentType)
	if err != nil {
		return nil, fmt.Errorf("build multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", formType)
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &domain.InferenceError{Kind: domain.KindUnavailable, Message: "provider unreachable", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &domain.InferenceError{Kind: domain.KindUnavailable, Message: "reading provider response", Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusBadGateway,
		resp.StatusCode == http.StatusServiceUnavailable,
		resp.StatusCode == http.StatusGatewayTimeout:
		return nil, &domain.InferenceError{Kind: domain.KindUnavailable, Message: "provider returned " + resp.Status}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		msg := resp.Status
		if m, ok := decodeObject(raw); ok {
			if text, failed := providerError(m); failed && text != "" {
				msg = resp.Status + ": " + text
			}
		} else if s := strings.TrimSpace(string(raw)); s != "" {
			msg = resp.Status + ": " + truncate(s, 200)
		}
		return nil, &domain.InferenceError{Kind: domain.KindProvider, Message: msg}
	}

	payload, ok := decodeObject(raw)
	if !ok {
		return nil, &domain.InferenceError{Kind: domain.KindMalformed, Message: "response is not a JSON object: " + truncate(string(raw), 120)}
	}
	if text, failed := providerError(payload); failed {
		if text == "" {
			text = "provider reported failure"
		}
		return nil, &domain.InferenceError{Kind: domain.KindProvider, Message: text}
	}
	return domain.ProviderPayload(payload), nil
}

func multipartBody(image []byte, contentType string) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="upload%s"`, domain.ImageExt(contentType)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)

	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(image); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func decodeObject(raw []byte) (map[string]any, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil || m == nil {
		return nil, false
	}
	return m, true
}

// providerError detects the failure envelopes the provider has used:
// {"success":false}, {"error":"..."}, {"error":{"message":"..."}}, {"status":"error"}.
func providerError(m map[string]any) (string, bool) {
	errText := ""
	switch e := m["error"].(type) {
	case string:
		errText = strings.TrimSpace(e)
	case map[string]any:
		errText = "provider error"
		if s, ok := e["message"].(string); ok && strings.TrimSpace(s) != "" {
			errText = strings.TrimSpace(s)
		}
	}
	if errText != "" {
		return errText, true
	}

	failed := false
	if ok, isBool := m["success"].(bool); isBool && !ok {
		failed = true
	}
	if s, ok := m["status"].(string); ok {
		switch strings.ToLower(s) {
		case "error", "failed", "failure":
			failed = true
		}
	}
	if !failed {
		return "", false
	}
	for _, k := range []string{"message", "detail"} {
		if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s), true
		}
	}
	return "", true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
