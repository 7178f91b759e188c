package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	domain "github.com/bryanwahyu/vetscan/internal/domain/analysis"
)

func completion(content string) string {
	b, _ := json.Marshal(map[string]any{
		"id":     "chatcmpl-1",
		"object": "chat.completion",
		"model":  "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	})
	return string(b)
}

func serve(t *testing.T, status int, body string, inspect func(*http.Request)) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if inspect != nil {
			inspect(r)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return NewClient("test-key", srv.URL+"/v1", "gpt-4o-mini", 2*time.Second)
}

func TestInferSendsImageAndDecodes(t *testing.T) {
	t.Parallel()

	content := "```json\n{\"species\":\"dog\",\"speciesConfidence\":0.9,\"skinDisease\":{\"label\":\"hot_spot\",\"confidence\":0.75}}\n```"
	c := serve(t, http.StatusOK, completion(content), func(r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing bearer key")
		}
		raw, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(raw), "data:image/png;base64,") {
			t.Errorf("image data URL not sent")
		}
		if !strings.Contains(string(raw), `"json_object"`) {
			t.Errorf("json response format not requested")
		}
	})
	c.Labels = []string{"hot_spot"}

	payload, err := c.Infer(context.Background(), []byte("\x89PNG\r\n\x1a\n"), "image/png")
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	res := domain.Normalize(payload)
	if res.Species != "dog" || res.DiseaseKey != "hot_spot" || res.DiseaseConfidence != 0.75 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestInferErrorKinds(t *testing.T) {
	t.Parallel()

	apiError := `{"error":{"message":"invalid image","type":"invalid_request_error"}}`
	cases := []struct {
		name   string
		status int
		body   string
		kind   domain.InferenceErrorKind
	}{
		{"bad request", http.StatusBadRequest, apiError, domain.KindProvider},
		{"overloaded", http.StatusServiceUnavailable, apiError, domain.KindUnavailable},
		{"rate limited", http.StatusTooManyRequests, apiError, domain.KindUnavailable},
		{"prose answer", http.StatusOK, completion("I think it is a cat."), domain.KindMalformed},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			c := serve(t, tc.status, tc.body, nil)
			_, err := c.Infer(context.Background(), []byte("img"), "image/jpeg")
			var ie *domain.InferenceError
			if !errors.As(err, &ie) {
				t.Fatalf("expected InferenceError, got %v", err)
			}
			if ie.Kind != tc.kind {
				t.Fatalf("expected %s, got %s (%v)", tc.kind, ie.Kind, err)
			}
		})
	}
}

func TestReasoningModelDetection(t *testing.T) {
	t.Parallel()

	for model, want := range map[string]bool{"o3-mini": true, "gpt-5": true, "gpt-4o": false, "llava": false} {
		if got := isReasoningModel(model); got != want {
			t.Fatalf("isReasoningModel(%q): want %v, got %v", model, want, got)
		}
	}
}
