package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"

	domain "github.com/bryanwahyu/vetscan/internal/domain/analysis"
)

func TestDecode(t *testing.T) {
	t.Parallel()

	payload, err := decode("```json\n{\"species\":\"cat\",\"skinDisease\":{\"label\":\"scabies\",\"confidence\":0.64}}\n```")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	res := domain.Normalize(payload)
	if res.Species != "cat" || res.DiseaseKey != "scabies" || res.DiseaseConfidence != 0.64 {
		t.Fatalf("unexpected %+v", res)
	}

	for _, bad := range []string{"", "sorry, I cannot help", "[1,2]"} {
		if _, err := decode(bad); !domain.IsInferenceKind(err, domain.KindMalformed) {
			t.Fatalf("decode(%q): expected malformed, got %v", bad, err)
		}
	}
}

func TestFirstText(t *testing.T) {
	t.Parallel()

	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
		{Content: nil},
		{Content: &genai.Content{Parts: []genai.Part{genai.Blob{MIMEType: "image/png"}, genai.Text(`{"a":1}`)}}},
	}}
	if got := firstText(resp); got != `{"a":1}` {
		t.Fatalf("unexpected %q", got)
	}
	if firstText(nil) != "" {
		t.Fatalf("nil response must give empty text")
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		kind domain.InferenceErrorKind
	}{
		{&googleapi.Error{Code: http.StatusBadRequest, Message: "bad image"}, domain.KindProvider},
		{fmt.Errorf("wrapped: %w", &googleapi.Error{Code: http.StatusServiceUnavailable}), domain.KindUnavailable},
		{&googleapi.Error{Code: http.StatusTooManyRequests}, domain.KindUnavailable},
		{&genai.BlockedError{}, domain.KindProvider},
		{context.DeadlineExceeded, domain.KindUnavailable},
		{errors.New("dial tcp: refused"), domain.KindUnavailable},
	}
	for _, tc := range cases {
		if err := classify(tc.err); !domain.IsInferenceKind(err, tc.kind) {
			t.Fatalf("classify(%v): expected %s, got %v", tc.err, tc.kind, err)
		}
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(context.Background(), " ", "", 0); err == nil {
		t.Fatalf("expected error for empty key")
	}
}
