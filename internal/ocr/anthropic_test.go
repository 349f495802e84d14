package ocr

import (
	"context"
	"encoding/json"
	"image"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
)

// newMessagesServer serves a fixed Messages API reply and records the last
// request body.
func newMessagesServer(t *testing.T, status int, text string, body *string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/v1/messages") {
			http.NotFound(w, r)
			return
		}
		data, _ := io.ReadAll(r.Body)
		if body != nil {
			*body = string(data)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"type":"error","error":{"type":"api_error","message":"boom"}}`))
			return
		}

		reply := map[string]any{
			"id":            "msg_test",
			"type":          "message",
			"role":          "assistant",
			"model":         "test-model",
			"stop_reason":   "end_turn",
			"stop_sequence": nil,
			"content":       []map[string]any{{"type": "text", "text": text}},
			"usage":         map[string]any{"input_tokens": 1, "output_tokens": 1},
		}
		_ = json.NewEncoder(w).Encode(reply)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAnthropic_Recognize(t *testing.T) {
	var body string
	srv := newMessagesServer(t, http.StatusOK, "\\[ e^{i\\pi} + 1 = 0 \\]", &body)

	r, err := NewAnthropic(Options{
		AnthropicBaseURL: srv.URL,
		AnthropicAPIKey:  "sk-ant-test",
		AnthropicModel:   "test-model",
	})
	if err != nil {
		t.Fatalf("NewAnthropic failed: %v", err)
	}

	text, err := r.Recognize(context.Background(), image.NewGray(image.Rect(0, 0, 8, 8)))
	if err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}
	if text != "e^{i\\pi} + 1 = 0" {
		t.Errorf("text: got %q", text)
	}

	if !strings.Contains(body, `"model":"test-model"`) {
		t.Errorf("request should name the model: %s", body)
	}
	if !strings.Contains(body, `"media_type":"image/png"`) {
		t.Errorf("request should carry a PNG image block: %s", body)
	}
}

func TestAnthropic_RecognizeHTTPError(t *testing.T) {
	srv := newMessagesServer(t, http.StatusInternalServerError, "", nil)

	r, err := NewAnthropic(Options{AnthropicBaseURL: srv.URL}, option.WithMaxRetries(0))
	if err != nil {
		t.Fatalf("NewAnthropic failed: %v", err)
	}

	if _, err := r.Recognize(context.Background(), image.NewGray(image.Rect(0, 0, 4, 4))); err == nil {
		t.Error("Recognize should fail on a server error")
	}
}

func TestNewAnthropic_Defaults(t *testing.T) {
	if _, err := NewAnthropic(Options{}); err != ErrMissingAPIKey {
		t.Errorf("NewAnthropic without key: got %v, want ErrMissingAPIKey", err)
	}

	r, err := NewAnthropic(Options{AnthropicAPIKey: "sk-ant-test"})
	if err != nil {
		t.Fatalf("NewAnthropic failed: %v", err)
	}
	if r.model != DefaultAnthropicModel {
		t.Errorf("model: got %q, want %q", r.model, DefaultAnthropicModel)
	}

	info := r.Info(context.Background())
	if info.Backend != BackendAnthropic || !info.Available {
		t.Errorf("Info() = %+v", info)
	}
}
