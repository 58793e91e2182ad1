package embedding

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/ollama/ollama/api"
)

func TestEmbedTextStopsOnCancelledContext(t *testing.T) {
	host, err := url.Parse("http://127.0.0.1:1")
	if err != nil {
		t.Fatal(err)
	}
	embedder := &OllamaEmbedder{
		Client:     api.NewClient(host, http.DefaultClient),
		Model:      "test-model",
		MaxRetries: 3,
		Timeout:    time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	_, err = embedder.EmbedText(ctx, "hola")
	elapsed := time.Since(start)

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	// The retry schedule sleeps 1s before the first retry; a cancelled
	// request must return without entering it.
	if elapsed > 500*time.Millisecond {
		t.Errorf("cancelled request still waited %v", elapsed)
	}
}

func TestIsRateLimited(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limit status", api.StatusError{StatusCode: http.StatusTooManyRequests}, true},
		{"other status", api.StatusError{StatusCode: http.StatusInternalServerError}, false},
		{"plain error", errors.New("connection refused"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRateLimited(tt.err); got != tt.want {
				t.Errorf("IsRateLimited(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
