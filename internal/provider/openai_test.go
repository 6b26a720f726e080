package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/querywarden/querywarden/internal/client"
)

func newRejectingServer(status int) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error":{"message":"rejected","type":"invalid_request_error"}}`))
	}))
}

func TestEmbedSurfacesUpstreamStatus(t *testing.T) {
	srv := newRejectingServer(http.StatusUnauthorized)
	defer srv.Close()

	c := NewOpenAI(OpenAIConfig{APIKey: "bad", BaseURL: srv.URL})
	_, err := c.Embed(context.Background(), "select 1")
	if err == nil {
		t.Fatalf("expected error from 401 upstream")
	}
	var se *client.StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected a status-carrying error, got %T: %v", err, err)
	}
	if se.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", se.StatusCode)
	}
}

func TestGenerateSurfacesUpstreamStatus(t *testing.T) {
	srv := newRejectingServer(http.StatusBadRequest)
	defer srv.Close()

	c := NewOpenAI(OpenAIConfig{APIKey: "bad", BaseURL: srv.URL})
	_, err := c.Generate(context.Background(), GenerateRequest{Prompt: "classify this"})
	var se *client.StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status 400 error, got %v", err)
	}
}
