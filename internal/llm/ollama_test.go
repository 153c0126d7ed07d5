package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaGenerate(t *testing.T) {
	var gotBody generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/generate", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		_ = json.NewEncoder(w).Encode(generateResponse{Response: `  {"category": "Mat", "confidence": 0.9}  `})
	}))
	defer server.Close()

	client := NewOllamaClient(Config{Host: server.URL, Model: "phi3:mini"})
	reply, err := client.Generate(context.Background(), "classify this")
	require.NoError(t, err)

	assert.Equal(t, `{"category": "Mat", "confidence": 0.9}`, reply, "reply is trimmed")
	assert.Equal(t, "phi3:mini", gotBody.Model)
	assert.Equal(t, "classify this", gotBody.Prompt)
	assert.False(t, gotBody.Stream, "streaming must be disabled")
}

func TestOllamaGenerateServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewOllamaClient(Config{Host: server.URL})
	_, err := client.Generate(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestOllamaModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/api/tags", r.URL.Path)
		_, _ = w.Write([]byte(`{"models": [{"name": "phi3:mini"}, {"name": "llama3:8b"}]}`))
	}))
	defer server.Close()

	client := NewOllamaClient(Config{Host: server.URL})
	models, err := client.Models(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"phi3:mini", "llama3:8b"}, models)
}

func TestOllamaModelsUnreachable(t *testing.T) {
	client := NewOllamaClient(Config{Host: "http://127.0.0.1:1"})
	_, err := client.Models(context.Background())
	require.Error(t, err)
}

func TestOllamaHostTrailingSlash(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/tags", r.URL.Path)
		_, _ = w.Write([]byte(`{"models": []}`))
	}))
	defer server.Close()

	client := NewOllamaClient(Config{Host: server.URL + "/"})
	_, err := client.Models(context.Background())
	require.NoError(t, err)
}
