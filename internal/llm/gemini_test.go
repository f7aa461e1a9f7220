package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeminiCompleteJoinsParts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "gemini-test:generateContent"), r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"recommendations\":"},{"text":"[]}"}]}}]}`))
	}))
	defer srv.Close()

	g, err := NewGemini(context.Background(), Config{APIKey: "test-key", Model: "gemini-test", BaseURL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, "gemini:gemini-test", g.Name())

	text, err := g.Complete(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, `{"recommendations":[]}`, text)
}

func TestGeminiNoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	g, err := NewGemini(context.Background(), Config{APIKey: "test-key", Model: "gemini-test", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = g.Complete(context.Background(), "sys", "user")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}
