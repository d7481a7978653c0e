package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeminiClientGenerateText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1beta/models/gemini-test:generateContent", r.URL.Path)
		assert.Equal(t, "secret-key", r.Header.Get("x-goog-api-key"))

		var req geminiRequest
		if assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) && assert.Len(t, req.Contents, 1) {
			assert.Equal(t, "write something", req.Contents[0].Parts[0].Text)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{\"topic\":"},{"text":"\"x\"}"}]}}]}`))
	}))
	defer srv.Close()

	c := NewGeminiClient("secret-key", "gemini-test", srv.URL+"/", srv.Client())
	assert.Equal(t, "gemini-test", c.Model())

	text, err := c.GenerateText(context.Background(), "write something")
	require.NoError(t, err)
	assert.Equal(t, `{"topic":"x"}`, text)
}

func TestGeminiClientErrors(t *testing.T) {
	for name, tc := range map[string]struct {
		status int
		body   string
	}{
		"http error":    {http.StatusTooManyRequests, `{"error":{"message":"quota"}}`},
		"no candidates": {http.StatusOK, `{"candidates":[]}`},
		"empty text":    {http.StatusOK, `{"candidates":[{"content":{"parts":[]}}]}`},
		"not json":      {http.StatusOK, `<html>`},
	} {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := NewGeminiClient("k", "", srv.URL, srv.Client()).GenerateText(context.Background(), "p")
			assert.Error(t, err)
		})
	}
}

func TestGeminiClientDefaults(t *testing.T) {
	c := NewGeminiClient("k", "", "", nil)
	assert.Equal(t, DefaultGeminiModel, c.Model())
	assert.Equal(t, DefaultGeminiBaseURL, c.BaseURL)
	assert.NotNil(t, c.Client)
}
