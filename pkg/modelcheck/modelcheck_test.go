package modelcheck

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepbridge/deepbridge/pkg/pyenv"
)

func TestVerify(t *testing.T) {
	var sawPath, sawAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawPath = r.URL.Path
		sawAuth = r.Header.Get("Authorization")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"choices": [
				{"index": 0, "message": {"role": "assistant", "content": " ready "}, "finish_reason": "stop"}
			]
		}`))
	}))
	defer server.Close()

	checker, err := New(pyenv.Model{
		Name:    "qwen2.5",
		BaseURL: server.URL,
		APIKey:  "sk-local",
	})
	require.NoError(t, err)

	report, err := checker.Verify(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "qwen2.5", report.Model)
	assert.Equal(t, server.URL, report.BaseURL)
	assert.Equal(t, "ready", report.Reply)
	assert.Greater(t, report.Latency, time.Duration(0))

	assert.Equal(t, "/chat/completions", sawPath)
	assert.Equal(t, "Bearer sk-local", sawAuth)
}

func TestVerifyEndpointFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "model not found"}}`, http.StatusNotFound)
	}))
	defer server.Close()

	checker, err := New(pyenv.Model{
		Name:    "missing-model",
		BaseURL: server.URL,
		APIKey:  "sk-local",
	})
	require.NoError(t, err)

	_, err = checker.Verify(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to reach model endpoint")
}

func TestVerifyNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "chatcmpl-2", "object": "chat.completion", "choices": []}`))
	}))
	defer server.Close()

	checker, err := New(pyenv.Model{
		Name:    "quiet-model",
		BaseURL: server.URL,
		APIKey:  "sk-local",
	})
	require.NoError(t, err)

	_, err = checker.Verify(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no completion choices")
}

func TestNewValidation(t *testing.T) {
	tt := map[string]struct {
		model       pyenv.Model
		errContains string
	}{
		"missing name": {
			model:       pyenv.Model{BaseURL: "http://localhost:11434/v1"},
			errContains: "model name must be provided",
		},
		"missing base URL": {
			model:       pyenv.Model{Name: "qwen2.5"},
			errContains: "base URL must be provided",
		},
	}

	for tn, tc := range tt {
		t.Run(tn, func(t *testing.T) {
			_, err := New(tc.model)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errContains)
		})
	}
}
