package generate_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/mediaflowgo/internal/graph"
	"github.com/vk/mediaflowgo/internal/registry"
	"github.com/vk/mediaflowgo/modules/generate"
)

func newGenerate(t *testing.T) *registry.Descriptor {
	t.Helper()
	reg := registry.New()
	// 6000 requests/minute keeps the limiter out of the way in tests.
	generate.NewModule(6000).Register(reg)
	d, ok := reg.Lookup("generate")
	require.True(t, ok)
	return d
}

func runGenerate(t *testing.T, d *registry.Descriptor, endpoint, prompt string) (*registry.Result, error) {
	t.Helper()
	node := &graph.Node{
		ID:      "gen",
		Type:    "generate",
		Enabled: true,
		Config:  &generate.Config{Endpoint: endpoint, Model: "sd-xl"},
	}
	return d.Runner.Run(context.Background(), &registry.Request{
		Node:   node,
		Inputs: map[string]any{"prompt": prompt},
	})
}

func TestGenerate_PostsPromptAndReturnsArtifact(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":       "job-7",
			"status":   "done",
			"artifact": "https://cdn.example/img-7.png",
		})
	}))
	defer server.Close()

	d := newGenerate(t)
	result, err := runGenerate(t, d, server.URL, "a castle at dawn")
	require.NoError(t, err)

	assert.Equal(t, "sd-xl", got["model"])
	assert.Equal(t, "a castle at dawn", got["prompt"])
	assert.Equal(t, "https://cdn.example/img-7.png", result.Outputs["artifact"])
	assert.Equal(t, "job-7", result.Outputs["id"])
}

func TestGenerate_HTTPErrorStatusFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exhausted", http.StatusTooManyRequests)
	}))
	defer server.Close()

	d := newGenerate(t)
	_, err := runGenerate(t, d, server.URL, "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestGenerate_APIErrorFieldFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "nsfw filter triggered"})
	}))
	defer server.Close()

	d := newGenerate(t)
	_, err := runGenerate(t, d, server.URL, "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nsfw filter triggered")
}

func TestGenerate_EmptyArtifactFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "job-1", "status": "done"})
	}))
	defer server.Close()

	d := newGenerate(t)
	_, err := runGenerate(t, d, server.URL, "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no artifact")
}

func TestGenerate_DescriptorShape(t *testing.T) {
	d := newGenerate(t)
	assert.True(t, d.Serial)
	assert.True(t, d.ArtifactProducer)
	assert.Equal(t, "artifact", d.PrimaryOutput())
	require.Len(t, d.Inputs, 1)
	assert.Equal(t, "prompt", d.Inputs[0].Handle)
	assert.True(t, d.Inputs[0].Required)
}
