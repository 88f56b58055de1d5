package imagegen

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOpenAI(t *testing.T, handler http.HandlerFunc) *OpenAIProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	return NewOpenAIProviderWithConfig(cfg, "")
}

func TestOpenAIProvider_Generate(t *testing.T) {
	var got openai.ImageRequest
	p := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/images/generations", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"created":1,"data":[{"b64_json":"aGVsbG8=","revised_prompt":"a red fox, detailed"}]}`))
	})

	res, err := p.Generate(context.Background(), Request{
		MediaType: MediaImage,
		Scene:     SceneTextToImage,
		Prompt:    "a red fox",
		Options:   map[string]interface{}{"size": "1792x1024"},
		UserRef:   "user-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "a red fox", got.Prompt)
	assert.Equal(t, openai.CreateImageModelDallE3, got.Model)
	assert.Equal(t, "1792x1024", got.Size)
	assert.Equal(t, openai.CreateImageResponseFormatB64JSON, got.ResponseFormat)

	require.Len(t, res.Outputs, 1)
	assert.Equal(t, []byte("hello"), res.Outputs[0].Data)
	assert.Equal(t, "a red fox, detailed", res.Outputs[0].RevisedPrompt)
	assert.Equal(t, ProviderOpenAI, res.Provider)
}

func TestOpenAIProvider_Errors(t *testing.T) {
	p := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"content policy","type":"invalid_request_error"}}`))
	})

	_, err := p.Generate(context.Background(), Request{MediaType: MediaImage, Scene: SceneTextToImage, Prompt: "x"})
	assert.Error(t, err)

	_, err = p.Generate(context.Background(), Request{MediaType: MediaVideo, Scene: SceneTextToVideo, Prompt: "x"})
	assert.ErrorIs(t, err, ErrUnsupportedScene)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(NewOpenAIProvider("k", ""))
	p, err := r.Get(ProviderOpenAI)
	require.NoError(t, err)
	assert.True(t, p.Supports(MediaImage, SceneTextToImage))
	assert.False(t, p.Supports(MediaImage, SceneImageToImage))

	_, err = r.Get("replicate")
	assert.ErrorIs(t, err, ErrUnknownProvider)
	assert.Equal(t, []string{ProviderOpenAI}, r.Names())
}
