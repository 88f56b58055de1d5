package imagegen

import (
	"context"
	"encoding/base64"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const ProviderOpenAI = "openai"

type OpenAIProvider struct {
	client *openai.Client
	model  string
}

func NewOpenAIProvider(apiKey, model string) *OpenAIProvider {
	return NewOpenAIProviderWithConfig(openai.DefaultConfig(apiKey), model)
}

// NewOpenAIProviderWithConfig allows a custom base URL (proxies, tests).
func NewOpenAIProviderWithConfig(cfg openai.ClientConfig, model string) *OpenAIProvider {
	if model == "" {
		model = openai.CreateImageModelDallE3
	}
	return &OpenAIProvider{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (p *OpenAIProvider) Name() string {
	return ProviderOpenAI
}

func (p *OpenAIProvider) Supports(mediaType, scene string) bool {
	return mediaType == MediaImage && scene == SceneTextToImage
}

func (p *OpenAIProvider) Generate(ctx context.Context, req Request) (*Result, error) {
	if !p.Supports(req.MediaType, req.Scene) {
		return nil, fmt.Errorf("%w: %s/%s", ErrUnsupportedScene, req.MediaType, req.Scene)
	}
	model := req.Model
	if model == "" {
		model = p.model
	}

	size := optString(req.Options, "size", openai.CreateImageSize1024x1024)
	quality := optString(req.Options, "quality", "")

	resp, err := p.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         req.Prompt,
		Model:          model,
		N:              1,
		Size:           size,
		Quality:        quality,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
		User:           req.UserRef,
	})
	if err != nil {
		return nil, fmt.Errorf("openai error: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no image returned from OpenAI")
	}

	out := &Result{Provider: ProviderOpenAI, Model: model}
	for _, d := range resp.Data {
		o := Output{RevisedPrompt: d.RevisedPrompt}
		switch {
		case d.B64JSON != "":
			data, err := base64.StdEncoding.DecodeString(d.B64JSON)
			if err != nil {
				return nil, fmt.Errorf("failed to decode image: %w", err)
			}
			o.Data = data
			o.ContentType = "image/png"
		case d.URL != "":
			o.URL = d.URL
		default:
			continue
		}
		out.Outputs = append(out.Outputs, o)
	}
	if len(out.Outputs) == 0 {
		return nil, fmt.Errorf("no image returned from OpenAI")
	}
	return out, nil
}

func optString(opts map[string]interface{}, key, fallback string) string {
	if v, ok := opts[key].(string); ok && v != "" {
		return v
	}
	return fallback
}
