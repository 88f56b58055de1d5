// Package imagegen wraps the AI providers that turn prompts into media.
package imagegen

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Media types
const (
	MediaImage = "image"
	MediaVideo = "video"
	MediaMusic = "music"
)

// Scenes
const (
	SceneTextToImage  = "text-to-image"
	SceneImageToImage = "image-to-image"
	SceneTextToVideo  = "text-to-video"
	SceneImageToVideo = "image-to-video"
	SceneVideoToVideo = "video-to-video"
	SceneTextToMusic  = "text-to-music"
)

var (
	ErrUnknownProvider  = errors.New("unknown provider")
	ErrUnsupportedMedia = errors.New("media type not supported by provider")
	ErrUnsupportedScene = errors.New("scene not supported by provider")
)

type Request struct {
	MediaType string
	Scene     string
	Model     string
	Prompt    string
	Options   map[string]interface{}
	// UserRef is forwarded to providers that accept an end-user identifier.
	UserRef string
}

// Output is one produced file. Exactly one of Data and URL is set.
type Output struct {
	Data          []byte
	URL           string
	ContentType   string
	RevisedPrompt string
}

type Result struct {
	Provider string
	Model    string
	Outputs  []Output
}

type Provider interface {
	Name() string
	Supports(mediaType, scene string) bool
	Generate(ctx context.Context, req Request) (*Result, error)
}

// Registry resolves providers by name.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider)}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return p, nil
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for n := range r.providers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
