package upload

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// PublicPath is where the API serves LocalProvider files.
const PublicPath = "/uploads"

// LocalProvider writes files below a directory served as static content.
type LocalProvider struct {
	basePath string
	baseURL  string
}

func NewLocalProvider(basePath, baseURL string) (*LocalProvider, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &LocalProvider{
		basePath: basePath,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}, nil
}

func (p *LocalProvider) Name() string {
	return "local"
}

func (p *LocalProvider) Dir() string {
	return p.basePath
}

func (p *LocalProvider) Put(ctx context.Context, key string, body io.Reader, _ int64, contentType string) (*Object, error) {
	key = cleanKey(key)
	full := filepath.Join(p.basePath, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create folder: %w", err)
	}

	out, err := os.Create(full)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer out.Close()

	written, err := io.Copy(out, body)
	if err != nil {
		_ = os.Remove(full)
		return nil, fmt.Errorf("failed to write file: %w", err)
	}
	if contentType == "" {
		contentType = ContentTypeFor(key)
	}

	return &Object{
		Key:         key,
		URL:         p.URL(key),
		Size:        written,
		ContentType: contentType,
	}, nil
}

func (p *LocalProvider) Delete(ctx context.Context, key string) error {
	err := os.Remove(filepath.Join(p.basePath, filepath.FromSlash(cleanKey(key))))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (p *LocalProvider) URL(key string) string {
	return p.baseURL + PublicPath + "/" + cleanKey(key)
}
