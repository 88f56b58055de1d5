package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"time"

	"github.com/google/uuid"
)

const defaultMaxSize = 20 * 1024 * 1024

var ErrFileTypeNotAllowed = errors.New("file type not allowed")

// Service stores generated media and user reference images.
type Service struct {
	provider Provider
	http     *http.Client
	maxSize  int64
}

func NewService(provider Provider) *Service {
	return &Service{
		provider: provider,
		http:     &http.Client{Timeout: 60 * time.Second},
		maxSize:  defaultMaxSize,
	}
}

func (s *Service) ProviderName() string {
	return s.provider.Name()
}

// SaveBytes stores data at folder/name and returns the stored object.
func (s *Service) SaveBytes(ctx context.Context, folder, name string, data []byte, contentType string) (*Object, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty file")
	}
	if int64(len(data)) > s.maxSize {
		return nil, fmt.Errorf("file size exceeds maximum allowed size: %d bytes", s.maxSize)
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	if path.Ext(name) == "" {
		name += ExtensionFor(contentType)
	}
	return s.provider.Put(ctx, path.Join(folder, name), bytes.NewReader(data), int64(len(data)), contentType)
}

// Mirror downloads a provider-hosted file and re-hosts it, since provider
// URLs are short-lived.
func (s *Service) Mirror(ctx context.Context, folder, name, sourceURL string) (*Object, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid source url: %w", err)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", sourceURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download %s: status %d", sourceURL, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, s.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read download: %w", err)
	}
	return s.SaveBytes(ctx, folder, name, data, resp.Header.Get("Content-Type"))
}

// UploadImage stores a user-supplied image from a multipart form.
func (s *Service) UploadImage(ctx context.Context, folder string, fh *multipart.FileHeader) (*Object, error) {
	if fh.Size > s.maxSize {
		return nil, fmt.Errorf("file size exceeds maximum allowed size: %d bytes", s.maxSize)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, s.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded file: %w", err)
	}
	contentType := http.DetectContentType(data)
	if !allowedImageTypes[contentType] {
		return nil, fmt.Errorf("%w: %s", ErrFileTypeNotAllowed, contentType)
	}
	return s.SaveBytes(ctx, folder, uuid.NewString(), data, contentType)
}

func (s *Service) Delete(ctx context.Context, key string) error {
	return s.provider.Delete(ctx, key)
}

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}
