package upload

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

type CloudinaryProvider struct {
	cld       *cloudinary.Cloudinary
	cloudName string
}

func NewCloudinaryProvider(cloudName, apiKey, apiSecret string) (*CloudinaryProvider, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}
	return &CloudinaryProvider{cld: cld, cloudName: cloudName}, nil
}

func (p *CloudinaryProvider) Name() string {
	return "cloudinary"
}

// Put uses the key without its extension as the public id.
func (p *CloudinaryProvider) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (*Object, error) {
	key = cleanKey(key)
	publicID := strings.TrimSuffix(key, path.Ext(key))

	result, err := p.cld.Upload.Upload(ctx, body, uploader.UploadParams{
		PublicID:     publicID,
		ResourceType: resourceType(contentType),
		Overwrite:    api.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload to Cloudinary: %w", err)
	}
	if result.Error.Message != "" {
		return nil, fmt.Errorf("cloudinary upload failed: %s", result.Error.Message)
	}

	return &Object{
		Key:         result.PublicID,
		URL:         result.SecureURL,
		Size:        int64(result.Bytes),
		ContentType: contentType,
	}, nil
}

func (p *CloudinaryProvider) Delete(ctx context.Context, key string) error {
	key = cleanKey(key)
	result, err := p.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     strings.TrimSuffix(key, path.Ext(key)),
		ResourceType: resourceType(ContentTypeFor(key)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from Cloudinary: %w", err)
	}
	if result.Result != "ok" && result.Result != "not found" {
		return fmt.Errorf("cloudinary delete failed: %s", result.Result)
	}
	return nil
}

func (p *CloudinaryProvider) URL(key string) string {
	return fmt.Sprintf("https://res.cloudinary.com/%s/image/upload/%s", p.cloudName, cleanKey(key))
}

func resourceType(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return "image"
	case strings.HasPrefix(contentType, "video/"), strings.HasPrefix(contentType, "audio/"):
		return "video"
	default:
		return "auto"
	}
}
