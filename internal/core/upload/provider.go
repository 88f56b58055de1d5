package upload

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"strings"
)

// Object is a stored file.
type Object struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// Provider stores files under slash-separated keys and serves them by URL.
type Provider interface {
	Name() string
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (*Object, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// ProviderConfig selects and configures a storage backend.
type ProviderConfig struct {
	Type string // s3, r2, cloudinary, local

	S3 S3Config

	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string

	LocalDir     string
	LocalBaseURL string
}

// LoadProviderConfigFromEnv reads storage settings. storageType and the
// local defaults come from the service config.
func LoadProviderConfigFromEnv(storageType, localDir, localBaseURL string) *ProviderConfig {
	cfg := &ProviderConfig{
		Type: strings.ToLower(storageType),
		S3: S3Config{
			Endpoint:        os.Getenv("S3_ENDPOINT"),
			Region:          os.Getenv("S3_REGION"),
			Bucket:          os.Getenv("S3_BUCKET"),
			AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
			PublicBaseURL:   os.Getenv("S3_PUBLIC_URL"),
		},
		CloudinaryCloudName: os.Getenv("CLOUDINARY_CLOUD_NAME"),
		CloudinaryAPIKey:    os.Getenv("CLOUDINARY_API_KEY"),
		CloudinaryAPISecret: os.Getenv("CLOUDINARY_API_SECRET"),
		LocalDir:            localDir,
		LocalBaseURL:        localBaseURL,
	}

	if cfg.Type == "r2" {
		if account := os.Getenv("R2_ACCOUNT_ID"); account != "" && cfg.S3.Endpoint == "" {
			cfg.S3.Endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", account)
		}
		if v := os.Getenv("R2_BUCKET"); v != "" {
			cfg.S3.Bucket = v
		}
		if v := os.Getenv("R2_ACCESS_KEY_ID"); v != "" {
			cfg.S3.AccessKeyID = v
		}
		if v := os.Getenv("R2_SECRET_ACCESS_KEY"); v != "" {
			cfg.S3.SecretAccessKey = v
		}
		if v := os.Getenv("R2_PUBLIC_URL"); v != "" {
			cfg.S3.PublicBaseURL = v
		}
		if cfg.S3.Region == "" {
			cfg.S3.Region = "auto"
		}
	}
	return cfg
}

// NewProvider builds the configured backend.
func NewProvider(ctx context.Context, cfg *ProviderConfig) (Provider, error) {
	switch cfg.Type {
	case "s3", "r2":
		return NewS3Provider(ctx, cfg.S3)
	case "cloudinary":
		return NewCloudinaryProvider(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
	case "local", "":
		return NewLocalProvider(cfg.LocalDir, cfg.LocalBaseURL)
	default:
		return nil, fmt.Errorf("unknown storage provider: %s", cfg.Type)
	}
}

// ContentTypeFor guesses a MIME type from a key's extension.
func ContentTypeFor(key string) string {
	if ct := mime.TypeByExtension(strings.ToLower(path.Ext(key))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// ExtensionFor is the inverse of ContentTypeFor for the media the studio produces.
func ExtensionFor(contentType string) string {
	switch strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0])) {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	case "video/mp4":
		return ".mp4"
	case "audio/mpeg":
		return ".mp3"
	default:
		return ".bin"
	}
}

func cleanKey(key string) string {
	key = strings.ReplaceAll(key, "\\", "/")
	return strings.TrimPrefix(path.Clean("/"+key), "/")
}
