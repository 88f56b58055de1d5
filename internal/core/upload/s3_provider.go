package upload

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Config covers AWS S3 and S3-compatible stores such as Cloudflare R2.
// A non-empty Endpoint switches to path-style addressing without ACLs.
type S3Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	PublicBaseURL   string
}

type S3Provider struct {
	client  *s3.Client
	bucket  string
	baseURL string
	useACL  bool
}

func NewS3Provider(ctx context.Context, c S3Config) (*S3Provider, error) {
	if c.Bucket == "" {
		return nil, fmt.Errorf("storage bucket is required")
	}
	if c.Region == "" {
		c.Region = "us-east-1"
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(c.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			c.AccessKeyID,
			c.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
			o.UsePathStyle = true
		}
	})

	baseURL := strings.TrimRight(c.PublicBaseURL, "/")
	if baseURL == "" {
		if c.Endpoint != "" {
			baseURL = strings.TrimRight(c.Endpoint, "/") + "/" + c.Bucket
		} else {
			baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", c.Bucket, c.Region)
		}
	}

	return &S3Provider{
		client:  client,
		bucket:  c.Bucket,
		baseURL: baseURL,
		useACL:  c.Endpoint == "",
	}, nil
}

func (p *S3Provider) Name() string {
	return "s3"
}

func (p *S3Provider) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (*Object, error) {
	key = cleanKey(key)
	if contentType == "" {
		contentType = ContentTypeFor(key)
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	}
	if size > 0 {
		input.ContentLength = aws.Int64(size)
	}
	if p.useACL {
		input.ACL = types.ObjectCannedACLPublicRead
	}

	if _, err := p.client.PutObject(ctx, input); err != nil {
		return nil, fmt.Errorf("failed to upload to S3: %w", err)
	}

	return &Object{
		Key:         key,
		URL:         p.URL(key),
		Size:        size,
		ContentType: contentType,
	}, nil
}

func (p *S3Provider) Delete(ctx context.Context, key string) error {
	_, err := p.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(cleanKey(key)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}
	return nil
}

func (p *S3Provider) URL(key string) string {
	return p.baseURL + "/" + cleanKey(key)
}
