// Package storage relays uploaded photos to an S3 bucket and hands back
// public URLs. Credentials come from the default AWS chain.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// keyPrefix namespaces every object this service writes.
const keyPrefix = "voiceup"

type Config struct {
	Bucket string
	Region string
	// Endpoint points at an S3-compatible service. Empty means AWS.
	Endpoint string
	// PublicBaseURL is the URL prefix returned for uploaded objects.
	// Empty derives the canonical AWS virtual-hosted URL.
	PublicBaseURL string
}

func (c Config) Enabled() bool {
	return c.Bucket != "" && c.Region != ""
}

type S3 struct {
	client  *s3.Client
	bucket  string
	region  string
	baseURL string
}

func NewS3(ctx context.Context, cfg Config) (*S3, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("storage: bucket and region are required")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3{
		client:  client,
		bucket:  cfg.Bucket,
		region:  cfg.Region,
		baseURL: strings.TrimSuffix(cfg.PublicBaseURL, "/"),
	}, nil
}

// Upload writes the content under a fresh uuid-named key, keeping the
// original extension, and returns the object's public URL.
func (s *S3) Upload(ctx context.Context, filename, contentType string, content io.Reader) (string, error) {
	key := fmt.Sprintf("%s/%s%s", keyPrefix, uuid.NewString(), path.Ext(filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        content,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("storage: put object: %w", err)
	}
	return s.publicURL(key), nil
}

func (s *S3) publicURL(key string) string {
	if s.baseURL != "" {
		return s.baseURL + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}
