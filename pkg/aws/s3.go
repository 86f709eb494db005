package aws

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3PutAPI is the subset of the S3 client used by ObjectStore.
type S3PutAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ObjectStore uploads product images to a bucket and returns their public URLs.
type ObjectStore struct {
	client     S3PutAPI
	bucket     string
	prefix     string
	publicBase string
}

// NewObjectStore builds a store from AWS config and env:
// AWS_S3_BUCKET, AWS_S3_PREFIX (default "products"), AWS_S3_ENDPOINT and AWS_S3_PUBLIC_URL.
func NewObjectStore(cfg sdkaws.Config) (*ObjectStore, error) {
	bucket := os.Getenv("AWS_S3_BUCKET")
	if bucket == "" {
		return nil, fmt.Errorf("AWS_S3_BUCKET is not set")
	}
	prefix := os.Getenv("AWS_S3_PREFIX")
	if prefix == "" {
		prefix = "products"
	}

	endpoint := os.Getenv("AWS_S3_ENDPOINT")
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = sdkaws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	publicBase := os.Getenv("AWS_S3_PUBLIC_URL")
	if publicBase == "" {
		publicBase = PublicBaseURL(bucket, cfg.Region, endpoint)
	}
	return NewObjectStoreWithClient(client, bucket, prefix, publicBase), nil
}

func NewObjectStoreWithClient(client S3PutAPI, bucket, prefix, publicBase string) *ObjectStore {
	return &ObjectStore{
		client:     client,
		bucket:     bucket,
		prefix:     strings.Trim(prefix, "/"),
		publicBase: strings.TrimRight(publicBase, "/"),
	}
}

// PublicBaseURL is the URL objects of the bucket are served from. A custom
// endpoint uses path-style addressing.
func PublicBaseURL(bucket, region, endpoint string) string {
	if endpoint != "" {
		return strings.TrimRight(endpoint, "/") + "/" + bucket
	}
	if region == "" {
		region = "us-east-1"
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
}

// Put uploads data under the store prefix and returns the object URL.
func (s *ObjectStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	fullKey := strings.TrimLeft(key, "/")
	if s.prefix != "" {
		fullKey = s.prefix + "/" + fullKey
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        sdkaws.String(s.bucket),
		Key:           sdkaws.String(fullKey),
		Body:          bytes.NewReader(data),
		ContentLength: sdkaws.Int64(int64(len(data))),
		ContentType:   sdkaws.String(contentType),
		CacheControl:  sdkaws.String("public, max-age=31536000"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", fullKey, err)
	}
	return s.publicBase + "/" + escapeKey(fullKey), nil
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
