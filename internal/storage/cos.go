package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/tencentyun/cos-go-sdk-v5"
)

// COSConfig holds Tencent Cloud COS configuration.
type COSConfig struct {
	Bucket    string
	Region    string
	SecretID  string
	SecretKey string
	Domain    string
	Scheme    string
}

// COSStorage stores objects in a COS bucket.
type COSStorage struct {
	client *cos.Client
	bucket string
	region string
	domain string
	scheme string
}

// NewCOSStorage creates a COSStorage.
func NewCOSStorage(cfg *COSConfig) (*COSStorage, error) {
	if cfg.Bucket == "" || cfg.Region == "" {
		return nil, fmt.Errorf("bucket and region are required for COS storage")
	}
	if cfg.SecretID == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("credentials are required for COS storage")
	}

	domain := cfg.Domain
	if domain == "" {
		domain = "myqcloud.com"
	}
	scheme := cfg.Scheme
	if scheme == "" {
		scheme = "https"
	}

	bucketURL, err := url.Parse(fmt.Sprintf("%s://%s.cos.%s.%s", scheme, cfg.Bucket, cfg.Region, domain))
	if err != nil {
		return nil, fmt.Errorf("failed to parse bucket URL: %w", err)
	}
	serviceURL, err := url.Parse(fmt.Sprintf("%s://cos.%s.%s", scheme, cfg.Region, domain))
	if err != nil {
		return nil, fmt.Errorf("failed to parse service URL: %w", err)
	}

	client := cos.NewClient(&cos.BaseURL{
		BucketURL:  bucketURL,
		ServiceURL: serviceURL,
	}, &http.Client{
		Transport: &cos.AuthorizationTransport{
			SecretID:  cfg.SecretID,
			SecretKey: cfg.SecretKey,
		},
	})

	return &COSStorage{
		client: client,
		bucket: cfg.Bucket,
		region: cfg.Region,
		domain: domain,
		scheme: scheme,
	}, nil
}

// Upload writes data from the reader to the key.
func (s *COSStorage) Upload(ctx context.Context, key string, reader io.Reader) error {
	if _, err := s.client.Object.Put(ctx, key, reader, nil); err != nil {
		return fmt.Errorf("failed to upload to COS: %w", err)
	}
	return nil
}

// Download opens the object at the key.
func (s *COSStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	resp, err := s.client.Object.Get(ctx, key, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to download from COS: %w", err)
	}
	return resp.Body, nil
}

// Exists checks whether an object exists at the key.
func (s *COSStorage) Exists(ctx context.Context, key string) (bool, error) {
	ok, err := s.client.Object.IsExist(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to check COS object: %w", err)
	}
	return ok, nil
}

// Delete removes the object at the key.
func (s *COSStorage) Delete(ctx context.Context, key string) error {
	if _, err := s.client.Object.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to delete from COS: %w", err)
	}
	return nil
}

// GetURL returns the bucket URL for the key.
func (s *COSStorage) GetURL(key string) string {
	return fmt.Sprintf("%s://%s.cos.%s.%s/%s", s.scheme, s.bucket, s.region, s.domain, key)
}
