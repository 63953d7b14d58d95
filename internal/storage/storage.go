// Package storage abstracts where design files live: input GraphML may be
// fetched from local disk or object storage, and emitted artifacts may be
// published back.
package storage

import (
	"context"
	"io"

	"github.com/dataflow-compiler/pkg/config"
	"github.com/dataflow-compiler/pkg/errors"
)

// Storage is the object storage interface.
type Storage interface {
	// Upload writes data from the reader to the key.
	Upload(ctx context.Context, key string, reader io.Reader) error

	// Download opens the object at the key.
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// Exists checks whether an object exists at the key.
	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes the object at the key.
	Delete(ctx context.Context, key string) error

	// GetURL returns a URL for the key when the backend has one.
	GetURL(key string) string
}

// Type names the storage backends.
type Type string

const (
	// TypeLocal stores objects under a local directory.
	TypeLocal Type = "local"
	// TypeCOS stores objects in Tencent Cloud COS.
	TypeCOS Type = "cos"
)

// New creates a Storage backend from configuration.
func New(cfg *config.StorageConfig) (Storage, error) {
	switch Type(cfg.Type) {
	case TypeLocal, "":
		return NewLocalStorage(cfg.LocalPath)
	case TypeCOS:
		return NewCOSStorage(&COSConfig{
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			SecretID:  cfg.SecretID,
			SecretKey: cfg.SecretKey,
			Domain:    cfg.Domain,
			Scheme:    cfg.Scheme,
		})
	default:
		return nil, errors.Newf(errors.CodeConfigError, "unsupported storage type %q", cfg.Type)
	}
}
