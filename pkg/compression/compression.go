// Package compression provides the compressors used for emitted artifacts.
package compression

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// Type identifies a compression algorithm.
type Type uint8

const (
	// TypeGzip uses gzip (widely compatible).
	TypeGzip Type = 0
	// TypeZstd uses zstd (faster, better ratio).
	TypeZstd Type = 1
	// TypeNone stores data uncompressed.
	TypeNone Type = 255
)

// Compressor is the unified compression interface.
type Compressor interface {
	// Compress compresses the input data.
	Compress(data []byte) ([]byte, error)
	// Decompress decompresses the input data.
	Decompress(data []byte) ([]byte, error)
	// Type returns the compression type.
	Type() Type
	// Name returns the human-readable name.
	Name() string
}

// New returns a compressor for the type.
func New(t Type) (Compressor, error) {
	switch t {
	case TypeGzip:
		return &gzipCompressor{}, nil
	case TypeZstd:
		return newZstdCompressor()
	case TypeNone:
		return &noneCompressor{}, nil
	default:
		return nil, fmt.Errorf("unsupported compression type %d", t)
	}
}

// ParseType resolves a name or file extension to a compression type.
func ParseType(name string) (Type, error) {
	switch name {
	case "gzip", "gz", ".gz":
		return TypeGzip, nil
	case "zstd", "zst", ".zst":
		return TypeZstd, nil
	case "none", "":
		return TypeNone, nil
	default:
		return TypeNone, fmt.Errorf("unsupported compression %q", name)
	}
}

// Extension returns the file extension for the type.
func (t Type) Extension() string {
	switch t {
	case TypeGzip:
		return ".gz"
	case TypeZstd:
		return ".zst"
	default:
		return ""
	}
}

type gzipCompressor struct{}

func (c *gzipCompressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("gzip write failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("gzip close failed: %w", err)
	}
	return buf.Bytes(), nil
}

func (c *gzipCompressor) Decompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gzip open failed: %w", err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("gzip read failed: %w", err)
	}
	return out, nil
}

func (c *gzipCompressor) Type() Type   { return TypeGzip }
func (c *gzipCompressor) Name() string { return "gzip" }

type zstdCompressor struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func newZstdCompressor() (*zstdCompressor, error) {
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd encoder init failed: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decoder init failed: %w", err)
	}
	return &zstdCompressor{encoder: encoder, decoder: decoder}, nil
}

func (c *zstdCompressor) Compress(data []byte) ([]byte, error) {
	return c.encoder.EncodeAll(data, nil), nil
}

func (c *zstdCompressor) Decompress(data []byte) ([]byte, error) {
	out, err := c.decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decode failed: %w", err)
	}
	return out, nil
}

func (c *zstdCompressor) Type() Type   { return TypeZstd }
func (c *zstdCompressor) Name() string { return "zstd" }

type noneCompressor struct{}

func (c *noneCompressor) Compress(data []byte) ([]byte, error)   { return data, nil }
func (c *noneCompressor) Decompress(data []byte) ([]byte, error) { return data, nil }
func (c *noneCompressor) Type() Type                             { return TypeNone }
func (c *noneCompressor) Name() string                           { return "none" }
