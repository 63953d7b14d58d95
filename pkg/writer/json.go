// Package writer provides JSON writers for compiler artifacts (emit plans
// and compile reports), optionally compressed.
package writer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dataflow-compiler/pkg/compression"
)

// JSONWriter writes a value as JSON.
type JSONWriter[T any] struct {
	// Indent is the indentation for pretty printing; empty means compact.
	Indent string
	// Compression selects the artifact compression.
	Compression compression.Type
}

// NewJSONWriter creates a compact, uncompressed writer.
func NewJSONWriter[T any]() *JSONWriter[T] {
	return &JSONWriter[T]{Compression: compression.TypeNone}
}

// NewPrettyJSONWriter creates an indented, uncompressed writer.
func NewPrettyJSONWriter[T any]() *JSONWriter[T] {
	return &JSONWriter[T]{Indent: "  ", Compression: compression.TypeNone}
}

// NewCompressedJSONWriter creates a compact writer with the given
// compression.
func NewCompressedJSONWriter[T any](t compression.Type) *JSONWriter[T] {
	return &JSONWriter[T]{Compression: t}
}

// Write encodes the value to the writer.
func (w *JSONWriter[T]) Write(data T, writer io.Writer) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	if w.Indent != "" {
		encoder.SetIndent("", w.Indent)
	}
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode json: %w", err)
	}

	compressor, err := compression.New(w.Compression)
	if err != nil {
		return err
	}
	out, err := compressor.Compress(buf.Bytes())
	if err != nil {
		return err
	}
	if _, err := writer.Write(out); err != nil {
		return fmt.Errorf("failed to write json: %w", err)
	}
	return nil
}

// WriteToFile encodes the value to a file, creating parent directories and
// appending the compression extension.
func (w *JSONWriter[T]) WriteToFile(data T, path string) (string, error) {
	path += w.Compression.Extension()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if err := w.Write(data, file); err != nil {
		return "", err
	}
	return path, nil
}
