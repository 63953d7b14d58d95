// Package parser defines the interfaces for ingesting dataflow graph
// descriptions into the compiler's graph store.
package parser

import (
	"context"
	"io"

	"github.com/dataflow-compiler/internal/graph"
)

// Ingester reads a serialized dataflow description into a graph.
type Ingester interface {
	// Ingest parses a design from the reader.
	Ingest(ctx context.Context, reader io.Reader) (*graph.Graph, error)

	// SupportedFormats returns the formats supported by this ingester.
	SupportedFormats() []string

	// Name returns the name of this ingester.
	Name() string
}

// Exporter serializes a graph (including every pseudo-node the compiler
// created) back to the wire format; the result must be acceptable to the
// matching Ingester.
type Exporter interface {
	// Export writes the graph to the writer.
	Export(ctx context.Context, writer io.Writer, g *graph.Graph) error
}

// Registry holds registered ingesters by format name.
type Registry struct {
	ingesters map[string]Ingester
}

// NewRegistry creates a new Registry.
func NewRegistry() *Registry {
	return &Registry{ingesters: make(map[string]Ingester)}
}

// Register registers an ingester for the given format.
func (r *Registry) Register(format string, ingester Ingester) {
	r.ingesters[format] = ingester
}

// Get returns the ingester for a format.
func (r *Registry) Get(format string) (Ingester, bool) {
	ingester, ok := r.ingesters[format]
	return ingester, ok
}
