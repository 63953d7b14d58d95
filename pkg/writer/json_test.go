package writer

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dataflow-compiler/pkg/compression"
)

type sample struct {
	Design string `json:"design"`
	Nodes  int    `json:"nodes"`
}

func TestJSONWriter_Write(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONWriter[sample]()
	require.NoError(t, w.Write(sample{Design: "rx", Nodes: 7}, &buf))

	var decoded sample
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "rx", decoded.Design)
	assert.Equal(t, 7, decoded.Nodes)
}

func TestPrettyJSONWriter_Indents(t *testing.T) {
	var buf bytes.Buffer
	w := NewPrettyJSONWriter[sample]()
	require.NoError(t, w.Write(sample{Design: "rx"}, &buf))
	assert.True(t, strings.Contains(buf.String(), "\n  "))
}

func TestCompressedJSONWriter_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewCompressedJSONWriter[sample](compression.TypeZstd)
	require.NoError(t, w.Write(sample{Design: "rx", Nodes: 3}, &buf))

	c, err := compression.New(compression.TypeZstd)
	require.NoError(t, err)
	raw, err := c.Decompress(buf.Bytes())
	require.NoError(t, err)

	var decoded sample
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, 3, decoded.Nodes)
}

func TestWriteToFile_AppendsExtension(t *testing.T) {
	dir := t.TempDir()
	w := NewCompressedJSONWriter[sample](compression.TypeGzip)

	path, err := w.WriteToFile(sample{Design: "rx"}, filepath.Join(dir, "out", "plan.json"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "plan.json.gz"))

	_, err = os.Stat(path)
	assert.NoError(t, err)
}
