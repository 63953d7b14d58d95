package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dataflow-compiler/pkg/config"
)

func TestLocalStorage_RoundTrip(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Upload(ctx, "designs/radio_rx.graphml", strings.NewReader("<graphml/>")))

	ok, err := s.Exists(ctx, "designs/radio_rx.graphml")
	require.NoError(t, err)
	assert.True(t, ok)

	r, err := s.Download(ctx, "designs/radio_rx.graphml")
	require.NoError(t, err)
	content, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, "<graphml/>", string(content))

	assert.True(t, strings.HasPrefix(s.GetURL("designs/radio_rx.graphml"), "file://"))

	require.NoError(t, s.Delete(ctx, "designs/radio_rx.graphml"))
	ok, err = s.Exists(ctx, "designs/radio_rx.graphml")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocalStorage_DeleteMissingIsNoop(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	assert.NoError(t, s.Delete(context.Background(), "never/existed"))
}

func TestLocalStorage_KeyCannotEscapeRoot(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	// Path traversal is confined to the root; the cleaned key stays below
	// the base directory.
	require.NoError(t, s.Upload(context.Background(), "../../etc/passwd", strings.NewReader("x")))
	ok, err := s.Exists(context.Background(), "etc/passwd")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNewCOSStorage_Validation(t *testing.T) {
	_, err := NewCOSStorage(&COSConfig{})
	assert.Error(t, err)

	_, err = NewCOSStorage(&COSConfig{Bucket: "b", Region: "ap-guangzhou"})
	assert.Error(t, err)

	s, err := NewCOSStorage(&COSConfig{
		Bucket: "designs", Region: "ap-guangzhou",
		SecretID: "id", SecretKey: "key",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://designs.cos.ap-guangzhou.myqcloud.com/k", s.GetURL("k"))
}

func TestNew_SelectsBackend(t *testing.T) {
	s, err := New(&config.StorageConfig{Type: "local", LocalPath: t.TempDir()})
	require.NoError(t, err)
	_, ok := s.(*LocalStorage)
	assert.True(t, ok)

	_, err = New(&config.StorageConfig{Type: "s3"})
	assert.Error(t, err)
}
