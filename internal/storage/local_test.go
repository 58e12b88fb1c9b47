package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalPutAndList(t *testing.T) {
	ctx := context.Background()
	store := NewLocal(t.TempDir())

	opts := PutOptions{ContentType: "text/html; charset=utf-8", ContentEncoding: "gzip", CacheControl: "max-age=60", PublicRead: true}
	require.NoError(t, store.Put(ctx, "index-1.0.0.html", strings.NewReader("<html/>"), 7, opts))
	require.NoError(t, store.Put(ctx, "1.0.0/assets/logo.svg", strings.NewReader("<svg/>"), 6, PutOptions{}))

	objects, err := store.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, objects, 2)
	assert.Equal(t, "1.0.0/assets/logo.svg", objects[0].Key)
	assert.Equal(t, "index-1.0.0.html", objects[1].Key)
	assert.Equal(t, int64(7), objects[1].Size)

	headers, err := store.Headers("index-1.0.0.html")
	require.NoError(t, err)
	assert.Equal(t, opts, headers)

	data, err := os.ReadFile(filepath.Join(store.BasePath, "index-1.0.0.html"))
	require.NoError(t, err)
	assert.Equal(t, "<html/>", string(data))
}

func TestLocalExistsAndHasPrefix(t *testing.T) {
	ctx := context.Background()
	store := NewLocal(t.TempDir())
	require.NoError(t, store.Put(ctx, "1.0.0/main.js", strings.NewReader("x"), 1, PutOptions{}))

	ok, err := store.Exists(ctx, "1.0.0/main.js")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Exists(ctx, "1.0.0")
	require.NoError(t, err)
	assert.False(t, ok, "directories are not objects")

	ok, err = store.HasPrefix(ctx, "1.0.0/")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.HasPrefix(ctx, "1.0.1/")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocalListMissingBase(t *testing.T) {
	store := NewLocal(filepath.Join(t.TempDir(), "missing"))
	objects, err := store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, objects)

	ok, err := store.Check(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocalRejectsEscapingKeys(t *testing.T) {
	store := NewLocal(t.TempDir())
	err := store.Put(context.Background(), "../outside.txt", strings.NewReader("x"), 1, PutOptions{})
	require.Error(t, err)
	err = store.Put(context.Background(), ".lily/website.json", strings.NewReader("x"), 1, PutOptions{})
	require.Error(t, err)
}

func TestLocalWebsiteIndex(t *testing.T) {
	ctx := context.Background()
	store := NewLocal(t.TempDir())
	require.NoError(t, store.SetIndexDocument(ctx, "index-1.4.56.html"))

	doc, err := store.IndexDocument()
	require.NoError(t, err)
	assert.Equal(t, "index-1.4.56.html", doc)

	objects, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, objects, "website metadata must not be listed")
}

func TestLocalCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewLocal(t.TempDir()).Exists(ctx, "x")
	require.ErrorIs(t, err, context.Canceled)
}

func TestLocalPutReaderError(t *testing.T) {
	ctx := context.Background()
	store := NewLocal(t.TempDir())

	failing := io.MultiReader(strings.NewReader("<ht"), iotest.ErrReader(errors.New("disk gone")))
	err := store.Put(ctx, "index-1.0.0.html", failing, 7, PutOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk gone")

	require.NoError(t, store.Put(ctx, "index-1.0.0.html", strings.NewReader("<html/>"), 7, PutOptions{}))
	data, err := os.ReadFile(filepath.Join(store.BasePath, "index-1.0.0.html"))
	require.NoError(t, err)
	assert.Equal(t, "<html/>", string(data))
}

func TestLocalPutIntoFileFails(t *testing.T) {
	ctx := context.Background()
	store := NewLocal(t.TempDir())
	require.NoError(t, store.Put(ctx, "1.0.0", strings.NewReader("x"), 1, PutOptions{}))

	err := store.Put(ctx, "1.0.0/main.js", strings.NewReader("x"), 1, PutOptions{})
	require.Error(t, err)
}
