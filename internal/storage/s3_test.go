package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rowjay/lily-delivery/internal/remote"
)

func newTestS3(t *testing.T, handler http.HandlerFunc) *S3 {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	store, err := NewS3(strings.TrimPrefix(srv.URL, "http://"), "us-east-1", "my-bucket", "key", "secret", false, true)
	require.NoError(t, err)
	return store
}

func TestS3ExistsNotFound(t *testing.T) {
	store := newTestS3(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	ok, err := store.Exists(context.Background(), "index-1.4.56.html")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestS3ExistsAccessDenied(t *testing.T) {
	store := newTestS3(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	_, err := store.Exists(context.Background(), "index-1.4.56.html")
	require.Error(t, err)
	assert.Equal(t, "faced problems when connecting to AWS S3", err.Error())
	assert.True(t, remote.IsKind(err, remote.ServiceError))
}

func TestS3PutHeaders(t *testing.T) {
	var (
		mu     sync.Mutex
		method string
		path   string
		header http.Header
	)
	store := newTestS3(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		mu.Lock()
		method, path, header = r.Method, r.URL.Path, r.Header.Clone()
		mu.Unlock()
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	})

	body := []byte("console.log('/1.4.56/assets/monaco/vs');")
	err := store.Put(context.Background(), "1.4.56/main.js", bytes.NewReader(body), int64(len(body)), PutOptions{
		ContentType:     "text/javascript; charset=utf-8",
		ContentEncoding: "gzip",
		CacheControl:    "max-age=60",
		PublicRead:      true,
	})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/my-bucket/1.4.56/main.js", path)
	assert.Equal(t, "public-read", header.Get("x-amz-acl"))
	assert.Equal(t, "gzip", header.Get("Content-Encoding"))
	assert.Equal(t, "max-age=60", header.Get("Cache-Control"))
	assert.Equal(t, "text/javascript; charset=utf-8", header.Get("Content-Type"))
}

func TestS3PutPrivate(t *testing.T) {
	var (
		mu  sync.Mutex
		acl = "unset"
	)
	store := newTestS3(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		mu.Lock()
		acl = r.Header.Get("x-amz-acl")
		mu.Unlock()
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	})
	body := []byte("<svg/>")
	require.NoError(t, store.Put(context.Background(), "1.4.56/logo.svg", bytes.NewReader(body), int64(len(body)), PutOptions{}))
	mu.Lock()
	defer mu.Unlock()
	assert.Empty(t, acl)
}

// listHandler serves ListObjectsV2 for keys, filtering on the prefix query
// parameter the way S3 does.
func listHandler(keys []string, prefixes *[]string) http.HandlerFunc {
	var mu sync.Mutex
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Query().Get("list-type") != "2" {
			w.WriteHeader(http.StatusNotImplemented)
			return
		}
		prefix := r.URL.Query().Get("prefix")
		mu.Lock()
		*prefixes = append(*prefixes, prefix)
		mu.Unlock()

		var contents strings.Builder
		count := 0
		for _, key := range keys {
			if !strings.HasPrefix(key, prefix) {
				continue
			}
			count++
			fmt.Fprintf(&contents, "<Contents><Key>%s</Key><LastModified>2024-05-01T10:00:00.000Z</LastModified>"+
				"<ETag>&#34;abc&#34;</ETag><Size>42</Size><StorageClass>STANDARD</StorageClass></Contents>", key)
		}
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>`+
			`<ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">`+
			`<Name>my-bucket</Name><Prefix>%s</Prefix><KeyCount>%d</KeyCount><MaxKeys>1000</MaxKeys>`+
			`<IsTruncated>false</IsTruncated>%s</ListBucketResult>`, prefix, count, contents.String())
	}
}

func TestS3HasPrefixNeedsSeparator(t *testing.T) {
	var prefixes []string
	store := newTestS3(t, listHandler([]string{"1.4.56/main.js", "index-1.4.56.html"}, &prefixes))

	ok, err := store.HasPrefix(context.Background(), "1.4.5/")
	require.NoError(t, err)
	assert.False(t, ok, "1.4.56/ must not satisfy 1.4.5/")

	ok, err = store.HasPrefix(context.Background(), "1.4.56/")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, []string{"1.4.5/", "1.4.56/"}, prefixes)
}

func TestS3List(t *testing.T) {
	var prefixes []string
	store := newTestS3(t, listHandler([]string{"1.4.55/main.js", "1.4.56/assets/logo.svg", "1.4.56/main.js"}, &prefixes))

	infos, err := store.List(context.Background(), "1.4.56/")
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "1.4.56/assets/logo.svg", infos[0].Key)
	assert.Equal(t, "1.4.56/main.js", infos[1].Key)
	assert.Equal(t, int64(42), infos[0].Size)
}

func TestS3Check(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		want    bool
		wantErr string
	}{
		{name: "reachable", status: http.StatusOK, want: true},
		{name: "access denied", status: http.StatusForbidden},
		{name: "missing bucket", status: http.StatusNotFound},
		{name: "server error", status: http.StatusInternalServerError, wantErr: "faced problems when connecting to AWS S3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestS3(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodHead || strings.TrimSuffix(r.URL.Path, "/") != "/my-bucket" {
					w.WriteHeader(http.StatusNotImplemented)
					return
				}
				w.WriteHeader(tt.status)
			})
			ok, err := store.Check(context.Background())
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantErr, err.Error())
				assert.True(t, remote.IsKind(err, remote.ServiceError))
				assert.False(t, ok)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestS3UnreachableFailsFast(t *testing.T) {
	store, err := NewS3("127.0.0.1:1", "us-east-1", "my-bucket", "key", "secret", false, true)
	require.NoError(t, err)

	start := time.Now()
	_, err = store.Exists(context.Background(), "index-1.4.56.html")
	require.Error(t, err)
	assert.Equal(t, "could not connect to the bucket specified", err.Error())
	assert.True(t, remote.IsKind(err, remote.ConnectivityError))
	assert.Less(t, time.Since(start), 2*time.Second, "requests are sent once")
}
