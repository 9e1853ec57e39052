package storage

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabula/internal/config"
	"tabula/internal/domain"
)

func strPtr(s string) *string { return &s }

func TestObjectKey(t *testing.T) {
	tests := []struct {
		prefix, key string
		want        string
		wantErr     bool
	}{
		{prefix: "", key: "ds1/a.csv", want: "ds1/a.csv"},
		{prefix: "raw", key: "ds1/a.csv", want: "raw/ds1/a.csv"},
		{prefix: "raw", key: "/ds1//a.csv", want: "raw/ds1/a.csv"},
		{prefix: "", key: "ds1/report..final.csv", want: "ds1/report..final.csv"},
		{key: "", wantErr: true},
		{key: "/", wantErr: true},
		{key: "../etc/passwd", wantErr: true},
		{key: "ds1/../../x", wantErr: true},
		{key: `ds1\x.csv`, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.prefix+"|"+tc.key, func(t *testing.T) {
			got, err := objectKey(tc.prefix, tc.key)
			if tc.wantErr {
				var ve *domain.ValidationError
				require.ErrorAs(t, err, &ve)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseBucketURL(t *testing.T) {
	bucket, prefix, err := parseBucketURL("s3://raw/uploads/2026/", "s3")
	require.NoError(t, err)
	assert.Equal(t, "raw", bucket)
	assert.Equal(t, "uploads/2026", prefix)

	bucket, prefix, err = parseBucketURL("gs://only-bucket", "gs")
	require.NoError(t, err)
	assert.Equal(t, "only-bucket", bucket)
	assert.Empty(t, prefix)

	_, _, err = parseBucketURL("gs://bucket/x", "s3")
	require.Error(t, err)

	_, _, err = parseBucketURL("s3:///nobucket", "s3")
	require.Error(t, err)
}

func TestLocalArchive(t *testing.T) {
	ctx := context.Background()
	root := filepath.Join(t.TempDir(), "archive")
	a, err := NewLocalArchive(root)
	require.NoError(t, err)

	loc, err := a.Put(ctx, "ds1/people.csv", strings.NewReader("id,name\n1,x\n"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "ds1", "people.csv"), loc)

	data, err := os.ReadFile(loc)
	require.NoError(t, err)
	assert.Equal(t, "id,name\n1,x\n", string(data))

	t.Run("overwrite", func(t *testing.T) {
		_, err := a.Put(ctx, "ds1/people.csv", strings.NewReader("v2"))
		require.NoError(t, err)
		data, err := os.ReadFile(loc)
		require.NoError(t, err)
		assert.Equal(t, "v2", string(data))
	})

	t.Run("delete removes file and empty dir", func(t *testing.T) {
		require.NoError(t, a.Delete(ctx, "ds1/people.csv"))
		_, err := os.Stat(loc)
		assert.True(t, os.IsNotExist(err))
		_, err = os.Stat(filepath.Join(root, "ds1"))
		assert.True(t, os.IsNotExist(err))
		require.NoError(t, a.Delete(ctx, "ds1/people.csv"))
	})

	t.Run("traversal rejected", func(t *testing.T) {
		_, err := a.Put(ctx, "../escape.csv", strings.NewReader("x"))
		var ve *domain.ValidationError
		require.ErrorAs(t, err, &ve)
	})

	t.Run("failed read leaves nothing behind", func(t *testing.T) {
		_, err := a.Put(ctx, "ds2/bad.csv", io.MultiReader(strings.NewReader("x"), errReader{}))
		require.Error(t, err)
		entries, err := os.ReadDir(filepath.Join(root, "ds2"))
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }

func TestNew(t *testing.T) {
	ctx := context.Background()

	t.Run("plain directory", func(t *testing.T) {
		a, err := New(ctx, &config.Config{ArchiveURL: t.TempDir()})
		require.NoError(t, err)
		assert.IsType(t, &LocalArchive{}, a)
	})

	t.Run("file scheme", func(t *testing.T) {
		a, err := New(ctx, &config.Config{ArchiveURL: "file://" + t.TempDir()})
		require.NoError(t, err)
		assert.IsType(t, &LocalArchive{}, a)
	})

	t.Run("s3 without credentials", func(t *testing.T) {
		_, err := New(ctx, &config.Config{ArchiveURL: "s3://bucket/raw"})
		require.Error(t, err)
	})

	t.Run("s3", func(t *testing.T) {
		a, err := New(ctx, &config.Config{
			ArchiveURL: "s3://bucket/raw",
			S3KeyID:    strPtr("k"),
			S3Secret:   strPtr("s"),
			S3Endpoint: strPtr("s3.example.com"),
			S3Region:   strPtr("eu-central"),
		})
		require.NoError(t, err)
		s3a, ok := a.(*S3Archive)
		require.True(t, ok)
		assert.Equal(t, "bucket", s3a.bucket)
		assert.Equal(t, "raw", s3a.prefix)
	})

	t.Run("azure without credentials", func(t *testing.T) {
		_, err := New(ctx, &config.Config{ArchiveURL: "az://container/raw"})
		require.Error(t, err)
	})

	t.Run("azure", func(t *testing.T) {
		a, err := New(ctx, &config.Config{
			ArchiveURL:       "az://container/raw",
			AzureAccountName: strPtr("acct"),
			AzureAccountKey:  strPtr("a2V5"),
		})
		require.NoError(t, err)
		az, ok := a.(*AzureArchive)
		require.True(t, ok)
		assert.Equal(t, "container", az.container)
	})

	t.Run("unknown scheme", func(t *testing.T) {
		_, err := New(ctx, &config.Config{ArchiveURL: "ftp://host/x"})
		require.Error(t, err)
	})
}

func TestS3Archive_AgainstFakeEndpoint(t *testing.T) {
	type call struct {
		method, path, body string
	}
	var (
		mu    sync.Mutex
		calls []call
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		calls = append(calls, call{r.Method, r.URL.Path, string(body)})
		mu.Unlock()
		switch r.Method {
		case http.MethodPut:
			w.Header().Set("ETag", `"abc"`)
			w.WriteHeader(http.StatusOK)
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	defer srv.Close()

	a := NewS3Archive(S3Options{
		Endpoint: srv.URL,
		Region:   "us-east-1",
		KeyID:    "key",
		Secret:   "secret",
		Bucket:   "raw",
		Prefix:   "uploads",
	})

	ctx := context.Background()
	loc, err := a.Put(ctx, "ds1/a.csv", bytes.NewReader([]byte("h\n1\n")))
	require.NoError(t, err)
	assert.Equal(t, "s3://raw/uploads/ds1/a.csv", loc)
	require.NoError(t, a.Delete(ctx, "ds1/a.csv"))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, calls, 2)
	assert.Equal(t, http.MethodPut, calls[0].method)
	assert.Equal(t, "/raw/uploads/ds1/a.csv", calls[0].path)
	assert.Contains(t, calls[0].body, "h\n1\n")
	assert.Equal(t, http.MethodDelete, calls[1].method)
	assert.Equal(t, "/raw/uploads/ds1/a.csv", calls[1].path)
}
