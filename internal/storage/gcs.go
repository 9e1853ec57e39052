package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"tabula/internal/domain"
)

var _ domain.ObjectArchive = (*GCSArchive)(nil)

// GCSArchive stores objects in a Google Cloud Storage bucket.
type GCSArchive struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSArchive creates a GCS archive. With an empty keyFile the client uses
// Application Default Credentials.
func NewGCSArchive(ctx context.Context, bucket, prefix, keyFile string) (*GCSArchive, error) {
	var opts []option.ClientOption
	if keyFile != "" {
		opts = append(opts, option.WithAuthCredentialsFile(option.ServiceAccount, keyFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create GCS client: %w", err)
	}
	return &GCSArchive{client: client, bucket: bucket, prefix: prefix}, nil
}

// Put uploads r and returns its gs:// location.
func (a *GCSArchive) Put(ctx context.Context, key string, r io.Reader) (string, error) {
	objKey, err := objectKey(a.prefix, key)
	if err != nil {
		return "", err
	}

	w := a.client.Bucket(a.bucket).Object(objKey).NewWriter(ctx)
	w.ContentType = "application/octet-stream"
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write gs://%s/%s: %w", a.bucket, objKey, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize gs://%s/%s: %w", a.bucket, objKey, err)
	}
	return fmt.Sprintf("gs://%s/%s", a.bucket, objKey), nil
}

// Delete removes the object stored under key. Missing objects are ignored.
func (a *GCSArchive) Delete(ctx context.Context, key string) error {
	objKey, err := objectKey(a.prefix, key)
	if err != nil {
		return err
	}
	err = a.client.Bucket(a.bucket).Object(objKey).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("delete gs://%s/%s: %w", a.bucket, objKey, err)
	}
	return nil
}

// Close releases the underlying client.
func (a *GCSArchive) Close() error {
	return a.client.Close()
}
