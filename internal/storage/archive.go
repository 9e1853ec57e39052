// Package storage keeps raw uploads in an object archive: a local
// directory, S3-compatible storage, Google Cloud Storage or Azure Blob
// Storage. The backend is chosen by the scheme of ARCHIVE_URL.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"slices"
	"strings"

	"tabula/internal/config"
	"tabula/internal/domain"
)

// New builds the archive configured by cfg.ArchiveURL.
func New(ctx context.Context, cfg *config.Config) (domain.ObjectArchive, error) {
	raw := cfg.ArchiveURL
	if !strings.Contains(raw, "://") {
		return NewLocalArchive(raw)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse ARCHIVE_URL %q: %w", raw, err)
	}

	switch u.Scheme {
	case "file":
		return NewLocalArchive(u.Path)
	case "s3":
		if !cfg.HasS3Config() {
			return nil, fmt.Errorf("ARCHIVE_URL %q needs S3_KEY_ID, S3_SECRET, S3_ENDPOINT and S3_REGION", raw)
		}
		bucket, prefix, err := parseBucketURL(raw, "s3")
		if err != nil {
			return nil, err
		}
		return NewS3Archive(S3Options{
			Endpoint: *cfg.S3Endpoint,
			Region:   *cfg.S3Region,
			KeyID:    *cfg.S3KeyID,
			Secret:   *cfg.S3Secret,
			Bucket:   bucket,
			Prefix:   prefix,
		}), nil
	case "gs":
		bucket, prefix, err := parseBucketURL(raw, "gs")
		if err != nil {
			return nil, err
		}
		keyFile := ""
		if cfg.GCSKeyFile != nil {
			keyFile = *cfg.GCSKeyFile
		}
		return NewGCSArchive(ctx, bucket, prefix, keyFile)
	case "az":
		if !cfg.HasAzureConfig() {
			return nil, fmt.Errorf("ARCHIVE_URL %q needs AZURE_ACCOUNT_NAME and AZURE_ACCOUNT_KEY", raw)
		}
		container, prefix, err := parseBucketURL(raw, "az")
		if err != nil {
			return nil, err
		}
		return NewAzureArchive(*cfg.AzureAccountName, *cfg.AzureAccountKey, container, prefix)
	default:
		return nil, fmt.Errorf("unsupported archive scheme %q in %q", u.Scheme, raw)
	}
}

// parseBucketURL extracts bucket and key prefix from "<scheme>://bucket/prefix".
// The prefix may be empty.
func parseBucketURL(raw, scheme string) (bucket, prefix string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("parse %s path %q: %w", scheme, raw, err)
	}
	if u.Scheme != scheme {
		return "", "", fmt.Errorf("expected %s:// scheme, got %q in %q", scheme, u.Scheme, raw)
	}
	bucket = u.Host
	if bucket == "" {
		return "", "", fmt.Errorf("empty bucket in %q", raw)
	}
	return bucket, strings.Trim(u.Path, "/"), nil
}

// objectKey joins prefix and key with forward slashes and rejects keys that
// would escape the prefix.
func objectKey(prefix, key string) (string, error) {
	if key == "" || slices.Contains(strings.Split(key, "/"), "..") || strings.Contains(key, `\`) {
		return "", domain.ErrValidation("invalid archive key %q", key)
	}
	clean := strings.TrimPrefix(path.Clean("/"+key), "/")
	if clean == "" {
		return "", domain.ErrValidation("invalid archive key %q", key)
	}
	return path.Join(prefix, clean), nil
}

// seekable returns r as an io.ReadSeeker, buffering it when needed.
func seekable(r io.Reader) (io.ReadSeeker, error) {
	if rs, ok := r.(io.ReadSeeker); ok {
		return rs, nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}
