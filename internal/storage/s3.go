package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"tabula/internal/domain"
)

var _ domain.ObjectArchive = (*S3Archive)(nil)

// S3Options configures an S3Archive.
type S3Options struct {
	Endpoint string // host[:port], or a full http(s):// URL
	Region   string
	KeyID    string
	Secret   string
	Bucket   string
	Prefix   string
}

// S3Archive stores objects in S3-compatible storage (AWS, Hetzner, MinIO).
// It uses path-style addressing so non-AWS endpoints work unchanged.
type S3Archive struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Archive creates an archive over the given bucket and prefix.
func NewS3Archive(opts S3Options) *S3Archive {
	endpoint := opts.Endpoint
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}

	client := s3.New(s3.Options{
		Region: opts.Region,
		Credentials: credentials.NewStaticCredentialsProvider(
			opts.KeyID, opts.Secret, "",
		),
		BaseEndpoint: aws.String(endpoint),
		UsePathStyle: true,
	})

	return &S3Archive{client: client, bucket: opts.Bucket, prefix: opts.Prefix}
}

// Put uploads r and returns its s3:// location.
func (a *S3Archive) Put(ctx context.Context, key string, r io.Reader) (string, error) {
	objKey, err := objectKey(a.prefix, key)
	if err != nil {
		return "", err
	}
	body, err := seekable(r)
	if err != nil {
		return "", fmt.Errorf("read upload %q: %w", key, err)
	}

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(objKey),
		Body:   body,
	})
	if err != nil {
		return "", fmt.Errorf("put s3://%s/%s: %w", a.bucket, objKey, err)
	}
	return fmt.Sprintf("s3://%s/%s", a.bucket, objKey), nil
}

// Delete removes the object stored under key.
func (a *S3Archive) Delete(ctx context.Context, key string) error {
	objKey, err := objectKey(a.prefix, key)
	if err != nil {
		return err
	}
	_, err = a.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(objKey),
	})
	if err != nil {
		return fmt.Errorf("delete s3://%s/%s: %w", a.bucket, objKey, err)
	}
	return nil
}
