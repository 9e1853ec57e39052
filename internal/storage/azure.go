package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"tabula/internal/domain"
)

var _ domain.ObjectArchive = (*AzureArchive)(nil)

// AzureArchive stores objects in an Azure Blob Storage container using
// shared-key credentials.
type AzureArchive struct {
	client    *azblob.Client
	container string
	prefix    string
}

// NewAzureArchive creates an archive for accountName's container.
func NewAzureArchive(accountName, accountKey, container, prefix string) (*AzureArchive, error) {
	cred, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("create shared key credential: %w", err)
	}

	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net", accountName)
	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("create Azure blob client: %w", err)
	}

	return &AzureArchive{client: client, container: container, prefix: prefix}, nil
}

// Put uploads r and returns its az:// location.
func (a *AzureArchive) Put(ctx context.Context, key string, r io.Reader) (string, error) {
	blob, err := objectKey(a.prefix, key)
	if err != nil {
		return "", err
	}
	if _, err := a.client.UploadStream(ctx, a.container, blob, r, nil); err != nil {
		return "", fmt.Errorf("upload az://%s/%s: %w", a.container, blob, err)
	}
	return fmt.Sprintf("az://%s/%s", a.container, blob), nil
}

// Delete removes the blob stored under key. Missing blobs are ignored.
func (a *AzureArchive) Delete(ctx context.Context, key string) error {
	blob, err := objectKey(a.prefix, key)
	if err != nil {
		return err
	}
	_, err = a.client.DeleteBlob(ctx, a.container, blob, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.BlobNotFound) {
		return fmt.Errorf("delete az://%s/%s: %w", a.container, blob, err)
	}
	return nil
}
