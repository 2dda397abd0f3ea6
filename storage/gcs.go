package storage

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSStore implements ObjectStore on a Google Cloud Storage bucket.
type GCSStore struct {
	client *storage.Client
	bucket string
}

func NewGCSStore(ctx context.Context, bucket, credentialsPath string) (*GCSStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("storage: bucket name required")
	}

	var client *storage.Client
	var err error
	if credentialsPath != "" {
		client, err = storage.NewClient(ctx, option.WithCredentialsFile(credentialsPath))
	} else {
		client, err = storage.NewClient(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: create client: %w", err)
	}

	return &GCSStore{client: client, bucket: bucket}, nil
}

func (g *GCSStore) Upload(ctx context.Context, reader io.Reader, objectName, contentType string) (UploadResult, error) {
	obj := g.client.Bucket(g.bucket).Object(objectName)
	writer := obj.NewWriter(ctx)
	if contentType != "" {
		writer.ContentType = contentType
	}

	size, err := io.Copy(writer, reader)
	if err != nil {
		writer.Close()
		return UploadResult{}, fmt.Errorf("storage: copy to bucket: %w", err)
	}
	if err := writer.Close(); err != nil {
		return UploadResult{}, fmt.Errorf("storage: close writer: %w", err)
	}

	return UploadResult{ObjectName: objectName, Size: size}, nil
}

func (g *GCSStore) Read(ctx context.Context, objectName string) (io.ReadCloser, error) {
	return g.client.Bucket(g.bucket).Object(objectName).NewReader(ctx)
}

func (g *GCSStore) Delete(ctx context.Context, objectName string) error {
	return g.client.Bucket(g.bucket).Object(objectName).Delete(ctx)
}

func (g *GCSStore) Close() error {
	return g.client.Close()
}
