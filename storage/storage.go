package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

// ObjectStore abstracts the blob backend holding signature images and
// agreement documents.
type ObjectStore interface {
	Upload(ctx context.Context, reader io.Reader, objectName, contentType string) (UploadResult, error)
	Read(ctx context.Context, objectName string) (io.ReadCloser, error)
	Delete(ctx context.Context, objectName string) error
}

type UploadResult struct {
	ObjectName string
	Size       int64
}

// SignatureObjectName returns a collision-resistant path for a signer's
// signature image, grouped by agreement.
func SignatureObjectName(agreementID, signerID string) string {
	return fmt.Sprintf("signatures/%s/%s_%s_%s.png",
		agreementID, time.Now().UTC().Format("20060102"), signerID, uuid.NewString())
}
