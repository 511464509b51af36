package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"
)

// ObjectStore is the interface for blob storage. Statement files are
// archived under statements/, receipt images under receipts/.
type ObjectStore interface {
	Upload(ctx context.Context, objectPath string, data io.Reader, contentType string, size int64) (string, error)
	Delete(ctx context.Context, objectPath string) error
	GeneratePresignedURL(ctx context.Context, objectPath string, expiry time.Duration) (string, error)
}

// StatementObjectPath builds the archive key for a raw statement file.
// The import id keeps retries from overwriting earlier uploads.
func StatementObjectPath(accountID int64, importID, fileName string) string {
	return path.Join("statements", fmt.Sprintf("%d", accountID), importID+"_"+path.Base(fileName))
}

// ReceiptObjectPath builds the key for one variant of a receipt image.
// Variants of the same upload share the receipt id.
func ReceiptObjectPath(transactionID int64, receiptID, variant string) string {
	return path.Join("receipts", fmt.Sprintf("%d", transactionID), fmt.Sprintf("%s_%s.jpg", receiptID, variant))
}
