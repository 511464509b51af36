package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/bitflow/ledger-backend/internal/domain"
	"github.com/bitflow/ledger-backend/internal/repository/storage"
)

const (
	MaxReceiptSize  = 5 * 1024 * 1024 // 5MB
	MinReceiptWidth = 50
	ThumbnailWidth  = 200
	JPEGQuality     = 85

	presignedURLExpiry = 15 * time.Minute
)

var (
	ErrReceiptTooLarge         = errors.New("file too large. Maximum size is 5MB")
	ErrInvalidReceiptFormat    = errors.New("invalid format. Supported: JPEG, PNG, WebP")
	ErrReceiptTooSmall         = errors.New("image too small. Minimum 50x50 pixels")
	ErrInvalidReceiptData      = errors.New("invalid image data")
	ErrStorageNotConfigured    = errors.New("object storage not configured")
	ErrTransactionHasNoReceipt = errors.New("transaction has no receipt")
)

// allowedReceiptExtensions maps extensions to content types
var allowedReceiptExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// ReceiptMetadata contains presigned URLs for a stored receipt
type ReceiptMetadata struct {
	ReceiptKey   string `json:"receiptKey"`
	ThumbnailURL string `json:"thumbnailUrl"`
	OriginalURL  string `json:"originalUrl"`
}

// AttachmentService stores receipt images against transactions. The
// bucket stays private; reads go through short-lived presigned URLs.
type AttachmentService struct {
	store           storage.ObjectStore
	transactionRepo domain.TransactionRepository
}

// NewAttachmentService creates a new AttachmentService
func NewAttachmentService(store storage.ObjectStore, transactionRepo domain.TransactionRepository) *AttachmentService {
	return &AttachmentService{store: store, transactionRepo: transactionRepo}
}

// IsEnabled indicates whether uploads/deletes are supported (storage configured).
func (s *AttachmentService) IsEnabled() bool {
	return s != nil && s.store != nil
}

// validateAndDecode validates the image and returns the decoded image
func (s *AttachmentService) validateAndDecode(data []byte, filename string) (image.Image, error) {
	if len(data) > MaxReceiptSize {
		return nil, ErrReceiptTooLarge
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := allowedReceiptExtensions[ext]; !ok {
		return nil, ErrInvalidReceiptFormat
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, ErrInvalidReceiptData
	}
	bounds := img.Bounds()
	if bounds.Dx() < MinReceiptWidth || bounds.Dy() < MinReceiptWidth {
		return nil, ErrReceiptTooSmall
	}
	return img, nil
}

// AttachReceipt validates, resizes and stores a receipt image for a
// transaction, replacing any previous receipt.
func (s *AttachmentService) AttachReceipt(ctx context.Context, transactionID int64, data []byte, filename string) (*ReceiptMetadata, error) {
	if !s.IsEnabled() {
		return nil, ErrStorageNotConfigured
	}
	t, err := s.transactionRepo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	img, err := s.validateAndDecode(data, filename)
	if err != nil {
		return nil, err
	}

	receiptID := uuid.New().String()
	variants := []struct {
		name     string
		maxWidth int
	}{
		{"thumb", ThumbnailWidth},
		{"original", 0}, // 0 means keep original size
	}

	uploaded := make([]string, 0, len(variants))
	var originalKey string
	for _, variant := range variants {
		processed := img
		if variant.maxWidth > 0 && img.Bounds().Dx() > variant.maxWidth {
			processed = imaging.Resize(img, variant.maxWidth, 0, imaging.Lanczos)
		}

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, processed, &jpeg.Options{Quality: JPEGQuality}); err != nil {
			return nil, fmt.Errorf("encode receipt: %w", err)
		}

		objectPath := storage.ReceiptObjectPath(transactionID, receiptID, variant.name)
		if _, err := s.store.Upload(ctx, objectPath, bytes.NewReader(buf.Bytes()), "image/jpeg", int64(buf.Len())); err != nil {
			s.cleanup(ctx, uploaded)
			return nil, fmt.Errorf("upload %s variant: %w", variant.name, err)
		}
		uploaded = append(uploaded, objectPath)
		if variant.name == "original" {
			originalKey = objectPath
		}
	}

	previous := t.ReceiptKey
	t.ReceiptKey = &originalKey
	if _, err := s.transactionRepo.Update(ctx, t); err != nil {
		s.cleanup(ctx, uploaded)
		return nil, err
	}
	if previous != nil {
		s.cleanup(ctx, receiptVariantKeys(*previous))
	}

	return s.metadata(ctx, originalKey)
}

// GetReceipt returns presigned URLs for a transaction's receipt
func (s *AttachmentService) GetReceipt(ctx context.Context, transactionID int64) (*ReceiptMetadata, error) {
	if !s.IsEnabled() {
		return nil, ErrStorageNotConfigured
	}
	t, err := s.transactionRepo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if t.ReceiptKey == nil {
		return nil, ErrTransactionHasNoReceipt
	}
	return s.metadata(ctx, *t.ReceiptKey)
}

// DeleteReceipt removes a transaction's receipt variants from storage
// and clears the reference.
func (s *AttachmentService) DeleteReceipt(ctx context.Context, transactionID int64) error {
	if !s.IsEnabled() {
		return ErrStorageNotConfigured
	}
	t, err := s.transactionRepo.GetByID(ctx, transactionID)
	if err != nil {
		return err
	}
	if t.ReceiptKey == nil {
		return ErrTransactionHasNoReceipt
	}

	key := *t.ReceiptKey
	t.ReceiptKey = nil
	if _, err := s.transactionRepo.Update(ctx, t); err != nil {
		return err
	}
	s.cleanup(ctx, receiptVariantKeys(key))
	return nil
}

func (s *AttachmentService) metadata(ctx context.Context, originalKey string) (*ReceiptMetadata, error) {
	originalURL, err := s.store.GeneratePresignedURL(ctx, originalKey, presignedURLExpiry)
	if err != nil {
		return nil, fmt.Errorf("presign receipt: %w", err)
	}
	thumbKey := strings.Replace(originalKey, "_original.jpg", "_thumb.jpg", 1)
	thumbURL, err := s.store.GeneratePresignedURL(ctx, thumbKey, presignedURLExpiry)
	if err != nil {
		return nil, fmt.Errorf("presign thumbnail: %w", err)
	}
	return &ReceiptMetadata{
		ReceiptKey:   originalKey,
		ThumbnailURL: thumbURL,
		OriginalURL:  originalURL,
	}, nil
}

// cleanup removes objects best effort after a failed or superseded upload
func (s *AttachmentService) cleanup(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := s.store.Delete(ctx, key); err != nil {
			log.Warn().Err(err).Str("object_path", key).Msg("Failed to delete receipt object")
		}
	}
}

func receiptVariantKeys(originalKey string) []string {
	return []string{
		originalKey,
		strings.Replace(originalKey, "_original.jpg", "_thumb.jpg", 1),
	}
}
