package services

import (
	"context"
	"fmt"
	"mime/multipart"

	"github.com/gatsishub/gatsishub-api/utils"
)

// Key prefixes for each kind of stored file
const (
	PrefixProducts   = "products"
	PrefixLogos      = "logos"
	PrefixProofs     = "proofs"
	PrefixSignatures = "signatures"
)

// FileService handles validated uploads on top of a Storage backend
type FileService interface {
	// UploadImage validates an image and stores it under prefix, returning its key
	UploadImage(ctx context.Context, prefix string, fileHeader *multipart.FileHeader) (string, error)

	// UploadProof validates and stores a proof of payment
	UploadProof(ctx context.Context, fileHeader *multipart.FileHeader) (string, error)

	// SaveSignature stores a decoded signature image for an order
	SaveSignature(ctx context.Context, orderID string, png []byte) (string, error)

	// FileURL returns a client-fetchable URL for key
	FileURL(ctx context.Context, key string) (string, error)

	// DeleteFile removes a stored file
	DeleteFile(ctx context.Context, key string) error
}

// StorageFileService implements FileService on any Storage
type StorageFileService struct {
	storage Storage
}

var fileServiceInstance FileService

// NewFileService wraps storage
func NewFileService(storage Storage) *StorageFileService {
	return &StorageFileService{storage: storage}
}

// InitFileService initializes the global file service
func InitFileService(storage Storage) FileService {
	fileServiceInstance = NewFileService(storage)
	return fileServiceInstance
}

// GetFileService returns the initialized file service instance
func GetFileService() FileService {
	return fileServiceInstance
}

// SetFileService sets the file service instance (primarily for testing)
func SetFileService(service FileService) {
	fileServiceInstance = service
}

func (s *StorageFileService) UploadImage(ctx context.Context, prefix string, fileHeader *multipart.FileHeader) (string, error) {
	if err := utils.ValidateImageFile(fileHeader); err != nil {
		return "", err
	}
	return s.upload(ctx, prefix, fileHeader)
}

func (s *StorageFileService) UploadProof(ctx context.Context, fileHeader *multipart.FileHeader) (string, error) {
	if err := utils.ValidateProofFile(fileHeader); err != nil {
		return "", err
	}
	return s.upload(ctx, PrefixProofs, fileHeader)
}

func (s *StorageFileService) upload(ctx context.Context, prefix string, fileHeader *multipart.FileHeader) (string, error) {
	content, err := utils.ReadUploadedFile(fileHeader)
	if err != nil {
		return "", err
	}

	key := utils.StorageKey(prefix, fileHeader.Filename)
	if err := s.storage.Put(ctx, key, content, utils.ContentTypeFor(fileHeader.Filename)); err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}
	return key, nil
}

func (s *StorageFileService) SaveSignature(ctx context.Context, orderID string, png []byte) (string, error) {
	if len(png) == 0 {
		return "", fmt.Errorf("signature image is empty")
	}

	key := utils.StorageKey(PrefixSignatures, orderID+".png")
	if err := s.storage.Put(ctx, key, png, "image/png"); err != nil {
		return "", fmt.Errorf("failed to store signature: %w", err)
	}
	return key, nil
}

func (s *StorageFileService) FileURL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", nil
	}

	url, err := s.storage.URL(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to generate file URL: %w", err)
	}
	return url, nil
}

func (s *StorageFileService) DeleteFile(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}

	if err := s.storage.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
