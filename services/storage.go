package services

import (
	"context"
	"fmt"

	appConfig "github.com/gatsishub/gatsishub-api/config"
	"github.com/gatsishub/gatsishub-api/logger"
	"github.com/gatsishub/gatsishub-api/utils"
	"go.uber.org/zap"
)

// Storage is a flat object store for uploaded files
type Storage interface {
	// Put stores body under key
	Put(ctx context.Context, key string, body []byte, contentType string) error

	// URL returns a URL the client can fetch the object from
	URL(ctx context.Context, key string) (string, error)

	// Delete removes the object; deleting a missing key is not an error
	Delete(ctx context.Context, key string) error
}

var storageInstance Storage

// InitStorage picks S3 when a bucket is configured, local disk otherwise
func InitStorage(ctx context.Context, cfg *appConfig.Config) (Storage, error) {
	if cfg.UsesS3() {
		s3Storage, err := NewS3Storage(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3 storage: %w", err)
		}
		logger.Log.Info("Using S3 file storage", zap.String("bucket", cfg.AWSS3Bucket))
		storageInstance = s3Storage
		return storageInstance, nil
	}

	logger.Log.Info("AWS_S3_BUCKET not set, storing uploads on local disk", zap.String("dir", utils.UploadDir))
	storageInstance = NewLocalStorage(utils.UploadDir)
	return storageInstance, nil
}

// GetStorage returns the initialized storage backend
func GetStorage() Storage {
	return storageInstance
}

// SetStorage sets the storage backend (primarily for testing)
func SetStorage(s Storage) {
	storageInstance = s
}
