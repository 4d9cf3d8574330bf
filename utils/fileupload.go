package utils

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// MaxFileSize is 10MB in bytes
	MaxFileSize = 10 * 1024 * 1024
)

// FileKind selects which extensions an upload may have
type FileKind string

const (
	// KindImage covers product images, logos and signatures
	KindImage FileKind = "image"
	// KindProof covers proofs of payment (bank slip photos or PDF receipts)
	KindProof FileKind = "proof"
)

var allowedExtensions = map[FileKind][]string{
	KindImage: {".png", ".jpg", ".jpeg"},
	KindProof: {".png", ".jpg", ".jpeg", ".pdf"},
}

var contentTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".pdf":  "application/pdf",
}

var (
	// UploadDir is the directory where uploaded files are stored when S3 is not configured
	// Can be overridden for testing
	UploadDir = "./uploads"
)

// FileUploadError represents a file upload validation error
type FileUploadError struct {
	Code    string
	Message string
}

func (e *FileUploadError) Error() string {
	return e.Message
}

// ValidateImageFile validates an uploaded image's format and size
func ValidateImageFile(fileHeader *multipart.FileHeader) error {
	return ValidateFile(fileHeader, KindImage)
}

// ValidateProofFile validates an uploaded proof of payment's format and size
func ValidateProofFile(fileHeader *multipart.FileHeader) error {
	return ValidateFile(fileHeader, KindProof)
}

// ValidateFile validates the uploaded file format and size for kind
func ValidateFile(fileHeader *multipart.FileHeader, kind FileKind) error {
	if fileHeader.Size > MaxFileSize {
		return &FileUploadError{
			Code:    "FILE_TOO_LARGE",
			Message: fmt.Sprintf("File size exceeds maximum allowed size of %d MB", MaxFileSize/(1024*1024)),
		}
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	for _, allowed := range allowedExtensions[kind] {
		if ext == allowed {
			return nil
		}
	}

	return &FileUploadError{
		Code:    "INVALID_FILE_FORMAT",
		Message: fmt.Sprintf("Only %s files are allowed", strings.Join(allowedExtensions[kind], ", ")),
	}
}

// ContentTypeFor returns the MIME type for a stored filename
func ContentTypeFor(filename string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// IsServableExtension reports whether files with this name may be served back
func IsServableExtension(filename string) bool {
	_, ok := contentTypes[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// StorageKey builds a unique object key: {prefix}/{timestamp}_{filename}
func StorageKey(prefix, filename string) string {
	return fmt.Sprintf("%s/%d_%s", prefix, time.Now().UnixNano(), filepath.Base(filename))
}

// ReadUploadedFile reads the whole multipart upload into memory
func ReadUploadedFile(fileHeader *multipart.FileHeader) (content []byte, err error) {
	src, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer func() {
		if closeErr := src.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close uploaded file: %w", closeErr)
		}
	}()

	content, err = io.ReadAll(io.LimitReader(src, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded file: %w", err)
	}
	if len(content) > MaxFileSize {
		return nil, &FileUploadError{Code: "FILE_TOO_LARGE", Message: "File exceeds the maximum allowed size"}
	}
	return content, nil
}

// LocalFilename flattens a storage key into a single path segment
func LocalFilename(key string) string {
	return strings.ReplaceAll(strings.Trim(key, "/"), "/", "_")
}

// WriteFile stores data as uploadDir/filename, creating the directory when needed
func WriteFile(uploadDir, filename string, data []byte) error {
	if filename != filepath.Base(filename) || filename == "." || filename == ".." {
		return fmt.Errorf("invalid upload filename %q", filename)
	}
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(uploadDir, filename), data, 0644); err != nil {
		return fmt.Errorf("failed to save file: %w", err)
	}
	return nil
}

// GetFileURL returns the URL path for accessing a locally stored upload
func GetFileURL(filename string) string {
	if filename == "" {
		return ""
	}
	return fmt.Sprintf("/api/v1/uploads/%s", filename)
}
