package utils

import (
	"bytes"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestFileHeader creates a mock multipart.FileHeader for testing
func createTestFileHeader(filename string, size int64, content []byte) *multipart.FileHeader {
	// Create a buffer to write our multipart form
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	// Create form file
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", "image/png")
	part, _ := writer.CreatePart(h)
	part.Write(content)
	writer.Close()

	// Parse the multipart form
	reader := multipart.NewReader(body, writer.Boundary())
	form, _ := reader.ReadForm(int64(len(content)) + 1024)
	defer form.RemoveAll()

	if len(form.File["file"]) > 0 {
		fileHeader := form.File["file"][0]
		// Override size for testing purposes
		fileHeader.Size = size
		return fileHeader
	}

	return nil
}

func TestValidateFile(t *testing.T) {
	small := []byte("fake upload content")

	tests := []struct {
		name     string
		filename string
		size     int64
		kind     FileKind
		wantCode string
	}{
		{"png logo", "logo.png", int64(len(small)), KindImage, ""},
		{"jpeg logo", "logo.jpeg", int64(len(small)), KindImage, ""},
		{"upper case extension", "LOGO.JPG", int64(len(small)), KindImage, ""},
		{"pdf is not an image", "receipt.pdf", int64(len(small)), KindImage, "INVALID_FILE_FORMAT"},
		{"gif is not an image", "logo.gif", int64(len(small)), KindImage, "INVALID_FILE_FORMAT"},
		{"no extension", "signature", int64(len(small)), KindImage, "INVALID_FILE_FORMAT"},
		{"pdf proof", "receipt.pdf", int64(len(small)), KindProof, ""},
		{"photo proof", "deposit-slip.jpg", int64(len(small)), KindProof, ""},
		{"text proof", "notes.txt", int64(len(small)), KindProof, "INVALID_FILE_FORMAT"},
		{"proof over 10MB", "receipt.pdf", MaxFileSize + 1, KindProof, "FILE_TOO_LARGE"},
		{"exactly 10MB", "logo.png", MaxFileSize, KindImage, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fileHeader := createTestFileHeader(tt.filename, tt.size, small)
			require.NotNil(t, fileHeader)

			err := ValidateFile(fileHeader, tt.kind)
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}

			var fileErr *FileUploadError
			require.ErrorAs(t, err, &fileErr)
			assert.Equal(t, tt.wantCode, fileErr.Code)
		})
	}
}

func TestValidateKindsListAllowedFormats(t *testing.T) {
	content := []byte("%PDF-1.4")
	pdf := createTestFileHeader("receipt.pdf", int64(len(content)), content)
	require.NotNil(t, pdf)

	assert.EqualError(t, ValidateImageFile(pdf), "Only .png, .jpg, .jpeg files are allowed")
	assert.NoError(t, ValidateProofFile(pdf))

	big := createTestFileHeader("slip.png", 11*1024*1024, content)
	assert.EqualError(t, ValidateProofFile(big), "File size exceeds maximum allowed size of 10 MB")
}

func TestFileUploadError_Error(t *testing.T) {
	err := &FileUploadError{
		Code:    "TEST_CODE",
		Message: "Test error message",
	}

	assert.Equal(t, "Test error message", err.Error())
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "image/png", ContentTypeFor("a.PNG"))
	assert.Equal(t, "image/jpeg", ContentTypeFor("a.jpeg"))
	assert.Equal(t, "application/pdf", ContentTypeFor("slip.pdf"))
	assert.Equal(t, "application/octet-stream", ContentTypeFor("notes.txt"))
	assert.False(t, IsServableExtension("script.sh"))
}

func TestReadUploadedFile(t *testing.T) {
	content := []byte("fake png content")
	fileHeader := createTestFileHeader("proof.png", int64(len(content)), content)
	require.NotNil(t, fileHeader)

	got, err := ReadUploadedFile(fileHeader)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestWriteFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	filename := LocalFilename("proofs/123_slip.png")
	assert.Equal(t, "proofs_123_slip.png", filename)

	require.NoError(t, WriteFile(dir, filename, []byte("data")))

	saved, err := os.ReadFile(filepath.Join(dir, filename))
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), saved)
	assert.Equal(t, "/api/v1/uploads/proofs_123_slip.png", GetFileURL(filename))
}

func TestWriteFile_RejectsPathTraversal(t *testing.T) {
	err := WriteFile(t.TempDir(), "../escape.png", []byte("data"))
	assert.Error(t, err)
}

func TestStorageKey(t *testing.T) {
	key := StorageKey("proofs", "../../slip.pdf")
	assert.True(t, strings.HasPrefix(key, "proofs/"))
	assert.True(t, strings.HasSuffix(key, "_slip.pdf"), "path components must be stripped")
}
