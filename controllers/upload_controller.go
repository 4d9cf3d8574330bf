package controllers

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gatsishub/gatsishub-api/services"
	"github.com/gatsishub/gatsishub-api/utils"
	"github.com/gin-gonic/gin"
)

// GetUploadedFile handles GET /api/v1/uploads/:filename - serves files kept on local disk
func GetUploadedFile(c *gin.Context) {
	filename := c.Param("filename")

	// Validate filename is not empty
	if filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "Filename is required",
			},
		})
		return
	}

	// Security: Prevent directory traversal attacks
	if strings.Contains(filename, "..") || strings.Contains(filename, "/") || strings.Contains(filename, "\\") {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_FILENAME",
				"message": "Invalid filename",
			},
		})
		return
	}

	if !utils.IsServableExtension(filename) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_FILE_TYPE",
				"message": "Only PNG, JPG and PDF files are supported",
			},
		})
		return
	}

	filePath := filepath.Join(utils.UploadDir, filename)
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FILE_NOT_FOUND",
				"message": "File not found",
			},
		})
		return
	}

	c.Header("Content-Type", utils.ContentTypeFor(filename))
	c.Header("Cache-Control", "public, max-age=86400") // Cache for 24 hours
	c.File(filePath)
}

// UploadLogo handles POST /api/v1/uploads/logo - multipart "logo" for order customization.
// The returned key goes into customization.logo_key at checkout.
func UploadLogo(c *gin.Context) {
	if _, ok := requireUser(c); !ok {
		return
	}

	fileHeader, err := c.FormFile("logo")
	if err != nil {
		respondError(c, utils.NewValidationError("Logo file is required", map[string]string{"logo": "required"}))
		return
	}

	files := services.GetFileService()
	key, err := files.UploadImage(c.Request.Context(), services.PrefixLogos, fileHeader)
	if err != nil {
		respondError(c, uploadError(err))
		return
	}

	url, err := files.FileURL(c.Request.Context(), key)
	if err != nil {
		respondError(c, utils.NewUpstreamError("Failed to generate file URL", err))
		return
	}

	respondOK(c, http.StatusCreated, gin.H{
		"key": key,
		"url": url,
	})
}
