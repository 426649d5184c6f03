package util

import (
	"errors"
	"path/filepath"
	"strings"
)

var videoExtensions = map[string]string{
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".mkv":  "video/x-matroska",
	".webm": "video/webm",
	".m4v":  "video/x-m4v",
	".3gp":  "video/3gpp",
}

var imageExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// MaxImageUploadBytes bounds profile pictures and product images.
const MaxImageUploadBytes = 10 << 20

// IsValidVideoFile checks if a filename has a supported video extension
func IsValidVideoFile(filename string) bool {
	_, ok := videoExtensions[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// IsValidImageFile checks if a filename has a supported image extension
func IsValidImageFile(filename string) bool {
	_, ok := imageExtensions[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// ContentTypeFor returns the MIME type for a known media extension, or
// application/octet-stream.
func ContentTypeFor(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ct, ok := videoExtensions[ext]; ok {
		return ct
	}
	if ct, ok := imageExtensions[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}

// ValidateFilename rejects empty names, path separators and names over 255 chars
func ValidateFilename(filename string) error {
	if filename == "" {
		return errors.New("filename is required")
	}
	if strings.ContainsAny(filename, `/\`) {
		return errors.New("filename cannot contain directory paths")
	}
	if len(filename) > 255 {
		return errors.New("filename too long (max 255 characters)")
	}
	return nil
}
