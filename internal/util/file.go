package util

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// SaveUploadedFile streams an uploaded multipart file into dir under a
// random name and returns its path.
func SaveUploadedFile(file *multipart.FileHeader, dir string) (string, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "nextolk_uploads")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload dir: %w", err)
	}

	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	path := filepath.Join(dir, uuid.New().String()+filepath.Ext(file.Filename))
	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to stage upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}
