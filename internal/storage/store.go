package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/nextolk/backend/internal/config"
)

// ErrNotFound is returned by Open when the key does not exist
var ErrNotFound = errors.New("media object not found")

// UploadResult describes a stored object. Key may differ from the requested
// key when a file with that name already existed.
type UploadResult struct {
	Key  string `json:"key"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

// MediaStore is where uploaded media lives. Keys are relative paths such as
// "videos/<uuid>.mp4"; stores never overwrite an existing key.
type MediaStore interface {
	Save(ctx context.Context, key string, body io.Reader, size int64, contentType string) (*UploadResult, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	URL(key string) string
}

var (
	_ MediaStore = (*S3Store)(nil)
	_ MediaStore = (*LocalStore)(nil)
	_ MediaStore = (*MemoryStore)(nil)
)

// Key prefixes, one per kind of media
const (
	VideosPrefix          = "videos"
	ThumbnailsPrefix      = "thumbnails"
	ProfilePicturesPrefix = "profile_pics"
	ProductImagesPrefix   = "product_images"
)

// NewKey builds a random key under prefix keeping the original extension
func NewKey(prefix, filename string) string {
	return path.Join(prefix, uuid.New().String()+strings.ToLower(path.Ext(filename)))
}

// alternateKey derives a fresh name for a key that is already taken:
// videos/a.mp4 -> videos/a_1b2c3d4.mp4
func alternateKey(key string) string {
	ext := path.Ext(key)
	return strings.TrimSuffix(key, ext) + "_" + uuid.New().String()[:7] + ext
}

// availableKey returns key, or an alternate if key already exists
func availableKey(ctx context.Context, s MediaStore, key string) (string, error) {
	for i := 0; i < 5; i++ {
		exists, err := s.Exists(ctx, key)
		if err != nil {
			return "", err
		}
		if !exists {
			return key, nil
		}
		key = alternateKey(key)
	}
	return "", fmt.Errorf("could not find a free name for %s", key)
}

// cleanKey rejects absolute paths and parent references
func cleanKey(key string) (string, error) {
	cleaned := path.Clean(strings.TrimPrefix(key, "/"))
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("invalid media key %q", key)
	}
	return cleaned, nil
}

// SaveFile uploads a local file
func SaveFile(ctx context.Context, s MediaStore, key, filePath, contentType string) (*UploadResult, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return s.Save(ctx, key, f, info.Size(), contentType)
}

// Download copies an object to a local file
func Download(ctx context.Context, s MediaStore, key, destPath string) error {
	rc, err := s.Open(ctx, key)
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.Create(destPath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		os.Remove(destPath)
		return fmt.Errorf("failed to download %s: %w", key, err)
	}
	return out.Close()
}

// URLOrNil renders a key as a URL, or nil for an empty key
func URLOrNil(s MediaStore, key string) *string {
	if key == "" || s == nil {
		return nil
	}
	u := s.URL(key)
	return &u
}

// FromConfig picks S3 when a bucket is configured and the local disk
// otherwise
func FromConfig(ctx context.Context, cfg *config.Config) (MediaStore, error) {
	if !cfg.UseS3() {
		local, err := NewLocalStore(cfg.Media.Root, cfg.BaseURL)
		if err != nil {
			return nil, err
		}
		return local, nil
	}
	s3Store, err := NewS3Store(ctx, S3Config{
		Region:          cfg.Media.Region,
		Bucket:          cfg.Media.Bucket,
		CustomDomain:    cfg.Media.CustomDomain,
		AccessKeyID:     cfg.Media.AccessKeyID,
		SecretAccessKey: cfg.Media.SecretAccessKey,
		ACL:             cfg.Media.DefaultACL,
	})
	if err != nil {
		return nil, err
	}
	return s3Store, nil
}
