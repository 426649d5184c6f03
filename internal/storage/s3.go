package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/nextolk/backend/internal/logger"
	"go.uber.org/zap"
)

// mediaPrefix is prepended to every key in the bucket
const mediaPrefix = "media"

// s3API is the part of the S3 client the store uses
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, opts ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3Config configures an S3Store
type S3Config struct {
	Region          string
	Bucket          string
	CustomDomain    string
	AccessKeyID     string
	SecretAccessKey string
	ACL             string
}

// S3Store keeps media in an S3 bucket under media/
type S3Store struct {
	client s3API
	bucket string
	region string
	domain string
	acl    types.ObjectCannedACL
}

// NewS3Store loads AWS config, using static credentials when given and the
// default chain otherwise.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return newS3Store(s3.NewFromConfig(awsCfg), cfg), nil
}

func newS3Store(client s3API, cfg S3Config) *S3Store {
	domain := cfg.CustomDomain
	if domain == "" {
		domain = fmt.Sprintf("%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
	return &S3Store{
		client: client,
		bucket: cfg.Bucket,
		region: cfg.Region,
		domain: strings.TrimSuffix(domain, "/"),
		acl:    types.ObjectCannedACL(cfg.ACL),
	}
}

func (s *S3Store) objectKey(key string) string {
	return path.Join(mediaPrefix, key)
}

// Save uploads body. An existing key is never overwritten.
func (s *S3Store) Save(ctx context.Context, key string, body io.Reader, size int64, contentType string) (*UploadResult, error) {
	key, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	key, err = availableKey(ctx, s, key)
	if err != nil {
		return nil, err
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.objectKey(key)),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
		CacheControl:  aws.String("max-age=86400"),
		Metadata: map[string]string{
			"upload-timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	}
	if s.acl != "" {
		input.ACL = s.acl
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return nil, fmt.Errorf("failed to upload to S3: %w", err)
	}

	logger.Log.Debug("Uploaded media to S3", logger.WithKey(key), zap.Int64("size", size))
	return &UploadResult{Key: key, URL: s.URL(key), Size: size}, nil
}

func (s *S3Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read from S3: %w", err)
	}
	return out.Body, nil
}

// Delete removes an object. Deleting a missing key is not an error.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}
	return nil
}

func (s *S3Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err == nil {
		return true, nil
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat S3 object: %w", err)
}

// URL is the public https URL of key
func (s *S3Store) URL(key string) string {
	return fmt.Sprintf("https://%s/%s", s.domain, s.objectKey(key))
}

// CheckBucketAccess verifies that we can access the S3 bucket
func (s *S3Store) CheckBucketAccess(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return fmt.Errorf("cannot access S3 bucket %s: %w", s.bucket, err)
	}
	return nil
}
