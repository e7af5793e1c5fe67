package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

const (
	stagingPrefix        = "staging/"
	defaultPresignExpiry = 15 * time.Minute
)

// S3Config holds the configuration for S3 staging.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string // Optional: for custom S3-compatible endpoints
	AccessKeyID     string // Optional: AWS access key ID
	SecretAccessKey string // Optional: AWS secret access key
	PresignExpiry   time.Duration
}

// S3Storage wraps LocalStorage and stages files in a bucket. The media
// service fetches the staged object through a presigned GET URL.
type S3Storage struct {
	*LocalStorage
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	expiry  time.Duration
}

// NewS3Storage creates a new S3Storage instance.
// The tempDir parameter specifies where temporary files are stored.
func NewS3Storage(tempDir string, cfg S3Config) (*S3Storage, error) {
	local, err := NewLocalStorage(tempDir)
	if err != nil {
		return nil, err
	}

	var configOpts []func(*config.LoadOptions) error
	configOpts = append(configOpts, config.WithRegion(cfg.Region))

	// Use static credentials if provided
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		configOpts = append(configOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(), configOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var clientOpts []func(*s3.Options)
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, clientOpts...)

	expiry := cfg.PresignExpiry
	if expiry <= 0 {
		expiry = defaultPresignExpiry
	}

	return &S3Storage{
		LocalStorage: local,
		client:       client,
		presign:      s3.NewPresignClient(client),
		bucket:       cfg.Bucket,
		expiry:       expiry,
	}, nil
}

// Stage uploads the file at path to the bucket and returns a presigned
// URL the media service can fetch it from.
func (s *S3Storage) Stage(ctx context.Context, path string) (Staged, error) {
	f, err := os.Open(path) // #nosec G304 - path comes from SaveTemp
	if err != nil {
		return Staged{}, fmt.Errorf("open staged file: %w", err)
	}
	defer func() { _ = f.Close() }()

	key := stagingPrefix + uuid.NewString() + filepath.Ext(path)
	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   f,
	}); err != nil {
		return Staged{}, fmt.Errorf("upload to S3: %w", err)
	}

	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.expiry))
	if err != nil {
		return Staged{}, fmt.Errorf("presign S3 object: %w", err)
	}

	return Staged{Source: req.URL, Key: key}, nil
}

// Unstage deletes the staged object.
func (s *S3Storage) Unstage(ctx context.Context, st Staged) error {
	if st.Key == "" {
		return nil
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(st.Key),
	}); err != nil {
		return fmt.Errorf("delete from S3: %w", err)
	}
	return nil
}
