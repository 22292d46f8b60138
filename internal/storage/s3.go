package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// S3Storage implements Storage for AWS S3 and S3-compatible services (Cloudflare R2)
type S3Storage struct {
	client     *s3.S3
	uploader   *s3manager.Uploader
	bucket     string
	baseURL    string
	publicRead bool
	provider   string
}

// NewS3Storage creates a storage backed by AWS S3 (or a custom S3 endpoint)
func NewS3Storage(cfg Config) (*S3Storage, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("bucket is required for S3")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsConfig := &aws.Config{
		Region:     aws.String(region),
		DisableSSL: aws.Bool(cfg.Endpoint != "" && !cfg.UseSSL),
	}
	if cfg.AccessKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}
	if cfg.Endpoint != "" {
		awsConfig.Endpoint = aws.String(cfg.Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, region)
	}

	return newS3Storage(awsConfig, cfg, baseURL, "s3")
}

// NewCloudflareR2Storage creates a new Cloudflare R2 storage instance.
// R2 is S3-compatible, so we use the same SDK.
func NewCloudflareR2Storage(cfg Config) (*S3Storage, error) {
	// R2 endpoint format: https://<account_id>.r2.cloudflarestorage.com
	if cfg.Endpoint == "" {
		return nil, errors.New("endpoint is required for Cloudflare R2")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("bucket is required for Cloudflare R2")
	}

	awsConfig := &aws.Config{
		Region:           aws.String("auto"),
		Endpoint:         aws.String(cfg.Endpoint),
		Credentials:      credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, ""),
		S3ForcePathStyle: aws.Bool(true),
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.r2.dev", cfg.Bucket)
	}

	// R2 не поддерживает ACL, объекты публикуются через bucket/custom domain
	cfg.PublicRead = false
	return newS3Storage(awsConfig, cfg, baseURL, "cloudflare_r2")
}

func newS3Storage(awsConfig *aws.Config, cfg Config, baseURL, provider string) (*S3Storage, error) {
	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s session: %w", provider, err)
	}

	return &S3Storage{
		client:     s3.New(sess),
		uploader:   s3manager.NewUploader(sess),
		bucket:     cfg.Bucket,
		baseURL:    baseURL,
		publicRead: cfg.PublicRead,
		provider:   provider,
	}, nil
}

func (s *S3Storage) Provider() string { return s.provider }

// Save streams the reader to the bucket (multipart for large files)
func (s *S3Storage) Save(ctx context.Context, path string, reader io.Reader, contentType string) error {
	key, err := CleanKey(path)
	if err != nil {
		return err
	}

	input := &s3manager.UploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        reader,
		ContentType: aws.String(contentType),
	}
	if s.publicRead {
		input.ACL = aws.String(s3.ObjectCannedACLPublicRead)
	}

	if _, err := s.uploader.UploadWithContext(ctx, input); err != nil {
		return fmt.Errorf("failed to upload to %s: %w", s.provider, err)
	}
	return nil
}

func (s *S3Storage) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	key, err := CleanKey(path)
	if err != nil {
		return nil, err
	}

	result, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get from %s: %w", s.provider, err)
	}

	return result.Body, nil
}

func (s *S3Storage) Delete(ctx context.Context, path string) error {
	key, err := CleanKey(path)
	if err != nil {
		return err
	}

	_, err = s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to delete from %s: %w", s.provider, err)
	}
	return nil
}

func (s *S3Storage) Exists(ctx context.Context, path string) (bool, error) {
	if _, err := s.head(ctx, path); err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *S3Storage) GetURL(ctx context.Context, path string) (string, error) {
	key, err := CleanKey(path)
	if err != nil {
		return "", err
	}
	return joinURL(s.baseURL, key), nil
}

// GetSignedURL returns a temporary signed URL
func (s *S3Storage) GetSignedURL(ctx context.Context, path string, expiry time.Duration) (string, error) {
	key, err := CleanKey(path)
	if err != nil {
		return "", err
	}

	req, _ := s.client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	url, err := req.Presign(expiry)
	if err != nil {
		return "", fmt.Errorf("failed to generate signed URL: %w", err)
	}

	return url, nil
}

func (s *S3Storage) GetSize(ctx context.Context, path string) (int64, error) {
	out, err := s.head(ctx, path)
	if err != nil {
		return 0, err
	}
	return aws.Int64Value(out.ContentLength), nil
}

func (s *S3Storage) head(ctx context.Context, path string) (*s3.HeadObjectOutput, error) {
	key, err := CleanKey(path)
	if err != nil {
		return nil, err
	}

	out, err := s.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}
	return out, nil
}

func isNotFound(err error) bool {
	var reqErr awserr.RequestFailure
	if errors.As(err, &reqErr) && reqErr.StatusCode() == http.StatusNotFound {
		return true
	}
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, "NotFound":
			return true
		}
	}
	return false
}
