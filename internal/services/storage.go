package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/chachabrian/railparcel-backend/internal/config"
	"github.com/chachabrian/railparcel-backend/pkg/logger"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const imageFolder = "parcels"

// Storage keeps parcel images and hands back a public URL.
type Storage interface {
	Store(ctx context.Context, data []byte, name string) (string, error)
	Delete(ctx context.Context, url string) error
}

// NewStorage picks S3 when AWS credentials and a bucket are configured and
// falls back to local disk otherwise.
func NewStorage(cfg config.StorageConfig) (Storage, error) {
	if cfg.UseS3() {
		s, err := NewS3Storage(cfg)
		if err != nil {
			return nil, err
		}
		logger.Info("using S3 image storage", "bucket", cfg.S3Bucket, "region", cfg.AWSRegion)
		return s, nil
	}

	logger.Warn("AWS S3 not configured, using local image storage", "dir", cfg.UploadDir)
	return NewLocalStorage(cfg.UploadDir, cfg.BaseURL)
}

func objectName(data []byte, name string) string {
	ext := mimetype.Detect(data).Extension()
	if ext == "" {
		ext = strings.ToLower(filepath.Ext(name))
	}
	return uuid.NewString() + ext
}

type S3Storage struct {
	client   *s3.S3
	uploader *s3manager.Uploader
	bucket   string
	region   string
}

func NewS3Storage(cfg config.StorageConfig) (*S3Storage, error) {
	sess, err := session.NewSession(&aws.Config{
		Region:      aws.String(cfg.AWSRegion),
		Credentials: credentials.NewStaticCredentials(cfg.AWSAccessKey, cfg.AWSSecretKey, ""),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &S3Storage{
		client:   s3.New(sess),
		uploader: s3manager.NewUploader(sess),
		bucket:   cfg.S3Bucket,
		region:   cfg.AWSRegion,
	}, nil
}

func (s *S3Storage) Store(ctx context.Context, data []byte, name string) (string, error) {
	key := path.Join(imageFolder, objectName(data, name))

	_, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(mimetype.Detect(data).String()),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key), nil
}

func (s *S3Storage) Delete(ctx context.Context, imageURL string) error {
	key, err := s3KeyFromURL(imageURL)
	if err != nil {
		return err
	}
	_, err = s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}

// s3KeyFromURL turns https://bucket.s3.region.amazonaws.com/parcels/x.png
// into parcels/x.png.
func s3KeyFromURL(imageURL string) (string, error) {
	u, err := url.Parse(imageURL)
	if err != nil {
		return "", fmt.Errorf("invalid image url: %w", err)
	}
	key := strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", errors.New("image url has no object key")
	}
	return key, nil
}

// LocalStorage writes files under dir and serves them from baseURL/uploads.
type LocalStorage struct {
	dir     string
	baseURL string
}

func NewLocalStorage(dir, baseURL string) (*LocalStorage, error) {
	if err := os.MkdirAll(filepath.Join(dir, imageFolder), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &LocalStorage{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (l *LocalStorage) Store(ctx context.Context, data []byte, name string) (string, error) {
	fileName := objectName(data, name)
	if err := os.WriteFile(filepath.Join(l.dir, imageFolder, fileName), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	return fmt.Sprintf("%s/uploads/%s/%s", l.baseURL, imageFolder, fileName), nil
}

func (l *LocalStorage) Delete(ctx context.Context, imageURL string) error {
	prefix := l.baseURL + "/uploads/"
	if !strings.HasPrefix(imageURL, prefix) {
		return fmt.Errorf("image url %q is not managed by local storage", imageURL)
	}

	rel := filepath.Clean(filepath.FromSlash(strings.TrimPrefix(imageURL, prefix)))
	if rel == "." || strings.HasPrefix(rel, "..") || filepath.IsAbs(rel) {
		return fmt.Errorf("invalid image path %q", rel)
	}

	err := os.Remove(filepath.Join(l.dir, rel))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
