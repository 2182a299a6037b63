package services

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/chachabrian/mooveit-carpool/internal/config"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const maxImageBytes = 5 << 20

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// Storage saves profile photos to S3 when AWS is configured, otherwise to
// the local upload directory served under /uploads.
type Storage struct {
	cfg      config.StorageConfig
	s3Client *s3.S3
	uploader *s3manager.Uploader
	log      *logrus.Logger
}

// InitStorage initializes either S3 or local storage based on configuration
func InitStorage(cfg config.StorageConfig, log *logrus.Logger) (*Storage, error) {
	st := &Storage{cfg: cfg, log: log}

	if cfg.S3Enabled() {
		sess, err := session.NewSession(&aws.Config{
			Region:      aws.String(cfg.AWSRegion),
			Credentials: credentials.NewStaticCredentials(cfg.AWSAccessKey, cfg.AWSSecretKey, ""),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create AWS session: %v", err)
		}
		st.s3Client = s3.New(sess)
		st.uploader = s3manager.NewUploader(sess)
		log.WithField("bucket", cfg.S3Bucket).Info("S3 storage initialized")
		return st, nil
	}

	if err := os.MkdirAll(cfg.UploadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %v", err)
	}
	log.WithField("dir", cfg.UploadDir).Warn("S3 not configured, using local file storage")
	return st, nil
}

func (s *Storage) IsUsingS3() bool {
	return s.uploader != nil
}

// UploadImage stores an image under folder and returns its public URL.
func (s *Storage) UploadImage(file *multipart.FileHeader, folder string) (string, error) {
	if file.Size > maxImageBytes {
		return "", fmt.Errorf("image larger than %d bytes", maxImageBytes)
	}

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %v", err)
	}
	defer src.Close()

	buffer := bytes.NewBuffer(nil)
	if _, err := io.Copy(buffer, io.LimitReader(src, maxImageBytes+1)); err != nil {
		return "", fmt.Errorf("failed to read file: %v", err)
	}

	contentType := http.DetectContentType(buffer.Bytes())
	ext, ok := allowedImageTypes[contentType]
	if !ok {
		return "", fmt.Errorf("unsupported image type %s", contentType)
	}
	key := fmt.Sprintf("%s/%s%s", folder, uuid.NewString(), ext)

	if s.IsUsingS3() {
		return s.uploadToS3(key, contentType, buffer.Bytes())
	}
	return s.uploadLocally(key, buffer.Bytes())
}

func (s *Storage) uploadToS3(key, contentType string, body []byte) (string, error) {
	_, err := s.uploader.Upload(&s3manager.UploadInput{
		Bucket:      aws.String(s.cfg.S3Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %v", err)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.S3Bucket, s.cfg.AWSRegion, key), nil
}

func (s *Storage) uploadLocally(key string, body []byte) (string, error) {
	path := filepath.Join(s.cfg.UploadDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create folder directory: %v", err)
	}
	if err := os.WriteFile(path, body, 0644); err != nil {
		return "", fmt.Errorf("failed to save file: %v", err)
	}
	return fmt.Sprintf("%s/uploads/%s", strings.TrimRight(s.cfg.BaseURL, "/"), key), nil
}

// DeleteImage removes an image previously returned by UploadImage. URLs that
// do not belong to this storage are ignored.
func (s *Storage) DeleteImage(imageURL string) error {
	key, ok := s.keyFromURL(imageURL)
	if !ok {
		return nil
	}
	if s.IsUsingS3() {
		_, err := s.s3Client.DeleteObject(&s3.DeleteObjectInput{
			Bucket: aws.String(s.cfg.S3Bucket),
			Key:    aws.String(key),
		})
		return err
	}
	err := os.Remove(filepath.Join(s.cfg.UploadDir, filepath.FromSlash(key)))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (s *Storage) keyFromURL(imageURL string) (string, bool) {
	u, err := url.Parse(imageURL)
	if err != nil || u.Path == "" {
		return "", false
	}
	path := strings.TrimPrefix(u.Path, "/")
	if s.IsUsingS3() {
		if !strings.HasPrefix(u.Host, s.cfg.S3Bucket+".") {
			return "", false
		}
		return path, true
	}
	key := strings.TrimPrefix(path, "uploads/")
	if key == path || strings.Contains(key, "..") {
		return "", false
	}
	return key, true
}
