// Package media stores uploaded images in S3-compatible object storage.
package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/ddanilenko/inkpost/internal/common/constants"
	commonerrors "github.com/ddanilenko/inkpost/internal/common/errors"
)

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

var (
	ErrUnsupportedImageType = commonerrors.NewDomainError(
		"UNSUPPORTED_IMAGE_TYPE",
		commonerrors.CategoryValidation,
		http.StatusBadRequest,
		"image must be jpeg, png, gif or webp",
	)

	ErrImageTooLarge = commonerrors.NewDomainError(
		"IMAGE_TOO_LARGE",
		commonerrors.CategoryValidation,
		http.StatusBadRequest,
		"image exceeds the 5 MB limit",
	)

	ErrUploadFailed = commonerrors.NewDomainError(
		"UPLOAD_FAILED",
		commonerrors.CategoryExternal,
		http.StatusBadGateway,
		"failed to store uploaded file",
	)
)

type Uploader interface {
	Upload(ctx context.Context, prefix string, contentType string, size int64, body io.Reader) (string, error)
}

type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	PublicURL string
}

type S3Uploader struct {
	client    *s3.Client
	bucket    string
	publicURL string
}

func NewS3Uploader(ctx context.Context, cfg S3Config) (*S3Uploader, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load storage config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	publicURL := cfg.PublicURL
	if publicURL == "" {
		publicURL = strings.TrimSuffix(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}

	return &S3Uploader{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimSuffix(publicURL, "/"),
	}, nil
}

// Upload validates the file, writes it under a date-partitioned key and
// returns the public URL.
func (u *S3Uploader) Upload(ctx context.Context, prefix string, contentType string, size int64, body io.Reader) (string, error) {
	ext, ok := allowedImageTypes[contentType]
	if !ok {
		return "", ErrUnsupportedImageType
	}
	if size > constants.MaxImageSizeBytes {
		return "", ErrImageTooLarge
	}

	key := ObjectKey(prefix, ext)

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return "", ErrUploadFailed.WithCause(err)
	}

	return u.publicURL + "/" + key, nil
}

func ObjectKey(prefix string, ext string) string {
	now := time.Now().UTC()
	return path.Join(prefix, now.Format("2006/01/02"), uuid.NewString()+ext)
}
