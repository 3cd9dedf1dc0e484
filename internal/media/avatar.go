// Package media stores student avatar images in S3.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"hostel-management-backend/config"
)

var ErrUnsupportedType = errors.New("unsupported image type")

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// ObjectPutter is the S3 call the avatar store needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// AvatarStore uploads avatars and returns their public URL.
type AvatarStore struct {
	client  ObjectPutter
	bucket  string
	baseURL string
}

// NewAvatarStore wraps an existing client.
func NewAvatarStore(client ObjectPutter, cfg config.StorageConfig) *AvatarStore {
	baseURL := strings.TrimRight(cfg.PublicBaseURL, "/")
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
	return &AvatarStore{client: client, bucket: cfg.Bucket, baseURL: baseURL}
}

// NewS3AvatarStore loads the default AWS credential chain and builds an S3 client.
func NewS3AvatarStore(ctx context.Context, cfg config.StorageConfig) (*AvatarStore, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("could not load aws config: %w", err)
	}
	return NewAvatarStore(s3.NewFromConfig(awsCfg), cfg), nil
}

// Upload stores the image under a fresh key for the student.
func (a *AvatarStore) Upload(ctx context.Context, studentID string, body io.Reader, contentType string) (string, error) {
	ext, ok := extensions[strings.ToLower(contentType)]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, contentType)
	}
	key := fmt.Sprintf("avatars/%s/%s%s", studentID, uuid.NewString(), ext)

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(a.bucket),
		Key:          aws.String(key),
		Body:         body,
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("public, max-age=86400"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload avatar: %w", err)
	}
	return a.baseURL + "/" + key, nil
}
