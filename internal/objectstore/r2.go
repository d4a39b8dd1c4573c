// Package objectstore keeps repair photos in an S3-compatible bucket.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"fixtrack/internal/config"
)

var (
	// ErrDisabled is returned when no bucket is configured
	ErrDisabled        = errors.New("photo storage is not configured")
	ErrUnsupportedType = errors.New("photo must be a JPEG, PNG or WebP image")
)

// allowedTypes maps accepted image content types to file extensions
var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// Putter is the single S3 call the store makes
type Putter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type Store struct {
	client    Putter
	bucket    string
	publicURL string
}

// New builds a store for cfg. It returns ErrDisabled when cfg is incomplete.
func New(ctx context.Context, cfg config.R2Config) (*Store, error) {
	if !cfg.Enabled() {
		return nil, ErrDisabled
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("configure R2 client: %w", err)
	}

	endpoint := cfg.ResolvedEndpoint()
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	publicURL := cfg.PublicURL
	if publicURL == "" {
		publicURL = strings.TrimRight(endpoint, "/") + "/" + cfg.Bucket
	}
	log.Printf("[R2] Photo storage enabled (bucket %s)", cfg.Bucket)
	return NewWithClient(client, cfg.Bucket, publicURL), nil
}

// NewWithClient wraps an existing client
func NewWithClient(client Putter, bucket, publicURL string) *Store {
	return &Store{client: client, bucket: bucket, publicURL: strings.TrimRight(publicURL, "/")}
}

// UploadPhoto stores an image under records/<recordID>/<kind>-<uuid><ext>
// and returns its public URL
func (s *Store) UploadPhoto(ctx context.Context, recordID, kind, contentType string, body io.Reader) (string, error) {
	if s == nil {
		return "", ErrDisabled
	}
	contentType = strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	ext, ok := allowedTypes[contentType]
	if !ok {
		return "", fmt.Errorf("%w: got %q", ErrUnsupportedType, contentType)
	}

	key := path.Join("records", recordID, kind+"-"+uuid.NewString()+ext)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return s.publicURL + "/" + key, nil
}
