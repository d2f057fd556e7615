package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// S3Backend stores documents in Amazon S3 or a compatible service
type S3Backend struct {
	client    s3iface.S3API
	bucket    string
	prefix    string
	region    string
	endpoint  string
	publicURL string
	log       *slog.Logger
}

// NewS3Backend creates a new S3 storage backend. Static credentials are used
// when both keys are set, otherwise the default AWS credential chain applies.
func NewS3Backend(bucket, prefix, region, endpoint, accessKey, secretKey, publicURL string, log *slog.Logger) (*S3Backend, error) {
	if log == nil {
		log = slog.Default()
	}

	cfg := aws.Config{
		Region: aws.String(region),
	}
	if endpoint != "" {
		cfg.Endpoint = aws.String(endpoint)
		cfg.S3ForcePathStyle = aws.Bool(true)
	}
	if accessKey != "" && secretKey != "" {
		cfg.Credentials = credentials.NewStaticCredentials(accessKey, secretKey, "")
	}

	sess, err := session.NewSession(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return newS3Backend(s3.New(sess), bucket, prefix, region, endpoint, publicURL, log), nil
}

func newS3Backend(client s3iface.S3API, bucket, prefix, region, endpoint, publicURL string, log *slog.Logger) *S3Backend {
	return &S3Backend{
		client:    client,
		bucket:    bucket,
		prefix:    strings.Trim(prefix, "/"),
		region:    region,
		endpoint:  strings.TrimSuffix(endpoint, "/"),
		publicURL: strings.TrimSuffix(publicURL, "/"),
		log:       log,
	}
}

// Put uploads the document and returns its object URL
func (b *S3Backend) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	start := time.Now()
	objectKey := b.objectKey(key)

	_, err := b.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		b.log.Error("Failed to upload object to S3",
			slog.String("bucket", b.bucket),
			slog.String("key", objectKey),
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return "", fmt.Errorf("failed to upload object to S3: %w", err)
	}

	b.log.Debug("Stored document in S3",
		slog.String("bucket", b.bucket),
		slog.String("key", objectKey),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))

	return b.objectURL(objectKey), nil
}

// Open fetches an object. Returns ErrNotFound if the object doesn't exist.
func (b *S3Backend) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	objectKey := b.objectKey(key)

	result, err := b.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && (aerr.Code() == s3.ErrCodeNoSuchKey || aerr.Code() == "NotFound") {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get object from S3: %w", err)
	}
	return result.Body, nil
}

// Name returns a unique identifier for this storage backend.
func (b *S3Backend) Name() string {
	return fmt.Sprintf("s3-%s", b.bucket)
}

func (b *S3Backend) objectKey(key string) string {
	if b.prefix == "" {
		return key
	}
	return path.Join(b.prefix, key)
}

func (b *S3Backend) objectURL(objectKey string) string {
	switch {
	case b.publicURL != "":
		return fmt.Sprintf("%s/%s", b.publicURL, objectKey)
	case b.endpoint != "":
		return fmt.Sprintf("%s/%s/%s", b.endpoint, b.bucket, objectKey)
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", b.bucket, b.region, objectKey)
	}
}
