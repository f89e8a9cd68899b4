package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Backend stores objects in an S3 bucket, optionally beneath a key prefix.
type S3Backend struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	prefix string
}

// S3Config configures an S3Backend.
type S3Config struct {
	Bucket   string
	Region   string
	Endpoint string // Optional custom endpoint (MinIO, LocalStack).
	Prefix   string
}

// NewS3Backend creates an S3Backend using the default AWS credential chain.
func NewS3Backend(ctx context.Context, cfg S3Config) (*S3Backend, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage: S3 bucket is required")
	}

	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Backend{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  cfg.Bucket,
		prefix:  cfg.Prefix,
	}, nil
}

func (b *S3Backend) key(objectName string) *string {
	return aws.String(b.prefix + objectName)
}

func (b *S3Backend) Upload(ctx context.Context, req *UploadRequest) error {
	// The SDK needs a seekable body to sign and retry the request.
	body, ok := req.Content.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(req.Content)
		if err != nil {
			return fmt.Errorf("storage: failed to read content for %q: %w", req.ObjectName, err)
		}
		body = bytes.NewReader(data)
	}

	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         b.key(req.ObjectName),
		Body:        body,
		ContentType: aws.String(req.ContentType),
	})
	if err != nil {
		return fmt.Errorf("storage: s3 put failed for %q: %w", req.ObjectName, err)
	}
	return nil
}

func (b *S3Backend) Download(ctx context.Context, objectName string) ([]byte, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    b.key(objectName),
	})
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return nil, fmt.Errorf("%w: %q", ErrObjectNotExist, objectName)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: s3 get failed for %q: %w", objectName, err)
	}
	defer out.Body.Close()

	return io.ReadAll(out.Body)
}

func (b *S3Backend) Exists(ctx context.Context, objectName string) (bool, error) {
	_, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    b.key(objectName),
	})
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("storage: s3 head failed for %q: %w", objectName, err)
	}
	return true, nil
}

func (b *S3Backend) List(ctx context.Context, prefix string) ([]string, error) {
	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: b.key(prefix),
	})

	var names []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("storage: s3 list failed for %q: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			names = append(names, strings.TrimPrefix(aws.ToString(obj.Key), b.prefix))
		}
	}
	return names, nil
}

func (b *S3Backend) Delete(ctx context.Context, objectName string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    b.key(objectName),
	})
	if err != nil {
		return fmt.Errorf("storage: s3 delete failed for %q: %w", objectName, err)
	}
	return nil
}

// SignedUploadURL presigns a PutObject request for objectName that is valid
// until ttl elapses.
func (b *S3Backend) SignedUploadURL(ctx context.Context, objectName, contentType string, ttl time.Duration) (*SignedURL, error) {
	expiresAt := time.Now().Add(ttl)
	req, err := b.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         b.key(objectName),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return nil, fmt.Errorf("storage: failed to presign upload for %q: %w", objectName, err)
	}

	return &SignedURL{
		URL:       req.URL,
		Headers:   req.SignedHeader,
		ExpiresAt: expiresAt,
	}, nil
}

var _ Signer = (*S3Backend)(nil)
