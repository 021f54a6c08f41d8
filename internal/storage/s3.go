package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"docvault/internal/domain"
)

// S3Config holds connection settings for an S3-compatible endpoint.
// Endpoint is optional; when set (MinIO, localstack) the client uses
// path-style addressing.
type S3Config struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// S3Store is the production ObjectStore backed by S3 or any
// S3-compatible service.
type S3Store struct {
	client *s3.Client
	logger *slog.Logger
}

// NewS3Store builds an S3 client from the config.
func NewS3Store(ctx context.Context, cfg S3Config, logger *slog.Logger) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, &domain.StorageError{Message: "load aws config", Err: err}
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{client: client, logger: logger}, nil
}

// EnsureBucket creates the bucket, treating already-exists responses
// as success.
func (s *S3Store) EnsureBucket(ctx context.Context, bucket string) error {
	_, err := s.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(bucket),
	})
	if err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		var exists *types.BucketAlreadyExists
		if errors.As(err, &owned) || errors.As(err, &exists) {
			return nil
		}
		return &domain.StorageError{Message: fmt.Sprintf("create bucket %s", bucket), Err: err}
	}

	s.logger.Info("bucket created", "bucket", bucket)
	return nil
}

func (s *S3Store) Put(ctx context.Context, bucket, key string, content io.Reader, size int64, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          content,
		ContentLength: aws.Int64(size),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return &domain.StorageError{Message: fmt.Sprintf("put object %s/%s", bucket, key), Err: err}
	}

	return nil
}

func (s *S3Store) Get(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, &domain.NotFoundError{Message: fmt.Sprintf("object %s/%s not found", bucket, key)}
		}
		return nil, &domain.StorageError{Message: fmt.Sprintf("get object %s/%s", bucket, key), Err: err}
	}

	return out.Body, nil
}

// Delete removes the object. S3 deletes are idempotent so missing
// keys succeed.
func (s *S3Store) Delete(ctx context.Context, bucket, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return &domain.StorageError{Message: fmt.Sprintf("delete object %s/%s", bucket, key), Err: err}
	}

	return nil
}

// DeleteBucket empties the bucket, then removes it.
func (s *S3Store) DeleteBucket(ctx context.Context, bucket string) error {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			var noBucket *types.NoSuchBucket
			if errors.As(err, &noBucket) {
				return nil
			}
			return &domain.StorageError{Message: fmt.Sprintf("list bucket %s", bucket), Err: err}
		}

		for _, obj := range page.Contents {
			_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(bucket),
				Key:    obj.Key,
			})
			if err != nil {
				return &domain.StorageError{Message: fmt.Sprintf("empty bucket %s", bucket), Err: err}
			}
		}
	}

	if _, err := s.client.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(bucket)}); err != nil {
		var noBucket *types.NoSuchBucket
		if errors.As(err, &noBucket) {
			return nil
		}
		return &domain.StorageError{Message: fmt.Sprintf("delete bucket %s", bucket), Err: err}
	}

	s.logger.Info("bucket deleted", "bucket", bucket)
	return nil
}

var _ ObjectStore = (*S3Store)(nil)
