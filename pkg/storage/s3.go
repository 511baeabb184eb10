package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/niels/page-server/pkg/config"
	"github.com/niels/page-server/pkg/logging"
	"github.com/niels/page-server/pkg/retry"
)

// S3API is the subset of the S3 client the store uses
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store serves files from an S3 bucket. Object keys are the prefix
// followed by the cleaned file name.
type S3Store struct {
	client S3API
	bucket string
	prefix string
	retry  retry.Options
}

// NewS3Store creates a store around an existing client
func NewS3Store(client S3API, bucket, prefix string, retryOpts retry.Options) *S3Store {
	if retryOpts.IsRetryable == nil {
		retryOpts.IsRetryable = isTransientS3Error
	}
	return &S3Store{
		client: client,
		bucket: bucket,
		prefix: prefix,
		retry:  retryOpts,
	}
}

// NewS3StoreFromConfig builds an S3 client from the default AWS credential
// chain and the storage configuration
func NewS3StoreFromConfig(ctx context.Context, cfg config.StorageConfig) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.S3.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3.Endpoint)
		}
		o.UsePathStyle = cfg.S3.PathStyle
	})

	log := logging.WithComponent("s3")
	opts := retry.FromConfig(cfg.Retry, isTransientS3Error)
	opts.OnRetry = func(attempt int, delay time.Duration, err error) {
		log.Warn().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("Retrying S3 request")
	}

	return NewS3Store(client, cfg.S3.Bucket, cfg.S3.Prefix, opts), nil
}

// GetFileStream implements the FileStore interface
func (s *S3Store) GetFileStream(ctx context.Context, name string) (Result, error) {
	key, err := CleanName(name)
	if err != nil {
		return Result{}, fmt.Errorf("failed to open %q: %w", name, err)
	}

	var out *s3.GetObjectOutput
	err = retry.Do(ctx, func(ctx context.Context) error {
		var getErr error
		out, getErr = s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.prefix + key),
		})
		return getErr
	}, s.retry)
	if err != nil {
		if isMissingS3Object(err) {
			return Result{}, fmt.Errorf("failed to open %q: %w", name, ErrNotFound)
		}
		return Result{}, fmt.Errorf("failed to get %q from s3: %w", name, err)
	}

	return Result{Stream: out.Body, Type: TypeOf(key)}, nil
}

// PutFile implements the Importer interface. r should be seekable so the
// SDK can sign the payload.
func (s *S3Store) PutFile(ctx context.Context, name string, r io.Reader) error {
	key, err := CleanName(name)
	if err != nil {
		return fmt.Errorf("failed to store %q: %w", name, err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.prefix + key),
		Body:   r,
	})
	if err != nil {
		return fmt.Errorf("failed to put %q to s3: %w", name, err)
	}
	return nil
}

// isMissingS3Object reports whether err means the object or bucket is absent
func isMissingS3Object(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode() == http.StatusNotFound
	}
	return false
}

// isTransientS3Error reports whether a failed request is worth repeating
func isTransientS3Error(err error) bool {
	if isMissingS3Object(err) {
		return false
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "SlowDown", "InternalError", "ServiceUnavailable", "RequestTimeout":
			return true
		}
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		code := respErr.HTTPStatusCode()
		return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
	}
	return false
}
