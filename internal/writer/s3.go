package writer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"scorepub/internal/render"
)

// S3Client defines the S3 operations the writer needs.
type S3Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Config contains connection settings for the S3 backend.
type S3Config struct {
	Bucket         string
	Region         string
	Endpoint       string // Optional: for S3-compatible services
	Prefix         string
	AccessKeyID    string
	SecretKey      string
	ForcePathStyle bool
}

// S3Option configures S3.
type S3Option func(*s3Options)

type s3Options struct {
	client S3Client
}

// WithS3Client injects a pre-configured client. Useful for tests.
func WithS3Client(client S3Client) S3Option {
	return func(o *s3Options) {
		o.client = client
	}
}

// S3 publishes outputs as objects in a bucket.
type S3 struct {
	client S3Client
	bucket string
	prefix string
}

// NewS3 constructs the bucket writer.
func NewS3(ctx context.Context, cfg S3Config, opts ...S3Option) (*S3, error) {
	if cfg.Bucket == "" || cfg.Region == "" {
		return nil, errors.New("writer: s3 bucket and region are required")
	}
	options := &s3Options{}
	for _, opt := range opts {
		opt(options)
	}

	client := options.client
	if client == nil {
		loadOpts := []func(*awsconfig.LoadOptions) error{
			awsconfig.WithRegion(cfg.Region),
		}
		if cfg.AccessKeyID != "" && cfg.SecretKey != "" {
			loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, ""),
			))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
			}
			o.UsePathStyle = cfg.ForcePathStyle
		})
	}

	prefix := strings.Trim(cfg.Prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &S3{client: client, bucket: cfg.Bucket, prefix: prefix}, nil
}

func (s *S3) key(rel string) string {
	return s.prefix + rel
}

// Write uploads body under the path's key.
func (s *S3) Write(ctx context.Context, p string, body []byte) error {
	rel, tree, err := CleanPath(p)
	if err != nil {
		return failure("write", p, err)
	}
	if tree {
		return failure("write", p, fmt.Errorf("%w: cannot write a directory", ErrInvalidPath))
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(rel)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(render.ContentTypeFor(p)),
	})
	if err != nil {
		return failure("write", p, classifyS3Error(err, "put object"))
	}
	return nil
}

// Remove deletes one object, or every object under a prefix when p ends in "/".
func (s *S3) Remove(ctx context.Context, p string) error {
	rel, tree, err := CleanPath(p)
	if err != nil {
		return failure("remove", p, err)
	}
	if !tree {
		_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.key(rel)),
		})
		if err != nil && !isNotFound(err) {
			return failure("remove", p, classifyS3Error(err, "delete object"))
		}
		return nil
	}
	if rel == "" && s.prefix == "" {
		return failure("remove", p, fmt.Errorf("%w: refusing to empty the bucket", ErrInvalidPath))
	}

	var token *string
	for {
		page, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(s.key(rel)),
			ContinuationToken: token,
		})
		if err != nil {
			if isNotFound(err) {
				return nil
			}
			return failure("remove", p, classifyS3Error(err, "list objects"))
		}
		objects := make([]types.ObjectIdentifier, 0, len(page.Contents))
		for _, obj := range page.Contents {
			objects = append(objects, types.ObjectIdentifier{Key: obj.Key})
		}
		for i := 0; i < len(objects); i += 1000 {
			end := min(i+1000, len(objects))
			if _, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
				Bucket: aws.String(s.bucket),
				Delete: &types.Delete{Objects: objects[i:end]},
			}); err != nil {
				return failure("remove", p, classifyS3Error(err, "delete objects"))
			}
		}
		if page.IsTruncated == nil || !*page.IsTruncated || page.NextContinuationToken == nil {
			return nil
		}
		token = page.NextContinuationToken
	}
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == "NoSuchKey" || apiErr.ErrorCode() == "NotFound"
	}
	return false
}

// classifyS3Error adds the operation and API error code to err.
func classifyS3Error(err error, operation string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", operation, err)
	}
	var nsb *types.NoSuchBucket
	if errors.As(err, &nsb) {
		return fmt.Errorf("%s: bucket not found: %w", operation, err)
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch code := apiErr.ErrorCode(); code {
		case "AccessDenied":
			return fmt.Errorf("%s: access denied: %w", operation, err)
		case "SlowDown", "ServiceUnavailable", "RequestTimeout":
			return fmt.Errorf("%s: service unavailable (%s): %w", operation, code, err)
		default:
			return fmt.Errorf("%s failed (code: %s): %w", operation, code, err)
		}
	}
	return fmt.Errorf("%s failed: %w", operation, err)
}
