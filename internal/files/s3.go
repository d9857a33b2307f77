package files

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"gridcli/internal/config"
	apperrors "gridcli/internal/errors"
)

// Uploader mirrors local files to remote storage
type Uploader interface {
	Upload(ctx context.Context, localPath string) error
}

// S3Mirror copies yearly archives to an S3 bucket
type S3Mirror struct {
	client *s3.Client
	bucket string
	prefix string
	logger *slog.Logger
}

// NewS3Mirror builds a mirror from the archive configuration. Custom
// endpoints allow S3-compatible stores such as MinIO.
func NewS3Mirror(ctx context.Context, cfg config.ArchiveConfig, logger *slog.Logger) (*S3Mirror, error) {
	if !cfg.Enabled() {
		return nil, apperrors.NewConfigError("s3 bucket is not configured", nil)
	}
	if logger == nil {
		logger = slog.Default()
	}

	region := cfg.S3Region
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, apperrors.NewConfigError("failed to load AWS config", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &S3Mirror{
		client: client,
		bucket: cfg.S3Bucket,
		prefix: cfg.S3Prefix,
		logger: logger.With(slog.String("component", "s3_mirror")),
	}, nil
}

// Key returns the object key for a local file
func (m *S3Mirror) Key(localPath string) string {
	return path.Join(m.prefix, filepath.Base(localPath))
}

// Upload puts the file at localPath into the bucket, replacing any previous
// version.
func (m *S3Mirror) Upload(ctx context.Context, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return apperrors.NewStorageError("failed to open "+localPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return apperrors.NewStorageError("failed to stat "+localPath, err)
	}

	key := m.Key(localPath)
	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(m.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String("application/zip"),
	})
	if err != nil {
		return apperrors.NewNetworkError(fmt.Sprintf("failed to upload s3://%s/%s", m.bucket, key), err)
	}

	m.logger.InfoContext(ctx, "Archive mirrored",
		slog.String("bucket", m.bucket),
		slog.String("key", key),
		slog.Int64("size_bytes", info.Size()))
	return nil
}
