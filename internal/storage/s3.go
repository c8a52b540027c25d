package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	cfg "github.com/templui/photowall/internal/config"
	"github.com/templui/photowall/internal/httprange"
)

// ErrNotMirrored is returned when a video has no mirrored copy yet.
var ErrNotMirrored = errors.New("video not mirrored")

// Mirror keeps full copies of videos that can be read back by byte range.
// It is filled once per video so that range requests do not need a full
// download from Drive each time.
type Mirror interface {
	// Stat returns the stored size of key, or ErrNotMirrored.
	Stat(ctx context.Context, key string) (int64, error)

	// Save stores the full content of key.
	Save(ctx context.Context, key, contentType string, body io.Reader, size int64) error

	// OpenRange reads r from key. A nil r reads the whole object.
	OpenRange(ctx context.Context, key string, r *httprange.Range) (io.ReadCloser, error)

	// Delete removes key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error
}

// VideoKey is the mirror key of a Drive file id.
func VideoKey(fileID string) string {
	return "videos/" + fileID
}

// S3Mirror implements Mirror for S3-compatible storage
// Works with AWS S3, MinIO, DigitalOcean Spaces, Cloudflare R2, etc.
type S3Mirror struct {
	client *s3.Client
	bucket string
}

// S3Config holds configuration for S3 storage
type S3Config struct {
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	Endpoint  string // Optional: for S3-compatible services
}

// New creates the video mirror from app config. It returns nil, nil when no
// bucket is configured.
func New(ctx context.Context, c *cfg.Config) (*S3Mirror, error) {
	if c.S3Bucket == "" {
		return nil, nil
	}

	slog.Info("initializing S3 video mirror",
		"bucket", c.S3Bucket,
		"region", c.S3Region,
		"endpoint", c.S3Endpoint,
	)
	return NewS3Mirror(ctx, S3Config{
		Region:    c.S3Region,
		Bucket:    c.S3Bucket,
		AccessKey: c.S3AccessKey,
		SecretKey: c.S3SecretKey,
		Endpoint:  c.S3Endpoint,
	})
}

// NewS3Mirror creates a new S3 mirror instance
func NewS3Mirror(ctx context.Context, cfg S3Config) (*S3Mirror, error) {
	var opts []func(*config.LoadOptions) error
	opts = append(opts, config.WithRegion(cfg.Region))

	// Add static credentials if provided
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Create S3 client with optional custom endpoint
	var client *s3.Client
	if cfg.Endpoint != "" {
		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true // Required for MinIO and some S3-compatible services
		})
	} else {
		client = s3.NewFromConfig(awsCfg)
	}

	mirror := &S3Mirror{
		client: client,
		bucket: cfg.Bucket,
	}

	// Auto-create bucket if it doesn't exist
	if err := mirror.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure bucket exists: %w", err)
	}

	return mirror, nil
}

// ensureBucket checks if bucket exists, creates it if not
func (m *S3Mirror) ensureBucket(ctx context.Context) error {
	_, err := m.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(m.bucket),
	})
	if err == nil {
		return nil
	}

	_, err = m.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(m.bucket),
	})
	if err != nil {
		return fmt.Errorf("bucket %q does not exist and could not be created: %w", m.bucket, err)
	}

	slog.Info("created S3 bucket", "bucket", m.bucket)
	return nil
}

func (m *S3Mirror) Stat(ctx context.Context, key string) (int64, error) {
	out, err := m.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isMissing(err) {
			return 0, ErrNotMirrored
		}
		return 0, fmt.Errorf("failed to stat %s: %w", key, err)
	}
	return aws.ToInt64(out.ContentLength), nil
}

func (m *S3Mirror) Save(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	_, err := m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(m.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}
	return nil
}

func (m *S3Mirror) OpenRange(ctx context.Context, key string, r *httprange.Range) (io.ReadCloser, error) {
	in := &s3.GetObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(key),
	}
	if r != nil {
		in.Range = aws.String(r.Header())
	}

	out, err := m.client.GetObject(ctx, in)
	if err != nil {
		if isMissing(err) {
			return nil, ErrNotMirrored
		}
		return nil, fmt.Errorf("failed to read %s from S3: %w", key, err)
	}
	return out.Body, nil
}

func (m *S3Mirror) Delete(ctx context.Context, key string) error {
	_, err := m.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(key),
	})
	if err != nil && !isMissing(err) {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}
	return nil
}

func isMissing(err error) bool {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	return errors.As(err, &notFound) || errors.As(err, &noSuchKey)
}
