package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/tendant/agri-advisor/pkg/advisor"
)

// Config locates the bucket holding model artifacts. Credentials fall back to
// the default AWS chain when AccessKeyID or SecretAccessKey is empty.
type Config struct {
	Region          string
	Bucket          string
	Prefix          string // e.g. "models/v3"
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string // MinIO and other S3-compatible services
	UsePathStyle    bool
}

// API is the subset of the S3 client the backend needs
type API interface {
	manager.DownloadAPIClient
	manager.UploadAPIClient
}

// Backend serves artifacts from an S3 bucket
type Backend struct {
	client API
	bucket string
	prefix string
}

// New creates an S3 artifact store
func New(cfg Config) (*Backend, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = cfg.UsePathStyle
		}
	})
	return NewWithClient(client, cfg.Bucket, cfg.Prefix), nil
}

// NewWithClient creates a backend around an existing client
func NewWithClient(client API, bucket, prefix string) *Backend {
	return &Backend{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

func (b *Backend) objectKey(key string) string {
	if b.prefix == "" {
		return key
	}
	return path.Join(b.prefix, key)
}

// Open downloads the artifact stored under key
func (b *Backend) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	downloader := manager.NewDownloader(b.client)
	buf := manager.NewWriteAtBuffer([]byte{})

	_, err := downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.objectKey(key)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, &advisor.ArtifactError{Store: "s3", Key: key, Op: "open", Err: advisor.ErrArtifactNotFound}
		}
		return nil, &advisor.ArtifactError{Store: "s3", Key: key, Op: "open", Err: fmt.Errorf("failed to download from S3: %w", err)}
	}

	return io.NopCloser(bytes.NewReader(buf.Bytes())), nil
}

// Put uploads an artifact under key
func (b *Backend) Put(ctx context.Context, key string, reader io.Reader) error {
	uploader := manager.NewUploader(b.client)

	_, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(b.objectKey(key)),
		Body:        reader,
		ContentType: aws.String(contentType(key)),
	})
	if err != nil {
		return &advisor.ArtifactError{Store: "s3", Key: key, Op: "put", Err: fmt.Errorf("failed to upload to S3: %w", err)}
	}

	return nil
}

func contentType(key string) string {
	if strings.EqualFold(path.Ext(key), ".json") {
		return "application/json"
	}
	return "application/yaml"
}

// isNotFound recognizes missing keys across S3 and S3-compatible services
func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "NoSuchBucket":
			return true
		}
	}
	return false
}
