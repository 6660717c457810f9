package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/chartmuseum/storage"

	"github.com/andresuchdata/mediasync/internal/fsutil"
)

// CompatConfig encapsulates the connection info for S3-compatible services
// (Sevalla, DigitalOcean Spaces, R2, ...) reached through chartmuseum's backend.
type CompatConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// CompatClient implements ObjectStorage over a chartmuseum storage.Backend
// for reads and writes. chartmuseum's own listing skips nested paths and
// reports no sizes, so listing goes straight to the S3 API (compat) or walks
// the root directory (local). The backend keeps no content types, so uploads
// rely on the provider's default type.
type CompatClient struct {
	backend  storage.Backend
	bucket   string
	s3       s3iface.S3API // nil for the local driver
	root     string
	pageSize int64
}

// NewCompatClient builds a CompatClient backed by chartmuseum's Amazon storage backend.
func NewCompatClient(cfg CompatConfig) (*CompatClient, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("compat endpoint must be provided")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("compat credentials must be provided")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("compat bucket must be provided")
	}

	endpoint := cfg.Endpoint
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		scheme := "https"
		if !cfg.UseSSL {
			scheme = "http"
		}
		endpoint = fmt.Sprintf("%s://%s", scheme, strings.TrimPrefix(cfg.Endpoint, "//"))
	}

	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	// chartmuseum's Amazon backend only reads credentials from the environment.
	os.Setenv("AWS_ACCESS_KEY_ID", cfg.AccessKey)
	os.Setenv("AWS_SECRET_ACCESS_KEY", cfg.SecretKey)
	os.Setenv("AWS_REGION", region)
	os.Setenv("AWS_DEFAULT_REGION", region)

	backend := storage.NewAmazonS3BackendWithOptions(
		cfg.Bucket,
		"", // no prefix
		region,
		endpoint,
		"",
		&storage.AmazonS3Options{
			S3ForcePathStyle: awsBool(true),
		},
	)

	sess, err := session.NewSession(aws.NewConfig().
		WithRegion(region).
		WithEndpoint(endpoint).
		WithS3ForcePathStyle(true).
		WithCredentials(credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")))
	if err != nil {
		return nil, fmt.Errorf("aws session init failed: %w", err)
	}

	return &CompatClient{
		backend:  backend,
		bucket:   cfg.Bucket,
		s3:       s3.New(sess),
		pageSize: defaultPageSize,
	}, nil
}

// NewLocalClient stores objects as plain files below root.
func NewLocalClient(root string) (*CompatClient, error) {
	if root == "" {
		return nil, fmt.Errorf("local storage root must be provided")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed creating local storage root %s: %w", root, err)
	}
	return &CompatClient{
		backend: storage.NewLocalFilesystemBackend(root),
		bucket:  root,
		root:    root,
	}, nil
}

// Bucket returns the bucket name, or the root directory for the local backend.
func (c *CompatClient) Bucket() string { return c.bucket }

// ListPage lists one page of objects below prefix. The local driver
// returns everything in a single page.
func (c *CompatClient) ListPage(ctx context.Context, prefix, token string) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, Wrap("list", prefix, err)
	}
	if c.s3 == nil {
		return c.listLocal(prefix)
	}

	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(c.bucket),
		MaxKeys: aws.Int64(c.pageSize),
	}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}
	if token != "" {
		input.ContinuationToken = aws.String(token)
	}

	out, err := c.s3.ListObjectsV2WithContext(ctx, input)
	if err != nil {
		return Page{}, Wrap("list", prefix, err)
	}

	page := Page{Objects: make([]ObjectInfo, 0, len(out.Contents))}
	for _, object := range out.Contents {
		page.Objects = append(page.Objects, ObjectInfo{
			Key:          aws.StringValue(object.Key),
			Size:         aws.Int64Value(object.Size),
			LastModified: aws.TimeValue(object.LastModified),
		})
	}
	if aws.BoolValue(out.IsTruncated) {
		page.NextToken = aws.StringValue(out.NextContinuationToken)
	}
	return page, nil
}

func (c *CompatClient) listLocal(prefix string) (Page, error) {
	files, err := fsutil.WalkFiles(c.root, func(rel string) bool {
		return !strings.HasPrefix(rel, prefix)
	})
	if err != nil {
		return Page{}, Wrap("list", prefix, err)
	}

	page := Page{Objects: make([]ObjectInfo, 0, len(files))}
	for _, rel := range files {
		info, err := os.Stat(filepath.Join(c.root, filepath.FromSlash(rel)))
		if err != nil {
			return Page{}, Wrap("list", rel, err)
		}
		page.Objects = append(page.Objects, ObjectInfo{
			Key:          rel,
			Size:         info.Size(),
			LastModified: info.ModTime(),
		})
	}
	return page, nil
}

// GetObject loads the object into memory and returns a reader over it.
func (c *CompatClient) GetObject(ctx context.Context, key string) (io.ReadCloser, ObjectAttrs, error) {
	if err := ctx.Err(); err != nil {
		return nil, ObjectAttrs{}, Wrap("get", key, err)
	}
	object, err := c.backend.GetObject(key)
	if err != nil {
		return nil, ObjectAttrs{}, Wrap("get", key, err)
	}
	if object.Content == nil {
		return nil, ObjectAttrs{}, nil
	}
	return io.NopCloser(bytes.NewReader(object.Content)), ObjectAttrs{
		Size:         int64(len(object.Content)),
		LastModified: object.LastModified,
	}, nil
}

// PutObject buffers body and writes it under key.
func (c *CompatClient) PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	if err := ctx.Err(); err != nil {
		return Wrap("put", key, err)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return Wrap("put", key, fmt.Errorf("failed reading upload body: %w", err))
	}
	return Wrap("put", key, c.backend.PutObject(key, data))
}

// HeadObject returns nil when key exists. The local backend has no cheaper
// equivalent than a full get.
func (c *CompatClient) HeadObject(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return Wrap("head", key, err)
	}
	if c.s3 != nil {
		_, err := c.s3.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(c.bucket),
			Key:    aws.String(key),
		})
		return Wrap("head", key, err)
	}
	_, err := c.backend.GetObject(key)
	return Wrap("head", key, err)
}

var _ ObjectStorage = (*CompatClient)(nil)

func awsBool(v bool) *bool {
	return &v
}
