package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	defaultS3Endpoint = "s3.amazonaws.com"
	defaultPageSize   = 1000
)

// MinioConfig encapsulates the connection info for S3 (or any S3 API endpoint) via minio-go.
type MinioConfig struct {
	Endpoint       string
	AccessKey      string
	SecretKey      string
	SessionToken   string
	Bucket         string
	Region         string
	UseSSL         bool
	ForcePathStyle bool
	PageSize       int
}

// MinioClient implements ObjectStorage on top of minio-go's Core API, which
// exposes ListObjectsV2 continuation tokens directly.
type MinioClient struct {
	core     *minio.Core
	bucket   string
	pageSize int
}

// NewMinioClient builds a MinioClient. Static keys are used when provided,
// otherwise the AWS environment, shared credentials file and IAM are tried in order.
func NewMinioClient(cfg MinioConfig) (*MinioClient, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket must be provided")
	}

	endpoint, secure := normalizeEndpoint(cfg.Endpoint, cfg.UseSSL)

	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	var creds *credentials.Credentials
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		creds = credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, cfg.SessionToken)
	} else {
		creds = credentials.NewChainCredentials([]credentials.Provider{
			&credentials.EnvAWS{},
			&credentials.FileAWSCredentials{},
			&credentials.IAM{Client: &http.Client{Transport: http.DefaultTransport}},
		})
	}

	lookup := minio.BucketLookupAuto
	if cfg.ForcePathStyle {
		lookup = minio.BucketLookupPath
	}

	core, err := minio.NewCore(endpoint, &minio.Options{
		Creds:        creds,
		Secure:       secure,
		Region:       region,
		BucketLookup: lookup,
	})
	if err != nil {
		return nil, fmt.Errorf("s3 client init failed: %w", err)
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	return &MinioClient{
		core:     core,
		bucket:   cfg.Bucket,
		pageSize: pageSize,
	}, nil
}

// Bucket returns the bucket name.
func (c *MinioClient) Bucket() string { return c.bucket }

// ListPage lists one page of objects below prefix.
func (c *MinioClient) ListPage(ctx context.Context, prefix, token string) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, Wrap("list", prefix, err)
	}
	res, err := c.core.ListObjectsV2(c.bucket, prefix, "", token, "", c.pageSize)
	if err != nil {
		return Page{}, Wrap("list", prefix, err)
	}

	page := Page{Objects: make([]ObjectInfo, 0, len(res.Contents))}
	for _, object := range res.Contents {
		page.Objects = append(page.Objects, ObjectInfo{
			Key:          object.Key,
			Size:         object.Size,
			LastModified: object.LastModified,
		})
	}
	if res.IsTruncated {
		page.NextToken = res.NextContinuationToken
	}
	return page, nil
}

// GetObject opens the object body. The caller closes it.
func (c *MinioClient) GetObject(ctx context.Context, key string) (io.ReadCloser, ObjectAttrs, error) {
	body, info, _, err := c.core.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, ObjectAttrs{}, Wrap("get", key, err)
	}
	return body, ObjectAttrs{
		ContentType:  info.ContentType,
		Size:         info.Size,
		LastModified: info.LastModified,
	}, nil
}

// PutObject uploads body under key.
func (c *MinioClient) PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	_, err := c.core.Client.PutObject(ctx, c.bucket, key, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return Wrap("put", key, err)
}

// HeadObject returns nil when key exists.
func (c *MinioClient) HeadObject(ctx context.Context, key string) error {
	_, err := c.core.Client.StatObject(ctx, c.bucket, key, minio.StatObjectOptions{})
	return Wrap("head", key, err)
}

var _ ObjectStorage = (*MinioClient)(nil)

// normalizeEndpoint strips any scheme, which minio-go does not accept, and
// lets an explicit scheme decide TLS.
func normalizeEndpoint(raw string, useSSL bool) (string, bool) {
	endpoint := strings.TrimSpace(raw)
	if endpoint == "" {
		return defaultS3Endpoint, true
	}
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		endpoint, useSSL = strings.TrimPrefix(endpoint, "https://"), true
	case strings.HasPrefix(endpoint, "http://"):
		endpoint, useSSL = strings.TrimPrefix(endpoint, "http://"), false
	}
	return strings.TrimSuffix(strings.TrimPrefix(endpoint, "//"), "/"), useSSL
}
