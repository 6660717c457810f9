package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNoBody is returned when the provider answers a get without a body.
var ErrNoBody = errors.New("object has no body")

// ObjectInfo represents metadata for a remote file/object as reported by a listing.
// Size and LastModified are zero when the provider omits them.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Page is one page of a bucket listing. NextToken is empty on the last page.
type Page struct {
	Objects   []ObjectInfo
	NextToken string
}

// ObjectAttrs describes an object returned by GetObject.
type ObjectAttrs struct {
	ContentType  string
	Size         int64
	LastModified time.Time
}

// PageLister is the listing half of ObjectStorage.
type PageLister interface {
	ListPage(ctx context.Context, prefix, token string) (Page, error)
}

// ObjectStorage captures the S3-compatible operations backup, restore and sync need.
// Implementations return errors as *Error so callers can branch on Kind.
type ObjectStorage interface {
	PageLister
	GetObject(ctx context.Context, key string) (io.ReadCloser, ObjectAttrs, error)
	PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	HeadObject(ctx context.Context, key string) error
	Bucket() string
}
