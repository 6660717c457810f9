package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"

	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/minio/minio-go/v7"
)

// Kind is the normalized outcome of a failed storage call.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindForbidden
	KindTransient
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindForbidden:
		return "forbidden"
	case KindTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// Error is a storage failure tagged with its Kind.
type Error struct {
	Op   string
	Key  string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s %s: %s: %v", e.Op, e.Key, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap classifies err and tags it with the operation and key. A nil err stays nil.
func Wrap(op, key string, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return &Error{Op: op, Key: key, Kind: Classify(err), Err: err}
}

// IsNotFound reports whether err classifies as KindNotFound.
func IsNotFound(err error) bool {
	return err != nil && Classify(err) == KindNotFound
}

// Classify maps the error shapes of the SDKs behind ObjectStorage onto a Kind.
// This is the only place HTTP status codes and provider error codes are inspected.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}

	if errors.Is(err, fs.ErrNotExist) {
		return KindNotFound
	}
	if errors.Is(err, fs.ErrPermission) {
		return KindForbidden
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTransient
	}

	var minioErr minio.ErrorResponse
	if errors.As(err, &minioErr) {
		return classifyResponse(minioErr.StatusCode, minioErr.Code)
	}

	var reqErr awserr.RequestFailure
	if errors.As(err, &reqErr) {
		return classifyResponse(reqErr.StatusCode(), reqErr.Code())
	}

	var awsErr awserr.Error
	if errors.As(err, &awsErr) {
		return classifyResponse(0, awsErr.Code())
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindTransient
	}

	return KindUnknown
}

func classifyResponse(status int, code string) Kind {
	switch code {
	case "NotFound", "NoSuchKey":
		return KindNotFound
	case "AccessDenied", "Forbidden", "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return KindForbidden
	case "SlowDown", "RequestTimeout", "InternalError", "ServiceUnavailable", "RequestTimeTooSkewed":
		return KindTransient
	}

	switch {
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusTooManyRequests, status >= http.StatusInternalServerError:
		return KindTransient
	}

	return KindUnknown
}
