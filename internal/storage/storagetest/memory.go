// Package storagetest provides an in-memory storage.ObjectStorage for tests.
package storagetest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/andresuchdata/mediasync/internal/storage"
)

// Object is one stored object.
type Object struct {
	Data         []byte
	ContentType  string
	LastModified time.Time
}

// Memory is a goroutine-safe in-memory bucket. Error maps inject failures per key.
type Memory struct {
	mu      sync.Mutex
	bucket  string
	objects map[string]Object

	// PageSize bounds ListPage results; zero means everything in one page.
	PageSize int
	// OmitListMetadata drops size and modification time from listings.
	OmitListMetadata bool

	ListErr error
	GetErr  map[string]error
	PutErr  map[string]error
	HeadErr map[string]error
	NoBody  map[string]bool

	lists, gets, puts, heads int
}

// NewMemory returns an empty bucket.
func NewMemory(bucket string) *Memory {
	return &Memory{
		bucket:  bucket,
		objects: make(map[string]Object),
		GetErr:  make(map[string]error),
		PutErr:  make(map[string]error),
		HeadErr: make(map[string]error),
		NoBody:  make(map[string]bool),
	}
}

// Seed stores an object without counting it as a put.
func (m *Memory) Seed(key string, data []byte, contentType string, modified time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = Object{Data: append([]byte(nil), data...), ContentType: contentType, LastModified: modified}
}

// Object returns a stored object.
func (m *Memory) Object(key string) (Object, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[key]
	return obj, ok
}

// Keys returns every stored key in order.
func (m *Memory) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedKeys("")
}

// Calls reports how many list, get, put and head calls were made.
func (m *Memory) Calls() (lists, gets, puts, heads int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lists, m.gets, m.puts, m.heads
}

func (m *Memory) Bucket() string { return m.bucket }

func (m *Memory) ListPage(ctx context.Context, prefix, token string) (storage.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists++
	if m.ListErr != nil {
		return storage.Page{}, storage.Wrap("list", prefix, m.ListErr)
	}

	keys := m.sortedKeys(prefix)
	start := 0
	if token != "" {
		n, err := strconv.Atoi(token)
		if err != nil {
			return storage.Page{}, fmt.Errorf("bad continuation token %q", token)
		}
		start = n
	}
	end := len(keys)
	if m.PageSize > 0 && start+m.PageSize < end {
		end = start + m.PageSize
	}

	var page storage.Page
	for _, key := range keys[start:end] {
		obj := m.objects[key]
		info := storage.ObjectInfo{Key: key}
		if !m.OmitListMetadata {
			info.Size = int64(len(obj.Data))
			info.LastModified = obj.LastModified
		}
		page.Objects = append(page.Objects, info)
	}
	if end < len(keys) {
		page.NextToken = strconv.Itoa(end)
	}
	return page, nil
}

func (m *Memory) GetObject(ctx context.Context, key string) (io.ReadCloser, storage.ObjectAttrs, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if err := m.GetErr[key]; err != nil {
		return nil, storage.ObjectAttrs{}, storage.Wrap("get", key, err)
	}
	obj, ok := m.objects[key]
	if !ok {
		return nil, storage.ObjectAttrs{}, storage.Wrap("get", key, fs.ErrNotExist)
	}
	attrs := storage.ObjectAttrs{ContentType: obj.ContentType, Size: int64(len(obj.Data)), LastModified: obj.LastModified}
	if m.NoBody[key] {
		return nil, attrs, nil
	}
	return io.NopCloser(bytes.NewReader(obj.Data)), attrs, nil
}

func (m *Memory) PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return storage.Wrap("put", key, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	if err := m.PutErr[key]; err != nil {
		return storage.Wrap("put", key, err)
	}
	m.objects[key] = Object{Data: data, ContentType: contentType, LastModified: time.Now().UTC()}
	return nil
}

func (m *Memory) HeadObject(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.heads++
	if err := m.HeadErr[key]; err != nil {
		return storage.Wrap("head", key, err)
	}
	if _, ok := m.objects[key]; !ok {
		return storage.Wrap("head", key, fs.ErrNotExist)
	}
	return nil
}

func (m *Memory) sortedKeys(prefix string) []string {
	keys := make([]string, 0, len(m.objects))
	for key := range m.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

var _ storage.ObjectStorage = (*Memory)(nil)
