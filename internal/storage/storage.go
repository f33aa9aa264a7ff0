// Package storage keeps user-uploaded files such as avatar images.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strings"
	"sync"
	"time"
)

// MaxObjectBytes is the largest accepted upload.
const MaxObjectBytes = 5 << 20

var (
	ErrNotFound        = errors.New("object not found")
	ErrTooLarge        = errors.New("object exceeds 5 MiB")
	ErrUnsupportedType = errors.New("unsupported content type")
	ErrInvalidPath     = errors.New("invalid object path")
)

var imageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ImageExtension returns the file extension for an accepted image type.
func ImageExtension(contentType string) (string, error) {
	ext, ok := imageTypes[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, contentType)
	}
	return ext, nil
}

// Object describes a stored file.
type Object struct {
	Path        string    `json:"path" bson:"filename"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size" bson:"length"`
	UploadedAt  time.Time `json:"uploaded_at" bson:"uploadDate"`
}

// ObjectStore stores files in a single bucket addressed by slash paths.
type ObjectStore interface {
	EnsureBucket(ctx context.Context) error
	Upload(ctx context.Context, path, contentType string, r io.Reader) (Object, error)
	Open(ctx context.Context, path string) (io.ReadCloser, Object, error)
	// List returns the objects under prefix, newest first.
	List(ctx context.Context, prefix string) ([]Object, error)
	Remove(ctx context.Context, paths ...string) error
	PublicURL(path string) string
}

// PublicPrefix is the URL path under which a bucket is served.
func PublicPrefix(bucket string) string {
	return "/storage/v1/object/public/" + bucket + "/"
}

// PathFromURL extracts the object path following the bucket segment of a
// public URL, e.g. ".../avatars/u-1/a.png" gives "u-1/a.png".
func PathFromURL(rawURL, bucket string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, seg := range segments {
		if seg == bucket && i+1 < len(segments) {
			return CleanPath(strings.Join(segments[i+1:], "/"))
		}
	}
	return "", fmt.Errorf("%w: no %s segment in %q", ErrInvalidPath, bucket, rawURL)
}

// CleanPath normalizes an object path and rejects traversal.
func CleanPath(p string) (string, error) {
	p = strings.TrimPrefix(p, "/")
	if p == "" {
		return "", ErrInvalidPath
	}
	cleaned := path.Clean(p)
	if cleaned == "." || strings.HasPrefix(cleaned, "..") || cleaned != p {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	return cleaned, nil
}

// readLimited reads r fully, failing once it exceeds MaxObjectBytes.
func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxObjectBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxObjectBytes {
		return nil, ErrTooLarge
	}
	return data, nil
}

func resolveType(contentType string, data []byte) (string, error) {
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	contentType = strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	if _, err := ImageExtension(contentType); err != nil {
		return "", err
	}
	return contentType, nil
}

// Memory is an ObjectStore held in process memory.
type Memory struct {
	mu      sync.RWMutex
	baseURL string
	bucket  string
	objects map[string]memoryObject
}

type memoryObject struct {
	meta Object
	data []byte
}

// NewMemory creates an empty in-memory bucket.
func NewMemory(baseURL, bucket string) *Memory {
	return &Memory{
		baseURL: strings.TrimRight(baseURL, "/"),
		bucket:  bucket,
		objects: make(map[string]memoryObject),
	}
}

func (m *Memory) EnsureBucket(context.Context) error { return nil }

func (m *Memory) Upload(_ context.Context, p, contentType string, r io.Reader) (Object, error) {
	p, err := CleanPath(p)
	if err != nil {
		return Object{}, err
	}
	data, err := readLimited(r)
	if err != nil {
		return Object{}, err
	}
	contentType, err = resolveType(contentType, data)
	if err != nil {
		return Object{}, err
	}

	obj := Object{Path: p, ContentType: contentType, Size: int64(len(data)), UploadedAt: time.Now().UTC()}
	m.mu.Lock()
	m.objects[p] = memoryObject{meta: obj, data: data}
	m.mu.Unlock()
	return obj, nil
}

func (m *Memory) Open(_ context.Context, p string) (io.ReadCloser, Object, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.objects[p]
	if !ok {
		return nil, Object{}, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(o.data)), o.meta, nil
}

func (m *Memory) List(_ context.Context, prefix string) ([]Object, error) {
	m.mu.RLock()
	out := make([]Object, 0)
	for p, o := range m.objects {
		if strings.HasPrefix(p, prefix) {
			out = append(out, o.meta)
		}
	}
	m.mu.RUnlock()
	sortNewestFirst(out)
	return out, nil
}

func (m *Memory) Remove(_ context.Context, paths ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range paths {
		delete(m.objects, p)
	}
	return nil
}

func (m *Memory) PublicURL(p string) string {
	return m.baseURL + PublicPrefix(m.bucket) + p
}

func sortNewestFirst(objs []Object) {
	sort.SliceStable(objs, func(i, j int) bool {
		if objs[i].UploadedAt.Equal(objs[j].UploadedAt) {
			return objs[i].Path > objs[j].Path
		}
		return objs[i].UploadedAt.After(objs[j].UploadedAt)
	})
}
