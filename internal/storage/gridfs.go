package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GridFS is an ObjectStore backed by a MongoDB GridFS bucket.
type GridFS struct {
	bucket  *gridfs.Bucket
	name    string
	baseURL string

	// Upload deadlines are bucket-wide in the driver.
	writeMu sync.Mutex
}

type gridFile struct {
	ID         interface{} `bson:"_id"`
	Filename   string      `bson:"filename"`
	Length     int64       `bson:"length"`
	UploadDate time.Time   `bson:"uploadDate"`
	Metadata   struct {
		ContentType string `bson:"content_type"`
	} `bson:"metadata"`
}

func (f gridFile) object() Object {
	return Object{
		Path:        f.Filename,
		ContentType: f.Metadata.ContentType,
		Size:        f.Length,
		UploadedAt:  f.UploadDate,
	}
}

// NewGridFS opens the named bucket in database. baseURL prefixes public URLs.
func NewGridFS(database *mongo.Database, name, baseURL string) (*GridFS, error) {
	bucket, err := gridfs.NewBucket(database, options.GridFSBucket().SetName(name))
	if err != nil {
		return nil, fmt.Errorf("open gridfs bucket %s: %w", name, err)
	}
	return &GridFS{
		bucket:  bucket,
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// EnsureBucket creates the lookup index used by Open and List.
func (g *GridFS) EnsureBucket(ctx context.Context) error {
	_, err := g.bucket.GetFilesCollection().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "filename", Value: 1}, {Key: "uploadDate", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("create %s files index: %w", g.name, err)
	}
	return nil
}

// Upload stores r under path. Content type is sniffed when empty.
func (g *GridFS) Upload(ctx context.Context, p, contentType string, r io.Reader) (Object, error) {
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

	opts := options.GridFSUpload().SetMetadata(bson.D{{Key: "content_type", Value: contentType}})

	g.writeMu.Lock()
	defer g.writeMu.Unlock()
	if deadline, ok := ctx.Deadline(); ok {
		_ = g.bucket.SetWriteDeadline(deadline)
		defer func() { _ = g.bucket.SetWriteDeadline(time.Time{}) }()
	}
	if _, err := g.bucket.UploadFromStream(p, bytes.NewReader(data), opts); err != nil {
		return Object{}, fmt.Errorf("upload %s: %w", p, err)
	}

	return Object{Path: p, ContentType: contentType, Size: int64(len(data)), UploadedAt: time.Now().UTC()}, nil
}

// Open streams the latest revision of path.
func (g *GridFS) Open(ctx context.Context, p string) (io.ReadCloser, Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, Object{}, err
	}
	stream, err := g.bucket.OpenDownloadStreamByName(p)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, Object{}, ErrNotFound
		}
		return nil, Object{}, err
	}

	file := stream.GetFile()
	obj := Object{Path: file.Name, Size: file.Length, UploadedAt: file.UploadDate}
	var meta struct {
		ContentType string `bson:"content_type"`
	}
	if len(file.Metadata) > 0 && bson.Unmarshal(file.Metadata, &meta) == nil {
		obj.ContentType = meta.ContentType
	}
	return stream, obj, nil
}

// List returns the objects whose path starts with prefix, newest first.
func (g *GridFS) List(ctx context.Context, prefix string) ([]Object, error) {
	filter := bson.M{}
	if prefix != "" {
		filter["filename"] = bson.M{"$regex": "^" + regexp.QuoteMeta(prefix)}
	}
	opts := options.GridFSFind().SetSort(bson.D{{Key: "uploadDate", Value: -1}})
	cursor, err := g.bucket.FindContext(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var files []gridFile
	if err := cursor.All(ctx, &files); err != nil {
		return nil, err
	}
	out := make([]Object, 0, len(files))
	for _, f := range files {
		out = append(out, f.object())
	}
	return out, nil
}

// Remove deletes every revision of the given paths. Missing paths are ignored.
func (g *GridFS) Remove(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	cursor, err := g.bucket.FindContext(ctx, bson.M{"filename": bson.M{"$in": paths}})
	if err != nil {
		return err
	}
	var files []gridFile
	if err := cursor.All(ctx, &files); err != nil {
		return err
	}

	var errs []error
	for _, f := range files {
		if err := g.bucket.DeleteContext(ctx, f.ID); err != nil && !errors.Is(err, gridfs.ErrFileNotFound) {
			errs = append(errs, fmt.Errorf("remove %s: %w", f.Filename, err))
		}
	}
	return errors.Join(errs...)
}

// PublicURL returns the URL the object is served from.
func (g *GridFS) PublicURL(p string) string {
	return g.baseURL + PublicPrefix(g.name) + p
}
