package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// ErrObjectNotFound is returned when a bucket or object does not exist.
var ErrObjectNotFound = errors.New("object not found")

// ErrInvalidObjectName is returned for names that escape their bucket.
var ErrInvalidObjectName = errors.New("invalid object name")

// Object describes a stored object. Folder placeholders end in "/".
type Object struct {
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// ObjectStore stores named objects in buckets.
type ObjectStore interface {
	Put(ctx context.Context, bucket, name string, r io.Reader) (int64, error)
	Open(ctx context.Context, bucket, name string) (io.ReadSeekCloser, error)
	Copy(ctx context.Context, srcBucket, srcName, dstBucket, dstName string) error
	List(ctx context.Context, bucket, prefix string) ([]Object, error)
}

// FSStore is an ObjectStore backed by a directory per bucket under Root.
type FSStore struct {
	Root string
}

// NewFSStore returns a store rooted at dir.
func NewFSStore(dir string) *FSStore {
	return &FSStore{Root: dir}
}

func (s *FSStore) objectPath(bucket, name string) (string, error) {
	if bucket == "" || strings.ContainsAny(bucket, `/\`) || bucket == "." || bucket == ".." {
		return "", fmt.Errorf("%w: bucket %q", ErrInvalidObjectName, bucket)
	}
	clean := path.Clean("/" + name)
	if name == "" || clean == "/" || strings.Contains(name, `\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidObjectName, name)
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return "", fmt.Errorf("%w: %q", ErrInvalidObjectName, name)
		}
	}
	return filepath.Join(s.Root, bucket, filepath.FromSlash(clean[1:])), nil
}

// Put writes r to bucket/name, replacing any existing object.
func (s *FSStore) Put(ctx context.Context, bucket, name string, r io.Reader) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	dst, err := s.objectPath(bucket, name)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create object directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp object: %w", err)
	}
	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return 0, fmt.Errorf("failed to write object %s/%s: %w", bucket, name, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		_ = os.Remove(tmp.Name())
		return 0, fmt.Errorf("failed to store object %s/%s: %w", bucket, name, err)
	}
	return n, nil
}

// Open returns a reader for bucket/name.
func (s *FSStore) Open(ctx context.Context, bucket, name string) (io.ReadSeekCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.objectPath(bucket, name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s/%s", ErrObjectNotFound, bucket, name)
	}
	if err != nil {
		return nil, err
	}
	if st, err := f.Stat(); err == nil && st.IsDir() {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %s/%s", ErrObjectNotFound, bucket, name)
	}
	return f, nil
}

// Copy copies srcBucket/srcName to dstBucket/dstName.
func (s *FSStore) Copy(ctx context.Context, srcBucket, srcName, dstBucket, dstName string) error {
	src, err := s.Open(ctx, srcBucket, srcName)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()
	_, err = s.Put(ctx, dstBucket, dstName, src)
	return err
}

// List returns the objects of bucket whose names start with prefix, sorted
// by name. Directories are reported as folder placeholders.
func (s *FSStore) List(ctx context.Context, bucket, prefix string) ([]Object, error) {
	if bucket == "" || strings.ContainsAny(bucket, `/\`) {
		return nil, fmt.Errorf("%w: bucket %q", ErrInvalidObjectName, bucket)
	}
	root := filepath.Join(s.Root, bucket)
	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: bucket %s", ErrObjectNotFound, bucket)
	}

	var objects []Object
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if p == root {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if strings.HasPrefix(d.Name(), ".upload-") {
			return nil
		}
		if d.IsDir() {
			name += "/"
		}
		if !strings.HasPrefix(name, prefix) {
			return nil
		}

		obj := Object{Name: name}
		if !d.IsDir() {
			info, err := d.Info()
			if err != nil {
				return err
			}
			obj.Size = info.Size()
			obj.ContentType = detectContentType(p)
		}
		objects = append(objects, obj)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list bucket %s: %w", bucket, err)
	}

	sort.Slice(objects, func(i, j int) bool { return objects[i].Name < objects[j].Name })
	return objects, nil
}

func detectContentType(p string) string {
	f, err := os.Open(p)
	if err != nil {
		return "application/octet-stream"
	}
	defer func() { _ = f.Close() }()

	header := make([]byte, 512)
	n, _ := io.ReadFull(f, header)
	return http.DetectContentType(header[:n])
}
