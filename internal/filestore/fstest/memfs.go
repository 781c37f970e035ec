// Package fstest provides an in-memory filestore.Store for tests.
package fstest

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/koustreak/sqlconform/internal/errs"
	"github.com/koustreak/sqlconform/internal/filestore"
)

// Store keeps objects in a map keyed by "bucket/key". It is safe for
// concurrent use.
type Store struct {
	mu      sync.Mutex
	buckets map[string]bool
	objects map[string][]byte
}

func New() *Store {
	return &Store{buckets: make(map[string]bool), objects: make(map[string][]byte)}
}

// Keys returns every stored "bucket/key", sorted.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// HasBucket reports whether EnsureBucket was called for bucket.
func (s *Store) HasBucket(bucket string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buckets[bucket]
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

func (s *Store) EnsureBucket(_ context.Context, bucket string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buckets[bucket] = true
	return nil
}

func (s *Store) ListObjects(_ context.Context, bucket string, opts filestore.ListOptions) ([]filestore.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []filestore.ObjectInfo
	for k, v := range s.objects {
		key, ok := strings.CutPrefix(k, bucket+"/")
		if !ok || !strings.HasPrefix(key, opts.Prefix) {
			continue
		}
		out = append(out, filestore.ObjectInfo{Key: key, Size: int64(len(v))})
		if opts.Limit > 0 && len(out) == opts.Limit {
			break
		}
	}
	return out, nil
}

func (s *Store) GetObject(_ context.Context, bucket, key string) (filestore.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[bucket+"/"+key]
	if !ok {
		return nil, errs.New(errs.ErrKindNotFound, "no such key: "+key)
	}
	return &object{
		ReadCloser: io.NopCloser(bytes.NewReader(data)),
		info:       &filestore.ObjectInfo{Key: key, Size: int64(len(data))},
	}, nil
}

func (s *Store) StatObject(_ context.Context, bucket, key string) (*filestore.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[bucket+"/"+key]
	if !ok {
		return nil, errs.New(errs.ErrKindNotFound, "no such key: "+key)
	}
	return &filestore.ObjectInfo{Key: key, Size: int64(len(data))}, nil
}

func (s *Store) PutObject(_ context.Context, bucket, key string, r io.Reader, _ int64, contentType string) (*filestore.ObjectInfo, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[bucket+"/"+key] = data
	return &filestore.ObjectInfo{Key: key, Size: int64(len(data)), ContentType: contentType}, nil
}

func (s *Store) RemoveObject(_ context.Context, bucket, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, bucket+"/"+key)
	return nil
}

type object struct {
	io.ReadCloser
	info *filestore.ObjectInfo
}

func (o *object) Info() *filestore.ObjectInfo { return o.info }
