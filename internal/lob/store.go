package lob

import (
	"bytes"
	"context"
	"io"
	"path"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/koustreak/sqlconform/internal/errs"
	"github.com/koustreak/sqlconform/internal/filestore"
	"github.com/koustreak/sqlconform/internal/logger"
)

// Store persists LOB content under a key.
type Store interface {
	Save(ctx context.Context, key string, data []byte) error
	Load(ctx context.Context, key string) ([]byte, error)
	Remove(ctx context.Context, key string) error
}

// SaveBlob persists the content of b under key.
func SaveBlob(ctx context.Context, s Store, key string, b *Blob) error {
	n, err := b.Length()
	if err != nil {
		return err
	}
	data, err := b.Bytes(1, int(n))
	if err != nil {
		return err
	}
	return s.Save(ctx, key, data)
}

// LoadBlob reads the content stored under key into a new Blob.
func LoadBlob(ctx context.Context, s Store, key string) (*Blob, error) {
	data, err := s.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	return &Blob{data: data}, nil
}

// SaveClob persists the UTF-8 content of c under key.
func SaveClob(ctx context.Context, s Store, key string, c *Clob) error {
	str, err := c.String()
	if err != nil {
		return err
	}
	return s.Save(ctx, key, []byte(str))
}

// LoadClob reads the UTF-8 content stored under key into a new Clob.
func LoadClob(ctx context.Context, s Store, key string) (*Clob, error) {
	data, err := s.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	return NewClob(string(data)), nil
}

// --- object store ---

// ObjectStore keeps LOB content in a filestore bucket under a key prefix.
type ObjectStore struct {
	fs     filestore.Store
	bucket string
	prefix string
	log    *logger.Logger
}

// NewObjectStore returns a Store writing to bucket/prefix in fs.
func NewObjectStore(fs filestore.Store, bucket, prefix string, log *logger.Logger) *ObjectStore {
	if log == nil {
		log = logger.Nop()
	}
	return &ObjectStore{fs: fs, bucket: bucket, prefix: prefix, log: log}
}

func (s *ObjectStore) Save(ctx context.Context, key string, data []byte) error {
	obj := s.objectKey(key)
	if _, err := s.fs.PutObject(ctx, s.bucket, obj, bytes.NewReader(data), int64(len(data)), "application/octet-stream"); err != nil {
		return err
	}
	s.log.Debugf("saved lob %s (%s)", obj, humanize.Bytes(uint64(len(data))))
	return nil
}

func (s *ObjectStore) Load(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.fs.GetObject(ctx, s.bucket, s.objectKey(key))
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindQueryFailed, "failed to read lob content", err)
	}
	return data, nil
}

func (s *ObjectStore) Remove(ctx context.Context, key string) error {
	return s.fs.RemoveObject(ctx, s.bucket, s.objectKey(key))
}

// Purge removes every object under the store's prefix.
func (s *ObjectStore) Purge(ctx context.Context) (int, error) {
	objs, err := s.fs.ListObjects(ctx, s.bucket, filestore.ListOptions{Prefix: s.prefix + "/"})
	if err != nil {
		return 0, err
	}
	for _, o := range objs {
		if err := s.fs.RemoveObject(ctx, s.bucket, o.Key); err != nil {
			return 0, err
		}
	}
	return len(objs), nil
}

func (s *ObjectStore) objectKey(key string) string {
	return path.Join(s.prefix, key)
}

// --- memory store ---

// MemStore is an in-process Store, used when no object store is configured.
type MemStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemStore() *MemStore {
	return &MemStore{data: make(map[string][]byte)}
}

func (m *MemStore) Save(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), data...)
	return nil
}

func (m *MemStore) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.data[key]
	if !ok {
		return nil, errs.New(errs.ErrKindNotFound, "no lob stored under "+key)
	}
	return append([]byte(nil), data...), nil
}

func (m *MemStore) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
