package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"docvault/internal/domain"
)

// MemoryStore is an in-memory ObjectStore used in tests. It is safe
// for concurrent use. A put error can be injected to exercise failure
// paths in upload transactions.
type MemoryStore struct {
	mu      sync.RWMutex
	buckets map[string]map[string][]byte
	putErr  error
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string]map[string][]byte)}
}

// FailPuts makes every subsequent Put return err. Pass nil to clear.
func (m *MemoryStore) FailPuts(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putErr = err
}

func (m *MemoryStore) EnsureBucket(ctx context.Context, bucket string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.buckets[bucket]; !ok {
		m.buckets[bucket] = make(map[string][]byte)
	}
	return nil
}

func (m *MemoryStore) Put(ctx context.Context, bucket, key string, content io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(content)
	if err != nil {
		return &domain.StorageError{Message: "read content", Err: err}
	}

	if size >= 0 && int64(len(data)) != size {
		return &domain.StorageError{Message: fmt.Sprintf("size mismatch: expected %d bytes, got %d", size, len(data))}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.putErr != nil {
		return m.putErr
	}

	b, ok := m.buckets[bucket]
	if !ok {
		b = make(map[string][]byte)
		m.buckets[bucket] = b
	}
	b[key] = data
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.buckets[bucket]
	if !ok {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("object %s/%s not found", bucket, key)}
	}

	data, ok := b[key]
	if !ok {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("object %s/%s not found", bucket, key)}
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *MemoryStore) Delete(ctx context.Context, bucket, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if b, ok := m.buckets[bucket]; ok {
		delete(b, key)
	}
	return nil
}

func (m *MemoryStore) DeleteBucket(ctx context.Context, bucket string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.buckets, bucket)
	return nil
}

// ObjectCount reports how many objects the bucket holds.
func (m *MemoryStore) ObjectCount(bucket string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.buckets[bucket])
}

var _ ObjectStore = (*MemoryStore)(nil)
