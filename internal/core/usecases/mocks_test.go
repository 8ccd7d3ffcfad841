package usecases_test

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/plotperfect/plotmap/internal/core/domain"
)

// --- Mock ProjectRepository ---

type mockProjectRepo struct {
	getByIDFn func(ctx context.Context, id string) (*domain.Project, error)
	listFn    func(ctx context.Context, limit, offset int) ([]domain.Project, int, error)
}

func (m *mockProjectRepo) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return &domain.Project{ID: id, Name: "Aradhana"}, nil
}

func (m *mockProjectRepo) List(ctx context.Context, limit, offset int) ([]domain.Project, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, limit, offset)
	}
	return nil, 0, nil
}

// --- Mock MapConfigRepository ---

type mockMapConfigRepo struct {
	getFn    func(ctx context.Context, projectID string) (*domain.MapConfig, error)
	saveFn   func(ctx context.Context, cfg *domain.MapConfig) error
	deleteFn func(ctx context.Context, projectID string) error

	gets  int
	saved []domain.MapConfig
}

func (m *mockMapConfigRepo) Get(ctx context.Context, projectID string) (*domain.MapConfig, error) {
	m.gets++
	if m.getFn != nil {
		return m.getFn(ctx, projectID)
	}
	return nil, domain.ErrNotFound
}

func (m *mockMapConfigRepo) Save(ctx context.Context, cfg *domain.MapConfig) error {
	if m.saveFn != nil {
		if err := m.saveFn(ctx, cfg); err != nil {
			return err
		}
	}
	m.saved = append(m.saved, *cfg)
	return nil
}

func (m *mockMapConfigRepo) Delete(ctx context.Context, projectID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, projectID)
	}
	return nil
}

// --- In-memory CacheService ---

type memCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	ttls    map[string]int
	deleted []string
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}, ttls: map[string]int{}}
}

func (c *memCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return v, nil
}

func (c *memCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	c.ttls[key] = ttlSeconds
	return nil
}

func (c *memCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	c.deleted = append(c.deleted, key)
	return nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	events []domain.MapConfigEvent
	err    error
}

func (m *mockPublisher) PublishMapConfigEvent(ctx context.Context, event *domain.MapConfigEvent) error {
	m.events = append(m.events, *event)
	return m.err
}

// --- Mock ObjectStore ---

type putCall struct {
	key, contentType string
	size             int
}

type mockObjectStore struct {
	presignGetFn func(ctx context.Context, key string, ttl time.Duration) (string, error)
	putErr       error

	mu          sync.Mutex
	presignGets int
	puts        []putCall
}

func (m *mockObjectStore) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	m.mu.Lock()
	m.presignGets++
	m.mu.Unlock()
	if m.presignGetFn != nil {
		return m.presignGetFn(ctx, key, ttl)
	}
	return "https://bucket.example/" + key + "?sig=1", nil
}

func (m *mockObjectStore) PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	return "https://bucket.example/" + key + "?upload=1", nil
}

func (m *mockObjectStore) Put(ctx context.Context, key, contentType string, body io.Reader) error {
	if m.putErr != nil {
		return m.putErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.puts = append(m.puts, putCall{key: key, contentType: contentType, size: len(data)})
	return nil
}

// --- Mock BlobStore ---

type mockBlobStore struct {
	mu       sync.Mutex
	blobs    map[string][]byte
	opened   int
	released int
}

func newMockBlobStore() *mockBlobStore {
	return &mockBlobStore{blobs: map[string][]byte{}}
}

func (m *mockBlobStore) Put(ctx context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = data
	return nil
}

func (m *mockBlobStore) Open(ctx context.Context, key string) (string, func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blobs[key]; !ok {
		return "", nil, domain.ErrNotFound
	}
	m.opened++
	return "/v1/blobs/" + key, func() {
		m.mu.Lock()
		m.released++
		m.mu.Unlock()
	}, nil
}

func (m *mockBlobStore) counts() (opened, released int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opened, m.released
}
