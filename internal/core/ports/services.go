package ports

import (
	"context"
	"io"
	"time"

	"github.com/plotperfect/plotmap/internal/core/domain"
)

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishMapConfigEvent(ctx context.Context, event *domain.MapConfigEvent) error
}

// EventSubscriber subscribes to domain events from a message broker.
// An empty projectID subscribes to every project.
type EventSubscriber interface {
	SubscribeMapConfigEvents(ctx context.Context, projectID string, handler func(ctx context.Context, event *domain.MapConfigEvent) error) error
}

// CacheService provides read-through caching. Get returns
// domain.ErrNotFound on a miss or after expiry.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// ObjectStore is remote object storage addressed by key.
type ObjectStore interface {
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
	Put(ctx context.Context, key, contentType string, body io.Reader) error
}

// BlobStore keeps images on local storage and hands out temporary URLs
// for them. The release func invalidates the URL.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Open(ctx context.Context, key string) (url string, release func(), err error)
}
