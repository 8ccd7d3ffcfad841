// Package blobstore keeps overlay images on local storage and serves them
// through short-lived handle URLs.
package blobstore

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/plotperfect/plotmap/internal/core/domain"
)

// URLPrefix is the route handle URLs are served under.
const URLPrefix = "/v1/blobs/"

type handle struct {
	key     string
	expires time.Time
}

// Store implements ports.BlobStore on an afero filesystem.
type Store struct {
	fs  afero.Fs
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	handles map[string]handle
}

// New wraps fs. Handles expire after ttl even if never released.
func New(fs afero.Fs, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Store{fs: fs, ttl: ttl, now: time.Now, handles: make(map[string]handle)}
}

// NewOS stores blobs under dir on the local disk.
func NewOS(dir string, ttl time.Duration) *Store {
	return New(afero.NewBasePathFs(afero.NewOsFs(), dir), ttl)
}

// Put writes data under key, creating parent directories.
func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	k, err := cleanKey(key)
	if err != nil {
		return err
	}
	if err := s.fs.MkdirAll(path.Dir(k), 0o755); err != nil {
		return fmt.Errorf("create blob dir: %w", err)
	}
	if err := afero.WriteFile(s.fs, k, data, 0o644); err != nil {
		return fmt.Errorf("write blob %s: %w", k, err)
	}
	return nil
}

// Open issues a handle URL for key. Calling release invalidates it.
func (s *Store) Open(ctx context.Context, key string) (string, func(), error) {
	k, err := cleanKey(key)
	if err != nil {
		return "", nil, err
	}
	ok, err := afero.Exists(s.fs, k)
	if err != nil {
		return "", nil, err
	}
	if !ok {
		return "", nil, domain.ErrNotFound
	}

	token := uuid.NewString()
	s.mu.Lock()
	s.sweepLocked()
	s.handles[token] = handle{key: k, expires: s.now().Add(s.ttl)}
	s.mu.Unlock()

	var once sync.Once
	release := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.handles, token)
			s.mu.Unlock()
		})
	}
	return URLPrefix + token, release, nil
}

// Read returns the blob behind a live handle token.
func (s *Store) Read(token string) ([]byte, string, error) {
	s.mu.Lock()
	h, ok := s.handles[token]
	if ok && !s.now().Before(h.expires) {
		delete(s.handles, token)
		ok = false
	}
	s.mu.Unlock()
	if !ok {
		return nil, "", domain.ErrNotFound
	}

	data, err := afero.ReadFile(s.fs, h.key)
	if err != nil {
		return nil, "", fmt.Errorf("read blob %s: %w", h.key, err)
	}
	contentType := mime.TypeByExtension(path.Ext(h.key))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return data, contentType, nil
}

// Handles returns the number of live handles.
func (s *Store) Handles() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	return len(s.handles)
}

func (s *Store) sweepLocked() {
	now := s.now()
	for token, h := range s.handles {
		if !now.Before(h.expires) {
			delete(s.handles, token)
		}
	}
}

func cleanKey(key string) (string, error) {
	k := path.Clean(strings.TrimSpace(key))
	if k == "." || k == ".." || path.IsAbs(k) || strings.HasPrefix(k, "../") {
		return "", &domain.ConfigurationError{Field: "key", Reason: fmt.Sprintf("invalid blob key %q", key)}
	}
	return k, nil
}
