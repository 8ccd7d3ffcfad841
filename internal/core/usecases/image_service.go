package usecases

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/plotperfect/plotmap/internal/core/alignment"
	"github.com/plotperfect/plotmap/internal/core/domain"
	"github.com/plotperfect/plotmap/internal/core/ports"
	"github.com/plotperfect/plotmap/internal/pkg/metrics"
	"github.com/plotperfect/plotmap/internal/pkg/telemetry"
)

// Image reference prefixes.
const (
	RefPrefixS3    = "s3:"
	RefPrefixLocal = "local:"

	// legacyLocalPrefix marks refs saved by older browser-only editors.
	legacyLocalPrefix = "idb:"
)

// Reference schemes, as reported in metrics and spans.
const (
	SchemeS3     = "s3"
	SchemeLocal  = "local"
	SchemeDirect = "direct"
)

// ErrStorageUnavailable is returned when a reference needs a storage
// backend that is not configured.
var ErrStorageUnavailable = errors.New("storage backend not configured")

// SplitRef returns the scheme of an image reference and the key or URL
// it carries.
func SplitRef(ref string) (scheme, key string) {
	switch {
	case strings.HasPrefix(ref, RefPrefixS3):
		return SchemeS3, strings.TrimPrefix(ref, RefPrefixS3)
	case strings.HasPrefix(ref, RefPrefixLocal):
		return SchemeLocal, strings.TrimPrefix(ref, RefPrefixLocal)
	case strings.HasPrefix(ref, legacyLocalPrefix):
		return SchemeLocal, strings.TrimPrefix(ref, legacyLocalPrefix)
	default:
		return SchemeDirect, ref
	}
}

// ImageOptions tunes ImageService.
type ImageOptions struct {
	PlaceholderURL string
	SignedURLTTL   time.Duration
	CacheTTL       time.Duration
	// LocalHandleTTL must match the blob store's handle lifetime.
	LocalHandleTTL time.Duration
}

// ImageService turns stored image references into displayable URLs.
type ImageService struct {
	objects ports.ObjectStore
	blobs   ports.BlobStore
	cache   ports.CacheService
	opts    ImageOptions
	now     func() time.Time
}

// NewImageService creates a new ImageService. Any of objects, blobs and
// cache may be nil.
func NewImageService(objects ports.ObjectStore, blobs ports.BlobStore, cache ports.CacheService, opts ImageOptions) *ImageService {
	if opts.PlaceholderURL == "" {
		opts.PlaceholderURL = domain.DefaultImageRef
	}
	if opts.SignedURLTTL <= 0 {
		opts.SignedURLTTL = 5 * time.Minute
	}
	if opts.CacheTTL <= 0 || opts.CacheTTL >= opts.SignedURLTTL {
		opts.CacheTTL = opts.SignedURLTTL - opts.SignedURLTTL/5
	}
	if opts.LocalHandleTTL <= 0 {
		opts.LocalHandleTTL = 15 * time.Minute
	}
	return &ImageService{objects: objects, blobs: blobs, cache: cache, opts: opts, now: time.Now}
}

// Placeholder returns the URL shown when resolution fails.
func (s *ImageService) Placeholder() string { return s.opts.PlaceholderURL }

// Resolve returns a displayable URL for ref. Direct URLs come back
// verbatim; object keys are presigned; local keys get a temporary handle
// that the caller must release. Presigned and handle URLs carry an Expires
// ahead of their real expiry. Failures are *domain.ResolutionError.
func (s *ImageService) Resolve(ctx context.Context, ref string) (alignment.Resolved, error) {
	scheme, key := SplitRef(ref)
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanImageResolve,
		trace.WithAttributes(attribute.String(telemetry.AttrImageScheme, scheme)))
	defer span.End()

	res, err := s.resolve(ctx, scheme, key)
	metrics.ImageResolutions.WithLabelValues(scheme, metrics.Outcome(err)).Inc()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return alignment.Resolved{}, &domain.ResolutionError{Ref: ref, Err: err}
	}
	return res, nil
}

// ResolveOrPlaceholder resolves ref and substitutes the placeholder image
// on failure. Only cancellation is reported as an error.
func (s *ImageService) ResolveOrPlaceholder(ctx context.Context, ref string) (alignment.Resolved, error) {
	res, err := s.Resolve(ctx, ref)
	if err == nil {
		return res, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return alignment.Resolved{}, ctxErr
	}
	slog.WarnContext(ctx, "image resolution failed, using placeholder", "ref", ref, "error", err)
	return alignment.Resolved{URL: s.opts.PlaceholderURL}, nil
}

func (s *ImageService) resolve(ctx context.Context, scheme, key string) (alignment.Resolved, error) {
	if key == "" {
		return alignment.Resolved{}, errors.New("empty image reference")
	}

	switch scheme {
	case SchemeS3:
		return s.signedURL(ctx, key)
	case SchemeLocal:
		if s.blobs == nil {
			return alignment.Resolved{}, ErrStorageUnavailable
		}
		opened := s.now()
		url, release, err := s.blobs.Open(ctx, key)
		if err != nil {
			return alignment.Resolved{}, err
		}
		return alignment.Resolved{
			URL:     url,
			Expires: opened.Add(s.opts.LocalHandleTTL - s.opts.LocalHandleTTL/5),
			Release: release,
		}, nil
	default:
		return alignment.Resolved{URL: key}, nil
	}
}

// signedURL presigns key, sharing signatures through the cache. A cached
// URL may be up to CacheTTL old, so it is only trusted for the remainder
// of the signature.
func (s *ImageService) signedURL(ctx context.Context, key string) (alignment.Resolved, error) {
	if s.objects == nil {
		return alignment.Resolved{}, ErrStorageUnavailable
	}

	now := s.now()
	cacheKey := "images:signed:" + key
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil && len(data) > 0 {
			metrics.CacheHits.WithLabelValues("signed_url").Inc()
			return alignment.Resolved{
				URL:     string(data),
				Expires: now.Add(s.opts.SignedURLTTL - s.opts.CacheTTL),
			}, nil
		}
		metrics.CacheMisses.WithLabelValues("signed_url").Inc()
	}

	url, err := s.objects.PresignGet(ctx, key, s.opts.SignedURLTTL)
	if err != nil {
		return alignment.Resolved{}, err
	}

	// Cached entries expire before the signature does.
	if s.cache != nil {
		_ = s.cache.Set(ctx, cacheKey, []byte(url), int(s.opts.CacheTTL.Seconds()))
	}
	return alignment.Resolved{URL: url, Expires: now.Add(s.opts.CacheTTL)}, nil
}
