package usecases

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"

	"github.com/plotperfect/plotmap/internal/core/domain"
	"github.com/plotperfect/plotmap/internal/core/ports"
	"github.com/plotperfect/plotmap/internal/pkg/imageinfo"
	"github.com/plotperfect/plotmap/internal/pkg/metrics"
	"github.com/plotperfect/plotmap/internal/pkg/telemetry"
)

const (
	// DefaultKeyPrefix is where overlay images are stored.
	DefaultKeyPrefix = "project-maps"
	// DefaultMaxUploadBytes caps direct uploads.
	DefaultMaxUploadBytes = 10 << 20

	uploadURLTTL = 60 * time.Second
)

var (
	uploadTypes = map[string]string{
		"image/png":  "png",
		"image/jpeg": "jpg",
	}
	presignTypes = map[string]string{
		"image/png":  "png",
		"image/jpeg": "jpg",
		"image/webp": "webp",
	}
	keyPrefixPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)
)

// UploadService stores overlay images and issues presigned upload URLs.
type UploadService struct {
	objects  ports.ObjectStore
	blobs    ports.BlobStore
	maxBytes int
	now      func() time.Time
}

// NewUploadService creates a new UploadService. Uploads go to objects when
// set, otherwise to blobs.
func NewUploadService(objects ports.ObjectStore, blobs ports.BlobStore, maxBytes int) *UploadService {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &UploadService{objects: objects, blobs: blobs, maxBytes: maxBytes, now: time.Now}
}

// Upload validates an image and stores it together with a thumbnail. The
// returned ref can be assigned to a map config.
func (s *UploadService) Upload(ctx context.Context, contentType string, data []byte) (*domain.ImageInfo, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanImageUpload)
	defer span.End()

	ext, ok := uploadTypes[contentType]
	if !ok {
		return nil, &domain.ConfigurationError{Field: "file", Reason: "must be a PNG or JPEG image"}
	}
	if len(data) == 0 {
		return nil, &domain.ConfigurationError{Field: "file", Reason: "is empty"}
	}
	if len(data) > s.maxBytes {
		return nil, &domain.ConfigurationError{Field: "file", Reason: fmt.Sprintf("exceeds %d bytes", s.maxBytes)}
	}

	img, err := imageinfo.Decode(data)
	if err != nil {
		return nil, &domain.ConfigurationError{Field: "file", Reason: err.Error()}
	}
	width, height := img.Size()

	base := s.newKey(DefaultKeyPrefix)
	key := base + "." + ext
	backend, ref, err := s.store(ctx, key, contentType, data)
	metrics.ImageUploads.WithLabelValues(backend, metrics.Outcome(err)).Inc()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	info := &domain.ImageInfo{
		Ref:         ref,
		ContentType: contentType,
		Width:       width,
		Height:      height,
		Size:        len(data),
	}

	// A missing thumbnail does not fail the upload.
	if thumb, err := img.Thumbnail(); err == nil {
		if _, thumbRef, err := s.store(ctx, base+".thumb.jpg", "image/jpeg", thumb); err == nil {
			info.ThumbnailRef = thumbRef
		}
	}
	return info, nil
}

// PresignUpload issues a short-lived URL the client can PUT an image to.
func (s *UploadService) PresignUpload(ctx context.Context, contentType, prefix string) (*domain.UploadTicket, error) {
	if s.objects == nil {
		return nil, ErrStorageUnavailable
	}
	ext, ok := presignTypes[contentType]
	if !ok {
		return nil, &domain.ConfigurationError{Field: "content_type", Reason: "must be image/png, image/jpeg or image/webp"}
	}
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if !keyPrefixPattern.MatchString(prefix) {
		return nil, &domain.ConfigurationError{Field: "prefix", Reason: "may only contain lowercase letters, digits and dashes"}
	}

	key := s.newKey(prefix) + "." + ext
	url, err := s.objects.PresignPut(ctx, key, contentType, uploadURLTTL)
	if err != nil {
		return nil, fmt.Errorf("presign upload: %w", err)
	}
	return &domain.UploadTicket{
		Key:       key,
		Ref:       RefPrefixS3 + key,
		UploadURL: url,
		ExpiresAt: s.now().Add(uploadURLTTL).UTC(),
	}, nil
}

func (s *UploadService) newKey(prefix string) string {
	return fmt.Sprintf("%s/%d-%s", prefix, s.now().UnixMilli(), uuid.NewString())
}

func (s *UploadService) store(ctx context.Context, key, contentType string, data []byte) (backend, ref string, err error) {
	switch {
	case s.objects != nil:
		if err := s.objects.Put(ctx, key, contentType, bytes.NewReader(data)); err != nil {
			return SchemeS3, "", fmt.Errorf("store image: %w", err)
		}
		return SchemeS3, RefPrefixS3 + key, nil
	case s.blobs != nil:
		if err := s.blobs.Put(ctx, key, data); err != nil {
			return SchemeLocal, "", fmt.Errorf("store image: %w", err)
		}
		return SchemeLocal, RefPrefixLocal + key, nil
	default:
		return "none", "", ErrStorageUnavailable
	}
}
