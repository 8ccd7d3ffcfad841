package http

import (
	"github.com/nats-io/nats.go"

	"github.com/plotperfect/plotmap/internal/adapters/blobstore"
	"github.com/plotperfect/plotmap/internal/adapters/postgres"
	"github.com/plotperfect/plotmap/internal/adapters/s3store"
	"github.com/plotperfect/plotmap/internal/adapters/valkey"
	"github.com/plotperfect/plotmap/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Projects *usecases.ProjectService
	Maps     *usecases.MapConfigService
	Images   *usecases.ImageService
	Uploads  *usecases.UploadService
	Sessions *usecases.SessionService
	Blobs    *blobstore.Store
	Objects  *s3store.Store
	NATS     *nats.Conn
	DB       *postgres.DB
	Cache    *valkey.Cache
}
