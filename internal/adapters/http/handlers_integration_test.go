//go:build integration
// +build integration

package http_test

import (
	"context"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/spf13/afero"

	handler "github.com/plotperfect/plotmap/internal/adapters/http"
	"github.com/plotperfect/plotmap/internal/adapters/blobstore"
	"github.com/plotperfect/plotmap/internal/adapters/postgres"
	"github.com/plotperfect/plotmap/internal/core/domain"
	"github.com/plotperfect/plotmap/internal/core/usecases"
	"github.com/plotperfect/plotmap/internal/pkg/config"
)

// setupTestDB connects to the database named by the usual PLOTMAP_DATABASE_*
// settings. Migrations must already be applied.
func setupTestDB(t *testing.T) *postgres.DB {
	cfg, err := config.Load("plotmap-test")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := postgres.New(ctx, cfg.Database.DSN(), 4)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	return db
}

// setupTestDeps wires real repos with local blob storage, no cache or broker.
func setupTestDeps(db *postgres.DB) *handler.Dependencies {
	projects := postgres.NewProjectRepo(db)
	maps := usecases.NewMapConfigService(postgres.NewMapConfigRepo(db), projects, nil, nil)
	blobs := blobstore.New(afero.NewMemMapFs(), time.Minute)
	images := usecases.NewImageService(nil, blobs, nil, usecases.ImageOptions{PlaceholderURL: "/placeholder.png"})

	return &handler.Dependencies{
		Projects: usecases.NewProjectService(projects),
		Maps:     maps,
		Images:   images,
		Uploads:  usecases.NewUploadService(nil, blobs, 0),
		Sessions: usecases.NewSessionService(maps, images, usecases.SessionOptions{}),
		Blobs:    blobs,
		DB:       db,
	}
}

// seedTestProject inserts a project and removes it when the test ends.
func seedTestProject(t *testing.T, db *postgres.DB) string {
	t.Helper()
	ctx := context.Background()
	id := "itest-" + time.Now().Format("20060102150405.000000")
	if _, err := db.Pool.Exec(ctx, `
		INSERT INTO projects (id, name, layout_image)
		VALUES ($1, $2, $3)
	`, id, "Integration "+id, "https://cdn.example.com/layout.png"); err != nil {
		t.Fatalf("seed project: %v", err)
	}
	t.Cleanup(func() {
		_, _ = db.Pool.Exec(context.Background(), `DELETE FROM projects WHERE id = $1`, id)
	})
	return id
}

func TestMapConfig_Integration_SaveLoadDelete(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Close()
	id := seedTestProject(t, db)
	app := setupApp(setupTestDeps(db))

	status, body := doJSON(t, app, "GET", "/v1/projects/"+id+"/map", nil)
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	var view struct {
		Config domain.MapConfig `json:"config"`
	}
	decode(t, body, &view)
	if !view.Config.IsDefault || view.Config.ImageRef != "https://cdn.example.com/layout.png" {
		t.Fatalf("expected default config on the layout image, got %+v", view.Config)
	}

	put := map[string]any{
		"image_ref": "s3:project-maps/itest.png",
		"corners":   [][]float64{{10, 20}, {20, 20}, {20, 10}, {10, 10}},
		"opacity":   0.6,
		"flip_h":    true,
	}
	if status, body := doJSON(t, app, "PUT", "/v1/projects/"+id+"/map", put); status != 200 {
		t.Fatalf("expected 200 on save, got %d: %s", status, body)
	}

	status, body = doJSON(t, app, "GET", "/v1/projects/"+id+"/map", nil)
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	decode(t, body, &view)
	if view.Config.IsDefault || view.Config.Opacity != 0.6 || !view.Config.FlipH {
		t.Errorf("expected saved config back, got %+v", view.Config)
	}
	if view.Config.Corners[domain.TopLeft] != (orb.Point{10, 20}) {
		t.Errorf("expected stored top-left [10 20], got %v", view.Config.Corners[domain.TopLeft])
	}

	var project domain.Project
	_, body = doJSON(t, app, "GET", "/v1/projects/"+id, nil)
	decode(t, body, &project)
	if !project.HasMap {
		t.Error("expected has_map after save")
	}

	if status, _ := doJSON(t, app, "DELETE", "/v1/projects/"+id+"/map", nil); status != 204 {
		t.Fatalf("expected 204 on delete, got %d", status)
	}
	_, body = doJSON(t, app, "GET", "/v1/projects/"+id, nil)
	decode(t, body, &project)
	if project.HasMap {
		t.Error("expected has_map cleared after delete")
	}
}

func TestAlignmentSession_Integration_CommitPersists(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Close()
	id := seedTestProject(t, db)
	app := setupApp(setupTestDeps(db))

	s := openSession(t, app, id)
	edit := map[string]any{"scale": 1.5, "rotation": 30}
	if status, body := doJSON(t, app, "PATCH", "/v1/alignment/"+s.ID, edit); status != 200 {
		t.Fatalf("expected 200 on edit, got %d: %s", status, body)
	}

	status, body := doJSON(t, app, "POST", "/v1/alignment/"+s.ID+"/commit", nil)
	if status != 200 {
		t.Fatalf("expected 200 on commit, got %d: %s", status, body)
	}
	var committed struct {
		Config domain.MapConfig `json:"config"`
	}
	decode(t, body, &committed)

	stored, err := postgres.NewMapConfigRepo(db).Get(context.Background(), id)
	if err != nil {
		t.Fatalf("load stored config: %v", err)
	}
	for i := range stored.Corners {
		if !nearlyEqualPoint(stored.Corners[i], committed.Config.Corners[i]) {
			t.Errorf("corner %d: stored %v, committed %v", i, stored.Corners[i], committed.Config.Corners[i])
		}
	}
}

func nearlyEqualPoint(a, b orb.Point) bool {
	const tol = 1e-9
	d0, d1 := a[0]-b[0], a[1]-b[1]
	return d0 < tol && d0 > -tol && d1 < tol && d1 > -tol
}
