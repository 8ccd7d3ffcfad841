package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/afero"

	"github.com/plotperfect/plotmap/internal/pkg/config"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: migrate <up|down>")
	}

	cfg, err := config.Load("plotmap-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	fs := afero.NewBasePathFs(afero.NewOsFs(), cfg.Database.MigrationsDir)

	if _, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		log.Fatalf("create schema_migrations: %v", err)
	}

	switch os.Args[1] {
	case "up":
		runUp(ctx, pool, fs)
	case "down":
		runDown(ctx, pool, fs)
	default:
		log.Fatalf("unknown command: %s", os.Args[1])
	}
}

// migrationFiles lists files with the given suffix, ordered by version.
func migrationFiles(fs afero.Fs, suffix string) []string {
	files, err := afero.Glob(fs, "*"+suffix)
	if err != nil {
		log.Fatalf("list migrations: %v", err)
	}
	sort.Strings(files)
	return files
}

func version(file, suffix string) string {
	return strings.TrimSuffix(file, suffix)
}

func runUp(ctx context.Context, pool *pgxpool.Pool, fs afero.Fs) {
	for _, f := range migrationFiles(fs, ".up.sql") {
		v := version(f, ".up.sql")

		var applied bool
		if err := pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`, v).Scan(&applied); err != nil {
			log.Fatalf("check %s: %v", v, err)
		}
		if applied {
			fmt.Printf("--  %s\n", f)
			continue
		}

		data, err := afero.ReadFile(fs, f)
		if err != nil {
			log.Fatalf("read %s: %v", f, err)
		}
		if _, err := pool.Exec(ctx, string(data)); err != nil {
			log.Fatalf("exec %s: %v", f, err)
		}
		if _, err := pool.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, v); err != nil {
			log.Fatalf("record %s: %v", v, err)
		}

		fmt.Printf("OK  %s\n", f)
	}

	log.Println("all migrations applied")
}

// runDown reverts the most recently applied migration.
func runDown(ctx context.Context, pool *pgxpool.Pool, fs afero.Fs) {
	var v string
	err := pool.QueryRow(ctx, `SELECT version FROM schema_migrations ORDER BY version DESC LIMIT 1`).Scan(&v)
	if err != nil {
		log.Println("nothing to revert")
		return
	}

	f := v + ".down.sql"
	data, err := afero.ReadFile(fs, f)
	if err != nil {
		log.Fatalf("read %s: %v", f, err)
	}
	if _, err := pool.Exec(ctx, string(data)); err != nil {
		log.Fatalf("exec %s: %v", f, err)
	}
	if _, err := pool.Exec(ctx, `DELETE FROM schema_migrations WHERE version = $1`, v); err != nil {
		log.Fatalf("forget %s: %v", v, err)
	}

	fmt.Printf("OK  %s\n", f)
}
