package testinfra

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/webhookhub/webhookhub/internal/migrator"
	"github.com/webhookhub/webhookhub/internal/util/testutil"
)

var pgOnce sync.Once

func EnsurePostgres() string {
	cfg := ReadConfig()
	if cfg.PostgresURL == "" {
		pgOnce.Do(func() {
			startPostgresTestContainer(cfg)
		})
	}
	return cfg.PostgresURL
}

func startPostgresTestContainer(cfg *Config) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("webhookhub"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		panic(err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		panic(err)
	}
	log.Printf("Postgres running at %s", connStr)
	cfg.PostgresURL = connStr
	cfg.cleanupFns = append(cfg.cleanupFns, func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			log.Printf("failed to terminate container: %s", err)
		}
	})
}

// NewPostgresConfig creates a throwaway database on the shared Postgres
// instance, migrates it, and drops it on cleanup. Each test gets full
// isolation without paying for a container per test.
func NewPostgresConfig(t *testing.T) string {
	t.Helper()

	baseURL := EnsurePostgres()
	dbName := fmt.Sprintf("webhookhub_test_%s", testutil.RandomString(12))

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, baseURL)
	if err != nil {
		t.Fatalf("failed to connect to postgres: %s", err)
	}
	defer conn.Close(ctx)

	if _, err := conn.Exec(ctx, fmt.Sprintf("CREATE DATABASE %s", dbName)); err != nil {
		t.Fatalf("failed to create database %s: %s", dbName, err)
	}

	dbURL, err := replaceDatabaseName(baseURL, dbName)
	if err != nil {
		t.Fatalf("failed to build database URL: %s", err)
	}

	m, err := migrator.New(migrator.Opts{DatabaseURL: dbURL})
	if err != nil {
		t.Fatalf("failed to create migrator: %s", err)
	}
	if _, _, err := m.Up(ctx, -1); err != nil {
		t.Fatalf("failed to migrate database %s: %s", dbName, err)
	}
	// Close the migrator's connection so the database can be dropped.
	m.Close(ctx)

	t.Cleanup(func() {
		conn, err := pgx.Connect(ctx, baseURL)
		if err != nil {
			log.Printf("failed to connect for cleanup of %s: %s", dbName, err)
			return
		}
		defer conn.Close(ctx)
		if _, err := conn.Exec(ctx, fmt.Sprintf("DROP DATABASE %s WITH (FORCE)", dbName)); err != nil {
			log.Printf("failed to drop database %s: %s", dbName, err)
		}
	})

	return dbURL
}

func replaceDatabaseName(connStr, dbName string) (string, error) {
	parsed, err := url.Parse(connStr)
	if err != nil {
		return "", err
	}
	parsed.Path = "/" + dbName
	return parsed.String(), nil
}
