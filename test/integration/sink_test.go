// Package integration contains tests that publish a real final index into
// PostgreSQL and Redis. Each test is skipped
// when its service is unavailable.
//
// Run with:
//
//	go test -v ./test/integration/...
package integration

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/invindex/internal/indexer/artifact"
	"github.com/Adithya-Monish-Kumar-K/invindex/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/invindex/internal/publish"
	"github.com/Adithya-Monish-Kumar-K/invindex/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/invindex/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/invindex/pkg/redis"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func skipIfNoPostgres(t *testing.T) *postgres.Client {
	t.Helper()
	cfg := config.PostgresConfig{
		Host:            envOrDefault("TEST_POSTGRES_HOST", "localhost"),
		Port:            envOrDefaultInt("TEST_POSTGRES_PORT", 5432),
		Database:        envOrDefault("TEST_POSTGRES_DB", "invindex_test"),
		User:            envOrDefault("TEST_POSTGRES_USER", "invindex"),
		Password:        envOrDefault("TEST_POSTGRES_PASSWORD", "localdev"),
		SSLMode:         "disable",
		Table:           "postings_it",
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
	}
	client, err := postgres.New(t.Context(), cfg)
	if err != nil {
		t.Skipf("skipping integration test: postgres unavailable: %v", err)
	}
	return client
}

func skipIfNoRedis(t *testing.T) *redis.Client {
	t.Helper()
	client, err := redis.NewClient(t.Context(), config.RedisConfig{
		Addr:     envOrDefault("TEST_REDIS_ADDR", "localhost:6379"),
		PoolSize: 4,
	})
	if err != nil {
		t.Skipf("skipping integration test: redis unavailable: %v", err)
	}
	return client
}

func writeFinal(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "final.jsonl")
	err := artifact.WriteFinal(path, []index.TermEntry{
		{Term: "cat", Documents: []string{"d1", "d2"}},
		{Term: "dog", Documents: []string{"d2"}},
		{Term: "sat", Documents: []string{"d1"}},
	})
	if err != nil {
		t.Fatalf("writing final index: %v", err)
	}
	return path
}

func publishConfig() config.PublishConfig {
	return config.PublishConfig{
		BatchSize: 2,
		Retry:     config.RetryConfig{MaxAttempts: 2, InitialDelay: 50 * time.Millisecond, AttemptTimeout: 10 * time.Second},
	}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

// TestPostgresSinkReplacesTable publishes twice and checks that the second
// publish fully replaces the first.
func TestPostgresSinkReplacesTable(t *testing.T) {
	client := skipIfNoPostgres(t)
	p := publish.NewPublisher(publish.NewPostgresSink(client), publishConfig(), nil)
	defer p.Close()
	ctx := context.Background()
	path := writeFinal(t)

	for range 2 {
		n, err := p.Publish(ctx, path)
		if err != nil {
			t.Fatalf("publish: %v", err)
		}
		if n != 3 {
			t.Fatalf("expected 3 entries published, got %d", n)
		}
	}

	var count int
	if err := client.DB.QueryRowContext(ctx, "SELECT count(*) FROM "+pq.QuoteIdentifier(client.Table())).Scan(&count); err != nil {
		t.Fatalf("counting rows: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 rows, got %d", count)
	}

	var docs []string
	var docCount int
	row := client.DB.QueryRowContext(ctx,
		"SELECT documents, document_count FROM "+pq.QuoteIdentifier(client.Table())+" WHERE term = $1", "cat")
	if err := row.Scan(pq.Array(&docs), &docCount); err != nil {
		if err == sql.ErrNoRows {
			t.Fatal("term cat not published")
		}
		t.Fatalf("reading cat: %v", err)
	}
	if docCount != 2 || len(docs) != 2 || docs[0] != "d1" || docs[1] != "d2" {
		t.Errorf("unexpected posting for cat: %v (%d)", docs, docCount)
	}
}

// TestRedisSinkStoresLists publishes into Redis under a per-test prefix.
func TestRedisSinkStoresLists(t *testing.T) {
	client := skipIfNoRedis(t)
	prefix := "it:" + strconv.FormatInt(time.Now().UnixNano(), 36) + ":"
	sink := publish.NewRedisSink(client, prefix, time.Minute)
	p := publish.NewPublisher(sink, publishConfig(), nil)
	defer p.Close()
	ctx := context.Background()

	if _, err := p.Publish(ctx, writeFinal(t)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	docs, err := client.List(ctx, sink.Key("cat"))
	if err != nil {
		t.Fatalf("reading list: %v", err)
	}
	if len(docs) != 2 || docs[0] != "d1" || docs[1] != "d2" {
		t.Errorf("unexpected posting for cat: %v", docs)
	}
	if _, err := client.FlushByPattern(ctx, prefix+"*"); err != nil {
		t.Errorf("cleanup: %v", err)
	}
}
