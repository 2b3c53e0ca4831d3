//go:build integration

package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbIntegrationPrefix = "db:integration_test"

// setupIntegrationPool connects to DATABASE_URL, applies migrations and clears the log.
func setupIntegrationPool(t *testing.T) (context.Context, *pgxpool.Pool) {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skipf("%s - DATABASE_URL not set, skipping", dbIntegrationPrefix)
	}
	ctx := context.Background()

	pool, err := NewPool(ctx, url)
	if err != nil {
		t.Fatalf("%s - NewPool failed: %v", dbIntegrationPrefix, err)
	}
	t.Cleanup(pool.Close)

	migrationSQL, err := LoadMigrationFiles(filepath.Join("..", "..", "migrations"))
	if err != nil {
		t.Fatalf("%s - LoadMigrationFiles failed: %v", dbIntegrationPrefix, err)
	}
	if err := RunMigrations(ctx, pool, migrationSQL); err != nil {
		t.Fatalf("%s - RunMigrations failed: %v", dbIntegrationPrefix, err)
	}
	if err := ClearInvocationLog(ctx, pool); err != nil {
		t.Fatalf("%s - ClearInvocationLog failed: %v", dbIntegrationPrefix, err)
	}
	return ctx, pool
}

func newRecord(actorID, outcome string, created time.Time) *InvocationRecord {
	return &InvocationRecord{
		InvocationID: uuid.NewString(),
		Origin:       "wasmbus://wascc:http_server/default",
		Target:       "wasmbus://" + actorID,
		ActorID:      actorID,
		Operation:    "HandleRequest",
		PayloadSize:  42,
		Outcome:      outcome,
		DurationMs:   3,
		Created:      created,
	}
}

func TestIntegration_RecordAndList(t *testing.T) {
	ctx, pool := setupIntegrationPool(t)
	repo := NewRepository(pool)

	base := time.Now().UTC().Truncate(time.Millisecond)
	first := newRecord("echo", "ok", base)
	second := newRecord("echo", "error", base.Add(time.Second))
	errText := "boom"
	second.ErrorText = &errText
	other := newRecord("other", "ok", base.Add(2*time.Second))

	for _, rec := range []*InvocationRecord{first, second, other} {
		if err := repo.RecordInvocation(ctx, rec); err != nil {
			t.Fatalf("%s - RecordInvocation failed: %v", dbIntegrationPrefix, err)
		}
	}
	// Duplicate ids are ignored.
	if err := repo.RecordInvocation(ctx, first); err != nil {
		t.Fatalf("%s - duplicate RecordInvocation failed: %v", dbIntegrationPrefix, err)
	}

	got, err := repo.ListInvocations(ctx, "echo", 10)
	if err != nil {
		t.Fatalf("%s - ListInvocations failed: %v", dbIntegrationPrefix, err)
	}
	if len(got) != 2 {
		t.Fatalf("%s - expected 2 rows for echo, got %d", dbIntegrationPrefix, len(got))
	}
	if got[0].InvocationID != second.InvocationID {
		t.Errorf("%s - expected newest first", dbIntegrationPrefix)
	}
	if got[0].ErrorText == nil || *got[0].ErrorText != "boom" {
		t.Errorf("%s - ErrorText not persisted", dbIntegrationPrefix)
	}

	all, err := repo.ListInvocations(ctx, "", 0)
	if err != nil {
		t.Fatalf("%s - ListInvocations(all) failed: %v", dbIntegrationPrefix, err)
	}
	if len(all) != 3 {
		t.Errorf("%s - expected 3 rows overall, got %d", dbIntegrationPrefix, len(all))
	}

	counts, err := repo.CountByOutcome(ctx, "echo")
	if err != nil {
		t.Fatalf("%s - CountByOutcome failed: %v", dbIntegrationPrefix, err)
	}
	if len(counts) != 2 || counts[0].Outcome != "error" || counts[0].Count != 1 || counts[1].Count != 1 {
		t.Errorf("%s - unexpected counts %+v", dbIntegrationPrefix, counts)
	}
}

func TestIntegration_MigrationStatus(t *testing.T) {
	ctx, pool := setupIntegrationPool(t)

	status, err := MigrationStatus(ctx, pool, filepath.Join("..", "..", "migrations"))
	if err != nil {
		t.Fatalf("%s - MigrationStatus failed: %v", dbIntegrationPrefix, err)
	}
	if status == "" || status[:7] != "applied" {
		t.Errorf("%s - status = %q, want applied", dbIntegrationPrefix, status)
	}
}
