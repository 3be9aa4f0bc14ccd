package storage_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/hazz-dev/hodorprobe/internal/probe"
	"github.com/hazz-dev/hodorprobe/internal/storage"
)

func openTestDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening in-memory DB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func makeResult(path string, status probe.Status, responseMs int64) probe.Result {
	code := 200
	if status == probe.StatusDown {
		code = 503
	}
	return probe.Result{
		RunID:        "run-1",
		Path:         path,
		URL:          "http://localhost:8080" + path,
		Status:       status,
		StatusCode:   code,
		Body:         "ok",
		ResponseTime: time.Duration(responseMs) * time.Millisecond,
		CheckedAt:    time.Now().UTC(),
	}
}

func TestOpen_CreatesSchema(t *testing.T) {
	db := openTestDB(t)
	// If we can insert, schema is correct.
	err := db.InsertResult(context.Background(), makeResult("/health", probe.StatusUp, 42))
	if err != nil {
		t.Fatalf("InsertResult after Open: %v", err)
	}
}

func TestInsertResult_And_LatestResult(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	r := makeResult("/health", probe.StatusUp, 42)
	if err := db.InsertResult(ctx, r); err != nil {
		t.Fatalf("InsertResult: %v", err)
	}

	got, err := db.LatestResult(ctx, "/health")
	if err != nil {
		t.Fatalf("LatestResult: %v", err)
	}
	if got == nil {
		t.Fatal("expected a result, got nil")
	}
	if got.Path != "/health" {
		t.Errorf("expected path '/health', got %q", got.Path)
	}
	if got.Status != "up" {
		t.Errorf("expected status 'up', got %q", got.Status)
	}
	if got.StatusCode != 200 {
		t.Errorf("expected status code 200, got %d", got.StatusCode)
	}
	if got.ResponseMs != 42 {
		t.Errorf("expected 42ms, got %d", got.ResponseMs)
	}
	if got.RunID != "run-1" {
		t.Errorf("expected run ID 'run-1', got %q", got.RunID)
	}
	if got.Preview != "ok" {
		t.Errorf("expected preview 'ok', got %q", got.Preview)
	}
}

func TestInsertResult_StoresPreviewOnly(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	r := makeResult("/api/tools", probe.StatusUp, 5)
	r.Body = strings.Repeat("t", 500)
	if err := db.InsertResult(ctx, r); err != nil {
		t.Fatal(err)
	}

	got, err := db.LatestResult(ctx, "/api/tools")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Preview) != probe.PreviewLength {
		t.Errorf("expected %d-char preview, got %d", probe.PreviewLength, len(got.Preview))
	}
}

func TestInsertResult_EmptyStatusStoredAsDown(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	r := makeResult("/ready", "", 0)
	r.Error = "connection refused"
	if err := db.InsertResult(ctx, r); err != nil {
		t.Fatalf("InsertResult: %v", err)
	}
	got, err := db.LatestResult(ctx, "/ready")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != "down" {
		t.Errorf("expected 'down', got %q", got.Status)
	}
}

func TestLatestResult_ReturnsNilWhenEmpty(t *testing.T) {
	db := openTestDB(t)
	got, err := db.LatestResult(context.Background(), "/nonexistent")
	if err != nil {
		t.Fatalf("LatestResult: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for unknown path, got %+v", got)
	}
}

func TestLatestResult_ReturnsMostRecent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	r1 := makeResult("/health", probe.StatusDown, 10)
	r1.CheckedAt = time.Now().Add(-2 * time.Minute).UTC()
	r2 := makeResult("/health", probe.StatusUp, 20)
	r2.CheckedAt = time.Now().Add(-1 * time.Minute).UTC()

	if err := db.InsertResult(ctx, r1); err != nil {
		t.Fatal(err)
	}
	if err := db.InsertResult(ctx, r2); err != nil {
		t.Fatal(err)
	}

	got, err := db.LatestResult(ctx, "/health")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != "up" {
		t.Errorf("expected latest to be 'up', got %q", got.Status)
	}
}

func TestLatestResult_SubSecondOrdering(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	onSecond := time.Date(2026, 1, 2, 12, 0, 5, 0, time.UTC)
	earlier := makeResult("/health", probe.StatusUp, 10)
	earlier.RunID = "a"
	earlier.CheckedAt = onSecond
	later := makeResult("/health", probe.StatusDown, 10)
	later.RunID = "b"
	later.CheckedAt = onSecond.Add(500 * time.Millisecond)

	// Inserted out of time order so only checked_at can decide.
	if err := db.InsertResult(ctx, later); err != nil {
		t.Fatal(err)
	}
	if err := db.InsertResult(ctx, earlier); err != nil {
		t.Fatal(err)
	}

	got, err := db.LatestResult(ctx, "/health")
	if err != nil {
		t.Fatal(err)
	}
	if got.RunID != "b" || got.Status != "down" {
		t.Errorf("expected run b (down) as latest, got run %s (%s)", got.RunID, got.Status)
	}
	if !got.CheckedAt.Equal(later.CheckedAt) {
		t.Errorf("expected checked_at %v, got %v", later.CheckedAt, got.CheckedAt)
	}

	history, _, err := db.PathHistory(ctx, "/health", 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 || history[0].RunID != "b" || history[1].RunID != "a" {
		t.Errorf("expected history newest first [b a], got %+v", history)
	}

	pct, err := db.UptimePercent(ctx, "/health", 1)
	if err != nil {
		t.Fatal(err)
	}
	if pct != 0 {
		t.Errorf("expected 0%% uptime over the newest result, got %.1f", pct)
	}
}

func TestPathHistory_Pagination(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		r := makeResult("/health", probe.StatusUp, int64(i))
		r.CheckedAt = time.Now().Add(time.Duration(i) * time.Second).UTC()
		if err := db.InsertResult(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	probes, total, err := db.PathHistory(ctx, "/health", 5, 0)
	if err != nil {
		t.Fatalf("PathHistory: %v", err)
	}
	if total != 10 {
		t.Errorf("expected total 10, got %d", total)
	}
	if len(probes) != 5 {
		t.Errorf("expected 5 results, got %d", len(probes))
	}

	// Second page
	probes2, total2, err := db.PathHistory(ctx, "/health", 5, 5)
	if err != nil {
		t.Fatal(err)
	}
	if total2 != 10 {
		t.Errorf("expected total 10 on page 2, got %d", total2)
	}
	if len(probes2) != 5 {
		t.Errorf("expected 5 results on page 2, got %d", len(probes2))
	}
}

func TestPathHistory_EmptyDB(t *testing.T) {
	db := openTestDB(t)
	probes, total, err := db.PathHistory(context.Background(), "/health", 10, 0)
	if err != nil {
		t.Fatalf("PathHistory: %v", err)
	}
	if total != 0 {
		t.Errorf("expected total 0, got %d", total)
	}
	if len(probes) != 0 {
		t.Errorf("expected 0 results, got %d", len(probes))
	}
}

func TestAllLatest_ReturnsOnePerPath(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		r := makeResult("/health", probe.StatusUp, int64(i))
		r.CheckedAt = time.Now().Add(time.Duration(i) * time.Second).UTC()
		if err := db.InsertResult(ctx, r); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < 2; i++ {
		r := makeResult("/ready", probe.StatusDown, int64(i))
		r.CheckedAt = time.Now().Add(time.Duration(i) * time.Second).UTC()
		if err := db.InsertResult(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	all, err := db.AllLatest(ctx)
	if err != nil {
		t.Fatalf("AllLatest: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 paths, got %d", len(all))
	}

	byPath := make(map[string]storage.Probe)
	for _, p := range all {
		byPath[p.Path] = p
	}
	if byPath["/health"].Status != "up" {
		t.Errorf("expected /health status 'up', got %q", byPath["/health"].Status)
	}
	if byPath["/ready"].Status != "down" {
		t.Errorf("expected /ready status 'down', got %q", byPath["/ready"].Status)
	}
}

func TestAllLatest_EmptyDB(t *testing.T) {
	db := openTestDB(t)
	all, err := db.AllLatest(context.Background())
	if err != nil {
		t.Fatalf("AllLatest: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("expected 0 results, got %d", len(all))
	}
}

func TestLatestRun_ReturnsLastRunInOrder(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	for _, run := range []string{"run-a", "run-b"} {
		for _, path := range []string{"/health", "/ready", "/api/tools"} {
			r := makeResult(path, probe.StatusUp, 1)
			r.RunID = run
			if err := db.InsertResult(ctx, r); err != nil {
				t.Fatal(err)
			}
		}
	}

	got, err := db.LatestRun(ctx)
	if err != nil {
		t.Fatalf("LatestRun: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 results, got %d", len(got))
	}
	for i, want := range []string{"/health", "/ready", "/api/tools"} {
		if got[i].RunID != "run-b" {
			t.Errorf("result %d: expected run-b, got %q", i, got[i].RunID)
		}
		if got[i].Path != want {
			t.Errorf("result %d: expected %q, got %q", i, want, got[i].Path)
		}
	}
}

func TestLatestRun_EmptyDB(t *testing.T) {
	db := openTestDB(t)
	got, err := db.LatestRun(context.Background())
	if err != nil {
		t.Fatalf("LatestRun: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected 0 results, got %d", len(got))
	}
}

func TestUptimePercent_AllUp(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if err := db.InsertResult(ctx, makeResult("/health", probe.StatusUp, 10)); err != nil {
			t.Fatal(err)
		}
	}

	pct, err := db.UptimePercent(ctx, "/health", 10)
	if err != nil {
		t.Fatalf("UptimePercent: %v", err)
	}
	if pct != 100.0 {
		t.Errorf("expected 100%%, got %.2f", pct)
	}
}

func TestUptimePercent_HalfUp(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := db.InsertResult(ctx, makeResult("/health", probe.StatusUp, 10)); err != nil {
			t.Fatal(err)
		}
		if err := db.InsertResult(ctx, makeResult("/health", probe.StatusDown, 10)); err != nil {
			t.Fatal(err)
		}
	}

	pct, err := db.UptimePercent(ctx, "/health", 10)
	if err != nil {
		t.Fatalf("UptimePercent: %v", err)
	}
	if pct != 50.0 {
		t.Errorf("expected 50%%, got %.2f", pct)
	}
}

func TestUptimePercent_EmptyDB(t *testing.T) {
	db := openTestDB(t)
	pct, err := db.UptimePercent(context.Background(), "/health", 100)
	if err != nil {
		t.Fatalf("UptimePercent: %v", err)
	}
	if pct != 0.0 {
		t.Errorf("expected 0%%, got %.2f", pct)
	}
}

func TestClose(t *testing.T) {
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
