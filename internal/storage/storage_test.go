package storage

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"rhythmcore/internal/analyzer"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	dir := t.TempDir()
	db, err := Open(dir, logger)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestChartRoundTrip(t *testing.T) {
	db := openTestDB(t)

	rec := &ChartRecord{
		ContentHash: "abc123",
		Difficulty:  "hard",
		AudioPath:   "/music/song.mp3",
		CachePath:   "/music/song.hard.chart.json",
		AudioMtime:  time.Now().Truncate(time.Second),
		BPM:         128,
		NoteCount:   42,
	}
	if _, err := db.UpsertChart(rec); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	loaded, err := db.GetChart("abc123", "hard")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded.BPM != 128 || loaded.NoteCount != 42 {
		t.Fatalf("unexpected record: %+v", loaded)
	}
}

func TestChartUpsertOverwrites(t *testing.T) {
	db := openTestDB(t)

	rec := &ChartRecord{ContentHash: "abc", Difficulty: "easy", AudioPath: "/a.mp3", CachePath: "/a.easy.chart.json", AudioMtime: time.Now(), BPM: 100, NoteCount: 10}
	if _, err := db.UpsertChart(rec); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	rec.BPM = 110
	rec.NoteCount = 15
	if _, err := db.UpsertChart(rec); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	loaded, err := db.GetChart("abc", "easy")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded.BPM != 110 || loaded.NoteCount != 15 {
		t.Fatalf("expected overwrite, got %+v", loaded)
	}
}

func TestFeatureBlobRoundTrip(t *testing.T) {
	db := openTestDB(t)

	f := &analyzer.Features{
		SampleRate:  22050,
		DurationSec: 12.5,
		OnsetTimes:  []float64{1, 2, 3},
		TempoBPM:    128,
	}
	hash, err := db.PutFeatures("contenthash1", f)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if hash == "" {
		t.Fatalf("expected non-empty hash")
	}

	loaded, err := db.GetFeatures("contenthash1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded.TempoBPM != 128 || loaded.SampleRate != 22050 {
		t.Fatalf("unexpected features: %+v", loaded)
	}
}

func TestGenerationJobLifecycle(t *testing.T) {
	db := openTestDB(t)

	id, err := db.EnqueueGeneration("/a.mp3", "hard")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	job, err := db.ClaimNextGeneration()
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if job == nil || job.ID != id {
		t.Fatalf("expected to claim job %d, got %+v", id, job)
	}
	if job.Status != JobStatusRunning {
		t.Fatalf("expected running status, got %v", job.Status)
	}
	if job.AudioPath != "/a.mp3" || job.Difficulty != "hard" {
		t.Fatalf("unexpected job fields: %+v", job)
	}

	if err := db.CompleteGeneration(job.ID, "/a.hard.chart.json", 99); err != nil {
		t.Fatalf("complete: %v", err)
	}

	again, err := db.ClaimNextGeneration()
	if err != nil {
		t.Fatalf("claim after complete: %v", err)
	}
	if again != nil {
		t.Fatalf("expected no pending jobs after completion, got %+v", again)
	}
}

func TestGenerationJobRetryAfterFailure(t *testing.T) {
	db := openTestDB(t)

	id, err := db.EnqueueGeneration("/b.mp3", "expert")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	job, err := db.ClaimNextGeneration()
	if err != nil || job == nil {
		t.Fatalf("claim: %v", err)
	}

	if err := db.FailGeneration(job.ID, "decode failed"); err != nil {
		t.Fatalf("fail: %v", err)
	}
	if err := db.RetryGeneration(id); err != nil {
		t.Fatalf("retry: %v", err)
	}

	retried, err := db.ClaimNextGeneration()
	if err != nil {
		t.Fatalf("claim after retry: %v", err)
	}
	if retried == nil || retried.ID != id {
		t.Fatalf("expected retried job %d to be claimable again, got %+v", id, retried)
	}
	if retried.Attempts != 2 {
		t.Fatalf("expected attempts = 2 after retry, got %d", retried.Attempts)
	}
}

func TestPendingGenerationCountAndResetStalled(t *testing.T) {
	db := openTestDB(t)

	if _, err := db.EnqueueGeneration("/c.mp3", "medium"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	count, err := db.PendingGenerationCount()
	if err != nil {
		t.Fatalf("pending count: %v", err)
	}
	if count != 1 {
		t.Fatalf("pending count = %d, want 1", count)
	}

	job, err := db.ClaimNextGeneration()
	if err != nil || job == nil {
		t.Fatalf("claim: %v", err)
	}

	reset, err := db.ResetStalledGenerations(0)
	if err != nil {
		t.Fatalf("reset stalled: %v", err)
	}
	if reset != 1 {
		t.Fatalf("expected 1 stalled job reset, got %d", reset)
	}
}

func TestBackupAndRestore(t *testing.T) {
	db := openTestDB(t)
	rec := &ChartRecord{ContentHash: "xyz", Difficulty: "hard", AudioPath: "/b.mp3", CachePath: "/b.hard.chart.json", AudioMtime: time.Now(), BPM: 140, NoteCount: 20}
	if _, err := db.UpsertChart(rec); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	backupDir := t.TempDir()
	path, meta, err := db.CreateBackup(backupDir)
	if err != nil {
		t.Fatalf("backup: %v", err)
	}
	if meta.ChartCount != 1 {
		t.Fatalf("expected chart count 1, got %d", meta.ChartCount)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("backup file missing: %v", err)
	}
}

func TestIntegrityCheck(t *testing.T) {
	db := openTestDB(t)
	if err := db.IntegrityCheck(); err != nil {
		t.Fatalf("integrity check: %v", err)
	}
}
