package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/icco/vodrec/lib/config"
	"github.com/icco/vodrec/lib/db"
	"github.com/icco/vodrec/lib/lock"
	"github.com/icco/vodrec/lib/pipeline"
	"github.com/icco/vodrec/lib/storage"
	"github.com/icco/vodrec/models"
	"gorm.io/gorm"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.Open(config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "handlers.db"),
	}, testLogger())
	if err != nil {
		t.Fatalf("db.Open() error = %v", err)
	}
	return gdb
}

func TestHandleLatestRun(t *testing.T) {
	gdb := openTestDB(t)
	handler := HandleLatestRun(gdb)

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest("GET", "/runs/latest", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 before any run", rec.Code)
	}

	runs := []models.Run{
		{RunID: "old", Status: "failed", FinishedAt: time.Now().Add(-time.Hour)},
		{RunID: "new", Status: "succeeded", FinishedAt: time.Now()},
	}
	if err := gdb.Create(&runs).Error; err != nil {
		t.Fatalf("seed runs: %v", err)
	}

	rec = httptest.NewRecorder()
	handler(rec, httptest.NewRequest("GET", "/runs/latest", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var got models.Run
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if got.RunID != "new" {
		t.Errorf("RunID = %q, want the most recent run", got.RunID)
	}
}

func TestHandleCronRefusesOverlap(t *testing.T) {
	gdb := openTestDB(t)
	store, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore() error = %v", err)
	}

	p := pipeline.New(gdb, store, "recommendation.json",
		config.PipelineConfig{HoldoutFraction: 0.25, TopN: 10, RetryAttempts: 1, RetryDelay: time.Millisecond},
		config.ModelConfig{}, testLogger())

	runLock := lock.New(testLogger())
	t.Cleanup(func() { _ = runLock.Release() })
	if acquired, err := runLock.TryAcquire(); err != nil || !acquired {
		t.Fatalf("TryAcquire() = %v, %v", acquired, err)
	}

	rec := httptest.NewRecorder()
	HandleCron(p, runLock, testLogger())(rec, httptest.NewRequest("POST", "/cron", nil))
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409 while a run holds the lock", rec.Code)
	}
}
