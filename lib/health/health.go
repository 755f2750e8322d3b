// Package health reports service liveness: database reachability and the
// outcome of the most recent pipeline run.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"log/slog"

	"github.com/icco/vodrec/models"
	"gorm.io/gorm"
)

// Health is the health check response.
type Health struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	DB        struct {
		Status  string `json:"status"`
		Message string `json:"message,omitempty"`
	} `json:"db"`
	LastRun *RunSummary `json:"last_run,omitempty"`
}

// RunSummary is the slice of a run record worth exposing on the health page.
type RunSummary struct {
	RunID      string    `json:"run_id"`
	Status     string    `json:"status"`
	FinishedAt time.Time `json:"finished_at"`
}

// Check returns a handler that pings the database and reports the latest
// run, if any.
func Check(db *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := Health{
			Status:    "ok",
			Timestamp: time.Now(),
		}

		sqlDB, err := db.DB()
		if err != nil {
			health.Status = "degraded"
			health.DB.Status = "error"
			health.DB.Message = "Failed to get database connection"
			writeHealth(w, health, http.StatusServiceUnavailable)
			return
		}

		if err := sqlDB.PingContext(ctx); err != nil {
			health.Status = "degraded"
			health.DB.Status = "error"
			health.DB.Message = "Database ping failed"
			writeHealth(w, health, http.StatusServiceUnavailable)
			return
		}
		health.DB.Status = "ok"

		var run models.Run
		if err := db.WithContext(ctx).Order("finished_at desc").First(&run).Error; err == nil {
			health.LastRun = &RunSummary{
				RunID:      run.RunID,
				Status:     run.Status,
				FinishedAt: run.FinishedAt,
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			slog.Error("Failed to load latest run for health check", slog.Any("error", err))
		}

		writeHealth(w, health, http.StatusOK)
	}
}

func writeHealth(w http.ResponseWriter, health Health, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(health); err != nil {
		slog.Error("Failed to encode health response", slog.Any("error", err))
	}
}
