package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/icco/vodrec/lib/lock"
	"github.com/icco/vodrec/lib/pipeline"
	"github.com/icco/vodrec/models"
	"gorm.io/gorm"
)

func writeJSON(w http.ResponseWriter, v any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", slog.Any("error", err))
	}
}

func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, map[string]string{"error": message}, status)
}

// HandleCron kicks one pipeline run in the background. The external
// scheduler hits this weekly; overlapping triggers are refused while a run
// holds the lock.
func HandleCron(p *pipeline.Pipeline, runLock *lock.RunLock, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		acquired, err := runLock.TryAcquire()
		if err != nil {
			logger.Error("Failed to acquire run lock", slog.Any("error", err))
			writeError(w, "failed to acquire run lock", http.StatusInternalServerError)
			return
		}
		if !acquired {
			writeError(w, "a run is already in progress", http.StatusConflict)
			return
		}

		go func() {
			defer func() {
				if err := runLock.Release(); err != nil {
					logger.Error("Failed to release run lock", slog.Any("error", err))
				}
			}()

			if _, err := p.Run(context.Background()); err != nil {
				logger.Error("Run failed", slog.Any("error", err))
			}
		}()

		fmt.Fprintln(w, "Started recommendation run")
	}
}

// HandleLatestRun returns the most recently finished run record.
func HandleLatestRun(db *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var run models.Run
		result := db.WithContext(req.Context()).Order("finished_at desc").First(&run)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				writeError(w, "no runs recorded yet", http.StatusNotFound)
			} else {
				slog.Error("Failed to load latest run", slog.Any("error", result.Error))
				writeError(w, "failed to load latest run", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, run, http.StatusOK)
	}
}
