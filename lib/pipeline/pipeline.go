// Package pipeline runs the weekly recommendation job end to end: extract
// interactions from the logs, split, fit, evaluate, and publish the top-N
// list for the target subscriber.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/icco/vodrec/lib/config"
	"github.com/icco/vodrec/lib/eval"
	"github.com/icco/vodrec/lib/extract"
	"github.com/icco/vodrec/lib/recommend"
	"github.com/icco/vodrec/lib/split"
	"github.com/icco/vodrec/lib/storage"
	"github.com/icco/vodrec/lib/svd"
	"github.com/icco/vodrec/lib/types"
	"github.com/icco/vodrec/models"
	"gorm.io/gorm"
)

// Pipeline owns everything one run needs. The rating matrix and fitted model
// live only inside Run; nothing is shared between runs.
type Pipeline struct {
	db         *gorm.DB
	store      storage.ObjectStore
	objectName string
	cfg        config.PipelineConfig
	modelCfg   config.ModelConfig
	logger     *slog.Logger
}

// New assembles a pipeline against the given database and sink.
func New(db *gorm.DB, store storage.ObjectStore, objectName string, cfg config.PipelineConfig, modelCfg config.ModelConfig, logger *slog.Logger) *Pipeline {
	if objectName == "" {
		objectName = storage.DefaultObjectName
	}
	return &Pipeline{
		db:         db,
		store:      store,
		objectName: objectName,
		cfg:        cfg,
		modelCfg:   modelCfg,
		logger:     logger,
	}
}

// Run executes one full pipeline pass. A Run record is persisted whether the
// pass succeeds or fails; on failure nothing is written to the sink. Data and
// insufficient-data errors fail immediately, while transient database and
// sink errors are retried with a fixed delay up to the configured bound.
func (p *Pipeline) Run(ctx context.Context) (*models.Run, error) {
	run := &models.Run{
		RunID:     uuid.NewString(),
		Status:    "failed",
		StartedAt: time.Now(),
	}
	logger := p.logger.With(slog.String("run_id", run.RunID))
	defer p.saveRun(run, logger)

	logger.Info("Starting recommendation run")

	var snap *extract.Snapshot
	err := p.retryStage(ctx, logger, "extract", func() error {
		var loadErr error
		snap, loadErr = extract.Load(ctx, p.db)
		return loadErr
	})
	if err != nil {
		return run, p.fail(run, fmt.Errorf("extract stage: %w", err))
	}

	interactions, err := extract.Interactions(snap.Watch, snap.Content)
	if err != nil {
		return run, p.fail(run, fmt.Errorf("extract stage: %w", err))
	}
	run.Interactions = len(interactions)
	logger.Info("Extracted interactions",
		slog.Int("interactions", len(interactions)),
		slog.Int("watch_events", len(snap.Watch)),
		slog.Int("content_events", len(snap.Content)),
		slog.Int("items", len(snap.Items)))

	res, err := split.Holdout(interactions, p.cfg.HoldoutFraction, p.cfg.Seed)
	if err != nil {
		return run, p.fail(run, fmt.Errorf("split stage: %w", err))
	}
	for _, in := range res.Train {
		if in.Rated {
			run.TrainRatings++
		}
	}
	run.TestRatings = len(res.Test)
	logger.Info("Split interactions",
		slog.Int("train_ratings", run.TrainRatings),
		slog.Int("test_ratings", run.TestRatings))

	model := svd.Fit(res.Train, svd.Config{
		Factors:        p.modelCfg.Factors,
		Epochs:         p.modelCfg.Epochs,
		LearningRate:   p.modelCfg.LearningRate,
		Regularization: p.modelCfg.Regularization,
		InitStdDev:     p.modelCfg.InitStdDev,
		Seed:           p.cfg.Seed,
	}, logger)
	matrix := types.NewMatrix(res.Train)

	rmse, err := eval.RMSE(model, res.Test)
	if err != nil {
		return run, p.fail(run, fmt.Errorf("evaluate stage: %w", err))
	}
	precision, recall := eval.PrecisionRecallAtN(model, matrix, res.Test, p.cfg.TopN)
	run.RMSE = rmse
	run.Precision = precision
	run.Recall = recall
	logger.Info("Evaluated model",
		slog.Float64("rmse", rmse),
		slog.Float64("precision", precision),
		slog.Float64("recall", recall),
		slog.Int("top_n", p.cfg.TopN))

	recs := recommend.TopN(model, matrix, p.cfg.TargetSubscriber, p.cfg.TopN)
	data, err := storage.EncodeRecommendations(recs)
	if err != nil {
		return run, p.fail(run, fmt.Errorf("serialize stage: %w", err))
	}

	err = p.retryStage(ctx, logger, "upload", func() error {
		return p.store.Put(ctx, p.objectName, data)
	})
	if err != nil {
		return run, p.fail(run, fmt.Errorf("upload stage: %w", err))
	}
	run.ObjectName = p.objectName

	run.Status = "succeeded"
	logger.Info("Run finished",
		slog.Int("recommendations", len(recs)),
		slog.String("object", p.objectName))
	return run, nil
}

func (p *Pipeline) fail(run *models.Run, err error) error {
	run.Error = err.Error()
	return err
}

func (p *Pipeline) saveRun(run *models.Run, logger *slog.Logger) {
	run.FinishedAt = time.Now()
	if err := p.db.Create(run).Error; err != nil {
		logger.Error("Failed to save run record", slog.Any("error", err))
	}
}

// retryStage runs op with the pipeline's fixed-delay retry policy.
func (p *Pipeline) retryStage(ctx context.Context, logger *slog.Logger, stage string, op func() error) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.cfg.RetryDelay), uint64(p.cfg.RetryAttempts)),
		ctx)

	return backoff.RetryNotify(op, policy, func(err error, wait time.Duration) {
		logger.Warn("Stage failed, retrying",
			slog.String("stage", stage),
			slog.Any("error", err),
			slog.Duration("wait", wait))
	})
}
