package svd

import (
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/icco/vodrec/lib/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func polarizedTrain() []types.Interaction {
	// Item 10 is loved, item 20 is abandoned immediately.
	return []types.Interaction{
		{SubscriberID: 1, ItemID: 10, Rating: 1.0, Rated: true},
		{SubscriberID: 1, ItemID: 20, Rating: 0.0, Rated: true},
		{SubscriberID: 2, ItemID: 10, Rating: 1.0, Rated: true},
		{SubscriberID: 2, ItemID: 20, Rating: 0.0, Rated: true},
	}
}

func TestFitLearnsItemPreferences(t *testing.T) {
	cfg := Config{
		Factors:        2,
		Epochs:         500,
		LearningRate:   0.05,
		Regularization: 0.02,
		InitStdDev:     0.1,
		Seed:           1,
	}

	m := Fit(polarizedTrain(), cfg, testLogger())

	if got := m.Predict(1, 10); got < 0.85 {
		t.Errorf("Predict(1, 10) = %g, want >= 0.85 for a consistently loved item", got)
	}
	if got := m.Predict(1, 20); got > 0.15 {
		t.Errorf("Predict(1, 20) = %g, want <= 0.15 for a consistently dropped item", got)
	}
}

func TestFitDeterministicForSeed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Seed = 42

	a := Fit(polarizedTrain(), cfg, testLogger())
	b := Fit(polarizedTrain(), cfg, testLogger())

	for _, in := range polarizedTrain() {
		pa := a.Predict(in.SubscriberID, in.ItemID)
		pb := b.Predict(in.SubscriberID, in.ItemID)
		if pa != pb {
			t.Errorf("same seed, Predict(%d, %d) differs: %g vs %g", in.SubscriberID, in.ItemID, pa, pb)
		}
	}
}

func TestPredictColdStart(t *testing.T) {
	cfg := DefaultConfig()
	m := Fit(polarizedTrain(), cfg, testLogger())

	wantMean := 0.5
	if math.Abs(m.Mean()-wantMean) > 1e-12 {
		t.Fatalf("Mean() = %g, want %g", m.Mean(), wantMean)
	}

	tests := []struct {
		name         string
		subscriberID int
		itemID       int
	}{
		{"unseen subscriber", 99, 10},
		{"unseen item", 1, 999},
		{"both unseen", 99, 999},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.Predict(tt.subscriberID, tt.itemID); got != wantMean {
				t.Errorf("Predict(%d, %d) = %g, want global mean %g", tt.subscriberID, tt.itemID, got, wantMean)
			}
		})
	}
}

func TestPredictClippedToRatingRange(t *testing.T) {
	cfg := Config{
		Factors:        4,
		Epochs:         200,
		LearningRate:   0.1,
		Regularization: 0.001,
		InitStdDev:     0.5,
		Seed:           3,
	}
	m := Fit(polarizedTrain(), cfg, testLogger())

	for _, sub := range []int{1, 2, 99} {
		for _, item := range []int{10, 20, 999} {
			got := m.Predict(sub, item)
			if got < 0 || got > 1 {
				t.Errorf("Predict(%d, %d) = %g outside [0, 1]", sub, item, got)
			}
		}
	}
}

func TestFitIgnoresUnratedRows(t *testing.T) {
	train := append(polarizedTrain(), types.Interaction{SubscriberID: 7, ItemID: 70})
	m := Fit(train, DefaultConfig(), testLogger())

	// The unrated pair must not register its subscriber or item, so both
	// fall back to the cold-start mean.
	if got := m.Predict(7, 70); got != m.Mean() {
		t.Errorf("Predict(7, 70) = %g, want cold-start mean %g", got, m.Mean())
	}
}

func TestFitEmptyTrain(t *testing.T) {
	m := Fit(nil, DefaultConfig(), testLogger())

	if got := m.Predict(1, 1); got != 0 {
		t.Errorf("Predict on empty model = %g, want 0", got)
	}
}
