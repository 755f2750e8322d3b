// Package svd fits a biased matrix-factorization model to implicit ratings
// by stochastic gradient descent. A fitted Model is plain immutable data;
// fitting again produces a fresh Model and never mutates an existing one.
package svd

import (
	"log/slog"
	"math/rand"

	"github.com/icco/vodrec/lib/types"
)

// Config contains the training hyperparameters.
type Config struct {
	// Factors is the dimension of the latent factor vectors.
	// Default: 100.
	Factors int

	// Epochs is the number of SGD passes over the training ratings.
	// Default: 20.
	Epochs int

	// LearningRate is the SGD step size.
	// Default: 0.005.
	LearningRate float64

	// Regularization is the L2 penalty applied to biases and factors.
	// Default: 0.02.
	Regularization float64

	// InitStdDev is the standard deviation of the normal distribution the
	// factors are initialized from.
	// Default: 0.1.
	InitStdDev float64

	// Seed makes training reproducible. The seed is always explicit; there
	// is no ambient randomness in the fit path.
	Seed int64
}

// DefaultConfig returns the default training configuration.
func DefaultConfig() Config {
	return Config{
		Factors:        100,
		Epochs:         20,
		LearningRate:   0.005,
		Regularization: 0.02,
		InitStdDev:     0.1,
	}
}

// Model is a fitted factorization model: a global mean, per-user and per-item
// biases, and latent factor vectors. It is immutable after Fit returns.
type Model struct {
	mean float64

	userIndex map[int]int
	itemIndex map[int]int

	userBias []float64
	itemBias []float64

	userFactors [][]float64
	itemFactors [][]float64
}

// Fit trains a model on the rated rows of train. It always returns a usable
// model after the configured epoch budget; if the squared-error loss did not
// decrease over the final epoch it logs a non-convergence warning and returns
// the model anyway.
func Fit(train []types.Interaction, cfg Config, logger *slog.Logger) *Model {
	if cfg.Factors <= 0 {
		cfg.Factors = 100
	}
	if cfg.Epochs <= 0 {
		cfg.Epochs = 20
	}
	if cfg.LearningRate <= 0 {
		cfg.LearningRate = 0.005
	}
	if cfg.Regularization <= 0 {
		cfg.Regularization = 0.02
	}
	if cfg.InitStdDev <= 0 {
		cfg.InitStdDev = 0.1
	}

	m := &Model{
		userIndex: make(map[int]int),
		itemIndex: make(map[int]int),
	}

	var rated []types.Interaction
	for _, in := range train {
		if !in.Rated {
			continue
		}
		rated = append(rated, in)
		if _, ok := m.userIndex[in.SubscriberID]; !ok {
			m.userIndex[in.SubscriberID] = len(m.userIndex)
		}
		if _, ok := m.itemIndex[in.ItemID]; !ok {
			m.itemIndex[in.ItemID] = len(m.itemIndex)
		}
	}

	if len(rated) == 0 {
		logger.Warn("No rated interactions to fit on, model falls back to zero mean")
		return m
	}

	var sum float64
	for _, in := range rated {
		sum += in.Rating
	}
	m.mean = sum / float64(len(rated))

	numUsers := len(m.userIndex)
	numItems := len(m.itemIndex)

	rng := rand.New(rand.NewSource(cfg.Seed))

	m.userBias = make([]float64, numUsers)
	m.itemBias = make([]float64, numItems)
	m.userFactors = make([][]float64, numUsers)
	for u := range m.userFactors {
		m.userFactors[u] = gaussianVector(rng, cfg.Factors, cfg.InitStdDev)
	}
	m.itemFactors = make([][]float64, numItems)
	for i := range m.itemFactors {
		m.itemFactors[i] = gaussianVector(rng, cfg.Factors, cfg.InitStdDev)
	}

	lr := cfg.LearningRate
	reg := cfg.Regularization

	var prevLoss, lastLoss float64
	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		var sse float64

		for _, in := range rated {
			u := m.userIndex[in.SubscriberID]
			i := m.itemIndex[in.ItemID]

			var dot float64
			for f := 0; f < cfg.Factors; f++ {
				dot += m.userFactors[u][f] * m.itemFactors[i][f]
			}

			err := in.Rating - (m.mean + m.userBias[u] + m.itemBias[i] + dot)
			sse += err * err

			m.userBias[u] += lr * (err - reg*m.userBias[u])
			m.itemBias[i] += lr * (err - reg*m.itemBias[i])

			for f := 0; f < cfg.Factors; f++ {
				puf := m.userFactors[u][f]
				qif := m.itemFactors[i][f]
				m.userFactors[u][f] += lr * (err*qif - reg*puf)
				m.itemFactors[i][f] += lr * (err*puf - reg*qif)
			}
		}

		prevLoss, lastLoss = lastLoss, sse
		if epoch == 0 {
			prevLoss = sse
		}
	}

	if cfg.Epochs > 1 && lastLoss >= prevLoss {
		logger.Warn("Training loss did not decrease over the final epoch",
			slog.Float64("prev_loss", prevLoss),
			slog.Float64("last_loss", lastLoss),
			slog.Int("epochs", cfg.Epochs))
	}

	return m
}

// Predict returns the model's score for a (subscriber, item) pair, clipped
// to the [0, 1] rating range. A subscriber or item the model never saw
// during fitting gets the global mean rating.
func (m *Model) Predict(subscriberID, itemID int) float64 {
	u, uok := m.userIndex[subscriberID]
	i, iok := m.itemIndex[itemID]
	if !uok || !iok {
		return m.mean
	}

	score := m.mean + m.userBias[u] + m.itemBias[i]
	for f := range m.userFactors[u] {
		score += m.userFactors[u][f] * m.itemFactors[i][f]
	}

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// Mean returns the global mean rating, which doubles as the cold-start score.
func (m *Model) Mean() float64 {
	return m.mean
}

func gaussianVector(rng *rand.Rand, n int, stddev float64) []float64 {
	v := make([]float64, n)
	for f := range v {
		v[f] = rng.NormFloat64() * stddev
	}
	return v
}
