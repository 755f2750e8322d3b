// Package split partitions the interaction set into training data and a
// held-out test set for evaluation.
package split

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/icco/vodrec/lib/types"
)

// DefaultFraction is the share of rated interactions held out for testing.
const DefaultFraction = 0.25

// ErrEmptyDataset is returned when there are too few rated interactions to
// split into a meaningful train and test set.
var ErrEmptyDataset = errors.New("need at least 2 rated interactions")

// Result holds the two sides of a holdout split. Train contains every
// interaction, with the held-out rows' ratings masked to missing so the
// matrix keeps its shape without leaking test values. Test contains exactly
// the held-out rows with their original ratings.
type Result struct {
	Train []types.Interaction
	Test  []types.Interaction
}

// Holdout samples a fraction of the rated interactions as the test set,
// uniformly at random with the given seed. The same inputs and seed always
// produce the same split.
func Holdout(interactions []types.Interaction, fraction float64, seed int64) (*Result, error) {
	if fraction < 0 || fraction >= 1 {
		return nil, fmt.Errorf("holdout fraction %g outside [0, 1)", fraction)
	}

	var rated []int
	for i, in := range interactions {
		if in.Rated {
			rated = append(rated, i)
		}
	}
	if len(rated) < 2 {
		return nil, fmt.Errorf("%d rated interactions: %w", len(rated), ErrEmptyDataset)
	}

	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(rated), func(i, j int) {
		rated[i], rated[j] = rated[j], rated[i]
	})

	numTest := int(math.Ceil(fraction * float64(len(rated))))
	held := rated[:numTest]
	sort.Ints(held)

	res := &Result{
		Train: make([]types.Interaction, len(interactions)),
		Test:  make([]types.Interaction, 0, numTest),
	}
	copy(res.Train, interactions)

	for _, i := range held {
		res.Test = append(res.Test, interactions[i])
		res.Train[i].Rating = 0
		res.Train[i].Rated = false
	}

	return res, nil
}
