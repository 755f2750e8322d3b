// Package eval measures a fitted model against the held-out test set.
package eval

import (
	"errors"
	"math"

	"github.com/icco/vodrec/lib/recommend"
	"github.com/icco/vodrec/lib/svd"
	"github.com/icco/vodrec/lib/types"
)

// ErrEmptyTestSet is returned when there are no held-out ratings to score.
var ErrEmptyTestSet = errors.New("test set is empty")

// RMSE returns the root-mean-squared error of the model's predictions over
// the held-out test ratings.
func RMSE(model *svd.Model, test []types.Interaction) (float64, error) {
	if len(test) == 0 {
		return 0, ErrEmptyTestSet
	}

	var sse float64
	for _, in := range test {
		err := in.Rating - model.Predict(in.SubscriberID, in.ItemID)
		sse += err * err
	}

	return math.Sqrt(sse / float64(len(test))), nil
}

// PrecisionRecallAtN compares each test subscriber's top-N recommendation
// list against that subscriber's true held-out items, and macro-averages
// precision and recall across subscribers. Every subscriber counts once no
// matter how many test rows they have.
func PrecisionRecallAtN(model *svd.Model, matrix *types.Matrix, test []types.Interaction, n int) (precision, recall float64) {
	targets := make(map[int]map[int]struct{})
	var users []int
	for _, in := range test {
		set, ok := targets[in.SubscriberID]
		if !ok {
			set = make(map[int]struct{})
			targets[in.SubscriberID] = set
			users = append(users, in.SubscriberID)
		}
		set[in.ItemID] = struct{}{}
	}
	if len(users) == 0 {
		return 0, 0
	}

	var precisionSum, recallSum float64
	for _, user := range users {
		predicted := recommend.TopN(model, matrix, user, n)

		hits := 0
		for _, p := range predicted {
			if _, ok := targets[user][p.ItemID]; ok {
				hits++
			}
		}

		if len(predicted) > 0 {
			precisionSum += float64(hits) / float64(len(predicted))
		}
		if len(targets[user]) > 0 {
			recallSum += float64(hits) / float64(len(targets[user]))
		}
	}

	return precisionSum / float64(len(users)), recallSum / float64(len(users))
}
