// Package recommend ranks unrated titles for a subscriber using a fitted
// factorization model.
package recommend

import (
	"sort"

	"github.com/icco/vodrec/lib/svd"
	"github.com/icco/vodrec/lib/types"
)

// TopN returns up to n unrated items for the subscriber, best predicted
// score first, ties broken by ascending item ID. Items the subscriber has
// already rated are never returned. A subscriber unknown to the matrix gets
// cold-start scores over the whole universe; if every item is already rated
// the list is empty. The output is fully determined by the model and matrix,
// so repeated calls return identical lists.
func TopN(model *svd.Model, matrix *types.Matrix, subscriberID, n int) []types.Scored {
	if n <= 0 {
		return nil
	}

	candidates := matrix.Candidates(subscriberID)

	scored := make([]types.Scored, 0, len(candidates))
	for _, itemID := range candidates {
		scored = append(scored, types.Scored{
			ItemID: itemID,
			Score:  model.Predict(subscriberID, itemID),
		})
	}

	// Candidates arrive in ascending item order, so a stable sort on score
	// keeps the tie-break deterministic.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > n {
		scored = scored[:n]
	}
	return scored
}
