// Package extract turns raw watch and content logs into the deduplicated
// interaction set the recommendation pipeline trains on.
package extract

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/icco/vodrec/lib/types"
	"github.com/icco/vodrec/models"
	"gorm.io/gorm"
)

// ErrInvalidRuntime is returned when a watch event carries a display runtime
// of zero or less, which would make the watch ratio meaningless.
var ErrInvalidRuntime = errors.New("display runtime must be positive")

// Snapshot holds one run's view of the three upstream tables.
type Snapshot struct {
	Watch   []models.WatchEvent
	Content []models.ContentEvent
	Items   []models.Item
}

// Load reads the watch log, content log and item catalog for one run.
func Load(ctx context.Context, db *gorm.DB) (*Snapshot, error) {
	snap := &Snapshot{}

	if err := db.WithContext(ctx).Find(&snap.Watch).Error; err != nil {
		return nil, fmt.Errorf("failed to load watch log: %w", err)
	}
	if err := db.WithContext(ctx).Find(&snap.Content).Error; err != nil {
		return nil, fmt.Errorf("failed to load content log: %w", err)
	}
	if err := db.WithContext(ctx).Find(&snap.Items).Error; err != nil {
		return nil, fmt.Errorf("failed to load item catalog: %w", err)
	}

	return snap, nil
}

type pair struct {
	subscriberID int
	itemID       int
}

// Interactions builds the interaction set from the two log sources.
//
// Soft-deleted rows are dropped from both logs. Each (subscriber, item) pair
// gets as its implicit rating the maximum watched/runtime ratio observed
// across that pair's watch events, clamped to [0, 1]. Pairs from the two
// sources are unioned and deduplicated; pairs that only appear in the
// presence-only content log keep a missing rating (Rated == false).
//
// The result is sorted by subscriber then item, so a given snapshot always
// produces the same slice.
func Interactions(watch []models.WatchEvent, content []models.ContentEvent) ([]types.Interaction, error) {
	ratios := make(map[pair]float64)
	seen := make(map[pair]struct{})
	var pairs []pair

	for _, ev := range watch {
		if ev.Deleted {
			continue
		}
		if ev.RuntimeSeconds <= 0 {
			return nil, fmt.Errorf("watch event subscriber=%d item=%d runtime=%g: %w",
				ev.SubscriberID, ev.ItemID, ev.RuntimeSeconds, ErrInvalidRuntime)
		}

		ratio := ev.WatchedSeconds / ev.RuntimeSeconds
		if ratio < 0 {
			ratio = 0
		}
		if ratio > 1 {
			ratio = 1
		}

		p := pair{ev.SubscriberID, ev.ItemID}
		if best, ok := ratios[p]; !ok || ratio > best {
			ratios[p] = ratio
		}
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			pairs = append(pairs, p)
		}
	}

	for _, ev := range content {
		if ev.Deleted {
			continue
		}
		p := pair{ev.SubscriberID, ev.ItemID}
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			pairs = append(pairs, p)
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].subscriberID != pairs[j].subscriberID {
			return pairs[i].subscriberID < pairs[j].subscriberID
		}
		return pairs[i].itemID < pairs[j].itemID
	})

	interactions := make([]types.Interaction, 0, len(pairs))
	for _, p := range pairs {
		in := types.Interaction{SubscriberID: p.subscriberID, ItemID: p.itemID}
		if ratio, ok := ratios[p]; ok {
			in.Rating = ratio
			in.Rated = true
		}
		interactions = append(interactions, in)
	}

	return interactions, nil
}
