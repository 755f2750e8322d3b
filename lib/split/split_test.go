package split

import (
	"errors"
	"reflect"
	"testing"

	"github.com/icco/vodrec/lib/types"
)

func ratedInteractions(n int) []types.Interaction {
	out := make([]types.Interaction, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, types.Interaction{
			SubscriberID: i % 5,
			ItemID:       100 + i,
			Rating:       float64(i%10) / 10,
			Rated:        true,
		})
	}
	return out
}

func TestHoldoutMasksTestRatings(t *testing.T) {
	interactions := ratedInteractions(20)

	res, err := Holdout(interactions, DefaultFraction, 0)
	if err != nil {
		t.Fatalf("Holdout() error = %v", err)
	}

	if len(res.Train) != len(interactions) {
		t.Errorf("len(Train) = %d, want %d", len(res.Train), len(interactions))
	}
	if want := 5; len(res.Test) != want {
		t.Errorf("len(Test) = %d, want %d", len(res.Test), want)
	}

	// Every held-out pair keeps its row in Train but loses its rating.
	tested := make(map[[2]int]float64)
	for _, in := range res.Test {
		tested[[2]int{in.SubscriberID, in.ItemID}] = in.Rating
	}
	for _, in := range res.Train {
		if _, held := tested[[2]int{in.SubscriberID, in.ItemID}]; held {
			if in.Rated {
				t.Errorf("held-out pair (%d, %d) still rated in Train", in.SubscriberID, in.ItemID)
			}
		}
	}
}

func TestHoldoutReconstructsOriginal(t *testing.T) {
	interactions := ratedInteractions(16)

	res, err := Holdout(interactions, DefaultFraction, 7)
	if err != nil {
		t.Fatalf("Holdout() error = %v", err)
	}

	// Train with the test ratings put back must equal the original set.
	restored := make([]types.Interaction, len(res.Train))
	copy(restored, res.Train)
	byPair := make(map[[2]int]int)
	for i, in := range restored {
		byPair[[2]int{in.SubscriberID, in.ItemID}] = i
	}
	for _, in := range res.Test {
		i, ok := byPair[[2]int{in.SubscriberID, in.ItemID}]
		if !ok {
			t.Fatalf("test pair (%d, %d) missing from Train", in.SubscriberID, in.ItemID)
		}
		restored[i] = in
	}

	if !reflect.DeepEqual(restored, interactions) {
		t.Errorf("Train with test ratings restored != original interactions")
	}
}

func TestHoldoutKeepsUnratedRows(t *testing.T) {
	interactions := append(ratedInteractions(8), types.Interaction{SubscriberID: 9, ItemID: 999})

	res, err := Holdout(interactions, DefaultFraction, 1)
	if err != nil {
		t.Fatalf("Holdout() error = %v", err)
	}

	for _, in := range res.Test {
		if !in.Rated {
			t.Errorf("unrated interaction (%d, %d) sampled into Test", in.SubscriberID, in.ItemID)
		}
	}
	found := false
	for _, in := range res.Train {
		if in.SubscriberID == 9 && in.ItemID == 999 {
			found = true
		}
	}
	if !found {
		t.Error("unrated interaction dropped from Train")
	}
}

func TestHoldoutDeterministic(t *testing.T) {
	interactions := ratedInteractions(40)

	a, err := Holdout(interactions, DefaultFraction, 42)
	if err != nil {
		t.Fatalf("Holdout() error = %v", err)
	}
	b, err := Holdout(interactions, DefaultFraction, 42)
	if err != nil {
		t.Fatalf("Holdout() error = %v", err)
	}

	if !reflect.DeepEqual(a, b) {
		t.Error("same seed produced different splits")
	}

	c, err := Holdout(interactions, DefaultFraction, 43)
	if err != nil {
		t.Fatalf("Holdout() error = %v", err)
	}
	if reflect.DeepEqual(a.Test, c.Test) {
		t.Error("different seeds produced identical test sets")
	}
}

func TestHoldoutErrors(t *testing.T) {
	tests := []struct {
		name         string
		interactions []types.Interaction
		fraction     float64
		wantErr      error
	}{
		{
			name:         "no rated interactions",
			interactions: []types.Interaction{{SubscriberID: 1, ItemID: 1}},
			fraction:     DefaultFraction,
			wantErr:      ErrEmptyDataset,
		},
		{
			name:         "single rated interaction",
			interactions: []types.Interaction{{SubscriberID: 1, ItemID: 1, Rating: 0.5, Rated: true}},
			fraction:     DefaultFraction,
			wantErr:      ErrEmptyDataset,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Holdout(tt.interactions, tt.fraction, 0)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Holdout() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if _, err := Holdout(ratedInteractions(10), 1.5, 0); err == nil {
		t.Error("Holdout() with fraction 1.5 expected error")
	}
}
