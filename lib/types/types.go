package types

import "sort"

// Interaction is a single subscriber-title engagement. Rating is the implicit
// preference derived from watch ratios; Rated is false for interactions that
// only appeared in the presence-only content log and carry no duration signal.
type Interaction struct {
	SubscriberID int
	ItemID       int
	Rating       float64
	Rated        bool
}

// Scored is one entry of a recommendation list.
type Scored struct {
	ItemID int
	Score  float64
}

// Matrix is the sparse rating matrix built from training interactions. It
// answers which items a subscriber has a known rating for, and what the full
// item universe is. The universe covers every item seen in any interaction,
// rated or not.
type Matrix struct {
	ratings map[int]map[int]float64
	items   []int
}

// NewMatrix builds a rating matrix from a set of interactions.
func NewMatrix(interactions []Interaction) *Matrix {
	m := &Matrix{ratings: make(map[int]map[int]float64)}

	seen := make(map[int]struct{})
	for _, in := range interactions {
		if _, ok := seen[in.ItemID]; !ok {
			seen[in.ItemID] = struct{}{}
			m.items = append(m.items, in.ItemID)
		}
		if !in.Rated {
			continue
		}
		row, ok := m.ratings[in.SubscriberID]
		if !ok {
			row = make(map[int]float64)
			m.ratings[in.SubscriberID] = row
		}
		row[in.ItemID] = in.Rating
	}
	sort.Ints(m.items)

	return m
}

// Items returns the full item universe in ascending ID order.
func (m *Matrix) Items() []int {
	return m.items
}

// HasRated reports whether the subscriber has a known rating for the item.
func (m *Matrix) HasRated(subscriberID, itemID int) bool {
	_, ok := m.ratings[subscriberID][itemID]
	return ok
}

// RatedItems returns the items the subscriber has a known rating for, in
// ascending ID order. It returns nil for subscribers absent from the matrix.
func (m *Matrix) RatedItems(subscriberID int) []int {
	row, ok := m.ratings[subscriberID]
	if !ok {
		return nil
	}

	items := make([]int, 0, len(row))
	for id := range row {
		items = append(items, id)
	}
	sort.Ints(items)
	return items
}

// Candidates returns the unrated complement of the item universe for the
// subscriber, in ascending ID order. For an unknown subscriber every item is
// a candidate.
func (m *Matrix) Candidates(subscriberID int) []int {
	row := m.ratings[subscriberID]

	candidates := make([]int, 0, len(m.items)-len(row))
	for _, id := range m.items {
		if _, rated := row[id]; !rated {
			candidates = append(candidates, id)
		}
	}
	return candidates
}
