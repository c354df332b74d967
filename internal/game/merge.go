package game

import (
	"fmt"

	"github.com/google/uuid"
)

const mergeBonus = 1.2

// Merge consumes a group of identical collectibles and mints one of the next tier.
func Merge(s GameState, ids []string) (GameState, Collectible, error) {
	if len(ids) == 0 {
		return s, Collectible{}, fmt.Errorf("%w: no collectibles selected", ErrMergeIneligible)
	}
	byID := make(map[string]int, len(s.Collection))
	for i, c := range s.Collection {
		byID[c.ID] = i
	}
	picked := make(map[string]struct{}, len(ids))
	sources := make([]Collectible, 0, len(ids))
	for _, id := range ids {
		if _, dup := picked[id]; dup {
			return s, Collectible{}, fmt.Errorf("%w: %s selected twice", ErrMergeIneligible, id)
		}
		idx, ok := byID[id]
		if !ok {
			return s, Collectible{}, fmt.Errorf("%w: %s", ErrCollectibleNotFound, id)
		}
		picked[id] = struct{}{}
		sources = append(sources, s.Collection[idx])
	}

	first := sources[0]
	for _, c := range sources[1:] {
		if c.ItemID != first.ItemID || c.Rarity != first.Rarity || c.Level != first.Level {
			return s, Collectible{}, fmt.Errorf("%w: item, rarity and level must match", ErrMergeIneligible)
		}
	}
	target, ok := first.Rarity.Next()
	if !ok {
		return s, Collectible{}, fmt.Errorf("%w: %s", ErrMaxRarity, first.Rarity)
	}
	need := first.Rarity.Info().MergeCount
	if len(sources) != need {
		return s, Collectible{}, fmt.Errorf("%w: %s needs exactly %d, got %d", ErrMergeIneligible, first.Rarity, need, len(sources))
	}

	var sum int64
	for _, c := range sources {
		sum += c.PurchasePrice
	}
	merged := Collectible{
		ID:            uuid.NewString(),
		ItemID:        first.ItemID,
		Name:          first.Name,
		Icon:          first.Icon,
		Rarity:        target,
		Level:         first.Level + 1,
		PurchasePrice: floorMoney(float64(sum) * mergeBonus),
		AcquiredTurn:  s.Turn,
	}

	next := s.Clone()
	kept := make([]Collectible, 0, len(next.Collection)-len(sources)+1)
	for _, c := range next.Collection {
		if _, gone := picked[c.ID]; !gone {
			kept = append(kept, c)
		}
	}
	next.Collection = append(kept, merged)
	next.addEvent(EventMerge, s.Turn, fmt.Sprintf("merged %d %s %s into %s level %d", len(sources), first.Rarity, first.Name, target, merged.Level), merged.PurchasePrice)
	return next, merged, nil
}

// MergeGroups lists eligible merge groups in collection order.
func MergeGroups(collection []Collectible) [][]string {
	type key struct {
		item   string
		rarity Rarity
		level  int
	}
	order := []key{}
	groups := map[key][]string{}
	for _, c := range collection {
		k := key{c.ItemID, c.Rarity, c.Level}
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], c.ID)
	}
	var out [][]string
	for _, k := range order {
		need := k.rarity.Info().MergeCount
		if need == 0 {
			continue
		}
		ids := groups[k]
		for len(ids) >= need {
			out = append(out, ids[:need])
			ids = ids[need:]
		}
	}
	return out
}
