package game

import (
	"encoding/json"
	"fmt"
	"strings"
)

type Rarity int

const (
	Standard Rarity = iota
	Emerging
	Disruptive
	Unicorn
)

type RarityInfo struct {
	Name       string
	Multiplier float64
	Icon       string
	// Threshold is the exclusive lower bound of the uniform draw that selects this tier.
	Threshold float64
	// MergeCount is how many identical items merge into the next tier; 0 means terminal.
	MergeCount int
}

var rarityTable = [...]RarityInfo{
	Standard:   {Name: "Standard", Multiplier: 1, Icon: "⚪", Threshold: 0, MergeCount: 3},
	Emerging:   {Name: "Emerging", Multiplier: 1.5, Icon: "🟢", Threshold: 0.60, MergeCount: 3},
	Disruptive: {Name: "Disruptive", Multiplier: 3, Icon: "🟣", Threshold: 0.85, MergeCount: 5},
	Unicorn:    {Name: "Unicorn", Multiplier: 10, Icon: "🦄", Threshold: 0.95, MergeCount: 0},
}

func (r Rarity) Valid() bool {
	return r >= Standard && r <= Unicorn
}

func (r Rarity) Info() RarityInfo {
	if !r.Valid() {
		return rarityTable[Standard]
	}
	return rarityTable[r]
}

func (r Rarity) String() string {
	return r.Info().Name
}

func (r Rarity) Multiplier() float64 {
	return r.Info().Multiplier
}

// Next returns the merge target tier.
func (r Rarity) Next() (Rarity, bool) {
	if !r.Valid() || r == Unicorn {
		return r, false
	}
	return r + 1, true
}

// RollRarity maps a uniform draw in [0,1) to a tier, highest threshold first.
func RollRarity(roll float64) Rarity {
	for r := Unicorn; r > Standard; r-- {
		if roll > rarityTable[r].Threshold {
			return r
		}
	}
	return Standard
}

func ParseRarity(s string) (Rarity, error) {
	for i, info := range rarityTable {
		if strings.EqualFold(strings.TrimSpace(s), info.Name) {
			return Rarity(i), nil
		}
	}
	return Standard, fmt.Errorf("unknown rarity %q", s)
}

func (r Rarity) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *Rarity) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseRarity(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
