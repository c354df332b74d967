package game

import (
	"github.com/Soujiro0/market-pulse-sub000/internal/catalog"
)

const (
	minBasePrice  = 20.0
	basePriceSpan = 480.0

	minVolatility        = 0.2
	volatilitySpan       = 1.3
	unicornMinVolatility = 1.0
	unicornVolSpan       = 0.5

	priceVariation = 0.2
	momentumSpan   = 0.2
	minMomentum    = 0.9
)

// GenerateAssets draws a fresh market offer from the template catalog. Draws are
// consumed in a fixed order per asset so a scripted Source reproduces the batch.
func GenerateAssets(src Source, templates []catalog.AssetTemplate, climate Climate) []Asset {
	pool := make([]catalog.AssetTemplate, len(templates))
	copy(pool, templates)
	shuffle(src, len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	n := MarketSize
	if len(pool) < n {
		n = len(pool)
	}
	out := make([]Asset, 0, n)
	for _, tpl := range pool[:n] {
		out = append(out, generateAsset(src, tpl, climate))
	}
	return out
}

func generateAsset(src Source, tpl catalog.AssetTemplate, climate Climate) Asset {
	base := minBasePrice + src.Float64()*basePriceSpan
	rarity := RollRarity(src.Float64())
	variation := 1 - priceVariation + src.Float64()*priceVariation*2
	price := base * rarity.Multiplier() * variation

	volRoll := src.Float64()
	vol := minVolatility + volRoll*volatilitySpan
	if rarity == Unicorn {
		vol = unicornMinVolatility + volRoll*unicornVolSpan
	}
	vol *= climate.VolatilityMultiplier

	momentum := minMomentum + src.Float64()*momentumSpan + climate.MomentumBias

	return Asset{
		TemplateID:   tpl.ID,
		Name:         tpl.Name,
		Sector:       tpl.Sector,
		Icon:         tpl.Icon,
		CurrentPrice: price,
		Rarity:       rarity,
		Volatility:   vol,
		Momentum:     momentum,
		Hype:         src.Intn(101),
	}
}

func findAsset(assets []Asset, templateID string) (Asset, bool) {
	for _, a := range assets {
		if a.TemplateID == templateID {
			return a, true
		}
	}
	return Asset{}, false
}
