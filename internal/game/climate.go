package game

type Climate struct {
	Name                 string  `json:"name"`
	MomentumBias         float64 `json:"momentumBias"`
	VolatilityMultiplier float64 `json:"volatilityMultiplier"`
}

var (
	ClimateExpansion = Climate{Name: "Expansion", MomentumBias: 0.05, VolatilityMultiplier: 0.7}
	ClimateRecession = Climate{Name: "Recession", MomentumBias: -0.05, VolatilityMultiplier: 1.4}
	ClimateTurbulent = Climate{Name: "Turbulent", MomentumBias: 0, VolatilityMultiplier: 2.0}
	ClimateStable    = Climate{Name: "Stable", MomentumBias: 0, VolatilityMultiplier: 1.0}
)

// SelectClimate draws the macro regime for a new turn.
func SelectClimate(src Source) Climate {
	return climateFor(src.Float64())
}

func climateFor(seed float64) Climate {
	switch {
	case seed < 0.25:
		return ClimateExpansion
	case seed < 0.50:
		return ClimateRecession
	case seed < 0.70:
		return ClimateTurbulent
	default:
		return ClimateStable
	}
}

func (c Climate) valid() bool {
	return c.Name != "" && c.VolatilityMultiplier > 0
}
