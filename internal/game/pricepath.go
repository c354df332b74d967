package game

import "time"

const (
	minPathPrice  = 0.01
	pathVolScale  = 0.05
	pathBiasScale = 0.05

	playbackBudgetMillis = 30_000
	minDayDelayMillis    = 20
	maxDayDelayMillis    = 300
)

// GeneratePath returns durationDays+1 prices; index 0 is the entry price.
func GeneratePath(src Source, entryPrice, volatility, momentum float64, durationDays int) []float64 {
	if durationDays < 0 {
		durationDays = 0
	}
	path := make([]float64, durationDays+1)
	path[0] = entryPrice
	price := entryPrice
	for day := 1; day <= durationDays; day++ {
		noise := normalish(src.Float64())
		change := noise*(volatility*pathVolScale) + (momentum-1)*pathBiasScale
		price = price * (1 + change)
		if price < minPathPrice {
			price = minPathPrice
		}
		path[day] = price
	}
	return path
}

// BaseDelay is the per-day playback delay at 1x.
func BaseDelay(durationDays int) time.Duration {
	if durationDays < 1 {
		durationDays = 1
	}
	ms := playbackBudgetMillis / durationDays
	if ms < minDayDelayMillis {
		ms = minDayDelayMillis
	}
	if ms > maxDayDelayMillis {
		ms = maxDayDelayMillis
	}
	return time.Duration(ms) * time.Millisecond
}

func DayDelay(durationDays, speed int) time.Duration {
	if !validSpeed(speed) {
		speed = 1
	}
	return BaseDelay(durationDays) / time.Duration(speed)
}

func validSpeed(speed int) bool {
	return speed == 1 || speed == 2 || speed == 4
}
