package game

import (
	"encoding/json"
	"fmt"
)

type PlaybackStatus int

const (
	PlaybackRunning PlaybackStatus = iota
	PlaybackPaused
	PlaybackSkipping
	PlaybackFinished
)

var playbackStatusNames = [...]string{"running", "paused", "skipping", "finished"}

func (s PlaybackStatus) String() string {
	if s < PlaybackRunning || s > PlaybackFinished {
		return "unknown"
	}
	return playbackStatusNames[s]
}

func (s PlaybackStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *PlaybackStatus) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	for i, n := range playbackStatusNames {
		if n == name {
			*s = PlaybackStatus(i)
			return nil
		}
	}
	return fmt.Errorf("unknown playback status %q", name)
}

// Playback is the presentation-independent progress of one trade through its path.
type Playback struct {
	Status PlaybackStatus `json:"status"`
	Day    int            `json:"day"`
	Speed  int            `json:"speed"`
	Peak   float64        `json:"peak"`
	Trough float64        `json:"trough"`
}

func NewPlayback(entryPrice float64) Playback {
	return Playback{Status: PlaybackRunning, Speed: 1, Peak: entryPrice, Trough: entryPrice}
}

type PlaybackEvent interface {
	isPlaybackEvent()
}

type Tick struct{}

type TogglePause struct{}

type Skip struct{}

type PullOut struct{}

type SetSpeed struct {
	Speed int
}

func (Tick) isPlaybackEvent()        {}
func (TogglePause) isPlaybackEvent() {}
func (Skip) isPlaybackEvent()        {}
func (PullOut) isPlaybackEvent()     {}
func (SetSpeed) isPlaybackEvent()    {}

// Outcome asks the ledger to settle at Price.
type Outcome struct {
	Price     float64
	Day       int
	PulledOut bool
}

// ReducePlayback is the pure transition function for the playback machine.
// It never mutates path.
func ReducePlayback(p Playback, path []float64, ev PlaybackEvent) (Playback, *Outcome, error) {
	if p.Status == PlaybackFinished {
		return p, nil, ErrPlaybackFinished
	}
	last := len(path) - 1
	if p.Day < 0 || p.Day > last {
		return p, nil, fmt.Errorf("%w: day %d, path has %d days", ErrInvalidPlayback, p.Day, last)
	}
	switch e := ev.(type) {
	case Tick:
		switch p.Status {
		case PlaybackPaused:
			return p, nil, nil
		case PlaybackSkipping:
			p.Status = PlaybackFinished
			return p, &Outcome{Price: path[last], Day: last}, nil
		}
		if p.Day < last {
			p.Day++
			p.observe(path[p.Day])
		}
		if p.Day >= last {
			p.Status = PlaybackFinished
			return p, &Outcome{Price: path[last], Day: last}, nil
		}
		return p, nil, nil

	case TogglePause:
		switch p.Status {
		case PlaybackRunning:
			p.Status = PlaybackPaused
		case PlaybackPaused:
			p.Status = PlaybackRunning
		}
		return p, nil, nil

	case Skip:
		if p.Status == PlaybackSkipping {
			return p, nil, nil
		}
		for d := p.Day + 1; d <= last; d++ {
			p.observe(path[d])
		}
		p.Day = last
		p.Status = PlaybackSkipping
		return p, nil, nil

	case PullOut:
		if p.Status == PlaybackSkipping {
			return p, nil, ErrSkipInProgress
		}
		p.Status = PlaybackFinished
		return p, &Outcome{Price: path[p.Day], Day: p.Day, PulledOut: true}, nil

	case SetSpeed:
		if !validSpeed(e.Speed) {
			return p, nil, ErrInvalidSpeed
		}
		p.Speed = e.Speed
		return p, nil, nil
	}
	return p, nil, fmt.Errorf("%w: %T", ErrUnknownEvent, ev)
}

func (p *Playback) observe(price float64) {
	if price > p.Peak {
		p.Peak = price
	}
	if price < p.Trough {
		p.Trough = price
	}
}
