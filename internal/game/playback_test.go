package game

import (
	"errors"
	"testing"
)

var testPath = []float64{100, 90, 130, 110}

func TestReducePlaybackRunsToEnd(t *testing.T) {
	p := NewPlayback(testPath[0])
	var out *Outcome
	var err error
	for i := 0; i < 3; i++ {
		p, out, err = ReducePlayback(p, testPath, Tick{})
		if err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
		if i < 2 && out != nil {
			t.Fatalf("tick %d finished early", i)
		}
	}
	if out == nil || out.Price != 110 || out.Day != 3 || out.PulledOut {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if p.Status != PlaybackFinished || p.Peak != 130 || p.Trough != 90 {
		t.Fatalf("unexpected playback: %+v", p)
	}
	if _, _, err := ReducePlayback(p, testPath, Tick{}); !errors.Is(err, ErrPlaybackFinished) {
		t.Fatalf("tick after finish err=%v", err)
	}
}

func TestReducePlaybackPause(t *testing.T) {
	p := NewPlayback(testPath[0])
	p, _, _ = ReducePlayback(p, testPath, TogglePause{})
	if p.Status != PlaybackPaused {
		t.Fatalf("status=%s", p.Status)
	}
	p, out, err := ReducePlayback(p, testPath, Tick{})
	if err != nil || out != nil || p.Day != 0 {
		t.Fatalf("paused tick advanced: %+v out=%v err=%v", p, out, err)
	}
	p, _, _ = ReducePlayback(p, testPath, TogglePause{})
	if p.Status != PlaybackRunning {
		t.Fatalf("resume status=%s", p.Status)
	}
}

func TestReducePlaybackSkip(t *testing.T) {
	p := NewPlayback(testPath[0])
	p, out, err := ReducePlayback(p, testPath, Skip{})
	if err != nil || out != nil {
		t.Fatalf("skip: out=%v err=%v", out, err)
	}
	if p.Status != PlaybackSkipping || p.Day != 3 || p.Peak != 130 || p.Trough != 90 {
		t.Fatalf("unexpected skipping playback: %+v", p)
	}
	if _, _, err := ReducePlayback(p, testPath, PullOut{}); !errors.Is(err, ErrSkipInProgress) {
		t.Fatalf("pull out while skipping: err=%v", err)
	}
	p, out, err = ReducePlayback(p, testPath, Tick{})
	if err != nil || out == nil || out.Price != 110 {
		t.Fatalf("finishing tick: out=%+v err=%v", out, err)
	}
	if p.Status != PlaybackFinished {
		t.Fatalf("status=%s", p.Status)
	}
}

func TestReducePlaybackPullOut(t *testing.T) {
	p := NewPlayback(testPath[0])
	p, _, _ = ReducePlayback(p, testPath, Tick{})
	p, out, err := ReducePlayback(p, testPath, PullOut{})
	if err != nil {
		t.Fatalf("pull out: %v", err)
	}
	if out == nil || out.Price != 90 || out.Day != 1 || !out.PulledOut {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if p.Status != PlaybackFinished {
		t.Fatalf("status=%s", p.Status)
	}
}

func TestReducePlaybackSpeed(t *testing.T) {
	p := NewPlayback(testPath[0])
	if _, _, err := ReducePlayback(p, testPath, SetSpeed{Speed: 3}); !errors.Is(err, ErrInvalidSpeed) {
		t.Fatalf("speed 3 err=%v", err)
	}
	p, _, err := ReducePlayback(p, testPath, SetSpeed{Speed: 4})
	if err != nil || p.Speed != 4 {
		t.Fatalf("speed 4: %+v err=%v", p, err)
	}
}

func TestReducePlaybackDoesNotMutatePath(t *testing.T) {
	path := []float64{10, 20, 5}
	p := NewPlayback(path[0])
	for {
		var out *Outcome
		p, out, _ = ReducePlayback(p, path, Tick{})
		if out != nil {
			break
		}
	}
	if path[0] != 10 || path[1] != 20 || path[2] != 5 {
		t.Fatalf("path mutated: %v", path)
	}
}

type strayEvent struct{}

func (strayEvent) isPlaybackEvent() {}

func TestReducePlaybackRejectsBadInput(t *testing.T) {
	p := NewPlayback(testPath[0])
	if _, _, err := ReducePlayback(p, testPath, strayEvent{}); !errors.Is(err, ErrUnknownEvent) {
		t.Fatalf("stray event: err=%v", err)
	}
	for _, day := range []int{-1, len(testPath)} {
		bad := p
		bad.Day = day
		for _, ev := range []PlaybackEvent{Tick{}, Skip{}, PullOut{}} {
			if _, out, err := ReducePlayback(bad, testPath, ev); !errors.Is(err, ErrInvalidPlayback) || out != nil {
				t.Fatalf("day %d %T: out=%v err=%v", day, ev, out, err)
			}
		}
	}
	if _, _, err := ReducePlayback(p, nil, Tick{}); !errors.Is(err, ErrInvalidPlayback) {
		t.Fatalf("empty path: err=%v", err)
	}
}
