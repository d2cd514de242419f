package player

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrInvalidTempo is returned for a tempo that is not a positive number.
	ErrInvalidTempo = errors.New("tempo must be positive")
	// ErrInvalidFrameRate is returned for a frame rate that is not a
	// positive number.
	ErrInvalidFrameRate = errors.New("frame rate must be positive")
)

// minTickInterval keeps absurd tempos from spinning the tick goroutine.
const minTickInterval = time.Microsecond

func validPositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

func tickInterval(msPerTick float64) time.Duration {
	d := time.Duration(msPerTick * float64(time.Millisecond))
	if d < minTickInterval {
		return minTickInterval
	}
	return d
}

// SetBPM sets the tempo in beats per minute. Playback position is kept.
func (s *Song) SetBPM(bpm float64) error {
	if !validPositive(bpm) {
		return fmt.Errorf("%w: %v bpm", ErrInvalidTempo, bpm)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.setBPM(bpm)
	s.baseMsPerTick = s.msPerTick
	s.retime()
	s.log.Debug("Tempo changed", "bpm", s.bpm, "msPerTick", s.msPerTick)
	return nil
}

// SetMicrosecondsPerBeat sets the tempo the way a MIDI tempo event does.
// Playback position is kept.
func (s *Song) SetMicrosecondsPerBeat(us float64) error {
	if !validPositive(us) {
		return fmt.Errorf("%w: %v us per beat", ErrInvalidTempo, us)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.setMicrosecondsPerBeat(us)
	s.baseMsPerTick = s.msPerTick
	s.retime()
	s.log.Debug("Tempo changed", "bpm", s.bpm, "msPerTick", s.msPerTick)
	return nil
}

// SetFrameRate redefines the tick as one frame at fps frames per second and
// rescales every event delta so that the music keeps its speed. Deltas are
// rounded down. It is meant to be called once, right after loading.
func (s *Song) SetFrameRate(fps float64) error {
	if !validPositive(fps) {
		return fmt.Errorf("%w: %v fps", ErrInvalidFrameRate, fps)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	msPerFrame := 1000 / fps
	ratio := s.msPerTick / msPerFrame

	for _, events := range s.events {
		for i := range events {
			events[i].Delta = scaleDelta(events[i].Delta, ratio)
		}
	}

	s.msPerTick = msPerFrame
	s.baseMsPerTick = msPerFrame
	s.ppq *= ratio
	s.frameRate = fps
	s.retime()
	s.log.Debug("Frame rate set", "fps", fps, "ratio", ratio, "ppq", s.ppq)
	return nil
}

// scaleDelta returns floor(delta * ratio). The epsilon absorbs float error in
// products that should be whole numbers.
func scaleDelta(delta uint32, ratio float64) uint32 {
	v := math.Floor(float64(delta)*ratio + 1e-9)
	if v >= math.MaxUint32 {
		return math.MaxUint32
	}
	if v <= 0 {
		return 0
	}
	return uint32(v)
}

func (s *Song) setBPM(bpm float64) {
	s.bpm = bpm
	s.msPerTick = 60000 / (bpm * s.ppq)
}

func (s *Song) setMicrosecondsPerBeat(us float64) {
	s.bpm = 60e6 / us
	s.msPerTick = us / 1000 / s.ppq
}

// retime moves a running tick driver to the current interval.
func (s *Song) retime() {
	if s.timer != nil && s.state == Playing {
		s.timer.SetInterval(tickInterval(s.msPerTick))
	}
}
