package player

import (
	"errors"

	"github.com/XNargaHuntress/bard-player/pkg/smf"
)

// ErrNotPaused is returned by Resume when there is nothing to resume.
var ErrNotPaused = errors.New("song is not paused")

// Play starts or continues playback of track. Switching to another track
// starts it from the beginning; playing the active track again keeps the
// cursor.
func (s *Song) Play(track int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkTrack(track); err != nil {
		return err
	}
	if track != s.active {
		s.cursor = Cursor{}
	}
	s.active = track
	s.state = Playing
	s.startTimer()

	s.log.Info("Playback started", "track", track, "name", s.tracks[track].Name,
		"index", s.cursor.Index)
	return nil
}

// Resume continues a paused song. Resuming a playing song does nothing.
func (s *Song) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case Playing:
		return nil
	case Stopped:
		return ErrNotPaused
	}

	s.state = Playing
	s.startTimer()
	s.log.Info("Playback resumed", "track", s.active, "index", s.cursor.Index)
	return nil
}

// Pause stops the tick driver and keeps the cursor. Pausing a song that is
// not playing does nothing.
func (s *Song) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Playing {
		return
	}
	s.stopTimer()
	s.state = Paused
	s.log.Info("Playback paused", "track", s.active, "index", s.cursor.Index)
}

// Stop stops playback and rewinds the cursor.
func (s *Song) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopTimer()
	wasStopped := s.state == Stopped
	s.state = Stopped
	s.cursor = Cursor{}
	if !wasStopped {
		s.log.Info("Playback stopped", "track", s.active)
	}
}

// Close stops playback and releases the tick driver.
func (s *Song) Close() error {
	s.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.timer = nil
	return nil
}

func (s *Song) startTimer() {
	if s.timer == nil {
		s.timer = NewTimer(tickInterval(s.msPerTick), s.tick)
		s.timer.SetDropHandler(func(n uint64) { s.dropped.Add(n) })
	} else {
		s.timer.SetInterval(tickInterval(s.msPerTick))
	}
	s.timer.Start()
}

// stopTimer waits for an in-flight tick. The tick never blocks on s.mu, so
// this is safe with the lock held.
func (s *Song) stopTimer() {
	if s.timer != nil {
		s.timer.Stop()
	}
}

// tick runs on the timer goroutine. A tick that finds the song busy is
// dropped; ticks overrun by a slow observer are dropped by the Timer.
func (s *Song) tick() {
	if !s.mu.TryLock() {
		s.dropped.Add(1)
		return
	}
	defer s.mu.Unlock()

	if s.state != Playing {
		return
	}
	s.step()
}

// step advances the active track by one tick, dispatching every event that
// has fallen due. Each event is dispatched at most once per tick.
func (s *Song) step() {
	events := s.events[s.active]
	if len(events) == 0 {
		return
	}

	s.cursor.Elapsed++
	for range events {
		e := &events[s.cursor.Index]
		if e.Delta > s.cursor.Elapsed {
			return
		}
		s.dispatch(e)
		s.cursor.Elapsed = 0
		s.cursor.Index = (s.cursor.Index + 1) % len(events)
	}
}

func (s *Song) dispatch(e *smf.Event) {
	switch e.Kind {
	case smf.KindNote:
		s.observer.OnNote(e.Note)
	case smf.KindMeta:
		s.observer.OnMeta(e.Meta)
	case smf.KindVoice:
		s.observer.OnVoice(e.Voice)
	case smf.KindTempo:
		if e.Tempo == 0 {
			return
		}
		s.setMicrosecondsPerBeat(float64(e.Tempo))
		s.retime()
		s.log.Debug("Tempo event", "us", e.Tempo, "bpm", s.bpm)
	}
}
