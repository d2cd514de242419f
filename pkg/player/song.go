// Package player turns a decoded Standard MIDI File into a song that can be
// replayed in real time, one track at a time, against an Observer.
package player

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/XNargaHuntress/bard-player/pkg/logger"
	"github.com/XNargaHuntress/bard-player/pkg/smf"
)

// Defaults used until the file says otherwise.
const (
	DefaultBPM = 120
	DefaultPPQ = 480
)

// State is the playback state of a Song.
type State int

const (
	Stopped State = iota
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Cursor is the playback position within the active track.
type Cursor struct {
	Index   int    // next event to dispatch
	Elapsed uint32 // ticks since the last dispatched event
}

// Position is a snapshot of where a song is.
type Position struct {
	State   State  `json:"state"`
	Track   int    `json:"track"`
	Index   int    `json:"index"`
	Elapsed uint32 `json:"elapsed"`
}

// Song is a loaded MIDI file plus its playback state. All methods are safe
// for concurrent use.
type Song struct {
	// ID identifies the song in logs.
	ID     string
	Format uint16

	mu sync.Mutex

	ppq       float64
	bpm       float64
	msPerTick float64
	// baseMsPerTick is msPerTick as last set by a mutator, ignoring tempo
	// events met during playback.
	baseMsPerTick float64
	frameRate     float64

	tracks []smf.TrackInfo
	events [][]smf.Event

	active   int
	state    State
	cursor   Cursor
	observer Observer
	timer    *Timer

	charset string
	log     *slog.Logger

	dropped atomic.Uint64
}

// Option configures a Song at load time.
type Option func(*Song)

// WithObserver sets the observer notified during playback.
func WithObserver(o Observer) Option {
	return func(s *Song) {
		s.observer = o
	}
}

// WithLogger sets a custom logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Song) {
		s.log = log
	}
}

// WithCharset sets the character set of track and instrument names. See
// smf.LookupCharset for accepted names.
func WithCharset(name string) Option {
	return func(s *Song) {
		s.charset = name
	}
}

// WithBPM sets the tempo used until the file's first tempo event.
func WithBPM(bpm float64) Option {
	return func(s *Song) {
		s.bpm = bpm
	}
}

func newSong(opts ...Option) *Song {
	s := &Song{
		ID:       uuid.NewString(),
		ppq:      DefaultPPQ,
		bpm:      DefaultBPM,
		observer: NopObserver{},
		charset:  smf.CharsetRaw,
		log:      logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.observer == nil {
		s.observer = NopObserver{}
	}
	s.log = s.log.With("song", s.ID)
	return s
}

// SetObserver replaces the observer. A nil observer discards events.
func (s *Song) SetObserver(o Observer) {
	if o == nil {
		o = NopObserver{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observer = o
}

// PPQ returns the ticks per quarter note. It is fractional after
// SetFrameRate.
func (s *Song) PPQ() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ppq
}

// BPM returns the current tempo in beats per minute.
func (s *Song) BPM() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bpm
}

// TickInterval returns the current duration of one tick.
func (s *Song) TickInterval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return tickInterval(s.msPerTick)
}

// FrameRate returns the rate passed to SetFrameRate, or 0.
func (s *Song) FrameRate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frameRate
}

// Tracks returns a copy of the track descriptions.
func (s *Song) Tracks() []smf.TrackInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]smf.TrackInfo(nil), s.tracks...)
}

// Events returns a copy of the event list of track.
func (s *Song) Events(track int) ([]smf.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkTrack(track); err != nil {
		return nil, err
	}
	return append([]smf.Event(nil), s.events[track]...), nil
}

// FirstPlayable returns the index of the first track that is not data-only.
func (s *Song) FirstPlayable() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.tracks {
		if !t.DataOnly {
			return i, true
		}
	}
	return 0, false
}

// Position reports the state, active track and cursor.
func (s *Song) Position() Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Position{
		State:   s.state,
		Track:   s.active,
		Index:   s.cursor.Index,
		Elapsed: s.cursor.Elapsed,
	}
}

// State returns the playback state.
func (s *Song) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// DroppedTicks returns how many ticks were skipped, either because a mutator
// held the song or because the observer overran them.
func (s *Song) DroppedTicks() uint64 {
	return s.dropped.Load()
}

// Duration returns the playing time of one pass over track, following the
// tempo events of that track.
func (s *Song) Duration(track int) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkTrack(track); err != nil {
		return 0, err
	}

	msPerTick := s.baseMsPerTick
	var total float64
	for _, e := range s.events[track] {
		total += float64(e.Delta) * msPerTick
		if e.Kind == smf.KindTempo && e.Tempo > 0 {
			msPerTick = float64(e.Tempo) / 1000 / s.ppq
		}
	}
	return time.Duration(math.Round(total * float64(time.Millisecond))), nil
}

// TrackSummary describes one track for listings.
type TrackSummary struct {
	Index      int    `json:"index"`
	Name       string `json:"name"`
	Instrument string `json:"instrument"`
	DataOnly   bool   `json:"dataOnly"`
	Events     int    `json:"events"`
	DurationMS int64  `json:"durationMs"`
}

// Summary describes a song for listings.
type Summary struct {
	ID     string         `json:"id"`
	Format uint16         `json:"format"`
	PPQ    float64        `json:"ppq"`
	BPM    float64        `json:"bpm"`
	Tracks []TrackSummary `json:"tracks"`
}

// Summary returns the song description shown by the info command and the
// HTTP API.
func (s *Song) Summary() Summary {
	tracks := s.Tracks()
	sum := Summary{
		ID:     s.ID,
		Format: s.Format,
		PPQ:    s.PPQ(),
		BPM:    s.BPM(),
		Tracks: make([]TrackSummary, len(tracks)),
	}
	for i, t := range tracks {
		events, _ := s.Events(i)
		d, _ := s.Duration(i)
		sum.Tracks[i] = TrackSummary{
			Index:      i,
			Name:       t.Name,
			Instrument: t.Instrument,
			DataOnly:   t.DataOnly,
			Events:     len(events),
			DurationMS: d.Milliseconds(),
		}
	}
	return sum
}

func (s *Song) checkTrack(track int) error {
	if track < 0 || track >= len(s.events) {
		return fmt.Errorf("%w: %d (song has %d)", ErrNoSuchTrack, track, len(s.events))
	}
	return nil
}
