package player

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/XNargaHuntress/bard-player/pkg/fileutil"
	"github.com/XNargaHuntress/bard-player/pkg/smf"
)

var (
	// ErrMissingHeader is returned when a file has no MThd chunk.
	ErrMissingHeader = errors.New("missing MThd header chunk")
	// ErrNoSuchTrack is returned for a track index outside the song.
	ErrNoSuchTrack = errors.New("no such track")
)

// Load reads the MIDI file at path. A path whose case does not match the file
// on disk is resolved within its directory.
func Load(path string, opts ...Option) (*Song, error) {
	resolved, err := fileutil.Resolve(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open song: %w", err)
	}

	f, err := os.Open(resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to open song: %w", err)
	}
	defer f.Close()

	s, err := Decode(f, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", resolved, err)
	}
	s.log.Info("Song loaded", "path", resolved, "tracks", len(s.tracks), "bpm", s.bpm)
	return s, nil
}

// Decode reads a MIDI file from r.
//
// Chunks are read until the first truncated one. Track and instrument names
// are decoded with the WithCharset character set. Each tempo event of track
// 0 updates the tempo as it is met, so the last one is in effect after
// loading. When track 0 has none, the first tempo event of a later track
// sets it.
func Decode(r io.Reader, opts ...Option) (*Song, error) {
	s := newSong(opts...)
	if !(s.bpm > 0) {
		return nil, fmt.Errorf("%w: %v bpm", ErrInvalidTempo, s.bpm)
	}

	enc, err := smf.LookupCharset(s.charset)
	if err != nil {
		return nil, err
	}

	chunks := smf.ReadChunks(r)
	head, ok := smf.FindFirst(chunks, smf.HeaderTag)
	if !ok {
		return nil, ErrMissingHeader
	}
	h, err := smf.ParseHeader(head)
	if err != nil {
		return nil, err
	}

	s.Format = h.Format
	s.ppq = float64(h.Division)
	s.setBPM(s.bpm)

	if h.Format == smf.FormatMultiSong {
		s.log.Warn("Format 2 files are played as format 1", "format", h.Format)
	}

	trackChunks := smf.FindAll(chunks, smf.TrackTag)
	if len(trackChunks) != int(h.Tracks) {
		s.log.Warn("Track count does not match header",
			"header", h.Tracks, "found", len(trackChunks))
	}

	s.tracks = make([]smf.TrackInfo, len(trackChunks))
	s.events = make([][]smf.Event, len(trackChunks))

	tempoFound := false
	for i, c := range trackChunks {
		info := smf.NewTrackInfo()
		events := smf.ParseTrack(c.Data, &info, enc)

		if n := len(events); n > 0 && events[n-1].Kind == smf.KindUndefined {
			s.log.Warn("Track is truncated", "track", i, "events", n)
		}

		if i == 0 || !tempoFound {
			for _, e := range events {
				if e.Kind != smf.KindTempo || e.Tempo == 0 {
					continue
				}
				s.setMicrosecondsPerBeat(float64(e.Tempo))
				tempoFound = true
				if i > 0 {
					break
				}
			}
		}

		s.tracks[i] = info
		s.events[i] = events
		s.log.Debug("Track parsed", "track", i, "name", info.Name,
			"instrument", info.Instrument, "events", len(events), "dataOnly", info.DataOnly)
	}

	s.baseMsPerTick = s.msPerTick
	return s, nil
}
