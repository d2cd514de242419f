package smf

import (
	"os"
	"path/filepath"
	"testing"

	"gitlab.com/gomidi/midi/v2"
	gosmf "gitlab.com/gomidi/midi/v2/smf"
	"golang.org/x/text/encoding/charmap"
)

func TestParseTrack(t *testing.T) {
	var data []byte
	data = append(data, 0x00, 0xFF, 0x03, 0x04)
	data = append(data, "Lute"...)
	data = append(data, 0x00, 0xFF, 0x03, 0x05)
	data = append(data, "Intro"...)
	data = append(data, 0x00, 0xFF, 0x04, 0x04)
	data = append(data, "Harp"...)
	data = append(data, 0x00, 0x90, 60, 64)
	data = append(data, 0x00, 64, 64) // running status
	data = append(data, 0x83, 0x60, 0x80, 60, 0)
	data = append(data, 0x00, 0xFF, 0x2F, 0x00)

	info := NewTrackInfo()
	events := ParseTrack(data, &info, nil)

	if len(events) != 7 {
		t.Fatalf("expected 7 events, got %d: %v", len(events), events)
	}
	if info.Name != "Lute - Intro" {
		t.Errorf("expected joined name, got %q", info.Name)
	}
	if info.Instrument != "Harp" {
		t.Errorf("expected instrument Harp, got %q", info.Instrument)
	}
	if info.DataOnly {
		t.Error("track with notes should not be data-only")
	}
	if events[4].Status != 0x90 || events[4].Note.Key != 64 {
		t.Errorf("running-status event decoded as %v", events[4])
	}

	var total uint32
	for _, e := range events {
		total += e.Size
	}
	if int(total) != len(data) {
		t.Errorf("event sizes sum to %d, track is %d bytes", total, len(data))
	}
}

func TestParseTrackDataOnly(t *testing.T) {
	data := []byte{
		0x00, 0xFF, 0x51, 0x03, 0x07, 0xA1, 0x20,
		0x00, 0xFF, 0x2F, 0x00,
	}
	info := NewTrackInfo()
	events := ParseTrack(data, &info, nil)

	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if !info.DataOnly {
		t.Error("tempo-only track should stay data-only")
	}
	if info.Instrument != DefaultInstrument {
		t.Errorf("expected default instrument, got %q", info.Instrument)
	}
}

func TestParseTrackStopsAfterTruncation(t *testing.T) {
	data := []byte{
		0x00, 0x90, 60, 64,
		0x00, 0xF0, 0x20, 0x01, 0x02, // sysex declares 32 bytes
		0x00, 0x80, 60, 0,
	}
	info := NewTrackInfo()
	events := ParseTrack(data, &info, nil)

	if len(events) != 2 {
		t.Fatalf("expected note + undefined, got %d: %v", len(events), events)
	}
	if events[1].Kind != KindUndefined {
		t.Errorf("expected undefined sentinel, got %v", events[1])
	}
}

func TestParseTrackCharset(t *testing.T) {
	data := []byte{0x00, 0xFF, 0x03, 0x04, 'L', 0xFC, 't', 'e'}
	info := NewTrackInfo()
	ParseTrack(data, &info, charmap.ISO8859_1)

	if info.Name != "Lüte" {
		t.Errorf("expected latin-1 decoding, got %q", info.Name)
	}
}

// TestParseTrackGomidiFile decodes a file written by gomidi's SMF writer.
func TestParseTrackGomidiFile(t *testing.T) {
	s := gosmf.New()
	s.TimeFormat = gosmf.MetricTicks(480)

	var tempo gosmf.Track
	tempo.Add(0, gosmf.MetaTempo(120))
	tempo.Close(0)

	var lead gosmf.Track
	lead.Add(0, gosmf.MetaTrackSequenceName("Lead"))
	lead.Add(0, gosmf.MetaInstrument("Flute"))
	lead.Add(0, midi.ProgramChange(0, 73))
	lead.Add(0, midi.NoteOn(0, 60, 100))
	lead.Add(240, midi.NoteOn(0, 62, 90))
	lead.Add(240, midi.NoteOn(0, 64, 80))
	lead.Add(480, midi.NoteOff(0, 64))
	lead.Close(0)

	for _, tr := range []gosmf.Track{tempo, lead} {
		if err := s.Add(tr); err != nil {
			t.Fatalf("add track: %v", err)
		}
	}

	path := filepath.Join(t.TempDir(), "lead.mid")
	if err := s.WriteFile(path); err != nil {
		t.Fatalf("write: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	chunks := ReadChunks(f)

	head, ok := FindFirst(chunks, HeaderTag)
	if !ok {
		t.Fatalf("no header in %d bytes", len(raw))
	}
	h, err := ParseHeader(head)
	if err != nil {
		t.Fatalf("header: %v", err)
	}
	if h.Division != 480 || h.Tracks != 2 {
		t.Errorf("unexpected header %+v", h)
	}

	tracks := FindAll(chunks, TrackTag)
	if len(tracks) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(tracks))
	}

	tempoInfo := NewTrackInfo()
	tempoEvents := ParseTrack(tracks[0].Data, &tempoInfo, nil)
	if tempoEvents[0].Kind != KindTempo || tempoEvents[0].Tempo != 500000 {
		t.Errorf("expected tempo event, got %v", tempoEvents[0])
	}
	if !tempoInfo.DataOnly {
		t.Error("tempo track should be data-only")
	}

	info := NewTrackInfo()
	events := ParseTrack(tracks[1].Data, &info, nil)
	if info.Name != "Lead" || info.Instrument != "Flute" || info.DataOnly {
		t.Errorf("unexpected track info %+v", info)
	}

	var notes []Note
	var ticks []uint32
	var abs uint32
	for _, e := range events {
		abs += e.Delta
		if e.Kind == KindNote {
			notes = append(notes, e.Note)
			ticks = append(ticks, abs)
		}
		if e.Kind == KindUndefined {
			t.Fatalf("unexpected truncation at tick %d", abs)
		}
	}
	wantKeys := []uint8{60, 62, 64, 64}
	wantTicks := []uint32{0, 240, 480, 960}
	if len(notes) != len(wantKeys) {
		t.Fatalf("expected %d notes, got %v", len(wantKeys), notes)
	}
	for i := range notes {
		if notes[i].Key != wantKeys[i] || ticks[i] != wantTicks[i] {
			t.Errorf("note %d: expected key %d at %d, got %v at %d", i, wantKeys[i], wantTicks[i], notes[i], ticks[i])
		}
	}
	if notes[3].On {
		t.Error("last note should be off")
	}
}
