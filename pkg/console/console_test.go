package console

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/XNargaHuntress/bard-player/pkg/player"
	"github.com/XNargaHuntress/bard-player/pkg/smf"
)

var _ player.Observer = (*Observer)(nil)

func TestRenderNote(t *testing.T) {
	assert := assert.New(t)

	box := RenderNote(smf.Note{On: true, Key: 61, Velocity: 90})

	assert.Contains(box, "05")
	assert.Contains(box, "C#")
	assert.Greater(strings.Count(box, "\n"), 2, "box should span several lines")
}

func TestOnNote(t *testing.T) {
	assert := assert.New(t)
	var out bytes.Buffer
	o := New(&out)

	o.OnNote(smf.Note{Key: 60})
	assert.Empty(out.String(), "note off should not be drawn")

	o.OnNote(smf.Note{On: true, Key: 70, Velocity: 64})
	assert.Contains(out.String(), "Bb")
	assert.Contains(out.String(), "05")
}

func TestOnMeta(t *testing.T) {
	assert := assert.New(t)
	var out, logs bytes.Buffer
	log := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	o := New(&out, WithLogger(log))

	o.OnMeta(smf.Meta{Type: smf.MetaLyric, Data: []byte("Alas, my love")})
	o.OnMeta(smf.Meta{Type: smf.MetaTimeSignature, Data: []byte{4, 2, 24, 8}})

	assert.Contains(out.String(), "Alas, my love")
	assert.NotContains(out.String(), "0x58")
	assert.Contains(logs.String(), "type=0x58")
}

func TestOnVoice(t *testing.T) {
	var logs bytes.Buffer
	log := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	o := New(&bytes.Buffer{}, WithLogger(log))

	o.OnVoice(smf.Voice{Status: 0xC1, Data: []byte{73}})

	assert.Contains(t, logs.String(), "Voice event")
	assert.Contains(t, strings.ToLower(logs.String()), "program")
}
