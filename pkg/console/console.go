// Package console renders a playing song to a terminal.
package console

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/charmbracelet/lipgloss"
	"gitlab.com/gomidi/midi/v2"

	"github.com/XNargaHuntress/bard-player/pkg/logger"
	"github.com/XNargaHuntress/bard-player/pkg/smf"
)

var (
	octaveStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder(), true, false, true, true).
			Width(2)

	noteStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			Foreground(lipgloss.Color("#FFD700")).
			Bold(true).
			Padding(1, 1)

	textStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			Italic(true)
)

// Observer prints every note on as a small box showing the octave and pitch
// class, and text meta events as plain lines. Voice messages are logged at
// debug level.
type Observer struct {
	w   io.Writer
	log *slog.Logger
}

// Option configures an Observer.
type Option func(*Observer)

// WithLogger sets a custom logger.
func WithLogger(log *slog.Logger) Option {
	return func(o *Observer) {
		o.log = log
	}
}

// New creates an Observer writing to w.
func New(w io.Writer, opts ...Option) *Observer {
	o := &Observer{w: w, log: logger.GetLogger()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RenderNote draws the box for n.
func RenderNote(n smf.Note) string {
	octave := octaveStyle.Render(fmt.Sprintf("%02d", n.Octave()))
	name := noteStyle.Render(n.Name())
	return lipgloss.JoinHorizontal(lipgloss.Top, octave, name)
}

func (o *Observer) OnNote(n smf.Note) {
	if !n.On {
		return
	}
	fmt.Fprintln(o.w, RenderNote(n))
}

func (o *Observer) OnMeta(m smf.Meta) {
	switch m.Type {
	case smf.MetaText, smf.MetaLyric, smf.MetaMarker:
		fmt.Fprintln(o.w, textStyle.Render(string(m.Data)))
	default:
		o.log.Debug("Meta event", "type", fmt.Sprintf("0x%02X", m.Type), "len", len(m.Data))
	}
}

func (o *Observer) OnVoice(v smf.Voice) {
	o.log.Debug("Voice event", "msg", midi.Message(v.Bytes()).String())
}
