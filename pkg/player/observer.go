package player

import "github.com/XNargaHuntress/bard-player/pkg/smf"

// Observer receives the events a playing song fires. Methods are called on
// the tick goroutine while the song is locked: they must return quickly and
// must not call back into the Song.
type Observer interface {
	OnNote(smf.Note)
	OnMeta(smf.Meta)
	OnVoice(smf.Voice)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) OnNote(smf.Note)   {}
func (NopObserver) OnMeta(smf.Meta)   {}
func (NopObserver) OnVoice(smf.Voice) {}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	Note  func(smf.Note)
	Meta  func(smf.Meta)
	Voice func(smf.Voice)
}

func (o ObserverFuncs) OnNote(n smf.Note) {
	if o.Note != nil {
		o.Note(n)
	}
}

func (o ObserverFuncs) OnMeta(m smf.Meta) {
	if o.Meta != nil {
		o.Meta(m)
	}
}

func (o ObserverFuncs) OnVoice(v smf.Voice) {
	if o.Voice != nil {
		o.Voice(v)
	}
}
