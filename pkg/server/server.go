// Package server exposes playback controls of a song over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/bep/debounce"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/XNargaHuntress/bard-player/pkg/logger"
	"github.com/XNargaHuntress/bard-player/pkg/player"
)

// DefaultTempoDebounce is how long tempo requests are collected before the
// last one is applied.
const DefaultTempoDebounce = 150 * time.Millisecond

// Player is the part of *player.Song the server drives.
type Player interface {
	Summary() player.Summary
	Position() player.Position
	Play(track int) error
	Resume() error
	Pause()
	Stop()
	SetBPM(bpm float64) error
	SetMicrosecondsPerBeat(us float64) error
}

// TempoRequest is the body of PUT /tempo. Exactly one field must be set.
type TempoRequest struct {
	BPM                 *float64 `json:"bpm,omitempty"`
	MicrosecondsPerBeat *float64 `json:"microsecondsPerBeat,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server routes HTTP requests to a Player.
type Server struct {
	player   Player
	log      *slog.Logger
	delay    time.Duration
	debounce func(func())
	handler  http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets a custom logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) {
		s.log = log
	}
}

// WithTempoDebounce sets how long tempo requests are collected.
func WithTempoDebounce(d time.Duration) Option {
	return func(s *Server) {
		s.delay = d
	}
}

// New creates a server for p.
func New(p Player, opts ...Option) *Server {
	s := &Server{
		player: p,
		log:    logger.GetLogger(),
		delay:  DefaultTempoDebounce,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.debounce = debounce.New(s.delay)

	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/song", s.handleSong).Methods(http.MethodGet)
	router.HandleFunc("/position", s.handlePosition).Methods(http.MethodGet)
	router.HandleFunc("/play/{track}", s.handlePlay).Methods(http.MethodPost)
	router.HandleFunc("/resume", s.handleResume).Methods(http.MethodPost)
	router.HandleFunc("/pause", s.handlePause).Methods(http.MethodPost)
	router.HandleFunc("/stop", s.handleStop).Methods(http.MethodPost)
	router.HandleFunc("/tempo", s.handleTempo).Methods(http.MethodPut)

	c := cors.New(cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut},
		AllowedHeaders: []string{"Content-Type"},
	})
	s.handler = c.Handler(router)
	return s
}

// Handler returns the root handler, CORS included.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down HTTP server: %w", err)
		}
		s.log.Info("HTTP server stopped")
		return nil
	}
}

func (s *Server) handleSong(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.player.Summary())
}

func (s *Server) handlePosition(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.player.Position())
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	track, err := strconv.Atoi(mux.Vars(r)["track"])
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid track %q", mux.Vars(r)["track"]))
		return
	}
	if err := s.player.Play(track); err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.player.Position())
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	if err := s.player.Resume(); err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.player.Position())
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.player.Pause()
	s.writeJSON(w, http.StatusOK, s.player.Position())
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.player.Stop()
	s.writeJSON(w, http.StatusOK, s.player.Position())
}

// handleTempo validates the request at once and applies it after the
// debounce delay; only the last request of a burst takes effect.
func (s *Server) handleTempo(w http.ResponseWriter, r *http.Request) {
	var req TempoRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	var apply func() error
	switch {
	case req.BPM != nil && req.MicrosecondsPerBeat == nil:
		bpm := *req.BPM
		if !(bpm > 0) {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %v bpm", player.ErrInvalidTempo, bpm))
			return
		}
		apply = func() error { return s.player.SetBPM(bpm) }
	case req.MicrosecondsPerBeat != nil && req.BPM == nil:
		us := *req.MicrosecondsPerBeat
		if !(us > 0) {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %v us per beat", player.ErrInvalidTempo, us))
			return
		}
		apply = func() error { return s.player.SetMicrosecondsPerBeat(us) }
	default:
		s.writeError(w, http.StatusBadRequest, errors.New("set exactly one of bpm and microsecondsPerBeat"))
		return
	}

	s.debounce(func() {
		if err := apply(); err != nil {
			s.log.Error("Failed to change tempo", "error", err)
		}
	})
	s.writeJSON(w, http.StatusAccepted, req)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, player.ErrNoSuchTrack):
		return http.StatusNotFound
	case errors.Is(err, player.ErrNotPaused):
		return http.StatusConflict
	case errors.Is(err, player.ErrInvalidTempo):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("Failed to write response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.log.Debug("Request failed", "status", status, "error", err)
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}
