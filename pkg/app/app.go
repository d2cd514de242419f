package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/XNargaHuntress/bard-player/pkg/cli"
	"github.com/XNargaHuntress/bard-player/pkg/console"
	"github.com/XNargaHuntress/bard-player/pkg/logger"
	"github.com/XNargaHuntress/bard-player/pkg/player"
	"github.com/XNargaHuntress/bard-player/pkg/server"
)

// ErrNoPlayableTrack は演奏可能なトラックがない場合のエラー
var ErrNoPlayableTrack = errors.New("song has no playable track")

// Application はアプリケーションのメインロジックを管理する
type Application struct {
	config *cli.Config
	log    *slog.Logger
	stdout io.Writer
	stderr io.Writer
	getenv func(string) string
}

// Option はApplicationの設定を変更する
type Option func(*Application)

// WithOutput 標準出力と標準エラー出力の代わりを指定する
func WithOutput(stdout, stderr io.Writer) Option {
	return func(app *Application) {
		app.stdout = stdout
		app.stderr = stderr
	}
}

// WithGetenv 環境変数の取得関数を指定する
func WithGetenv(getenv func(string) string) Option {
	return func(app *Application) {
		app.getenv = getenv
	}
}

// New Applicationを作成
func New(opts ...Option) *Application {
	app := &Application{
		stdout: os.Stdout,
		stderr: os.Stderr,
		getenv: os.Getenv,
	}
	for _, opt := range opts {
		opt(app)
	}
	return app
}

// Run アプリケーションを実行（SIGINT/SIGTERMで終了）
func (app *Application) Run(args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return app.RunContext(ctx, args)
}

// RunContext ctxが終了するまでアプリケーションを実行
func (app *Application) RunContext(ctx context.Context, args []string) error {
	app.config = cli.DefaultConfig()
	root := app.rootCommand()
	root.SetArgs(args)
	root.SetOut(app.stdout)
	root.SetErr(app.stderr)
	return root.ExecuteContext(ctx)
}

func (app *Application) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "bardplayer",
		Short: "Play one track of a Standard MIDI File in real time",
		Long: `bardplayer plays a single track of a Standard MIDI File in real time,
drawing each note as it sounds. Chords can be broken into arpeggios and
ticks can be mapped to frames of a fixed frame rate.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.initialize(cmd)
		},
	}
	app.config.BindGlobalFlags(root.PersistentFlags())

	root.AddCommand(app.infoCommand(), app.playCommand(), app.serveCommand())
	return root
}

// initialize 環境変数を反映して設定を検証し、ロガーを初期化する
func (app *Application) initialize(cmd *cobra.Command) error {
	if err := app.config.ApplyEnv(cmd.Flags(), app.getenv); err != nil {
		return err
	}
	if err := app.config.Validate(); err != nil {
		return err
	}
	if err := logger.InitLogger(app.config.LogLevel, app.config.LogFormat, app.stderr); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	app.log = logger.GetLogger()
	return nil
}

func (app *Application) infoCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "info <file.mid>",
		Short: "Show the tracks of a song",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app.config.SongPath = args[0]
			song, err := player.Load(app.config.SongPath, player.WithCharset(app.config.Charset))
			if err != nil {
				return err
			}
			defer song.Close()

			if asJSON {
				enc := json.NewEncoder(app.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(song.Summary())
			}
			return writeSummary(app.stdout, song.Summary())
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "JSON形式で出力")
	return cmd
}

// writeSummary 曲の概要を表形式で書き出す
func writeSummary(w io.Writer, sum player.Summary) error {
	fmt.Fprintf(w, "format %d, %g ticks per quarter note, %g bpm\n", sum.Format, sum.PPQ, sum.BPM)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TRACK\tNAME\tINSTRUMENT\tEVENTS\tDURATION\t")
	for _, t := range sum.Tracks {
		name := t.Name
		if t.DataOnly {
			name += " (data)"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%.3fs\t\n", t.Index, name, t.Instrument, t.Events, float64(t.DurationMS)/1000)
	}
	return tw.Flush()
}

func (app *Application) playCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play <file.mid>",
		Short: "Play a track until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app.config.SongPath = args[0]
			song, err := app.loadSong()
			if err != nil {
				return err
			}
			defer song.Close()

			track, err := app.selectTrack(song)
			if err != nil {
				return err
			}
			if err := song.Play(track); err != nil {
				return err
			}
			app.wait(cmd.Context())
			return nil
		},
	}
	app.config.BindPlaybackFlags(cmd.Flags())
	return cmd
}

func (app *Application) serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve <file.mid>",
		Short: "Control playback over HTTP",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app.config.SongPath = args[0]
			song, err := app.loadSong()
			if err != nil {
				return err
			}
			defer song.Close()

			ctx, cancel := app.withTimeout(cmd.Context())
			defer cancel()

			srv := server.New(song, server.WithLogger(app.log))
			return srv.ListenAndServe(ctx, app.config.Addr)
		},
	}
	app.config.BindPlaybackFlags(cmd.Flags())
	app.config.BindServeFlags(cmd.Flags())
	return cmd
}

// loadSong 曲を読み込み、テンポ・フレームレート・アルペジオの設定を適用する
func (app *Application) loadSong() (*player.Song, error) {
	song, err := player.Load(app.config.SongPath,
		player.WithCharset(app.config.Charset),
		player.WithLogger(app.log),
		player.WithObserver(console.New(app.stdout, console.WithLogger(app.log))),
	)
	if err != nil {
		return nil, err
	}

	if app.config.BPM > 0 {
		if err := song.SetBPM(app.config.BPM); err != nil {
			return nil, err
		}
	}
	// フレームレート変換はテンポ確定後に行う
	if app.config.FPS > 0 {
		if err := song.SetFrameRate(app.config.FPS); err != nil {
			return nil, err
		}
	}
	if app.config.Arpeggio > 0 {
		if err := song.ApplyArpeggio(app.config.Arpeggio); err != nil {
			return nil, err
		}
	}

	app.log.Info("Song ready",
		"tracks", len(song.Tracks()),
		"bpm", song.BPM(),
		"ppq", song.PPQ(),
		"tick_interval", song.TickInterval())
	return song, nil
}

// selectTrack 指定されたトラック、または最初の演奏可能トラックを返す
func (app *Application) selectTrack(song *player.Song) (int, error) {
	if app.config.Track != cli.AutoTrack {
		return app.config.Track, nil
	}
	track, ok := song.FirstPlayable()
	if !ok {
		return 0, ErrNoPlayableTrack
	}
	app.log.Info("Track selected", "track", track, "name", song.Tracks()[track].Name)
	return track, nil
}

// wait 割り込みまたはタイムアウトまで待機
func (app *Application) wait(ctx context.Context) {
	ctx, cancel := app.withTimeout(ctx)
	defer cancel()

	<-ctx.Done()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		app.log.Info("Timeout reached, terminating")
	} else {
		app.log.Info("Interrupted, terminating")
	}
}

func (app *Application) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if app.config.Timeout > 0 {
		app.log.Debug("Waiting for timeout", "duration", app.config.Timeout)
		return context.WithTimeout(ctx, app.config.Timeout)
	}
	return context.WithCancel(ctx)
}
