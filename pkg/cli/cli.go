package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/XNargaHuntress/bard-player/pkg/logger"
	"github.com/XNargaHuntress/bard-player/pkg/smf"
)

// 既定値
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
	DefaultAddr      = ":8080"
	DefaultFPS       = 60
	DefaultArpeggio  = 1
	// AutoTrack は最初の演奏可能トラックを選ぶ
	AutoTrack = -1
)

// Config はコマンドライン引数と環境変数から解析された設定を保持する
type Config struct {
	SongPath  string        // MIDIファイルのパス
	Track     int           // 演奏するトラック（AutoTrackは自動選択）
	BPM       float64       // テンポの上書き（0はファイルのテンポ）
	FPS       float64       // 1ティックを1フレームに変換するフレームレート（0は変換しない）
	Arpeggio  uint32        // アルペジオの1ステップのティック数（0は無効）
	Charset   string        // トラック名の文字コード
	Timeout   time.Duration // タイムアウト時間（0は無制限）
	Addr      string        // HTTPサーバのアドレス
	LogLevel  string        // ログレベル（debug, info, warn, error）
	LogFormat string        // ログ形式（text, json）
}

// DefaultConfig 既定値で初期化したConfigを返す
func DefaultConfig() *Config {
	return &Config{
		Track:     AutoTrack,
		FPS:       DefaultFPS,
		Arpeggio:  DefaultArpeggio,
		Charset:   smf.CharsetRaw,
		Addr:      DefaultAddr,
		LogLevel:  DefaultLogLevel,
		LogFormat: DefaultLogFormat,
	}
}

// BindGlobalFlags すべてのサブコマンドに共通のフラグを登録する
func (c *Config) BindGlobalFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "ログレベル（debug, info, warn, error）")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "ログ形式（text, json）")
	fs.StringVar(&c.Charset, "charset", c.Charset, "トラック名の文字コード（raw, sjis, utf-8, latin1 など）")
}

// BindPlaybackFlags 演奏に関するフラグを登録する
func (c *Config) BindPlaybackFlags(fs *pflag.FlagSet) {
	fs.IntVar(&c.Track, "track", c.Track, "演奏するトラック番号（-1で最初の演奏可能トラック）")
	fs.Float64Var(&c.BPM, "bpm", c.BPM, "テンポを上書き（0でファイルのテンポ）")
	fs.Float64Var(&c.FPS, "fps", c.FPS, "1ティックを1フレームとするフレームレート（0で変換しない）")
	fs.Uint32Var(&c.Arpeggio, "arpeggio", c.Arpeggio, "和音をアルペジオにするステップ幅（ティック、0で無効）")
	fs.DurationVarP(&c.Timeout, "timeout", "t", c.Timeout, "指定時間後に終了（例: 30s、0は無制限）")
}

// BindServeFlags HTTPサーバのフラグを登録する
func (c *Config) BindServeFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.Addr, "addr", c.Addr, "HTTPサーバのアドレス")
}

// envBinding はフラグ名と環境変数の対応
type envBinding struct {
	flag string
	env  string
}

var envBindings = []envBinding{
	{"log-level", "LOG_LEVEL"},
	{"log-format", "LOG_FORMAT"},
	{"timeout", "TIMEOUT"},
	{"charset", "BARD_CHARSET"},
	{"addr", "BARD_ADDR"},
}

// ApplyEnv 環境変数からの設定（コマンドラインフラグが優先）
// fsに登録されていないフラグの環境変数は無視する
func (c *Config) ApplyEnv(fs *pflag.FlagSet, getenv func(string) string) error {
	for _, b := range envBindings {
		if fs.Lookup(b.flag) == nil || fs.Changed(b.flag) {
			continue
		}
		v := getenv(b.env)
		if v == "" {
			continue
		}

		switch b.flag {
		case "log-level":
			c.LogLevel = strings.ToLower(v)
		case "log-format":
			c.LogFormat = strings.ToLower(v)
		case "timeout":
			d, err := parseTimeout(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", b.env, err)
			}
			c.Timeout = d
		case "charset":
			c.Charset = v
		case "addr":
			c.Addr = v
		}
	}
	return nil
}

// parseTimeout 秒数（整数）またはGoのduration形式を受け付ける
func parseTimeout(v string) (time.Duration, error) {
	if sec, err := strconv.Atoi(v); err == nil {
		return time.Duration(sec) * time.Second, nil
	}
	return time.ParseDuration(v)
}

// Validate 設定値を検証する
func (c *Config) Validate() error {
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.LogFormat)
	}

	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative, got %v", c.Timeout)
	}

	if c.BPM < 0 {
		return fmt.Errorf("bpm must be non-negative, got %v", c.BPM)
	}

	if c.FPS < 0 {
		return fmt.Errorf("fps must be non-negative, got %v", c.FPS)
	}

	if c.Track < AutoTrack {
		return fmt.Errorf("invalid track: %d", c.Track)
	}

	if _, err := smf.LookupCharset(c.Charset); err != nil {
		return err
	}

	return nil
}
