package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config はアプリケーション全体の設定です。
type Config struct {
	Library LibraryConfig `mapstructure:"library"`
	Store   StoreConfig   `mapstructure:"store"`
	Gemini  GeminiConfig  `mapstructure:"gemini"`
	Collage CollageConfig `mapstructure:"collage"`
	Preview PreviewConfig `mapstructure:"preview"`
	Source  SourceConfig  `mapstructure:"source"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// LibraryConfig は sqlite フォトライブラリの設定です。
type LibraryConfig struct {
	Path string `mapstructure:"path"`
	// AutoGrant が true の場合、許可ダイアログを出さずに許可します。ヘッドレス実行向けです。
	AutoGrant bool `mapstructure:"auto_grant"`
}

// StoreConfig は保存先の選択です。
type StoreConfig struct {
	Backend string `mapstructure:"backend"`
}

// GeminiConfig は Gemini File API の設定です。
type GeminiConfig struct {
	APIKeyEnv string `mapstructure:"api_key_env"`
	APIKey    string `mapstructure:"api_key"`
}

// CollageConfig は合成画像の設定です。
type CollageConfig struct {
	Width       int `mapstructure:"width"`
	Height      int `mapstructure:"height"`
	JPEGQuality int `mapstructure:"jpeg_quality"`
}

// PreviewConfig はプレビュー描画の設定です。
type PreviewConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

// SourceConfig は画像の読み込み元の設定です。
type SourceConfig struct {
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
	Parallelism int           `mapstructure:"parallelism"`
}

// LogConfig はログ出力の設定です。
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// MetricsConfig は Prometheus エンドポイントの設定です。空なら公開しません。
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

const (
	BackendSQLite = "sqlite"
	BackendGemini = "gemini"
)

// Load は設定ファイルと環境変数から設定を読み込みます。
// path が空の場合は COLLAGE_CONFIG、それも無ければ ~/.config/collage/config.toml を探します。
// 環境変数は COLLAGE_ を接頭辞として各キーを上書きします (例: COLLAGE_COLLAGE_WIDTH)。
func Load(path string) (Config, error) {
	v := viper.New()

	home := os.Getenv("HOME")
	v.SetDefault("library.path", filepath.Join(home, ".local", "share", "collage", "library.db"))
	v.SetDefault("library.auto_grant", false)
	v.SetDefault("store.backend", BackendSQLite)
	v.SetDefault("gemini.api_key_env", "GEMINI_API_KEY")
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("collage.width", 1200)
	v.SetDefault("collage.height", 1200)
	v.SetDefault("collage.jpeg_quality", 90)
	v.SetDefault("preview.debounce", "500ms")
	v.SetDefault("source.http_timeout", "30s")
	v.SetDefault("source.parallelism", 4)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", filepath.Join(home, ".local", "state", "collage", "collage.log"))
	v.SetDefault("metrics.addr", "")

	v.SetConfigType("toml")

	if path == "" {
		path = os.Getenv("COLLAGE_CONFIG")
	}
	explicit := path != ""
	if explicit {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(filepath.Join(home, ".config", "collage"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("COLLAGE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		// 明示されたファイルが読めない場合だけエラーにする
		if explicit {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate は設定値の整合性を確認します。
func (c Config) Validate() error {
	switch c.Store.Backend {
	case BackendSQLite, BackendGemini:
	default:
		return fmt.Errorf("unknown store backend: %q", c.Store.Backend)
	}
	if c.Collage.Width <= 0 || c.Collage.Height <= 0 {
		return fmt.Errorf("collage size must be positive: %dx%d", c.Collage.Width, c.Collage.Height)
	}
	if c.Collage.JPEGQuality < 1 || c.Collage.JPEGQuality > 100 {
		return fmt.Errorf("jpeg quality must be in 1..100: %d", c.Collage.JPEGQuality)
	}
	return nil
}

// ResolveAPIKey は Gemini の API キーを返します。設定値が空なら APIKeyEnv の環境変数を参照します。
func (g GeminiConfig) ResolveAPIKey() string {
	if g.APIKey != "" {
		return g.APIKey
	}
	if g.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(g.APIKeyEnv)
}
