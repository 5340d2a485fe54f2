package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shouni/go-http-kit/pkg/httpkit"
	"google.golang.org/genai"

	"github.com/shouni/go-collage-kit/pkg/access"
	"github.com/shouni/go-collage-kit/pkg/adapters"
	"github.com/shouni/go-collage-kit/pkg/app"
	"github.com/shouni/go-collage-kit/pkg/asset"
	"github.com/shouni/go-collage-kit/pkg/config"
	"github.com/shouni/go-collage-kit/pkg/domain"
	"github.com/shouni/go-collage-kit/pkg/generator"
	"github.com/shouni/go-collage-kit/pkg/loop"
	"github.com/shouni/go-collage-kit/pkg/metrics"
	"github.com/shouni/go-collage-kit/pkg/photolib"
	"github.com/shouni/go-collage-kit/pkg/source"
)

const (
	uploadCacheSize = 128
	uploadCacheTTL  = 48 * time.Hour // Gemini File API のファイル保持期間
)

var (
	registry = prometheus.NewRegistry()
	meters   = metrics.New(registry)
)

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// setupFileLogger は TUI 用にログをファイルへ向けます。端末の描画を乱さないためです。
func setupFileLogger(lc config.LogConfig) (func(), error) {
	if lc.File == "" {
		slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
		return func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(lc.File), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(lc.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: parseLevel(lc.Level)})))
	return func() { _ = f.Close() }, nil
}

func setupStderrLogger(w io.Writer, lc config.LogConfig) {
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: parseLevel(lc.Level)})))
}

// serveMetrics は addr が空でなければ /metrics を公開します。返り値で停止します。
func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry) func() {
	if addr == "" {
		return func() {}
	}

	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		slog.InfoContext(ctx, "メトリクスを公開します", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.ErrorContext(ctx, "メトリクスサーバーが停止しました", "error", err)
		}
	}()
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
}

// store は設定された保存先です。
type store struct {
	access access.Library
	assets asset.Store
	close  func()
}

func (s *store) Close() {
	if s.close != nil {
		s.close()
	}
}

// openStore は設定に従って保存先を開きます。prompter は sqlite の許可要求に使われます。
func openStore(ctx context.Context, cfg config.Config, prompter photolib.Prompter) (*store, error) {
	switch cfg.Store.Backend {
	case config.BackendGemini:
		apiKey := cfg.Gemini.ResolveAPIKey()
		if apiKey == "" {
			return nil, fmt.Errorf("gemini backend requires an API key (%s)", cfg.Gemini.APIKeyEnv)
		}
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("create genai client: %w", err)
		}
		uploader, err := adapters.NewGenAIUploader(client)
		if err != nil {
			return nil, err
		}
		assets, err := adapters.NewGeminiAssetStore(uploader, adapters.NewLRUCache(uploadCacheSize, uploadCacheTTL), uploadCacheTTL)
		if err != nil {
			return nil, err
		}
		// File API には許可の概念が無い
		return &store{access: access.Static(domain.AuthAuthorized), assets: assets}, nil

	default:
		lib, err := openLibrary(cfg.Library, prompter)
		if err != nil {
			return nil, err
		}
		return &store{access: lib, assets: lib, close: func() { _ = lib.Close() }}, nil
	}
}

func openLibrary(lc config.LibraryConfig, prompter photolib.Prompter) (*photolib.Library, error) {
	if err := os.MkdirAll(filepath.Dir(lc.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create library directory: %w", err)
	}
	if lc.AutoGrant {
		prompter = photolib.PromptFunc(func(context.Context) (bool, error) { return true, nil })
	}
	return photolib.Open(lc.Path, prompter)
}

func newLoader(sc config.SourceConfig, reader *source.DirReader) (*source.Loader, error) {
	client := httpkit.New(sc.HTTPTimeout)
	return source.NewLoader(client, reader, source.WithParallelism(sc.Parallelism))
}

// newController は画面ロジックを組み立てます。
func newController(d loop.Dispatcher, st *store, notifier app.Notifier) (*app.Controller, error) {
	gate, err := access.NewGate(st.access)
	if err != nil {
		return nil, err
	}
	writer, err := asset.NewWriter(st.assets, cfg.Collage.JPEGQuality, meters)
	if err != nil {
		return nil, err
	}
	gen, err := generator.NewCollageGenerator(cfg.Collage.Width, cfg.Collage.Height)
	if err != nil {
		return nil, err
	}
	return app.New(app.Deps{
		Dispatcher: d,
		Access:     gate,
		Saver:      writer,
		Composer:   gen,
		Notifier:   notifier,
		Debounce:   cfg.Preview.Debounce,
		Metrics:    meters,
	})
}
