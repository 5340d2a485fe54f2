package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/shouni/go-remote-io/pkg/remoteio"
	"golang.org/x/sync/errgroup"

	"github.com/shouni/go-collage-kit/pkg/domain"
	"github.com/shouni/go-collage-kit/pkg/imgutil"
)

// DefaultParallelism は LoadAll が同時に取得する画像の数の既定値です。
const DefaultParallelism = 4

// HTTPClient は画像の取得に必要な HTTP クライアントの振る舞いです。
type HTTPClient interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

var _ HTTPClient = (httpkit.ClientInterface)(nil)

// Loader は参照 (URL またはパス) から画像を読み込み、ピッカーの入力を組み立てます。
type Loader struct {
	httpClient  HTTPClient
	reader      remoteio.InputReader
	parallelism int
	checkURL    func(string) (bool, error)
}

// Option は Loader の設定を変更します。
type Option func(*Loader)

// WithParallelism は LoadAll の同時取得数を設定します。0 以下は既定値になります。
func WithParallelism(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.parallelism = n
		}
	}
}

// WithURLValidator は HTTP 取得前の URL 検証を差し替えます。
func WithURLValidator(fn func(string) (bool, error)) Option {
	return func(l *Loader) {
		if fn != nil {
			l.checkURL = fn
		}
	}
}

// NewLoader は依存関係を注入して Loader を初期化します。
// httpClient が nil の場合、HTTP(S) の参照はエラーになります。
func NewLoader(httpClient HTTPClient, reader remoteio.InputReader, opts ...Option) (*Loader, error) {
	if reader == nil {
		return nil, fmt.Errorf("reader is required")
	}

	l := &Loader{
		httpClient:  httpClient,
		reader:      reader,
		parallelism: DefaultParallelism,
		checkURL:    IsSafeURL,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Load は ref を1枚の画像として読み込みます。
func (l *Loader) Load(ctx context.Context, ref string) (domain.Image, error) {
	data, err := l.fetch(ctx, ref)
	if err != nil {
		return domain.Image{}, err
	}
	return imgutil.Decode(ref, data)
}

func (l *Loader) fetch(ctx context.Context, ref string) ([]byte, error) {
	if isHTTP(ref) {
		if safe, err := l.checkURL(ref); err != nil || !safe {
			return nil, fmt.Errorf("安全ではないURLが指定されました: %w", err)
		}
		if l.httpClient == nil {
			return nil, fmt.Errorf("http client is not configured: %s", ref)
		}
		return l.httpClient.FetchBytes(ctx, ref)
	}

	rc, err := l.reader.Open(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// LoadAll は refs を並列に読み込み、入力順で返します。
// 読み込めなかった参照はログに記録して読み飛ばします。
func (l *Loader) LoadAll(ctx context.Context, refs []string) ([]domain.Image, error) {
	results := make([]*domain.Image, len(refs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.parallelism)
	for i, ref := range refs {
		g.Go(func() error {
			img, err := l.Load(gctx, ref)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				slog.WarnContext(gctx, "画像の読み込みに失敗したためスキップします", "ref", ref, "error", err)
				return nil
			}
			results[i] = &img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]domain.Image, 0, len(refs))
	for _, img := range results {
		if img != nil {
			out = append(out, *img)
		}
	}
	return out, nil
}

// Stream は refs を LoadAll で並列に先読みし、入力順に流してからチャネルを閉じます。
// チャネルのクローズはピッカーを閉じたことを表します。
func (l *Loader) Stream(ctx context.Context, refs []string) <-chan domain.Image {
	out := make(chan domain.Image)
	go func() {
		defer close(out)
		images, err := l.LoadAll(ctx, refs)
		if err != nil {
			slog.WarnContext(ctx, "画像の読み込みを中断しました", "error", err)
			return
		}
		for _, img := range images {
			select {
			case out <- img:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
