package asset

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/shouni/go-collage-kit/pkg/domain"
	"github.com/shouni/go-collage-kit/pkg/imgutil"
	"github.com/shouni/go-collage-kit/pkg/loop"
	"github.com/shouni/go-collage-kit/pkg/metrics"
)

// ErrCouldNotSave は保存先が識別子を返さなかった場合のエラーです。
var ErrCouldNotSave = errors.New("could not save photo")

// Store はフォトライブラリへの書き込みを抽象化するインターフェースです。
// CreateAsset は1回の不可分な書き込みを行い、作成したアセットの識別子を返します。
type Store interface {
	CreateAsset(ctx context.Context, data []byte, mimeType string) (string, error)
}

// Writer は合成済みのコラージュをエンコードして Store に保存します。
type Writer struct {
	store   Store
	quality int
	metrics *metrics.Metrics
}

// NewWriter は依存関係を注入して Writer を初期化します。quality は JPEG 品質です。
func NewWriter(store Store, quality int, m *metrics.Metrics) (*Writer, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	return &Writer{store: store, quality: quality, metrics: m}, nil
}

// Save は img を保存し、結果をちょうど1つ流して閉じるワンショットのストリームを返します。
// 成功時は AssetID、失敗時は Err のどちらか一方だけが設定されます。
func (w *Writer) Save(ctx context.Context, img image.Image) <-chan domain.SaveResult {
	out := make(chan domain.SaveResult, 1)
	go func() {
		defer close(out)
		out <- w.save(ctx, img)
	}()
	return out
}

func (w *Writer) save(ctx context.Context, img image.Image) domain.SaveResult {
	start := time.Now()
	res := w.write(ctx, img)
	w.metrics.ObserveSave(res.Err == nil, time.Since(start))

	if res.Err != nil {
		slog.WarnContext(ctx, "コラージュの保存に失敗しました", "error", res.Err)
	} else {
		slog.InfoContext(ctx, "コラージュを保存しました", "asset_id", res.AssetID, "elapsed", time.Since(start))
	}
	return res
}

func (w *Writer) write(ctx context.Context, img image.Image) domain.SaveResult {
	if err := ctx.Err(); err != nil {
		return domain.SaveResult{Err: err}
	}

	data, err := imgutil.EncodeJPEG(img, w.quality)
	if err != nil {
		return domain.SaveResult{Err: fmt.Errorf("コラージュのエンコードに失敗しました: %w", err)}
	}

	id, err := w.store.CreateAsset(ctx, data, "image/jpeg")
	if err != nil {
		return domain.SaveResult{Err: err}
	}
	if id == "" {
		return domain.SaveResult{Err: ErrCouldNotSave}
	}
	return domain.SaveResult{AssetID: id}
}

// Forward は保存結果を d 上で fn に渡します。
func Forward(results <-chan domain.SaveResult, d loop.Dispatcher, fn func(domain.SaveResult)) {
	go func() {
		res, ok := <-results
		if !ok {
			res = domain.SaveResult{Err: ErrCouldNotSave}
		}
		d.Dispatch(func() { fn(res) })
	}()
}
