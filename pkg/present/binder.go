package present

import (
	"fmt"
	"time"

	"github.com/shouni/go-collage-kit/pkg/collage"
	"github.com/shouni/go-collage-kit/pkg/domain"
	"github.com/shouni/go-collage-kit/pkg/loop"
)

// Observable は Binder が購読するコラージュの状態です。collage.State が満たします。
type Observable interface {
	Observe(fn collage.Observer) *collage.Subscription
}

// Binder はコラージュの状態を画面に結び付けます。
// 操作の有効状態は変更のたびに即座に、プレビューは Debouncer を通して遅延させて通知します。
type Binder struct {
	state    Observable
	debounce *Debouncer
	sub      *collage.Subscription
}

// NewBinder は依存関係を注入して Binder を初期化します。
// delay が 0 以下の場合は DefaultDebounce を使います。
func NewBinder(state Observable, d loop.Dispatcher, delay time.Duration) (*Binder, error) {
	if state == nil {
		return nil, fmt.Errorf("state is required")
	}
	if d == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Binder{state: state, debounce: NewDebouncer(d, delay)}, nil
}

// Bind は購読を開始します。onControls は登録時に現在の値で同期的に呼ばれます。
// 所有コンテキスト上で呼び出してください。
func (b *Binder) Bind(onControls func(Controls), onRender func([]domain.Image)) {
	b.sub.Cancel()
	b.sub = b.state.Observe(func(images []domain.Image) {
		if onControls != nil {
			onControls(Derive(len(images)))
		}
		if onRender != nil {
			b.debounce.Trigger(func() { onRender(images) })
		}
	})
}

// RenderPending は遅延中のプレビュー描画があるかどうかを返します。
func (b *Binder) RenderPending() bool {
	return b.debounce.Pending()
}

// CancelRender は遅延中のプレビュー描画を取り消します。
func (b *Binder) CancelRender() {
	b.debounce.Cancel()
}

// Stop は購読を解除し、遅延中の描画を取り消します。
func (b *Binder) Stop() {
	b.sub.Cancel()
	b.debounce.Stop()
}
