package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/shouni/go-collage-kit/pkg/access"
	"github.com/shouni/go-collage-kit/pkg/asset"
	"github.com/shouni/go-collage-kit/pkg/collage"
	"github.com/shouni/go-collage-kit/pkg/domain"
	"github.com/shouni/go-collage-kit/pkg/loop"
	"github.com/shouni/go-collage-kit/pkg/metrics"
	"github.com/shouni/go-collage-kit/pkg/present"
	"github.com/shouni/go-collage-kit/pkg/selection"
)

// メッセージの文言
const (
	MessageNoAccess   = "No access to photo library"
	MessageError      = "Error"
	messageSavedTitle = "Saved with ID: %s"
)

var (
	ErrNoPreview    = errors.New("no collage preview to save")
	ErrSaveDisabled = errors.New("save is not available for the current selection")
	ErrAddDisabled  = errors.New("collage is full")
	ErrBusy         = errors.New("another operation is in progress")
	ErrClosed       = errors.New("controller is closed")
)

// AccessChecker はフォトライブラリへのアクセス可否を確認します。access.Gate が満たします。
type AccessChecker interface {
	CheckAccess(ctx context.Context) <-chan bool
}

// Saver はコラージュを保存します。asset.Writer が満たします。
type Saver interface {
	Save(ctx context.Context, img image.Image) <-chan domain.SaveResult
}

// Composer は画像の一覧から1枚のコラージュを合成します。generator.CollageGenerator が満たします。
type Composer interface {
	Compose(images []domain.Image) (*image.RGBA, error)
}

// Notifier はユーザーにメッセージを表示します。
type Notifier interface {
	ShowMessage(title, description string)
}

// NotifierFunc は関数を Notifier として扱うためのアダプターです。
type NotifierFunc func(title, description string)

// ShowMessage は f を呼び出します。
func (f NotifierFunc) ShowMessage(title, description string) { f(title, description) }

// Picker はアクセスが許可された後に呼ばれ、ユーザーが選んだ画像を流すチャネルを返します。
// チャネルのクローズはピッカーを閉じたことを表します。
type Picker func(ctx context.Context) <-chan domain.Image

// Deps は Controller の依存関係です。
type Deps struct {
	Dispatcher loop.Dispatcher
	Access     AccessChecker
	Saver      Saver
	Composer   Composer
	Notifier   Notifier
	// Debounce はプレビュー描画の待ち時間です。0 なら present.DefaultDebounce です。
	Debounce time.Duration
	Metrics  *metrics.Metrics
	// Fingerprint は重複判定に使う値の計算方法です。nil なら imgutil.Fingerprint です。
	Fingerprint func(domain.Image) int
}

// Controller はメイン画面のロジックです。
// コラージュの状態、選択パイプライン、保存、アクセス確認を所有し、
// すべてのメソッドは Dispatcher の所有コンテキスト上で呼び出す必要があります。
type Controller struct {
	dispatcher loop.Dispatcher
	access     AccessChecker
	saver      Saver
	composer   Composer
	notifier   Notifier

	state    *collage.State
	pipeline *selection.Pipeline
	binder   *present.Binder

	ctx    context.Context
	cancel context.CancelFunc

	controls   present.Controls
	onControls func(present.Controls)
	onPreview  func(image.Image)

	preview        image.Image
	version        uint64
	previewVersion uint64

	selecting bool
	run       *selection.Run
	saving    bool
	closed    bool
}

// New は依存関係を検証して Controller を初期化します。
func New(deps Deps) (*Controller, error) {
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if deps.Access == nil {
		return nil, fmt.Errorf("access checker is required")
	}
	if deps.Saver == nil {
		return nil, fmt.Errorf("saver is required")
	}
	if deps.Composer == nil {
		return nil, fmt.Errorf("composer is required")
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = NotifierFunc(func(title, description string) {
			slog.Info("メッセージ", "title", title, "description", description)
		})
	}

	state := collage.NewState()
	pipeline, err := selection.New(state, deps.Dispatcher,
		selection.WithMetrics(deps.Metrics),
		selection.WithFingerprint(deps.Fingerprint),
	)
	if err != nil {
		return nil, err
	}
	binder, err := present.NewBinder(state, deps.Dispatcher, deps.Debounce)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		dispatcher: deps.Dispatcher,
		access:     deps.Access,
		saver:      deps.Saver,
		composer:   deps.Composer,
		notifier:   notifier,
		state:      state,
		pipeline:   pipeline,
		binder:     binder,
		ctx:        ctx,
		cancel:     cancel,
		controls:   present.Derive(0),
		// previewVersion は version と異なる値から始め、初回描画までは古い扱いにする
		previewVersion: ^uint64(0),
	}, nil
}

// Start は画面の操作状態とプレビューの購読を開始します。
// onControls は即座に現在の状態で呼ばれ、onPreview は遅延して呼ばれます。
func (c *Controller) Start(onControls func(present.Controls), onPreview func(image.Image)) {
	c.onControls = onControls
	c.onPreview = onPreview
	c.binder.Bind(c.handleChange, c.render)
}

func (c *Controller) handleChange(ctrls present.Controls) {
	c.version++
	c.controls = ctrls
	if c.onControls != nil {
		c.onControls(ctrls)
	}
}

func (c *Controller) render(images []domain.Image) {
	if c.closed {
		return
	}
	c.renderNow(images)
}

func (c *Controller) renderNow(images []domain.Image) image.Image {
	c.preview = nil
	if len(images) > 0 {
		img, err := c.composer.Compose(images)
		if err != nil {
			slog.Warn("プレビューの合成に失敗しました", "count", len(images), "error", err)
		} else {
			c.preview = img
		}
	}
	c.previewVersion = c.version
	if c.onPreview != nil {
		c.onPreview(c.preview)
	}
	return c.preview
}

// Preview は現在の状態に対応するコラージュを返します。描画が古ければその場で描画し直します。
func (c *Controller) Preview() image.Image {
	if c.previewVersion != c.version || c.binder.RenderPending() {
		c.binder.CancelRender()
		return c.renderNow(c.state.Images())
	}
	return c.preview
}

// Controls は現在の操作状態を返します。
func (c *Controller) Controls() present.Controls { return c.controls }

// Images は現在選択されている画像のコピーを返します。
func (c *Controller) Images() []domain.Image { return c.state.Images() }

// Selecting は選択セッション (アクセス確認を含む) が進行中かどうかを返します。
func (c *Controller) Selecting() bool { return c.selecting }

// Saving は保存が進行中かどうかを返します。
func (c *Controller) Saving() bool { return c.saving }

// scope は ctx と Controller の寿命の両方に従う context を返します。
func (c *Controller) scope(ctx context.Context) (context.Context, context.CancelFunc) {
	sctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(c.ctx, cancel)
	return sctx, func() {
		stop()
		cancel()
	}
}

// Add はアクセスを確認し、許可されていれば picker から届く画像の選択セッションを開始します。
// done はセッションの終了時に所有コンテキスト上で1回呼ばれます (nil 可)。
func (c *Controller) Add(ctx context.Context, picker Picker, done func(selection.Summary)) error {
	if c.closed {
		return ErrClosed
	}
	if picker == nil {
		return fmt.Errorf("picker is required")
	}
	if !c.controls.AddEnabled {
		return ErrAddDisabled
	}
	if c.selecting {
		return ErrBusy
	}

	c.selecting = true
	actx, release := c.scope(ctx)

	finish := func(sum selection.Summary) {
		release()
		c.selecting = false
		c.run = nil
		if done != nil {
			done(sum)
		}
	}

	granted := false
	access.Forward(c.access.CheckAccess(actx), c.dispatcher,
		func(v bool) { granted = v },
		func() {
			if c.closed || actx.Err() != nil {
				finish(selection.Summary{Reason: selection.EndCancelled})
				return
			}
			if !granted {
				slog.Info("フォトライブラリへのアクセスが許可されていません")
				c.notifier.ShowMessage(MessageNoAccess, "")
				finish(selection.Summary{Reason: selection.EndAccessDenied})
				return
			}

			c.run = c.pipeline.Run(actx, picker(actx), func(sum selection.Summary) {
				slog.Info("写真の選択が完了しました", "reason", sum.Reason, "accepted", sum.Accepted, "count", c.state.Len())
				finish(sum)
				c.refreshControls()
			})
		})
	return nil
}

// refreshControls は現在の操作状態を再通知します。
func (c *Controller) refreshControls() {
	if c.closed || c.onControls == nil {
		return
	}
	c.onControls(c.controls)
}

// CancelSelection は進行中の選択セッションを終了させます。
func (c *Controller) CancelSelection() {
	if c.run != nil {
		c.run.Cancel()
	}
}

// Clear はコラージュとフィンガープリントのキャッシュを空にします。
func (c *Controller) Clear() {
	if c.closed {
		return
	}
	c.state.Clear()
}

// Save は現在のプレビューを保存します。成功すると通知してコラージュを空にし、
// 失敗するとエラーを通知してコラージュはそのまま残します。
func (c *Controller) Save(ctx context.Context) error {
	if c.closed {
		return ErrClosed
	}
	if c.saving {
		return ErrBusy
	}
	if !c.controls.SaveEnabled {
		return ErrSaveDisabled
	}
	preview := c.Preview()
	if preview == nil {
		return ErrNoPreview
	}

	c.saving = true
	sctx, release := c.scope(ctx)
	asset.Forward(c.saver.Save(sctx, preview), c.dispatcher, func(res domain.SaveResult) {
		release()
		c.saving = false
		if c.closed {
			return
		}
		if res.OK() {
			c.notifier.ShowMessage(fmt.Sprintf(messageSavedTitle, res.AssetID), "")
			c.Clear()
			return
		}
		err := res.Err
		if err == nil {
			err = asset.ErrCouldNotSave
		}
		c.notifier.ShowMessage(MessageError, err.Error())
	})
	return nil
}

// Close は進行中の処理と購読をすべて解放します。何度呼んでも安全です。
func (c *Controller) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.cancel()
	if c.run != nil {
		c.run.Cancel()
	}
	c.binder.Stop()
}
