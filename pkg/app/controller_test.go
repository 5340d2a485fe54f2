package app

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/go-collage-kit/pkg/access"
	"github.com/shouni/go-collage-kit/pkg/asset"
	"github.com/shouni/go-collage-kit/pkg/domain"
	"github.com/shouni/go-collage-kit/pkg/generator"
	"github.com/shouni/go-collage-kit/pkg/loop"
	"github.com/shouni/go-collage-kit/pkg/present"
	"github.com/shouni/go-collage-kit/pkg/selection"
)

const waitFor = 2 * time.Second

type harness struct {
	t        *testing.T
	loop     *loop.Loop
	c        *Controller
	store    *mockStore
	notifier *mockNotifier
	previews chan image.Image
}

func newHarness(t *testing.T, status domain.AuthStatus, store *mockStore) *harness {
	t.Helper()

	l := loop.New()
	go func() { _ = l.Run(context.Background()) }()
	t.Cleanup(l.Close)

	gate, err := access.NewGate(access.Static(status))
	require.NoError(t, err)
	writer, err := asset.NewWriter(store, 80, nil)
	require.NoError(t, err)
	gen, err := generator.NewCollageGenerator(60, 40)
	require.NoError(t, err)

	h := &harness{
		t:        t,
		loop:     l,
		store:    store,
		notifier: newMockNotifier(),
		previews: make(chan image.Image, 16),
	}
	h.c, err = New(Deps{
		Dispatcher:  l,
		Access:      gate,
		Saver:       writer,
		Composer:    gen,
		Notifier:    h.notifier,
		Debounce:    20 * time.Millisecond,
		Fingerprint: func(img domain.Image) int { return len(img.Data) },
	})
	require.NoError(t, err)

	h.on(func() {
		h.c.Start(nil, func(img image.Image) {
			select {
			case h.previews <- img:
			default:
			}
		})
	})
	t.Cleanup(func() { _ = loop.Await(context.Background(), l, h.c.Close) })
	return h
}

// on は fn を所有コンテキスト上で実行して完了を待ちます。
func (h *harness) on(fn func()) {
	h.t.Helper()
	require.NoError(h.t, loop.Await(context.Background(), h.loop, fn))
}

// add は選択セッションを実行し、終了するまで待ちます。
func (h *harness) add(images ...domain.Image) selection.Summary {
	h.t.Helper()
	picker, _ := pickerOf(images...)
	done := make(chan selection.Summary, 1)
	var err error
	h.on(func() { err = h.c.Add(context.Background(), picker, func(s selection.Summary) { done <- s }) })
	require.NoError(h.t, err)

	select {
	case s := <-done:
		return s
	case <-time.After(waitFor):
		h.t.Fatal("selection did not complete")
		return selection.Summary{}
	}
}

func (h *harness) state() (n, fingerprints int, controls present.Controls) {
	h.t.Helper()
	h.on(func() {
		n = h.c.state.Len()
		fingerprints = h.c.state.FingerprintCount()
		controls = h.c.Controls()
	})
	return n, fingerprints, controls
}

func (h *harness) nextMessage() message {
	h.t.Helper()
	select {
	case m := <-h.notifier.messages:
		return m
	case <-time.After(waitFor):
		h.t.Fatal("no message was shown")
		return message{}
	}
}

// photo は幅 40・高さ 20 の横長画像です。size がそのままフィンガープリントになります。
func photo(name string, size int) domain.Image {
	return domain.Image{Source: name, Data: make([]byte, size), Width: 40, Height: 20}
}

func TestNew(t *testing.T) {
	gate, _ := access.NewGate(access.Static(domain.AuthAuthorized))
	writer, _ := asset.NewWriter(&mockStore{}, 80, nil)
	gen, _ := generator.NewCollageGenerator(10, 10)

	full := Deps{Dispatcher: loop.Inline{}, Access: gate, Saver: writer, Composer: gen}
	_, err := New(full)
	require.NoError(t, err)

	for name, mutate := range map[string]func(*Deps){
		"dispatcher": func(d *Deps) { d.Dispatcher = nil },
		"access":     func(d *Deps) { d.Access = nil },
		"saver":      func(d *Deps) { d.Saver = nil },
		"composer":   func(d *Deps) { d.Composer = nil },
	} {
		t.Run(name+"は必須", func(t *testing.T) {
			deps := full
			mutate(&deps)
			_, err := New(deps)
			assert.Error(t, err)
		})
	}
}

func TestController_Selection(t *testing.T) {
	t.Run("横長で重複のない6枚で上限に達し保存可能で追加不可になる", func(t *testing.T) {
		h := newHarness(t, domain.AuthAuthorized, &mockStore{})

		sum := h.add(photo("1", 1), photo("2", 2), photo("3", 3), photo("4", 4), photo("5", 5), photo("6", 6), photo("7", 7))
		assert.Equal(t, selection.EndCapacity, sum.Reason)
		assert.Equal(t, 6, sum.Accepted)

		n, _, controls := h.state()
		assert.Equal(t, domain.MaxCollageImages, n)
		assert.True(t, controls.SaveEnabled)
		assert.False(t, controls.AddEnabled)
		assert.Equal(t, "6 photos", controls.Title)

		var err error
		picker, _ := pickerOf(photo("8", 8))
		h.on(func() { err = h.c.Add(context.Background(), picker, nil) })
		assert.ErrorIs(t, err, ErrAddDisabled)
	})

	t.Run("同じバイト長の2枚目は捨てられる", func(t *testing.T) {
		h := newHarness(t, domain.AuthAuthorized, &mockStore{})

		sum := h.add(photo("first", 100), photo("different-but-same-size", 100))
		assert.Equal(t, selection.EndInputClosed, sum.Reason)
		assert.Equal(t, 1, sum.RejectedDuplicate)

		n, fps, controls := h.state()
		assert.Equal(t, 1, n)
		assert.Equal(t, 1, fps)
		assert.False(t, controls.SaveEnabled)
	})

	t.Run("縦長の画像は追加されない", func(t *testing.T) {
		h := newHarness(t, domain.AuthAuthorized, &mockStore{})

		portrait := domain.Image{Source: "p", Data: make([]byte, 10), Width: 20, Height: 40}
		sum := h.add(portrait)
		assert.Equal(t, 1, sum.RejectedOrientation)

		n, _, controls := h.state()
		assert.Zero(t, n)
		assert.Equal(t, "Collage", controls.Title)
	})

	t.Run("アクセスが拒否されるとメッセージを出しピッカーを開かない", func(t *testing.T) {
		h := newHarness(t, domain.AuthDenied, &mockStore{})

		picker, called := pickerOf(photo("1", 1))
		done := make(chan selection.Summary, 1)
		var err error
		h.on(func() { err = h.c.Add(context.Background(), picker, func(s selection.Summary) { done <- s }) })
		require.NoError(t, err)

		assert.Equal(t, MessageNoAccess, h.nextMessage().title)
		select {
		case s := <-done:
			assert.Equal(t, selection.EndAccessDenied, s.Reason)
		case <-time.After(waitFor):
			t.Fatal("selection did not complete")
		}
		assert.False(t, *called)

		n, _, _ := h.state()
		assert.Zero(t, n)
	})

	t.Run("選択中のAddはErrBusy", func(t *testing.T) {
		h := newHarness(t, domain.AuthAuthorized, &mockStore{})

		var first, second error
		h.on(func() {
			first = h.c.Add(context.Background(), openPicker, nil)
			second = h.c.Add(context.Background(), openPicker, nil)
		})
		assert.NoError(t, first)
		assert.ErrorIs(t, second, ErrBusy)
	})

	t.Run("Closeで進行中の選択を終了する", func(t *testing.T) {
		h := newHarness(t, domain.AuthAuthorized, &mockStore{})

		done := make(chan selection.Summary, 1)
		var err error
		h.on(func() { err = h.c.Add(context.Background(), openPicker, func(s selection.Summary) { done <- s }) })
		require.NoError(t, err)
		assert.Eventually(t, func() bool {
			running := false
			_ = loop.Await(context.Background(), h.loop, func() { running = h.c.run != nil })
			return running
		}, waitFor, 5*time.Millisecond)

		h.on(h.c.Close)
		select {
		case s := <-done:
			assert.Equal(t, selection.EndCancelled, s.Reason)
		case <-time.After(waitFor):
			t.Fatal("selection was not cancelled")
		}
	})
}

func TestController_Clear(t *testing.T) {
	h := newHarness(t, domain.AuthAuthorized, &mockStore{})
	h.add(photo("1", 1), photo("2", 2), photo("3", 3))

	h.on(h.c.Clear)
	n, fps, controls := h.state()
	assert.Zero(t, n)
	assert.Zero(t, fps)
	assert.False(t, controls.ClearEnabled)

	// キャッシュも空なので同じ画像をもう一度追加できる
	h.add(photo("1", 1))
	n, _, _ = h.state()
	assert.Equal(t, 1, n)
}

func TestController_Save(t *testing.T) {
	ctx := context.Background()

	t.Run("成功すると識別子を表示してコラージュを空にする", func(t *testing.T) {
		store := &mockStore{id: "ABC123"}
		h := newHarness(t, domain.AuthAuthorized, store)
		h.add(photo("1", 1), photo("2", 2))

		var err error
		h.on(func() { err = h.c.Save(ctx) })
		require.NoError(t, err)

		m := h.nextMessage()
		assert.Equal(t, "Saved with ID: ABC123", m.title)
		assert.Empty(t, m.description)

		n, fps, _ := h.state()
		assert.Zero(t, n)
		assert.Zero(t, fps)
		assert.Equal(t, 1, store.Calls())
	})

	t.Run("失敗するとエラーを表示してコラージュは残る", func(t *testing.T) {
		store := &mockStore{err: errors.New("disk full")}
		h := newHarness(t, domain.AuthAuthorized, store)
		h.add(photo("1", 1), photo("2", 2))

		var err error
		h.on(func() { err = h.c.Save(ctx) })
		require.NoError(t, err)

		m := h.nextMessage()
		assert.Equal(t, MessageError, m.title)
		assert.Equal(t, "disk full", m.description)

		n, fps, controls := h.state()
		assert.Equal(t, 2, n)
		assert.Equal(t, 2, fps)
		assert.True(t, controls.SaveEnabled)
	})

	t.Run("結果が空でも保存失敗として表示する", func(t *testing.T) {
		h := newHarness(t, domain.AuthAuthorized, &mockStore{id: "x"})
		h.add(photo("1", 1), photo("2", 2))

		var err error
		h.on(func() {
			h.c.saver = emptySaver{}
			err = h.c.Save(ctx)
		})
		require.NoError(t, err)

		m := h.nextMessage()
		assert.Equal(t, MessageError, m.title)
		assert.Equal(t, asset.ErrCouldNotSave.Error(), m.description)

		n, _, _ := h.state()
		assert.Equal(t, 2, n)
	})

	t.Run("奇数枚では保存しない", func(t *testing.T) {
		store := &mockStore{id: "x"}
		h := newHarness(t, domain.AuthAuthorized, store)
		h.add(photo("1", 1))

		var err error
		h.on(func() { err = h.c.Save(ctx) })
		assert.ErrorIs(t, err, ErrSaveDisabled)
		assert.Zero(t, store.Calls())
	})

	t.Run("空のコラージュは保存しない", func(t *testing.T) {
		h := newHarness(t, domain.AuthAuthorized, &mockStore{id: "x"})
		var err error
		h.on(func() { err = h.c.Save(ctx) })
		assert.ErrorIs(t, err, ErrSaveDisabled)
	})

	t.Run("保存中の再保存はErrBusy", func(t *testing.T) {
		h := newHarness(t, domain.AuthAuthorized, &mockStore{id: "x"})
		h.add(photo("1", 1), photo("2", 2))

		var first, second error
		h.on(func() {
			first = h.c.Save(ctx)
			second = h.c.Save(ctx)
		})
		assert.NoError(t, first)
		assert.ErrorIs(t, second, ErrBusy)
		h.nextMessage()
	})
}

func TestController_Preview(t *testing.T) {
	t.Run("プレビューは遅延して現在の画像で描画される", func(t *testing.T) {
		h := newHarness(t, domain.AuthAuthorized, &mockStore{})
		h.add(photo("1", 1), photo("2", 2))

		deadline := time.After(waitFor)
		for {
			select {
			case img := <-h.previews:
				if img == nil {
					continue
				}
				assert.Equal(t, image.Rect(0, 0, 60, 40), img.Bounds())
				return
			case <-deadline:
				t.Fatal("preview was not rendered")
			}
		}
	})

	t.Run("古いプレビューはその場で描画し直す", func(t *testing.T) {
		h := newHarness(t, domain.AuthAuthorized, &mockStore{})
		h.add(photo("1", 1), photo("2", 2))

		var img image.Image
		h.on(func() { img = h.c.Preview() })
		require.NotNil(t, img)

		h.on(h.c.Clear)
		h.on(func() { img = h.c.Preview() })
		assert.Nil(t, img)
	})
}
