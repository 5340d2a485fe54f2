package present

import (
	"sync"
	"time"

	"github.com/shouni/go-collage-kit/pkg/loop"
)

// DefaultDebounce はプレビュー描画の既定の待ち時間です。
const DefaultDebounce = 500 * time.Millisecond

// Debouncer は最後の Trigger から delay 経過後に一度だけ関数を実行します。
// 実行は dispatcher 上で行われます。
type Debouncer struct {
	dispatcher loop.Dispatcher
	delay      time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	stopped bool
}

// NewDebouncer は Debouncer を作成します。delay が 0 以下なら即座に dispatch します。
func NewDebouncer(d loop.Dispatcher, delay time.Duration) *Debouncer {
	return &Debouncer{dispatcher: d, delay: delay}
}

// Trigger は保留中の実行を取り消し、fn の実行を予約し直します。
func (db *Debouncer) Trigger(fn func()) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.stopped {
		return
	}

	db.gen++
	gen := db.gen
	if db.timer != nil {
		db.timer.Stop()
		db.timer = nil
	}

	fire := func() {
		db.dispatcher.Dispatch(func() {
			// timer を止めた後でも dispatch 済みの関数は残るため世代で判定する
			db.mu.Lock()
			current := !db.stopped && db.gen == gen
			if current {
				db.timer = nil
			}
			db.mu.Unlock()
			if current {
				fn()
			}
		})
	}

	if db.delay <= 0 {
		go fire()
		return
	}
	db.timer = time.AfterFunc(db.delay, fire)
}

// Pending は実行待ちの関数があるかどうかを返します。
func (db *Debouncer) Pending() bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.timer != nil && !db.stopped
}

// Cancel は保留中の実行を取り消します。以降の Trigger は有効なままです。
func (db *Debouncer) Cancel() {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.gen++
	if db.timer != nil {
		db.timer.Stop()
		db.timer = nil
	}
}

// Stop は保留中の実行を取り消し、以降の Trigger を無視します。
func (db *Debouncer) Stop() {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.stopped = true
	db.gen++
	if db.timer != nil {
		db.timer.Stop()
		db.timer = nil
	}
}
