package loop

import (
	"context"
	"sync"
)

// Dispatcher は状態を所有する単一の実行コンテキストへ処理を投入するインターフェースです。
// Dispatch は呼び出し側をブロックせず、投入できなかった場合（クローズ後など）は false を返します。
type Dispatcher interface {
	Dispatch(fn func()) bool
}

// Loop は投入された関数を Run を呼んだゴルーチン上で1つずつ順番に実行するイベントループです。
// コレクションの状態変更はすべてこのループ上で行われるため、ロックは不要になります。
type Loop struct {
	mu     sync.Mutex
	queue  []func()
	wake   chan struct{}
	closed bool
	done   chan struct{}
}

// New は空のキューを持つ Loop を生成します。
func New() *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Dispatch は fn をキューの末尾に追加します。キューは上限を持たないため待たされることはありません。
func (l *Loop) Dispatch(fn func()) bool {
	if fn == nil {
		return false
	}
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Run はコンテキストがキャンセルされるか Close されるまでキューを処理します。
// どちらの場合も、Dispatch が true を返した関数はすべて実行してから戻ります。
func (l *Loop) Run(ctx context.Context) error {
	for {
		for _, fn := range l.drain() {
			fn()
		}

		select {
		case <-ctx.Done():
			l.Close()
			for _, fn := range l.drain() {
				fn()
			}
			return ctx.Err()
		case <-l.done:
			for _, fn := range l.drain() {
				fn()
			}
			return nil
		case <-l.wake:
		}
	}
}

// Close はループを停止します。以降の Dispatch は false を返します。
func (l *Loop) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	close(l.done)
}

// Done はループが閉じられたときにクローズされるチャネルを返します。
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

func (l *Loop) drain() []func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	q := l.queue
	l.queue = nil
	return q
}

// Inline は fn をその場で実行する Dispatcher です。
// 呼び出し元自身が所有コンテキストである場合やテストで利用します。
type Inline struct{}

// Dispatch は fn を即座に実行します。
func (Inline) Dispatch(fn func()) bool {
	if fn == nil {
		return false
	}
	fn()
	return true
}

// Await は fn を d 上で実行し、完了まで待ちます。
// 所有コンテキストの外から状態のスナップショットを読むために使います。
func Await(ctx context.Context, d Dispatcher, fn func()) error {
	done := make(chan struct{})
	if !d.Dispatch(func() {
		defer close(done)
		fn()
	}) {
		return ErrClosed
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
