package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/shouni/go-collage-kit/pkg/loop"
)

// Sender はプログラムにメッセージを送ります。*tea.Program が満たします。
type Sender interface {
	Send(msg tea.Msg)
}

// dispatchMsg は Update 内で実行される関数です。
type dispatchMsg struct {
	fn func()
}

// ProgramDispatcher は関数を bubbletea のメッセージとして送り、Update 内で実行させる loop.Dispatcher です。
// 送られた順に実行されます。
type ProgramDispatcher struct {
	mu       sync.Mutex
	queue    []func()
	sender   Sender
	closed   bool
	attached bool

	wake      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

var _ loop.Dispatcher = (*ProgramDispatcher)(nil)

// NewProgramDispatcher は送信先が未設定の ProgramDispatcher を返します。
// Attach までに積まれた関数は Attach 後に送られます。
func NewProgramDispatcher() *ProgramDispatcher {
	return &ProgramDispatcher{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Attach は送信先を設定して送信を開始します。2回目以降の呼び出しは無視されます。
func (d *ProgramDispatcher) Attach(s Sender) {
	d.mu.Lock()
	if d.attached || d.closed {
		d.mu.Unlock()
		return
	}
	d.attached = true
	d.sender = s
	d.mu.Unlock()

	go d.pump()
	d.signal()
}

// Dispatch は fn を送信待ちに追加します。閉じた後は false を返します。
func (d *ProgramDispatcher) Dispatch(fn func()) bool {
	if fn == nil {
		return false
	}
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return false
	}
	d.queue = append(d.queue, fn)
	d.mu.Unlock()

	d.signal()
	return true
}

// Close は送信を止めます。送信待ちの関数は破棄されます。
func (d *ProgramDispatcher) Close() {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		d.queue = nil
		d.mu.Unlock()
		close(d.done)
	})
}

func (d *ProgramDispatcher) signal() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *ProgramDispatcher) take() []func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	q := d.queue
	d.queue = nil
	return q
}

func (d *ProgramDispatcher) pump() {
	for {
		select {
		case <-d.done:
			return
		case <-d.wake:
		}
		for _, fn := range d.take() {
			select {
			case <-d.done:
				return
			default:
			}
			// Send はプログラムが受け取るまでブロックするので順序が保たれる
			d.sender.Send(dispatchMsg{fn: fn})
		}
	}
}
