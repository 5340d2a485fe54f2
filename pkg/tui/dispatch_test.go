package tui

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgramDispatcher(t *testing.T) {
	t.Run("Attach 前に積んだ関数も順番に送られる", func(t *testing.T) {
		d := NewProgramDispatcher()
		defer d.Close()

		var order []int
		for i := range 3 {
			require.True(t, d.Dispatch(func() { order = append(order, i) }))
		}
		s := newRecordingSender()
		d.Attach(s)

		for range 3 {
			select {
			case <-s.got:
			case <-time.After(time.Second):
				t.Fatal("メッセージが送られませんでした")
			}
		}
		for _, msg := range s.Messages() {
			dm, ok := msg.(dispatchMsg)
			require.True(t, ok)
			dm.fn()
		}
		assert.Equal(t, []int{0, 1, 2}, order)
	})

	t.Run("Close 後の Dispatch は false を返す", func(t *testing.T) {
		d := NewProgramDispatcher()
		d.Close()
		d.Close()
		assert.False(t, d.Dispatch(func() {}))
	})

	t.Run("nil は受け付けない", func(t *testing.T) {
		d := NewProgramDispatcher()
		defer d.Close()
		assert.False(t, d.Dispatch(nil))
	})
}
