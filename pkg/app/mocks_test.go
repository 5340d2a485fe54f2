package app

import (
	"context"
	"image"
	"sync"

	"github.com/shouni/go-collage-kit/pkg/domain"
)

// --- Mocks ---

// mockStore は asset.Store のテスト用モックです。
type mockStore struct {
	mu    sync.Mutex
	id    string
	err   error
	calls int
}

func (m *mockStore) CreateAsset(ctx context.Context, data []byte, mimeType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.id, m.err
}

func (m *mockStore) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type message struct {
	title       string
	description string
}

// mockNotifier は表示されたメッセージを記録します。
type mockNotifier struct {
	messages chan message
}

func newMockNotifier() *mockNotifier {
	return &mockNotifier{messages: make(chan message, 16)}
}

func (m *mockNotifier) ShowMessage(title, description string) {
	m.messages <- message{title: title, description: description}
}

// pickerOf は images を順に流して閉じる Picker を返します。
func pickerOf(images ...domain.Image) (Picker, *bool) {
	called := false
	return func(ctx context.Context) <-chan domain.Image {
		called = true
		ch := make(chan domain.Image)
		go func() {
			defer close(ch)
			for _, img := range images {
				select {
				case ch <- img:
				case <-ctx.Done():
					return
				}
			}
		}()
		return ch
	}, &called
}

// openPicker は閉じられることのない Picker です。
func openPicker(ctx context.Context) <-chan domain.Image {
	return make(chan domain.Image)
}

// emptySaver は識別子もエラーも持たない結果を1つ流します。
type emptySaver struct{}

func (emptySaver) Save(ctx context.Context, img image.Image) <-chan domain.SaveResult {
	out := make(chan domain.SaveResult, 1)
	out <- domain.SaveResult{}
	close(out)
	return out
}
