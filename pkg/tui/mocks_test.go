package tui

import (
	"context"
	"fmt"
	"image"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/shouni/go-collage-kit/pkg/domain"
	"github.com/shouni/go-collage-kit/pkg/imgutil"
)

// --- Mocks ---

// recordingSender は受け取ったメッセージを順に記録します。
type recordingSender struct {
	mu   sync.Mutex
	msgs []tea.Msg
	got  chan struct{}
}

func newRecordingSender() *recordingSender {
	return &recordingSender{got: make(chan struct{}, 64)}
}

func (s *recordingSender) Send(msg tea.Msg) {
	s.mu.Lock()
	s.msgs = append(s.msgs, msg)
	s.mu.Unlock()
	s.got <- struct{}{}
}

func (s *recordingSender) Messages() []tea.Msg {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]tea.Msg(nil), s.msgs...)
}

// mockLister は固定のパスを列挙します。
type mockLister struct {
	paths []string
	err   error
}

func (m *mockLister) List(ctx context.Context, uri string, fn func(string) error) error {
	if m.err != nil {
		return m.err
	}
	for _, p := range m.paths {
		if err := fn(p); err != nil {
			return err
		}
	}
	return nil
}

// mockLoader は登録されたサイズの空白画像を返します。
type mockLoader struct {
	sizes map[string]image.Point
}

func (m *mockLoader) Load(ctx context.Context, ref string) (domain.Image, error) {
	size, ok := m.sizes[ref]
	if !ok {
		return domain.Image{}, fmt.Errorf("unknown ref: %s", ref)
	}
	return imgutil.FromBitmap(ref, image.NewRGBA(image.Rect(0, 0, size.X, size.Y))), nil
}

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

var (
	enterKey = tea.KeyMsg{Type: tea.KeyEnter}
	escKey   = tea.KeyMsg{Type: tea.KeyEsc}
	downKey  = tea.KeyMsg{Type: tea.KeyDown}
)
