package tui

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/shouni/go-collage-kit/pkg/domain"
)

// ImageLoader は参照から画像を読み込みます。source.Loader が満たします。
type ImageLoader interface {
	Load(ctx context.Context, ref string) (domain.Image, error)
}

// Lister はディレクトリ内の画像を列挙します。source.DirReader が満たします。
type Lister interface {
	List(ctx context.Context, uri string, fn func(string) error) error
}

type photoItem struct {
	path string
}

func (p photoItem) Title() string       { return filepath.Base(p.path) }
func (p photoItem) Description() string { return p.path }
func (p photoItem) FilterValue() string { return filepath.Base(p.path) }

type photoItemDelegate struct{}

func (d photoItemDelegate) Height() int                             { return 1 }
func (d photoItemDelegate) Spacing() int                            { return 0 }
func (d photoItemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d photoItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	entry, ok := item.(photoItem)
	if !ok {
		return
	}
	prefix := "  "
	if index == m.Index() {
		prefix = cursorStyle.Render("> ")
	}
	fmt.Fprintf(w, "%s%s", prefix, entry.Title())
}

// pickerModel はピッカーの一覧です。
type pickerModel struct {
	list  list.Model
	ready bool
}

func newPickerModel(paths []string, width, height int) pickerModel {
	items := make([]list.Item, 0, len(paths))
	for _, p := range paths {
		items = append(items, photoItem{path: p})
	}
	l := list.New(items, photoItemDelegate{}, width, height)
	l.Title = "Photos"
	l.Styles.Title = titleStyle
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.DisableQuitKeybindings()
	return pickerModel{list: l, ready: true}
}

func (p *pickerModel) setSize(width, height int) {
	if p.ready {
		p.list.SetSize(width, height)
	}
}

func (p *pickerModel) selected() (string, bool) {
	if !p.ready {
		return "", false
	}
	item, ok := p.list.SelectedItem().(photoItem)
	if !ok {
		return "", false
	}
	return item.path, true
}

func (p *pickerModel) selectedTitle() string {
	path, ok := p.selected()
	if !ok {
		return ""
	}
	return filepath.Base(path)
}

func (p *pickerModel) update(msg tea.Msg) tea.Cmd {
	if !p.ready {
		return nil
	}
	var cmd tea.Cmd
	p.list, cmd = p.list.Update(msg)
	return cmd
}

func (p *pickerModel) view() string {
	if !p.ready {
		return ""
	}
	return p.list.View()
}

// pickerSession はピッカーが開いている間、選ばれた参照を順に読み込んで流します。
// pick と close は Update からだけ呼ばれます。
type pickerSession struct {
	refs   chan string
	closed bool
}

const maxQueuedPicks = 64

func startPicker(ctx context.Context, loader ImageLoader) (*pickerSession, <-chan domain.Image) {
	s := &pickerSession{refs: make(chan string, maxQueuedPicks)}
	out := make(chan domain.Image)

	go func() {
		defer close(out)
		for {
			var ref string
			var ok bool
			select {
			case <-ctx.Done():
				return
			case ref, ok = <-s.refs:
			}
			if !ok {
				return
			}

			img, err := loader.Load(ctx, ref)
			if err != nil {
				slog.WarnContext(ctx, "選択した画像を読み込めませんでした", "ref", ref, "error", err)
				continue
			}
			select {
			case out <- img:
			case <-ctx.Done():
				return
			}
		}
	}()
	return s, out
}

// pick は ref を読み込み待ちに追加します。Update をブロックしないよう、溢れた場合は捨てます。
func (s *pickerSession) pick(ref string) bool {
	if s.closed {
		return false
	}
	select {
	case s.refs <- ref:
		return true
	default:
		return false
	}
}

// close はこれ以上選ばないことを伝えます。読み込み待ちの参照は処理されます。
func (s *pickerSession) close() {
	if s.closed {
		return
	}
	s.closed = true
	close(s.refs)
}
