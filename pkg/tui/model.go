package tui

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/shouni/go-collage-kit/pkg/app"
	"github.com/shouni/go-collage-kit/pkg/domain"
	"github.com/shouni/go-collage-kit/pkg/loop"
	"github.com/shouni/go-collage-kit/pkg/photolib"
	"github.com/shouni/go-collage-kit/pkg/present"
	"github.com/shouni/go-collage-kit/pkg/selection"
)

// Options は Model の設定です。
type Options struct {
	// Dir はピッカーが一覧表示するディレクトリです。
	Dir    string
	Lister Lister
	Loader ImageLoader
}

type message struct {
	title       string
	description string
}

// Model はメイン画面の bubbletea モデルです。
// Controller のすべての呼び出しは Update (所有コンテキスト) 上で行われます。
type Model struct {
	ctx  context.Context
	d    loop.Dispatcher
	ctrl *app.Controller
	opts Options
	keys keyMap

	controls present.Controls
	preview  image.Image

	session    *pickerSession
	pickerOpen bool
	picker     pickerModel

	promptReply chan bool
	messages    []message
	status      string

	width  int
	height int
}

// NewModel は Model を初期化します。Controller は SetController で後から設定します。
func NewModel(ctx context.Context, d loop.Dispatcher, opts Options) (*Model, error) {
	if d == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if opts.Lister == nil {
		return nil, fmt.Errorf("lister is required")
	}
	if opts.Loader == nil {
		return nil, fmt.Errorf("loader is required")
	}
	return &Model{
		ctx:      ctx,
		d:        d,
		opts:     opts,
		keys:     newKeyMap(),
		controls: present.Derive(0),
		width:    80,
		height:   24,
	}, nil
}

// SetController はモデルが操作する Controller を設定します。Init より前に呼び出してください。
func (m *Model) SetController(c *app.Controller) {
	m.ctrl = c
}

// ShowMessage はメッセージのモーダルを表示します。app.Notifier を満たします。
func (m *Model) ShowMessage(title, description string) {
	m.messages = append(m.messages, message{title: title, description: description})
}

// Prompter はアクセス許可のモーダルで答えを得る photolib.Prompter を返します。
func (m *Model) Prompter() photolib.Prompter {
	return photolib.PromptFunc(func(ctx context.Context) (bool, error) {
		reply := make(chan bool, 1)
		if !m.d.Dispatch(func() { m.openPrompt(reply) }) {
			return false, loop.ErrClosed
		}
		select {
		case granted := <-reply:
			return granted, nil
		case <-ctx.Done():
			m.d.Dispatch(func() { m.dropPrompt(reply) })
			return false, ctx.Err()
		}
	})
}

func (m *Model) openPrompt(reply chan bool) {
	if m.promptReply != nil {
		m.promptReply <- false
	}
	m.promptReply = reply
}

func (m *Model) answerPrompt(granted bool) {
	if m.promptReply == nil {
		return
	}
	m.promptReply <- granted
	m.promptReply = nil
}

func (m *Model) dropPrompt(reply chan bool) {
	if m.promptReply == reply {
		m.promptReply = nil
	}
}

// Init は Controller の購読を開始します。
func (m *Model) Init() tea.Cmd {
	if m.ctrl != nil {
		m.ctrl.Start(m.setControls, m.setPreview)
	}
	return nil
}

func (m *Model) setControls(c present.Controls) { m.controls = c }

func (m *Model) setPreview(img image.Image) { m.preview = img }

// Update はメッセージを処理します。
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case dispatchMsg:
		msg.fn()
		return m, nil
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.picker.setSize(m.pickerSize())
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m.quit()
	}

	switch {
	case len(m.messages) > 0:
		if key.Matches(msg, m.keys.Enter, m.keys.Close) {
			m.messages = m.messages[1:]
		}
		return m, nil

	case m.promptReply != nil:
		switch {
		case key.Matches(msg, m.keys.Yes):
			m.answerPrompt(true)
		case key.Matches(msg, m.keys.No):
			m.answerPrompt(false)
		}
		return m, nil

	case m.pickerOpen:
		return m.handlePickerKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()
	case key.Matches(msg, m.keys.Add):
		m.add()
	case key.Matches(msg, m.keys.Clear):
		if m.controls.ClearEnabled && m.ctrl != nil {
			m.ctrl.Clear()
			m.status = "cleared"
		}
	case key.Matches(msg, m.keys.Save):
		m.save()
	}
	return m, nil
}

func (m *Model) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Close):
		m.closePicker()
		m.status = "photo selection finished"
		return m, nil
	case key.Matches(msg, m.keys.Cancel):
		// 読み込み待ちの写真も捨てる。ピッカーは selectionDone で閉じる
		if m.ctrl != nil && m.ctrl.Selecting() {
			m.ctrl.CancelSelection()
		} else {
			m.closePicker()
		}
		return m, nil
	case key.Matches(msg, m.keys.Enter):
		if path, ok := m.picker.selected(); ok && m.session != nil {
			if m.session.pick(path) {
				m.status = "picked " + m.picker.selectedTitle()
			} else {
				m.status = "too many pending picks"
			}
		}
		return m, nil
	}
	cmd := m.picker.update(msg)
	return m, cmd
}

func (m *Model) add() {
	if m.ctrl == nil {
		return
	}
	err := m.ctrl.Add(m.ctx, m.openPicker, m.selectionDone)
	switch {
	case errors.Is(err, app.ErrAddDisabled):
		m.status = fmt.Sprintf("a collage holds at most %d photos", domain.MaxCollageImages)
	case errors.Is(err, app.ErrBusy):
		m.status = "photo selection is already open"
	case err != nil:
		m.status = err.Error()
	default:
		m.status = "checking photo library access"
	}
}

func (m *Model) save() {
	if m.ctrl == nil {
		return
	}
	err := m.ctrl.Save(m.ctx)
	switch {
	case errors.Is(err, app.ErrSaveDisabled):
		m.status = "save needs an even number of photos"
	case errors.Is(err, app.ErrBusy):
		m.status = "a save is already in progress"
	case err != nil:
		m.status = err.Error()
	default:
		m.status = "saving"
	}
}

// openPicker はアクセスが許可された後に Controller から呼ばれます。
func (m *Model) openPicker(ctx context.Context) <-chan domain.Image {
	var paths []string
	err := m.opts.Lister.List(ctx, m.opts.Dir, func(p string) error {
		paths = append(paths, p)
		return nil
	})
	if err != nil {
		slog.WarnContext(ctx, "写真の一覧を取得できませんでした", "dir", m.opts.Dir, "error", err)
		m.status = err.Error()
		empty := make(chan domain.Image)
		close(empty)
		return empty
	}

	session, picks := startPicker(ctx, m.opts.Loader)
	m.session = session
	w, h := m.pickerSize()
	m.picker = newPickerModel(paths, w, h)
	m.pickerOpen = true
	m.status = ""
	return picks
}

func (m *Model) closePicker() {
	if m.session != nil {
		m.session.close()
		m.session = nil
	}
	m.pickerOpen = false
}

func (m *Model) selectionDone(sum selection.Summary) {
	m.closePicker()
	switch sum.Reason {
	case selection.EndAccessDenied:
		m.status = ""
	default:
		m.status = fmt.Sprintf("selection finished (%s): %d added, %d not landscape, %d duplicate",
			sum.Reason, sum.Accepted, sum.RejectedOrientation, sum.RejectedDuplicate)
	}
}

func (m *Model) quit() (tea.Model, tea.Cmd) {
	m.answerPrompt(false)
	m.closePicker()
	if m.ctrl != nil {
		m.ctrl.Close()
	}
	return m, tea.Quit
}

func (m *Model) pickerSize() (int, int) {
	return max(20, m.width-4), max(6, m.height-8)
}

// Run は bubbletea のプログラムを実行し、終了まで待ちます。
func Run(m *Model, d *ProgramDispatcher, opts ...tea.ProgramOption) error {
	p := tea.NewProgram(m, opts...)
	d.Attach(p)
	_, err := p.Run()
	d.Close()
	if m.ctrl != nil {
		m.ctrl.Close()
	}
	return err
}
