package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/shouni/go-collage-kit/pkg/app"
)

// View は現在の画面を描画します。モーダルはメッセージ、許可、ピッカーの順に優先されます。
func (m *Model) View() string {
	switch {
	case len(m.messages) > 0:
		return m.overlay(m.messageView(m.messages[0]))
	case m.promptReply != nil:
		return m.overlay(m.promptView())
	case m.pickerOpen:
		return m.pickerView()
	}
	return m.mainView()
}

func (m *Model) mainView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.controls.Title))
	b.WriteString("\n")

	if m.preview != nil {
		size := m.preview.Bounds().Size()
		b.WriteString(subtleStyle.Render(fmt.Sprintf("preview %dx%d", size.X, size.Y)))
	} else {
		b.WriteString(subtleStyle.Render("no preview"))
	}
	b.WriteString("\n\n")

	var images []string
	if m.ctrl != nil {
		for i, img := range m.ctrl.Images() {
			images = append(images, fmt.Sprintf("%d. %s  %s", i+1, filepath.Base(img.Source),
				subtleStyle.Render(fmt.Sprintf("%dx%d", img.Width, img.Height))))
		}
	}
	if len(images) == 0 {
		b.WriteString(subtleStyle.Render("press a to add landscape photos"))
	} else {
		b.WriteString(strings.Join(images, "\n"))
	}
	b.WriteString("\n\n")

	saving := m.ctrl != nil && m.ctrl.Saving()
	saveLabel := "Save"
	if saving {
		saveLabel = "Saving..."
	}
	buttons := lipgloss.JoinHorizontal(lipgloss.Top,
		buttonStyle(m.controls.AddEnabled).Render("+ Add"), " ",
		buttonStyle(m.controls.ClearEnabled).Render("Clear"), " ",
		buttonStyle(m.controls.SaveEnabled && !saving).Render(saveLabel),
	)
	b.WriteString(buttons)
	b.WriteString("\n")

	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(statusStyle.Render(m.status))
	}
	b.WriteString("\n")
	b.WriteString(helpView(m.keys.mainHelp()))
	return b.String()
}

func (m *Model) pickerView() string {
	var b strings.Builder
	b.WriteString(m.picker.view())
	b.WriteString("\n")
	if m.status != "" {
		b.WriteString(statusStyle.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString(helpView(m.keys.pickerHelp()))
	return b.String()
}

func (m *Model) messageView(msg message) string {
	style := errorTitleStyle
	if msg.title != app.MessageError && msg.title != app.MessageNoAccess {
		style = successTitleStyle
	}
	body := style.Render(msg.title)
	if msg.description != "" {
		body += "\n\n" + msg.description
	}
	body += "\n\n" + helpStyle.Render("enter close")
	return modalStyle.Render(body)
}

func (m *Model) promptView() string {
	body := titleStyle.Render("Allow access to your photo library?") + "\n\n" +
		"Collage needs to read and save photos.\n\n" +
		helpView(m.keys.promptHelp())
	return modalStyle.Render(body)
}

func (m *Model) overlay(box string) string {
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func helpView(bindings []key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, kb := range bindings {
		h := kb.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return helpStyle.Render(strings.Join(parts, " · "))
}
