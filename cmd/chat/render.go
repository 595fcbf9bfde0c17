package main

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// theme 终端配色 / theme holds the terminal styles.
type theme struct {
	title   lipgloss.Style
	info    lipgloss.Style
	errText lipgloss.Style
	docName lipgloss.Style
}

func defaultTheme() theme {
	return theme{
		title:   lipgloss.NewStyle().Foreground(lipgloss.Color("#06B6D4")).Bold(true),
		info:    lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")),
		errText: lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true),
		docName: lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")),
	}
}

// renderMarkdown 使用 Glamour 渲染 markdown 文本
// renderMarkdown renders markdown text using Glamour.
func renderMarkdown(content string, width int) string {
	if strings.TrimSpace(content) == "" {
		return ""
	}
	if width <= 0 {
		width = 80
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return content
	}

	rendered, err := r.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(rendered, "\n")
}
