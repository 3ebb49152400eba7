package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/quotedesk/internal/cli"
	"github.com/Veraticus/quotedesk/internal/model"
	"github.com/Veraticus/quotedesk/internal/orchestrator"
)

// View renders the UI.
func (m Model) View() string {
	if !m.ready {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
			m.spinner.View()+" "+m.theme.Subtitle.Render("正在恢复会话..."))
	}

	body := m.viewport.View()
	if side := m.sidebarWidth(); side > 0 {
		panel := m.theme.Panel.Width(side - 2).Height(m.viewport.Height - 2).Render(m.sidebar())
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, " ", panel)
	}

	parts := []string{
		m.header(),
		body,
		m.theme.Input.Render(m.input.View()),
		m.statusLine(),
	}
	if m.showHelp {
		parts = append(parts, m.help.FullHelpView(m.keymap.FullHelp()))
	} else {
		parts = append(parts, m.help.ShortHelpView(m.keymap.ShortHelp()))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) header() string {
	title := m.theme.Title.Render(cli.QuoteIcon + " 询单助手")
	if m.session == nil {
		return title + "  " + m.theme.Subtitle.Render("新会话")
	}
	info := fmt.Sprintf("会话 #%d · %s", m.session.ID, m.session.Status)
	if m.session.IsClosed() {
		info += " · " + string(m.session.EffectiveDealStatus())
	}
	return title + "  " + m.theme.Subtitle.Render(info)
}

func (m Model) statusLine() string {
	switch {
	case m.notice != "":
		return m.theme.StatusWarning.Render(m.notice)
	case m.snap.State == orchestrator.Sending:
		return m.spinner.View() + " " + m.theme.StatusPending.Render("AI 分析中...")
	case m.snap.State == orchestrator.Failed && m.snap.Hint != nil:
		return m.theme.StatusError.Render(cli.ErrorIcon+" "+m.snap.Hint.Message) + " " +
			m.theme.Subtitle.Render(m.snap.Hint.Detail+" · Ctrl+R 重试 · Ctrl+X 忽略")
	case m.lastError != nil:
		return m.theme.StatusError.Render(cli.ErrorIcon + " " + m.lastError.Error())
	}
	return ""
}

// render rebuilds the conversation shown in the viewport.
func (m *Model) render() {
	var b strings.Builder

	if m.session == nil && m.snap.Pending == "" && m.failedContent() == "" {
		b.WriteString(m.theme.Subtitle.Render("粘贴买家的消息开始新的询单。"))
	}
	if m.session != nil {
		for _, turn := range m.session.Messages {
			b.WriteString(m.renderTurn(turn))
			b.WriteString("\n")
		}
	}
	if m.snap.State == orchestrator.Sending && m.snap.Pending != "" {
		b.WriteString(m.theme.Buyer.Render("买家") + " " + m.snap.Pending + "\n")
		b.WriteString("  " + m.theme.StatusPending.Render(cli.PendingIcon+" 分析中") + "\n")
	}
	if f := m.failedContent(); f != "" && !m.failedShown() {
		b.WriteString(m.theme.Buyer.Render("买家") + " " + f + "\n")
	}
	if m.snap.State == orchestrator.Failed {
		b.WriteString("  " + m.theme.StatusError.Render(cli.ErrorIcon+" 分析失败") + "\n")
	}

	m.viewport.SetContent(lipgloss.NewStyle().Width(m.viewport.Width).Render(b.String()))
	m.viewport.GotoBottom()
}

func (m Model) renderTurn(turn model.MessageTurn) string {
	msg := turn.Message
	if msg.Role == model.RoleSeller {
		return m.theme.Seller.Render("卖家") + " " + msg.Content + "\n"
	}

	line := m.theme.Buyer.Render("买家") + " " + msg.Content + "\n"
	if sel, ok := m.selections[msg.ID]; ok {
		line += "  " + m.theme.StatusSuccess.Render(cli.SuccessIcon+" 已选: "+sel) + "\n"
	}
	a := turn.Analysis
	if a == nil || m.session.LatestAnalysis == nil || a.ID != m.session.LatestAnalysis.ID {
		return line
	}
	for i, r := range a.SuggestedReplies {
		prefix := fmt.Sprintf("  %d. ", i+1)
		if i == m.replyIndex {
			line += m.theme.Selected.Render(prefix+r) + "\n"
		} else {
			line += m.theme.Normal.Render(prefix+r) + "\n"
		}
	}
	return line
}

func (m Model) failedContent() string {
	if m.snap.Failed == nil {
		return ""
	}
	return m.snap.Failed.Content
}

// failedShown reports whether the failed message was stored and is already
// part of the conversation.
func (m Model) failedShown() bool {
	if m.snap.Failed == nil || m.snap.Failed.MessageID == 0 || m.session == nil {
		return false
	}
	return m.session.TurnIndex(m.snap.Failed.MessageID) >= 0
}

func (m Model) sidebar() string {
	var b strings.Builder
	b.WriteString(cli.FormatEstimate(m.estimate))
	b.WriteString("\n\n")
	if a := m.latestAnalysis(); a != nil {
		info := a.ExtractedInfo
		if t := info.ArticleTypeOrEmpty(); t != "" {
			b.WriteString(m.theme.Bold.Render("类型 ") + t + "\n")
		}
		if info.WordCount != nil {
			b.WriteString(m.theme.Bold.Render("字数 ") + fmt.Sprintf("%g", *info.WordCount) + "\n")
		}
		if info.Deadline != nil && *info.Deadline != "" {
			b.WriteString(m.theme.Bold.Render("截止 ") + *info.Deadline + "\n")
		}
		if len(a.MissingInfo) > 0 {
			b.WriteString(m.theme.StatusWarning.Render("待确认 ") + strings.Join(a.MissingInfo, "、") + "\n")
		}
	}
	return b.String()
}
