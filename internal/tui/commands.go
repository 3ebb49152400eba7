package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Veraticus/quotedesk/internal/pricing"
)

// Every command mutates components off the update loop; their listeners
// feed back into the program through Send.

func (m Model) withTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(m.ctx, m.deps.Timeout)
}

// restore loads the remembered session, the price list and any failure left
// over from an earlier run.
func (m Model) restore() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.withTimeout()
		defer cancel()

		if m.deps.Catalog != nil {
			if _, err := m.deps.Catalog.Load(ctx); err != nil {
				m.logger.Warn("Failed to load price list", "error", err)
			}
		}
		if m.deps.Estimator != nil {
			if err := m.deps.Estimator.LoadCoefficient(ctx); err != nil {
				m.logger.Warn("Failed to load coefficient", "error", err)
			}
		}

		var restored bool
		if m.deps.Sessions != nil {
			ok, err := m.deps.Sessions.Restore(ctx)
			if err != nil {
				return restoredMsg{err: err}
			}
			restored = ok
			if cur := m.deps.Sessions.Current(); cur != nil && m.deps.Estimator != nil && cur.LatestAnalysis != nil {
				m.deps.Estimator.Update(cur.LatestAnalysis.ExtractedInfo)
			}
		}
		if m.deps.Orchestrator != nil {
			if _, err := m.deps.Orchestrator.RestoreFailure(ctx); err != nil {
				m.logger.Warn("Failed to restore failed message", "error", err)
			}
		}
		return restoredMsg{restored: restored}
	}
}

func (m Model) send(content string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.withTimeout()
		defer cancel()
		return sendDoneMsg{err: m.deps.Orchestrator.SendMessage(ctx, content)}
	}
}

func (m Model) retry() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.withTimeout()
		defer cancel()
		return sendDoneMsg{err: m.deps.Orchestrator.Retry(ctx)}
	}
}

func (m Model) dismiss() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.withTimeout()
		defer cancel()
		return actionDoneMsg{err: m.deps.Orchestrator.Dismiss(ctx)}
	}
}

func (m Model) sendReply(messageID int64, index int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.withTimeout()
		defer cancel()
		_, err := m.deps.Sessions.SendReply(ctx, messageID, index)
		return replySentMsg{err: err}
	}
}

func (m Model) newSession() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.withTimeout()
		defer cancel()
		if err := m.deps.Sessions.Clear(ctx); err != nil {
			return actionDoneMsg{err: err}
		}
		if m.deps.Estimator != nil {
			m.deps.Estimator.Reset()
		}
		return actionDoneMsg{notice: "已开始新会话"}
	}
}

func (m Model) reload() tea.Cmd {
	return func() tea.Msg {
		id, ok := m.deps.Sessions.SessionID()
		if !ok {
			return actionDoneMsg{}
		}
		ctx, cancel := m.withTimeout()
		defer cancel()
		return actionDoneMsg{err: m.deps.Sessions.Load(ctx, id)}
	}
}

// cycleCoefficient moves to the next difficulty preset.
func (m Model) cycleCoefficient() tea.Cmd {
	if m.deps.Estimator == nil {
		return nil
	}
	current := m.estimate.Coefficient
	return func() tea.Msg {
		next := pricing.CoefficientPresets[0]
		for i, p := range pricing.CoefficientPresets {
			if p == current && i+1 < len(pricing.CoefficientPresets) {
				next = pricing.CoefficientPresets[i+1]
			}
		}
		ctx, cancel := m.withTimeout()
		defer cancel()
		if err := m.deps.Estimator.SetCoefficient(ctx, next); err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{notice: fmt.Sprintf("难度系数 ×%g", next)}
	}
}
