// Package tui is the interactive chat front end for triaging buyer messages.
package tui

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Veraticus/quotedesk/internal/catalog"
	"github.com/Veraticus/quotedesk/internal/common"
	"github.com/Veraticus/quotedesk/internal/model"
	"github.com/Veraticus/quotedesk/internal/orchestrator"
	"github.com/Veraticus/quotedesk/internal/pricing"
	"github.com/Veraticus/quotedesk/internal/session"
	"github.com/Veraticus/quotedesk/internal/tui/themes"
)

const noticeDuration = 3 * time.Second

// Deps are the components the chat screen drives.
type Deps struct {
	Orchestrator *orchestrator.Orchestrator
	Sessions     *session.Store
	Estimator    *pricing.Estimator
	Catalog      *catalog.Catalog
	Logger       *slog.Logger
	Theme        themes.Theme
	// Timeout bounds each backend round trip started from the UI.
	Timeout time.Duration
}

// Model holds the chat screen state.
type Model struct {
	ctx        context.Context
	deps       Deps
	logger     *slog.Logger
	theme      themes.Theme
	keymap     KeyMap
	help       help.Model
	input      textarea.Model
	viewport   viewport.Model
	spinner    spinner.Model
	session    *model.Session
	selections map[int64]string
	lastError  error
	notice     string
	snap       orchestrator.Snapshot
	estimate   pricing.Estimate
	replyIndex int
	noticeSeq  int
	width      int
	height     int
	ready      bool
	showHelp   bool
}

// New creates the chat model. ctx bounds every command the model starts.
func New(ctx context.Context, deps Deps) Model {
	if deps.Timeout <= 0 {
		deps.Timeout = 2 * time.Minute
	}
	if deps.Theme.Primary == "" {
		deps.Theme = themes.Default
	}

	ta := textarea.New()
	ta.Placeholder = "粘贴买家消息，Enter 发送"
	ta.Focus()
	ta.CharLimit = 8000
	ta.SetWidth(80)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = deps.Theme.StatusPending

	return Model{
		ctx:        ctx,
		deps:       deps,
		logger:     common.LoggerOrDefault(deps.Logger),
		theme:      deps.Theme,
		keymap:     DefaultKeyMap(),
		help:       help.New(),
		input:      ta,
		viewport:   viewport.New(80, 16),
		spinner:    sp,
		selections: map[int64]string{},
		width:      80,
		height:     24,
	}
}

// Init starts the cursor blink and restores the last session.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.spinner.Tick,
		m.restore(),
	)
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case restoredMsg:
		m.ready = true
		if msg.err != nil {
			m.lastError = msg.err
		}
		m.refresh()

	case sendDoneMsg:
		m.refresh()
		if msg.err != nil {
			cmds = append(cmds, m.handleSendError(msg.err))
		} else {
			m.lastError = nil
			m.replyIndex = 0
		}

	case replySentMsg:
		m.refresh()
		if msg.err != nil {
			m.lastError = msg.err
		}

	case actionDoneMsg:
		m.refresh()
		m.lastError = msg.err
		if msg.notice != "" {
			cmds = append(cmds, m.setNotice(msg.notice))
		}

	case stateChangedMsg:
		m.refresh()

	case sessionEventMsg:
		m.refresh()
		if msg.event.Kind == session.EventNotFound {
			cmds = append(cmds, m.setNotice(msg.event.Notice))
		}

	case openSettingsMsg:
		cmds = append(cmds, m.setNotice("请先配置 LLM：quote config 或设置 QUOTE_LLM_API_KEY / QUOTE_LLM_MODEL"))

	case clearNoticeMsg:
		if msg.seq == m.noticeSeq {
			m.notice = ""
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keymap.ForceQuit):
		return tea.Quit, true

	case key.Matches(msg, m.keymap.Help):
		m.showHelp = !m.showHelp
		m.resize()
		return nil, true

	case key.Matches(msg, m.keymap.NewLine):
		m.input.InsertString("\n")
		return nil, true

	case key.Matches(msg, m.keymap.Send):
		content := strings.TrimSpace(m.input.Value())
		if content == "" {
			return nil, true
		}
		if m.snap.State == orchestrator.Sending {
			return m.setNotice("正在分析上一条消息，请稍候"), true
		}
		m.input.Reset()
		m.snap.State = orchestrator.Sending
		m.snap.Pending = content
		m.render()
		return m.send(content), true

	case key.Matches(msg, m.keymap.Retry):
		if m.snap.State != orchestrator.Failed {
			return nil, true
		}
		return m.retry(), true

	case key.Matches(msg, m.keymap.Dismiss):
		if m.snap.State != orchestrator.Failed {
			return nil, true
		}
		return m.dismiss(), true

	case key.Matches(msg, m.keymap.NextReply):
		if n := len(m.replies()); n > 0 {
			m.replyIndex = (m.replyIndex + 1) % n
			m.render()
		}
		return nil, true

	case key.Matches(msg, m.keymap.SendReply):
		a := m.latestAnalysis()
		if a == nil || len(a.SuggestedReplies) == 0 {
			return nil, true
		}
		return m.sendReply(a.MessageID, m.replyIndex), true

	case key.Matches(msg, m.keymap.Coefficient):
		return m.cycleCoefficient(), true

	case key.Matches(msg, m.keymap.NewSession):
		if m.snap.State == orchestrator.Sending {
			return nil, true
		}
		m.replyIndex = 0
		return m.newSession(), true

	case key.Matches(msg, m.keymap.Reload):
		return m.reload(), true

	case key.Matches(msg, m.keymap.PageUp):
		m.viewport.HalfViewUp()
		return nil, true

	case key.Matches(msg, m.keymap.PageDown):
		m.viewport.HalfViewDown()
		return nil, true
	}
	return nil, false
}

func (m *Model) handleSendError(err error) tea.Cmd {
	switch {
	case errors.Is(err, common.ErrMissingLLMConfig):
		return nil
	case errors.Is(err, common.ErrBusy):
		return m.setNotice("正在分析上一条消息，请稍候")
	case errors.Is(err, common.ErrValidation):
		return nil
	}
	// The failure itself is shown from the snapshot.
	m.lastError = err
	return nil
}

func (m *Model) setNotice(text string) tea.Cmd {
	m.noticeSeq++
	seq := m.noticeSeq
	m.notice = text
	return tea.Tick(noticeDuration, func(time.Time) tea.Msg {
		return clearNoticeMsg{seq: seq}
	})
}

// refresh pulls the current state from the components.
func (m *Model) refresh() {
	if m.deps.Orchestrator != nil {
		m.snap = m.deps.Orchestrator.Snapshot()
	}
	if m.deps.Sessions != nil {
		m.session = m.deps.Sessions.Current()
		m.selections = m.deps.Sessions.Selections()
	}
	if m.deps.Estimator != nil {
		m.estimate = m.deps.Estimator.Estimate()
	}
	if n := len(m.replies()); m.replyIndex >= n {
		m.replyIndex = 0
	}
	m.render()
}

func (m *Model) latestAnalysis() *model.Analysis {
	if m.session == nil {
		return nil
	}
	return m.session.LatestAnalysis
}

func (m *Model) replies() []string {
	if a := m.latestAnalysis(); a != nil {
		return a.SuggestedReplies
	}
	return nil
}

func (m *Model) resize() {
	inputHeight := m.input.Height() + 2
	footer := 2
	if m.showHelp {
		footer += 4
	}
	side := m.sidebarWidth()
	m.input.SetWidth(max(m.width-2, 10))
	m.viewport.Width = max(m.width-side-2, 20)
	m.viewport.Height = max(m.height-inputHeight-footer-2, 3)
	m.render()
}

func (m Model) sidebarWidth() int {
	if m.width >= 100 {
		return 38
	}
	return 0
}
