package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Veraticus/quotedesk/internal/orchestrator"
	"github.com/Veraticus/quotedesk/internal/pricing"
	"github.com/Veraticus/quotedesk/internal/session"
)

// Run shows the chat screen until the seller quits or ctx is canceled.
func Run(ctx context.Context, deps Deps) error {
	if deps.Orchestrator == nil || deps.Sessions == nil {
		return fmt.Errorf("chat needs an orchestrator and a session store")
	}

	p := tea.NewProgram(New(ctx, deps), tea.WithAltScreen(), tea.WithContext(ctx))

	unsubscribe := []func(){
		deps.Orchestrator.Subscribe(func(e orchestrator.Event) {
			if e.Kind == orchestrator.EventOpenSettings {
				p.Send(openSettingsMsg{})
				return
			}
			p.Send(stateChangedMsg{})
		}),
		deps.Sessions.Subscribe(func(e session.Event) {
			p.Send(sessionEventMsg{event: e})
		}),
	}
	if deps.Estimator != nil {
		unsubscribe = append(unsubscribe, deps.Estimator.Subscribe(func(pricing.Estimate) {
			p.Send(stateChangedMsg{})
		}))
	}
	defer func() {
		for _, fn := range unsubscribe {
			fn()
		}
	}()

	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("chat UI failed: %w", err)
	}
	return nil
}
