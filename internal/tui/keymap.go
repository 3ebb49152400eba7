package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all keyboard shortcuts.
type KeyMap struct {
	// Input
	Send    key.Binding
	NewLine key.Binding

	// Failed message
	Retry   key.Binding
	Dismiss key.Binding

	// Replies
	NextReply key.Binding
	SendReply key.Binding

	// Pricing
	Coefficient key.Binding

	// Session
	NewSession key.Binding
	Reload     key.Binding

	// Navigation
	PageUp   key.Binding
	PageDown key.Binding

	// Application
	Help      key.Binding
	ForceQuit key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Send: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "send buyer message"),
		),
		NewLine: key.NewBinding(
			key.WithKeys("alt+enter", "ctrl+j"),
			key.WithHelp("Alt+Enter", "new line"),
		),
		Retry: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("Ctrl+R", "retry failed message"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("Ctrl+X", "dismiss failed message"),
		),
		NextReply: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("Tab", "next suggested reply"),
		),
		SendReply: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("Ctrl+S", "send chosen reply"),
		),
		Coefficient: key.NewBinding(
			key.WithKeys("ctrl+k"),
			key.WithHelp("Ctrl+K", "cycle difficulty"),
		),
		NewSession: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("Ctrl+N", "new session"),
		),
		Reload: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("Ctrl+L", "reload session"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("PgUp", "scroll up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("PgDn", "scroll down"),
		),
		Help: key.NewBinding(
			key.WithKeys("f1"),
			key.WithHelp("F1", "toggle help"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c", "esc"),
			key.WithHelp("Esc", "quit"),
		),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Send, k.NextReply, k.SendReply, k.Help, k.ForceQuit}
}

// FullHelp returns all key bindings for the full help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Send, k.NewLine, k.Retry, k.Dismiss},
		{k.NextReply, k.SendReply, k.Coefficient},
		{k.NewSession, k.Reload, k.PageUp, k.PageDown},
		{k.Help, k.ForceQuit},
	}
}
