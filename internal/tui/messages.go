package tui

import "github.com/Veraticus/quotedesk/internal/session"

// Results of commands started by the model.
type restoredMsg struct {
	err      error
	restored bool
}

type sendDoneMsg struct {
	err error
}

type replySentMsg struct {
	err error
}

type actionDoneMsg struct {
	err    error
	notice string
}

// Notifications bridged from the stores while the program runs.
type stateChangedMsg struct{}

type sessionEventMsg struct {
	event session.Event
}

type openSettingsMsg struct{}

// clearNoticeMsg hides the notice with the given sequence number.
type clearNoticeMsg struct {
	seq int
}
