package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// MsgKind enumerates all message types in the prompt.
type MsgKind int

// Msg represents all possible messages in the prompt (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgClose MsgKind = iota
	MsgBrowserOpened
)

// closeMsg is the constructor for [MsgClose]: the attempt settled and the prompt should exit quietly.
func closeMsg() Msg {
	return Msg{kind: MsgClose}
}

// browserOpenedMsg is the constructor for [MsgBrowserOpened]
func browserOpenedMsg(err error) Msg {
	return Msg{kind: MsgBrowserOpened, data: err}
}
