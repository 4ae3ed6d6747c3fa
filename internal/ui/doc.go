// Package ui implements the login surfaces.
//
// [BrowserSurface] only opens the system browser. [Prompt] also runs a small bubbletea program that
// shows the login URL with a spinner until the attempt settles. Pressing q, esc or ctrl+c in the
// prompt is the user closing the login window: the dismissal callback runs (the CLI wires it to
// [login.Flow.Cancel]) and the program exits. [Prompt.Close] exits without a dismissal.
package ui
