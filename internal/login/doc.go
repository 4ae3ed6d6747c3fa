// Package login orchestrates login attempts.
//
// A [Flow] owns the session's [oauth.TerminalState] and runs at most one [Attempt] at a time.
//
// In implicit mode it walks the configured candidate ports, binds the first free one, installs an
// [oauth.Coordinator] for the attempt, starts the callback server and opens the login surface at the
// provider's authorize URL. The coordinator turns whichever of success, failure or window-closed
// happens first into exactly one [oauth.Outcome] on the bus.
//
// In code mode it performs a single authorization-code exchange and publishes its result directly.
package login
