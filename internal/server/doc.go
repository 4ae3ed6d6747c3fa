// Package server provides the transient local HTTP listener that receives the provider redirect.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
// The package ships [Logging], [RateLimit] and [NoStore].
//
// # Two-phase callback
//
// The implicit grant returns the token in the URL fragment, which browsers never send to a server.
// Every path other than /finish therefore serves a small page ([PageHandler]) whose script forwards
// window.location.href back to /finish in the X-Full-Url header. [FinishHandler] extracts the token
// from that URL (query first, then fragment) and reports the result through a [Dispatcher].
//
// # Server loop
//
// [CallbackServer] owns one bound listener per login attempt. [CallbackServer.Run] serves until any
// flag of the attempt's [oauth.TerminalState] is set (checked every poll interval) or its context is
// cancelled, then shuts down and releases the port so a later attempt can bind it again.
package server
