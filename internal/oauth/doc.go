// Package oauth implements the provider-facing half of the desktop login flow.
//
// # Token Extraction
//
// [Extract] pulls an access_token out of a redirect URL, looking at the query string first and then at the
// fragment. Implicit-grant providers return the token in the fragment, which browsers never send to a server,
// so the local callback page forwards the full URL in the X-Full-Url header.
//
// # Terminal State
//
// [TerminalState] holds three flip-once flags (closed prematurely, completed, failed). The callback server
// polls it and exits as soon as any flag is set. Flags only return to false through [TerminalState.Reset]
// at the start of a new attempt.
//
// # Coordinator
//
// [Coordinator] installs three one-shot subscriptions on an [events.Bus]: one for [Failed], one for
// [LoggedIn] and one for [WindowClosed]. A compare-and-swap on a shared claim cell picks the first handler to
// run; that handler unsubscribes its two siblings and emits exactly one [Outcome]. Late triggers find the
// claim taken and do nothing.
//
// # Provider Clients
//
// [CodeClient] performs the non-interactive user_token exchange and [Validator] checks a token against the
// provider's validate endpoint.
package oauth
