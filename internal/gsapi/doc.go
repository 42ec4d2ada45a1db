// Package gsapi is the transport adapter for the JSON-RPC-over-HTTP API.
//
// # Overview
//
// The package knows how a call looks on the wire and nothing about the
// session rules that decide when a call may be sent. The session package owns
// those rules and hands gsapi a fully signed Envelope.
//
//   - client.go: HTTP POST with browser-like headers and a client-side timeout
//   - types.go: request envelope, ordered parameters, response and fault decoding
//
// # Request Shape
//
// Every call is a POST to <endpoint>?<method> with a body of the form:
//
//	{"method": "popularGetSongs",
//	 "parameters": {"type": "daily",
//	                "header": {"client": "htmlshark", "clientRevision": 20130520,
//	                           "token": "<nonce><sha1>", "country": {...},
//	                           "session": "<sid>", "privacy": 0, "uuid": "<id>"}}}
//
// Parameters keep their insertion order (Params is a list, not a map).
//
// # Response Shape
//
// A response is either {"result": ...} or {"fault": {"code": N, "message": "..."}}.
// The result is opaque to this package. DecodeResponse only separates the two
// cases; mapping fault codes onto error kinds happens in the session package.
//
// # Timeouts
//
// Send returns a Call immediately. A timer (20 seconds by default) races the
// HTTP round trip and whichever finishes first resolves the Call. A Call
// resolves exactly once; a late HTTP response after a timeout is dropped.
//
// # Thread Safety
//
// Client is safe for concurrent use. A single http.Client is reused for every
// call.
package gsapi
