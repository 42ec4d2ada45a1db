// Package app is the composition root for gsclient.
//
// # Overview
//
// Run loads the TOML config and the saved credentials, builds the HTTP
// transport and the session manager, and then either performs a single call
// (one-shot mode) or starts the console.
//
//  1. config.Load reads ~/.config/gsclient/config.toml
//  2. credstore.Load restores the session id, user id and instance id
//  3. gsapi.NewClient builds the transport
//  4. session.New wires the transport, a credstore.Store persister and hooks
//     that surface faults in the state.Store
//  5. metrics.Serve exposes /metrics when metrics_addr is set
//  6. runOnce or the poller plus ui.Run
//
// # Modes
//
// One-shot mode logs to stderr with a console writer and prints the indented
// JSON result to stdout. The console logs JSON to the configured log file so
// the logs view can parse it.
//
// # Shutdown
//
// Cancelling the context stops the manager, which cancels every outstanding
// reply. Run waits briefly for the loop to exit.
package app
