// Package ui provides the interactive console for gsclient.
//
// # Architecture Overview
//
// The console is a Bubble Tea program. A single command line drives the
// session manager through the Controller interface, and the rest of the
// screen shows what the manager is doing:
//
//   - Header: session state chip, session id, user, token countdown and
//     queue depth, read from the state.Store snapshot
//   - Activity: the most recent finished calls with outcome and duration
//   - Result: the indented JSON result of the last successful call
//   - Logs: the zerolog file parsed by logtail, colored by level
//
// # Event Flow
//
//  1. Run starts the program with the caller's context
//  2. A tick refreshes the snapshot (and the log view when visible)
//  3. Enter parses the command line and submits it through the Controller
//  4. A tea.Cmd waits on the reply with session.Await and sends a replyMsg
//  5. The reply is recorded into the store and rendered
//
// Waiting never blocks the update loop, and a wait that hits its ceiling
// leaves the request running in the manager.
//
// # Commands
//
//	call <method> [json]   ordinary call
//	auth <method> [json]   call that requires a logged-in user
//	login <user> <pass>    authenticateUser
//	logout                 logoutUser
//	connect                start a session without a request
//	logs | help | quit
package ui
