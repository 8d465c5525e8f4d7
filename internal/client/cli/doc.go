// Package cli provides the interactive QConnect command-line client.
//
// It wires configuration, the local credential store, the identity-provider
// client, and an interactive REPL around a single session manager. Typical
// flow: restore the persisted session at startup, then execute user commands.
//
// Key features:
//   - Register / Confirm a new account
//   - Login / Logout
//   - Whoami (inspect the current user)
//   - Token (print a fresh ID token, refreshing if needed)
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App and runREPL for details.
package cli
