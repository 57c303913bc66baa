// Package coordinator orchestrates authentication plugins: capability-
// gated registration of their HTTP extension points, dispatch of login
// attempts, composition of the unified login page, and the bridge between
// successful logins and the external protocol engine.
//
// Multi-step methods protect their handshakes through the coordinator's
// one-time state API: a random token is stored before the browser leaves
// for the external step and must resolve (and is consumed) on return. A
// missing, expired, consumed, or forged token all yield the same invalid
// state result.
package coordinator
