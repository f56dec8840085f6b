// Package stores provides persistence for finsim simulation history.
//
// The only implementation is SQLite (modernc.org/sqlite, no cgo) with
// schema migrations embedded in the binary and applied on startup.
// Persistence is best-effort from the request path's point of view: a
// failed write is logged and never fails the simulation that produced it.
package stores
