// Package server exposes the finsim HTTP API.
//
// The gin router carries, outermost first: panic recovery, otelgin
// server spans, request-id assignment, request metrics, and the request
// logger. The request logger emits exactly one structured line per
// request unless the path is in the filter set, in which case it emits
// nothing at all, even when the handler panics.
package server
