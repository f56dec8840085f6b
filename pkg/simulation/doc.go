// Package simulation implements the mortgage-financing domain of finsim.
//
// A simulation takes a property value, a down payment and a term in
// months, resolves the annual interest rate from the external rates API
// (falling back to a configured simulated rate when the API is
// unavailable) and computes the monthly installment with price-table
// amortization. Every simulation emits business logs, a span, metrics
// and domain events, and is persisted best-effort to the history store.
package simulation
