// Package seatgrid is the client-side seat selection engine.  It keeps the
// user's unconfirmed selection on screen while three sources change
// underneath it: the user's own toggles, the authoritative order record
// pushed by the seat service, and the flight-wide availability snapshot
// that other orders affect.
//
// A Grid owns all of that state.  Toggle and Confirm are the user actions;
// ApplyOrder and ApplyAvailability are the remote inputs (normally driven by
// the OrderFeed subscription and the Poller started at Mount).  Reconcile
// decides whether an incoming order record replaces the local selection,
// and Derive turns the combined state into one VisualState per seat.  Both
// are pure functions so the rules can be exercised without goroutines.
//
// Every state transition happens under a single mutex that is never held
// across a network call, which gives the same ordering as a single event
// queue: a confirm request, a poll tick and a pushed update can interleave
// in time but never race in memory.
package seatgrid
