// Package state implements perma-option persistence.
//
// Store is the ssp.PermaStore implementation. It owns the key layout and the
// stored sentinel and delegates reads and writes to a Backend:
//
//	ssp.Widget -> Store -> Backend (memory, cookies, sqlite)
//
// Key layout:
//
//	socialSharePrivacy_<network> = "perma_on"
//
// Absence means "not permanently enabled". Clear removes the key instead of
// writing a false value, so untouched networks always read as absent.
//
// Store never caches. Every Get reaches the backend, which keeps repeated
// reads consistent with the latest write.
//
// Funcs adapts plain functions to ssp.PermaStore and Registry collects named
// stores that the set_perma_option, del_perma_option, get_perma_option and
// get_perma_options settings can select per operation.
package state
