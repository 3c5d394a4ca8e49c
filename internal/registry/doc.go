// Package registry holds the fixed node table polled by the coordinator.
//
// The table is built once from the configured address list and never grows
// or shrinks. Order is poll order. The registry does no locking of its own;
// the coordinator owns it and serialises access per poll cycle.
package registry
