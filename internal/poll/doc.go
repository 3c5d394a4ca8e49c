// Package poll implements the coordinator's polling protocol.
//
// A Coordinator owns the node registry and the coordinator counter. Every
// cycle it visits the nodes in registry order, pushes the current counter to
// each node and pulls the node's state back in the same acknowledged
// transmit. The counter advances once per node that returns a usable
// payload and wraps from 500 back to 1.
//
// Run gates cycles to a minimum interval measured from the previous cycle
// start. Node-level failures are logged, audited and published as fault
// events; they never stop the scheduler.
package poll
