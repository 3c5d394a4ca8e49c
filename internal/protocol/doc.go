// Package protocol defines the radio payload layout exchanged between the
// coordinator and its sensor nodes.
//
// Every exchange is a single transmit carrying the coordinator count and an
// acknowledgement that may carry the node's state back:
//
//	outbound:    count (int16, little-endian)                 2 bytes
//	ack payload: node_id (int16, LE) | count (int16, LE)      4 bytes
//
// The 16-bit little-endian layout matches the AVR int used by the node
// firmware. It is fixed for a deployment; nothing is negotiated on air.
package protocol
