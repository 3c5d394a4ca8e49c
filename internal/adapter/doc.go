// Package adapter defines the radio link the coordinator polls through.
//
// A RadioLink is a half-duplex packet transport with hardware
// acknowledgements that can carry a small return payload. The coordinator
// only selects a recipient, sends, and reads the ack payload; modulation,
// channel, power and the automatic retry budget are one-time settings
// applied through Configure.
//
// Implementations:
//   - sim: simulated transceiver with simulated remote nodes (host runs)
//   - fake: scripted link for tests
package adapter
