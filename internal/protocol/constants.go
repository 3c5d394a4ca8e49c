package protocol

const (
	// CountSize is the on-air size of the coordinator count.
	CountSize = 2

	// NodeStateSize is the on-air size of a node state record.
	NodeStateSize = 4

	// AddressSize is the pipe address width used for every node.
	AddressSize = 5

	// MaxPayloadSize is the largest payload (and ack payload) the radio carries.
	MaxPayloadSize = 32

	// MaxChannel is the highest RF channel the transceiver accepts.
	MaxChannel = 125

	// DefaultChannel matches the channel flashed into the node firmware.
	DefaultChannel = 0x76
)
