package protocol

import "encoding/binary"

// NodeState is the record a node returns in its ack payload.
type NodeState struct {
	NodeID int16 `json:"nodeId"`
	Count  int16 `json:"count"`
}

// InitialNodeState is the placeholder held for the node at position index
// until it is first heard from.
func InitialNodeState(index int) NodeState {
	return NodeState{NodeID: int16(index + 1), Count: 1}
}

// EncodeCount serialises the coordinator count into its on-air form.
func EncodeCount(count int16) []byte {
	buf := make([]byte, CountSize)
	binary.LittleEndian.PutUint16(buf, uint16(count))
	return buf
}

// DecodeCount reads a coordinator count. Bytes past CountSize are ignored.
func DecodeCount(data []byte) (int16, error) {
	if len(data) < CountSize {
		return 0, ErrShortPayload
	}
	return int16(binary.LittleEndian.Uint16(data[0:2])), nil
}

// EncodeNodeState serialises a node state record.
func EncodeNodeState(s NodeState) []byte {
	buf := make([]byte, NodeStateSize)
	binary.LittleEndian.PutUint16(buf[0:2], uint16(s.NodeID))
	binary.LittleEndian.PutUint16(buf[2:4], uint16(s.Count))
	return buf
}

// DecodeNodeState reads a node state record from an ack payload.
// The read is sized to the record: trailing bytes are ignored and an
// undersized payload yields ErrShortPayload.
func DecodeNodeState(data []byte) (NodeState, error) {
	if len(data) < NodeStateSize {
		return NodeState{}, ErrShortPayload
	}
	return NodeState{
		NodeID: int16(binary.LittleEndian.Uint16(data[0:2])),
		Count:  int16(binary.LittleEndian.Uint16(data[2:4])),
	}, nil
}
