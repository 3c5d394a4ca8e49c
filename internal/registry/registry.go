package registry

import (
	"errors"
	"fmt"

	"github.com/radio-control/nodepoll/internal/protocol"
)

var (
	ErrEmpty            = errors.New("registry needs at least one node")
	ErrDuplicateAddress = errors.New("duplicate node address")
	ErrIndexOutOfRange  = errors.New("node index out of range")
)

// Entry pairs a node address with the last state it reported.
type Entry struct {
	Index   int                `json:"index"`
	Address protocol.Address   `json:"address"`
	State   protocol.NodeState `json:"state"`
}

// Registry is the ordered node table.
type Registry struct {
	entries []Entry
}

// New builds a registry from addresses in poll order. Every node starts with
// the placeholder state {position+1, 1}.
func New(addresses []protocol.Address) (*Registry, error) {
	if len(addresses) == 0 {
		return nil, ErrEmpty
	}

	seen := make(map[protocol.Address]int, len(addresses))
	entries := make([]Entry, len(addresses))
	for i, addr := range addresses {
		if prev, dup := seen[addr]; dup {
			return nil, fmt.Errorf("%w: %s at positions %d and %d", ErrDuplicateAddress, addr, prev, i)
		}
		seen[addr] = i
		entries[i] = Entry{
			Index:   i,
			Address: addr,
			State:   protocol.InitialNodeState(i),
		}
	}

	return &Registry{entries: entries}, nil
}

// Len returns the number of nodes.
func (r *Registry) Len() int {
	return len(r.entries)
}

// ForEachInOrder visits every node in poll order. The visitor may modify the
// state through the pointer; the address is passed by value and is immutable.
func (r *Registry) ForEachInOrder(visit func(index int, addr protocol.Address, state *protocol.NodeState)) {
	for i := range r.entries {
		visit(i, r.entries[i].Address, &r.entries[i].State)
	}
}

// Address returns the address at index.
func (r *Registry) Address(index int) (protocol.Address, error) {
	if err := r.check(index); err != nil {
		return protocol.Address{}, err
	}
	return r.entries[index].Address, nil
}

// State returns the last stored state at index.
func (r *Registry) State(index int) (protocol.NodeState, error) {
	if err := r.check(index); err != nil {
		return protocol.NodeState{}, err
	}
	return r.entries[index].State, nil
}

// SetState overwrites the stored state at index.
func (r *Registry) SetState(index int, state protocol.NodeState) error {
	if err := r.check(index); err != nil {
		return err
	}
	r.entries[index].State = state
	return nil
}

// Entries returns a copy of the table.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

func (r *Registry) check(index int) error {
	if index < 0 || index >= len(r.entries) {
		return fmt.Errorf("%w: %d (have %d nodes)", ErrIndexOutOfRange, index, len(r.entries))
	}
	return nil
}
