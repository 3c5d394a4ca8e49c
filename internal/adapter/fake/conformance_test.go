package fake

import (
	"testing"

	"github.com/radio-control/nodepoll/internal/adapter"
	"github.com/radio-control/nodepoll/internal/adaptertest"
	"github.com/radio-control/nodepoll/internal/protocol"
)

func TestConformance(t *testing.T) {
	responsive := protocol.MustParseAddress("NODE1")
	first := protocol.NodeState{NodeID: 1, Count: 7}

	adaptertest.RunConformance(t, adaptertest.Harness{
		Name: "fake",
		New: func(t *testing.T) adapter.RadioLink {
			link := NewLink()
			if err := link.Configure(adapter.DefaultSettings()); err != nil {
				t.Fatalf("Configure() error = %v", err)
			}
			link.SetDefault(responsive, Reply(first))
			return link
		},
		Responsive:  responsive,
		Unreachable: protocol.MustParseAddress("NODE9"),
		FirstReply:  first,
	})
}
