package poll

import "testing"

func TestCounterNext(t *testing.T) {
	tests := []struct {
		in   Counter
		want Counter
	}{
		{in: 1, want: 2},
		{in: 250, want: 251},
		{in: 499, want: 500},
		{in: 500, want: 1},
	}

	for _, tt := range tests {
		if got := tt.in.Next(); got != tt.want {
			t.Errorf("Counter(%d).Next() = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestCounterStaysInBounds(t *testing.T) {
	c := NewCounter()
	if c != CounterMin {
		t.Fatalf("NewCounter() = %d, want %d", c, CounterMin)
	}
	for i := 0; i < 1200; i++ {
		c = c.Next()
		if !c.Valid() {
			t.Fatalf("step %d: counter %d out of bounds", i, c)
		}
	}
}

func TestCounterValid(t *testing.T) {
	for _, c := range []Counter{0, 501, -1} {
		if c.Valid() {
			t.Errorf("Counter(%d).Valid() = true", c)
		}
	}
}
