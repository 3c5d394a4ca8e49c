package poll

// Counter bounds.
const (
	CounterMin Counter = 1
	CounterMax Counter = 500
)

// Counter is the coordinator sequence counter. It lives in
// [CounterMin, CounterMax].
type Counter int16

// NewCounter returns the counter's initial value.
func NewCounter() Counter {
	return CounterMin
}

// Next returns the value after c, wrapping CounterMax to CounterMin.
func (c Counter) Next() Counter {
	if c < CounterMax {
		return c + 1
	}
	return CounterMin
}

// Valid reports whether c is within bounds.
func (c Counter) Valid() bool {
	return c >= CounterMin && c <= CounterMax
}
