package motion

import (
	"context"
	"time"
)

// DopplerSource is a simulated Doppler output running at a fixed frequency.
// It reports edge timing without sleeping.
type DopplerSource struct {
	FrequencyHz float64
}

// WaitFallingEdge implements EdgeSource. An edge arrives one period after
// the previous one; a period longer than timeout, or a still target, times
// out.
func (s DopplerSource) WaitFallingEdge(ctx context.Context, timeout time.Duration) (bool, time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return false, 0, err
	}
	if s.FrequencyHz <= 0 {
		return false, timeout, nil
	}
	period := time.Duration(float64(time.Second) / s.FrequencyHz)
	if period > timeout {
		return false, timeout, nil
	}
	return true, period, nil
}

var _ EdgeSource = DopplerSource{}
