package trend

import (
	"errors"
	"fmt"
)

// Smoothing span bounds. The span controls how much history the trend line
// carries: 2 follows the raw series closely, 20 flattens short-lived swings.
const (
	MinSpan = 2
	MaxSpan = 20
)

// ErrSpanOutOfRange is returned for spans outside [MinSpan, MaxSpan]. Spans
// are rejected, never clamped, so a caller always gets exactly the smoothing
// it asked for or an error.
var ErrSpanOutOfRange = errors.New("smoothing span out of range")

// ValidateSpan checks a span against the supported window.
func ValidateSpan(span int) error {
	if span < MinSpan || span > MaxSpan {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrSpanOutOfRange, span, MinSpan, MaxSpan)
	}
	return nil
}

// Alpha converts a span to the exponential smoothing factor 2 / (span + 1).
func Alpha(span int) float64 {
	return 2.0 / (float64(span) + 1.0)
}

// Smooth applies exponential smoothing to a date-ordered series and returns
// a new series with identical dates:
//
//	smoothed[0] = raw[0]
//	smoothed[i] = alpha*raw[i] + (1-alpha)*smoothed[i-1]
//
// The recurrence always runs from the start of the input, so a given
// (series, span) pair smooths to the same output no matter how often it is
// recomputed. Empty input smooths to empty output and a single point to
// itself.
func Smooth(points []Point, span int) ([]Point, error) {
	if err := ValidateSpan(span); err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, nil
	}

	alpha := Alpha(span)
	smoothed := make([]Point, len(points))
	smoothed[0] = points[0]
	for i := 1; i < len(points); i++ {
		smoothed[i] = Point{
			Date:  points[i].Date,
			Value: alpha*points[i].Value + (1-alpha)*smoothed[i-1].Value,
		}
	}
	return smoothed, nil
}
