package circuitbreaker

import (
	"context"
	"errors"
	"os"
)

// httpStatusError is satisfied by client.APIError.
type httpStatusError interface {
	HTTPStatus() int
}

// ClassifyError returns the error weight for circuit breaker tracking.
//
// Weights:
//   - nil, context.Canceled -> 0.0
//   - timeout -> 1.5
//   - 429 -> 0.5
//   - 5xx -> 1.0
//   - other 4xx -> 0.0 (the request was wrong, not the API)
//   - malformed payload -> 1.0
//   - anything else (refused, reset, DNS) -> 1.0
func ClassifyError(err error) float64 {
	if err == nil || errors.Is(err, context.Canceled) {
		return 0
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return 1.5
	}
	var he httpStatusError
	if errors.As(err, &he) {
		return classifyStatus(he.HTTPStatus())
	}
	return 1.0
}

func classifyStatus(code int) float64 {
	switch {
	case code == 429:
		return 0.5
	case code >= 500:
		return 1.0
	default:
		return 0
	}
}
