package agent

import "errors"

var (
	// ErrMalformedDecision indicates the model's reply could not be used.
	ErrMalformedDecision = errors.New("malformed decision")
)

func errorsIsAny(err error, targets ...error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}
