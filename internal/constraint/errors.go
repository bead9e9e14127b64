package constraint

import "errors"

var (
	// ErrUnknownPolicy indicates a policy key with no table entry.
	ErrUnknownPolicy = errors.New("unknown policy")

	// ErrNilFacts indicates Validate was called without ticket facts.
	ErrNilFacts = errors.New("ticket facts are nil")
)
