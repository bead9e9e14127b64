package ticket

import "errors"

// Fact store errors.
var (
	// ErrWriterEmpty is returned when a mutation names no writer.
	ErrWriterEmpty = errors.New("fact writer cannot be empty")

	// ErrUnknownField is returned for a field name outside the fact schema.
	ErrUnknownField = errors.New("unknown fact field")

	// ErrInvalidFieldValue is returned when a value has the wrong type.
	ErrInvalidFieldValue = errors.New("invalid fact field value")

	// ErrClearWithoutOverride is returned when a write would erase a
	// populated field without using ApplyOverride.
	ErrClearWithoutOverride = errors.New("clearing a populated fact requires an override")
)
