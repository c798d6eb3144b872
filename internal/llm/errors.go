package llm

import "errors"

var (
	// ErrUnavailable means the model endpoint did not respond in time or
	// returned a non-success status.
	ErrUnavailable = errors.New("llm unavailable")

	// ErrInvalidOutput means the model responded but the response could not
	// be parsed into the expected structure.
	ErrInvalidOutput = errors.New("llm produced invalid output")
)
