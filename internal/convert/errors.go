package convert

import "fmt"

// ClientInputError is returned when the request itself cannot be served:
// a missing field, an empty filename or an unsupported format pair
type ClientInputError struct {
	Field  string
	Reason string
}

func (e *ClientInputError) Error() string {
	return e.Reason
}

// OutputMissingError is returned when an engine reported success but the
// expected output file is not in the workspace
type OutputMissingError struct {
	Path string
}

func (e *OutputMissingError) Error() string {
	return fmt.Sprintf("output file not found: %s", e.Path)
}
