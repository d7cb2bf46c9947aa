package actions

import (
	"fmt"
	"slices"
	"strings"
)

// This error type covers every failure an action reports back to its caller
// for bad input: missing source parameters, malformed descriptors, unsafe
// resource paths, duplicate dataset names, and resource materialization
// failures. The Errors map associates each offending field with a message.
type ValidationError struct {
	Errors map[string]string
}

func (e ValidationError) Error() string {
	fields := make([]string, 0, len(e.Errors))
	for field := range e.Errors {
		fields = append(fields, field)
	}
	slices.Sort(fields)
	messages := make([]string, 0, len(fields))
	for _, field := range fields {
		messages = append(messages, fmt.Sprintf("%s: %s", field, e.Errors[field]))
	}
	return fmt.Sprintf("Validation error: %s", strings.Join(messages, "; "))
}

// constructs a ValidationError for a single offending field
func validationError(field, message string) *ValidationError {
	return &ValidationError{
		Errors: map[string]string{field: message},
	}
}

// indicates that no action is registered under the requested name
type NotFoundError struct {
	Action string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("The action '%s' was not found", e.Action)
}

// indicates that an action is already registered and an attempt has been
// made to register it again
type AlreadyRegisteredError struct {
	Action string
}

func (e AlreadyRegisteredError) Error() string {
	return fmt.Sprintf("Cannot register action '%s': already registered", e.Action)
}
