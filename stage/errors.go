package stage

import (
	"errors"
	"fmt"
	"strings"
)

// ErrAlreadyBuilt is returned by Build when the builder has already been consumed,
// successfully or not.
var ErrAlreadyBuilt = errors.New("build already attempted")

// MissingFieldError is returned when a required configuration value is empty or absent.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s configuration value is required", e.Field)
}

// FieldTypeError is returned when a configuration value has a type the field cannot hold.
type FieldTypeError struct {
	Field string
	Value any
}

func (e *FieldTypeError) Error() string {
	switch e.Value.(type) {
	case float32, float64:
		// 1.10 would silently become 1.1
		return fmt.Sprintf("%s configuration value %v is a decimal number, quote it to keep it as written", e.Field, e.Value)
	}
	return fmt.Sprintf("%s configuration value has unsupported type %T", e.Field, e.Value)
}

// InvalidFieldError is returned when a configuration value is present but unusable, such
// as a relative workspace or a path component in a name.
type InvalidFieldError struct {
	Field  string
	Value  string
	Reason string
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("%s configuration value %q %s", e.Field, e.Value, e.Reason)
}

// ShebangError is returned when a postinst script does not start with "#!".
type ShebangError struct {
	ShortName string
}

func (e *ShebangError) Error() string {
	return fmt.Sprintf("%s: shebang directive required", e.ShortName)
}

// CommandError is returned when an external command exits with a non-zero code.
type CommandError struct {
	Command  []string
	Dir      string
	ExitCode int
	Output   []byte
	// Err is set when the command could not be run at all.
	Err error
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", strings.Join(e.Command, " "), e.Err)
	}
	msg := fmt.Sprintf("%s: exited with code %d", strings.Join(e.Command, " "), e.ExitCode)
	if out := strings.TrimSpace(string(e.Output)); out != "" {
		msg += ": " + out
	}
	return msg
}

func (e *CommandError) Unwrap() error { return e.Err }

// StepError records which build step failed.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }
