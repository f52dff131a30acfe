package types

import "errors"

// ErrValidation is the parent of every expected mutation failure. Mutations
// report these as values; callers surface the message and do not retry.
var ErrValidation = errors.New("validation failed")

// Mutation errors. Each wraps ErrValidation.
var (
	ErrColumnNotFound  = validation("column not found")
	ErrColumnExists    = validation("column already exists")
	ErrColumnNotEmpty  = validation("column is not empty")
	ErrTaskNotFound    = validation("task not found")
	ErrSubtaskNotFound = validation("subtask not found")
	ErrNoSubtasks      = validation("task has no subtasks")
	ErrRuleNotFound    = validation("rule not found")
	ErrInvalidRuleType = validation("invalid rule type")
	ErrInvalidIndex    = validation("invalid index")
	ErrInvalidPriority = validation("invalid priority")
	ErrEmptyTitle      = validation("title must not be empty")
	ErrEmptyRule       = validation("rule text must not be empty")
	ErrInvalidID       = validation("invalid id")
)

type validationError struct{ msg string }

func (e *validationError) Error() string { return e.msg }

func (e *validationError) Is(target error) bool { return target == ErrValidation }

func validation(msg string) error { return &validationError{msg: msg} }

// IsValidation reports whether err is an expected mutation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}
