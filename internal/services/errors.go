package services

import "errors"

var (
	// ErrTaskNotFound: the task id does not reference a persisted task.
	ErrTaskNotFound = errors.New("task not found")

	// ErrUnknownTaskType: the task carries a type no form handler exists for.
	ErrUnknownTaskType = errors.New("unknown task type")

	// ErrCatalogUnavailable: the field-definition catalog could not be read.
	// Progress must never be computed (or defaulted to zero) in this state.
	ErrCatalogUnavailable = errors.New("field catalog unavailable")

	// ErrReconciliationConflict: the optimistic version check lost the race
	// twice. The persisted state is at least as new as this attempt's input,
	// so callers may retry or ignore.
	ErrReconciliationConflict = errors.New("reconciliation conflict")
)
