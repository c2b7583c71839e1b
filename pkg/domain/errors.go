package domain

import "errors"

// ErrInvalidArgument is returned when a required argument is missing or malformed.
var ErrInvalidArgument = errors.New("invalid argument")

// ErrDialogNotFound is returned when a dialog id cannot be resolved in any reachable dialog set.
var ErrDialogNotFound = errors.New("dialog not found")

// ErrDuplicateDialog is returned when a dialog id is registered twice in the same set.
var ErrDuplicateDialog = errors.New("dialog already registered")

// ErrNoActiveDialog is returned when an operation requires an active dialog and the stack is empty.
var ErrNoActiveDialog = errors.New("no active dialog")

// ErrSessionNotFound is returned when a session key cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")
