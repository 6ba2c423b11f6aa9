package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAuthenticated is returned by write operations invoked without a
	// resolvable user identity. Reads return zero-valued defaults instead.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrInvalidSnapshot marks a recoverable exam snapshot that failed
	// validation. Callers treat it exactly like "no snapshot".
	ErrInvalidSnapshot = errors.New("invalid session snapshot")

	// ErrIllegalTransition is the sentinel wrapped by IllegalTransitionError.
	ErrIllegalTransition = errors.New("illegal transition")

	// ErrNoSession indicates there is no active exam session to act on.
	ErrNoSession = errors.New("no active exam session")

	// ErrUnknownGoalType indicates a weekly goal type outside xp/lessons/questions.
	ErrUnknownGoalType = errors.New("unknown goal type")

	// ErrInvalidInput indicates a malformed request value.
	ErrInvalidInput = errors.New("invalid input")
)

// StorageError indicates the persistence layer failed. It hides the
// backend-specific error behind the operation that failed.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("storage unavailable (%s): %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage unavailable (%s)", e.Op)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Storage wraps err as a StorageError for op. Returns nil if err is nil.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// IsStorage reports whether err is (or wraps) a StorageError.
func IsStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// IllegalTransitionError reports an operation that the current state does
// not allow, e.g. answering after the exam completed.
type IllegalTransitionError struct {
	State string
	Op    string
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal transition: %s not allowed in state %s", e.Op, e.State)
}

func (e *IllegalTransitionError) Unwrap() error { return ErrIllegalTransition }

// IllegalTransition builds an IllegalTransitionError.
func IllegalTransition(state, op string) error {
	return &IllegalTransitionError{State: state, Op: op}
}
