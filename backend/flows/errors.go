package flows

import (
	"errors"
	"fmt"
)

var (
	ErrAuthRequired      = errors.New("authentication required")
	ErrActionUnavailable = errors.New("action is not available in the current state")
	ErrInFlight          = errors.New("action already in progress")
	ErrDisposed          = errors.New("flow has been disposed")
	ErrLessonLocked      = errors.New("lesson is locked: enroll to unlock it")
	ErrLessonNotFound    = errors.New("lesson not found in this course")
	ErrNotEnrolled       = errors.New("not enrolled in this course")
	ErrNoLessonSelected  = errors.New("no lesson selected")
	ErrEmptySubmission   = errors.New("submission content is empty")
)

// AuthRequiredError is the redirect signal raised instead of a store call
// when an action needs a signed-in viewer.
type AuthRequiredError struct {
	Redirect string
}

func (e *AuthRequiredError) Error() string {
	return fmt.Sprintf("%s (redirect to %s)", ErrAuthRequired, e.Redirect)
}

func (e *AuthRequiredError) Is(target error) bool { return target == ErrAuthRequired }

// WriteError is a failed mutation. State is left as it was before the
// attempt and the action can be retried.
type WriteError struct {
	Op  string
	Err error
}

func (e *WriteError) Error() string { return e.Op + " failed: " + e.Err.Error() }

func (e *WriteError) Unwrap() error { return e.Err }

func loginRedirect(next string) string {
	if next == "" {
		return "/login"
	}
	return "/login?next=" + next
}
