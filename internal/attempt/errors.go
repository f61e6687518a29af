package attempt

import "errors"

// Client-correctable failures. Callers compare with errors.Is; returned
// errors wrap these with detail.
var (
	ErrInvalidStrategy   = errors.New("assessment is not configured for this mode")
	ErrForbidden         = errors.New("user may not attempt this assessment")
	ErrNoItemsAvailable  = errors.New("no items available")
	ErrAlreadySubmitted  = errors.New("attempt already submitted")
	ErrTimeExpired       = errors.New("time limit exceeded")
	ErrUnknownItem       = errors.New("item does not belong to this assessment")
	ErrItemNotPresented  = errors.New("item has not been presented in this attempt")
	ErrDuplicateAnswer   = errors.New("item already answered")
	ErrBelowMinimum      = errors.New("not enough items answered to finish")
	ErrAttemptNotFound   = errors.New("attempt not found")
	ErrAttemptsExhausted = errors.New("no attempts remaining")
)
