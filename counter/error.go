package counter

import "errors"

// ErrRateLimited is returned from mutating operations when the rate limiter did not admit the request in time.
var ErrRateLimited = errors.New("too many mutations")

// InputError is returned from Service methods when a request cannot be applied to the counter.
type InputError struct {
	err error
}

func newInputError(err error) *InputError {
	return &InputError{
		err: err,
	}
}

// Error implements error interface.
func (e *InputError) Error() string {
	return "input error: " + e.err.Error()
}

// Unwrap returns the underlying error.
func (e *InputError) Unwrap() error {
	return e.err
}
