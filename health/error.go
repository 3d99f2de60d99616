package health

// StatusError is returned by a CheckFunc to report a status other than down, such as degraded while a
// connection is being re-established.
type StatusError struct {
	error

	Status Status
}

// NewStatusError creates a new StatusError.
func NewStatusError(err error, status Status) *StatusError {
	return &StatusError{
		error:  err,
		Status: status,
	}
}

func (e *StatusError) Unwrap() error {
	return e.error
}
