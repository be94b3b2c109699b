package identity

import "errors"

var (
	ErrNotFound     = errors.New("identity: not found")
	ErrInvalidInput = errors.New("identity: invalid input")
	ErrForbidden    = errors.New("identity: forbidden")
	ErrPersistence  = errors.New("identity: persistence failed")
)
