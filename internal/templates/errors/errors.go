package errors

import "errors"

var (
	ErrNotFound = errors.New("session template not found")

	ErrDuplicateReference = errors.New("session template reference already exists")
)
