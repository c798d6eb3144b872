package model

import "errors"

// Failure taxonomy shared by repositories and services. Callers match with
// errors.Is; repositories wrap these with context via fmt.Errorf and %w.
var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
	ErrUpstream  = errors.New("upstream unavailable")
	ErrInvalid   = errors.New("invalid input")
)
