package authz

import "errors"

// Error classes. Callers wrap them with detail and compare with errors.Is.
var (
	ErrUnauthenticated       = errors.New("unauthenticated")
	ErrAccountNotActive      = errors.New("account not active")
	ErrInsufficientAuthority = errors.New("insufficient authority")
	ErrNotFound              = errors.New("not found")
	ErrInvalidState          = errors.New("invalid state")
	ErrSystemConfiguration   = errors.New("system configuration error")
	ErrConflict              = errors.New("concurrent modification")
	ErrDuplicateMember       = errors.New("member already exists")
)
