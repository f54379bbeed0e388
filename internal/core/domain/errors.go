package domain

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("admin access required")
	ErrLoadFailed   = errors.New("failed to load products, please try again")
	ErrInvalidTheme = errors.New("invalid theme")
	ErrUnavailable  = errors.New("component is not configured")
)
