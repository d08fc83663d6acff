package service

import "errors"

var (
	// ErrInvalidTarget reports a target that is not an absolute URL.
	ErrInvalidTarget = errors.New("invalid target url")
	// ErrInvalidPayload reports structured data that cannot be serialized.
	ErrInvalidPayload = errors.New("invalid payload")
	// ErrMappingExpired is returned by resolution once a mapping's expiry has passed.
	ErrMappingExpired = errors.New("mapping expired")
)
