package app

import (
	"errors"

	"imaginarium/src/repository"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrNotDataURI       = errors.New("image is not a data URI")
	ErrEmptyPrompt      = errors.New("prompt is empty")
	ErrEmailNotVerified = errors.New("email not verified")
	ErrUnauthenticated  = errors.New("not authenticated")

	// ErrQuotaExceeded is returned by stores when a value does not fit.
	ErrQuotaExceeded = repository.ErrQuotaExceeded
)
