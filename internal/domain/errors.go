package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrConfig             = errors.New("invalid configuration")
	ErrCatchAllTier       = errors.New("there should be exactly one tier with no monthlyDollars")
	ErrUnknownProvider    = errors.New("unknown provider")
	ErrMissingCredentials = errors.New("missing credentials")
	ErrProviderFailure    = errors.New("provider failure")
	ErrDuplicateRender    = errors.New("duplicate render name")
	ErrAvatarUnavailable  = errors.New("avatar unavailable")
)
