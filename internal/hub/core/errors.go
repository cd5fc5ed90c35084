package core

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("concurrent update, retry")
	ErrRateLimited     = errors.New("rate limited")
	ErrInvalidArgument = errors.New("invalid argument")
)
