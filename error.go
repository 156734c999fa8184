package match

import "errors"

var (
	ErrCapacityExceeded = errors.New("instrument capacity exceeded")
	ErrInvalidOrder     = errors.New("the order is invalid")
	ErrInvalidParam     = errors.New("the param is invalid")
	ErrInternal         = errors.New("internal server error")
	ErrShutdown         = errors.New("matching engine is shutting down")
	ErrNotFound         = errors.New("not found")
	ErrMatcherRunning   = errors.New("matcher is already running")
	ErrTimeout          = errors.New("timeout")
)
