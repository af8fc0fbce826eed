package repositories

import "errors"

// Persistence errors shared by every store implementation
var (
	ErrDuplicateKey     = errors.New("duplicate key")
	ErrConcurrentUpdate = errors.New("row changed since it was read")
	ErrClaimLost        = errors.New("claim lost to another worker")
)
