package domain

import "errors"

var (
	// ErrContentNotFound signals that no live record exists for the given id.
	ErrContentNotFound = errors.New("content not found")
	// ErrNotOwner signals that the requester does not own the record.
	ErrNotOwner = errors.New("not the content owner")
	// ErrValidationFailed signals that content failed validation rules.
	ErrValidationFailed = errors.New("content validation failed")
	// ErrEmbeddingRateLimited signals a rate-limit response from the embedding provider.
	ErrEmbeddingRateLimited = errors.New("embedding provider rate limited")
	// ErrEmbeddingUnavailable signals an embedding provider failure after retries.
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")
	// ErrStoreUnavailable signals that the persistence backend is unreachable,
	// erroring, or over its time budget. Callers cannot usefully distinguish
	// "slow" from "down", so both collapse into this sentinel.
	ErrStoreUnavailable = errors.New("content store unavailable")
	// ErrRoomUnavailable signals that the watch room provider is unreachable.
	ErrRoomUnavailable = errors.New("watch room service unavailable")
	// ErrRoomNotFound signals that no active watch room exists for the scope.
	ErrRoomNotFound = errors.New("watch room not found")
)

// IsBusinessError reports whether err is an expected domain outcome
// (validation, ownership, missing record) rather than an infrastructure
// failure. The operation guard lets these pass through untouched.
func IsBusinessError(err error) bool {
	return errors.Is(err, ErrContentNotFound) ||
		errors.Is(err, ErrNotOwner) ||
		errors.Is(err, ErrValidationFailed) ||
		errors.Is(err, ErrRoomNotFound)
}
