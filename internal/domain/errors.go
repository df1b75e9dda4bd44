package domain

import "errors"

var (
	// ErrNotFound is returned when a review or comment is not found
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyReacted is returned when a user likes/dislikes a review twice
	ErrAlreadyReacted = errors.New("user has already reacted to this review")

	// ErrNotReacted is returned when a user removes a reaction they never made
	ErrNotReacted = errors.New("user has not reacted to this review")

	// ErrConflict is returned when an optimistic-version write loses the race
	ErrConflict = errors.New("conflict occurred")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrUpstreamUnavailable is returned when the sentiment service fails or times out
	ErrUpstreamUnavailable = errors.New("upstream service unavailable")

	// ErrInconsistentLinkage is returned when a comment was persisted but the
	// review backlink write did not complete
	ErrInconsistentLinkage = errors.New("comment stored but review link not updated")

	// ErrInternal is returned when an internal error occurs
	ErrInternal = errors.New("internal error")
)
