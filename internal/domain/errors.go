package domain

import "errors"

var (
	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned by conditional-unique-create when the
	// uniqueness key is already taken.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput rejects malformed or out-of-bounds request fields.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidAmount rejects bet amounts outside [MinBetAmount, MaxBetAmount].
	ErrInvalidAmount = errors.New("invalid bet amount")
	// ErrInvalidPosition rejects bet positions other than yes/no.
	ErrInvalidPosition = errors.New("invalid bet position")
	// ErrInvalidOutcome rejects resolution outcomes other than yes/no/cancel.
	ErrInvalidOutcome = errors.New("invalid resolution outcome")
	// ErrInvalidVoteValue rejects vote values other than +1/-1.
	ErrInvalidVoteValue = errors.New("invalid vote value")

	// ErrMarketClosed means the market is no longer open for betting,
	// either because it reached a terminal status or passed its deadline.
	ErrMarketClosed = errors.New("market closed")
	// ErrAlreadyResolved means the market already left the open state.
	ErrAlreadyResolved = errors.New("market already resolved")
	// ErrDuplicateBet means the agent already holds a bet on the market.
	ErrDuplicateBet = errors.New("duplicate bet")
	// ErrSelfDealing means an agent tried to bet on its own market.
	ErrSelfDealing = errors.New("cannot bet on own market")
	// ErrSelfVote means an agent tried to vote on its own post.
	ErrSelfVote = errors.New("cannot vote on own post")
	// ErrDuplicateVote means the agent already voted this way on the post.
	ErrDuplicateVote = errors.New("duplicate vote")

	// ErrConcurrencyConflict signals a lost race on a uniqueness or status
	// guard that was detected after the initial checks passed. The caller
	// may retry; no partial state is left behind.
	ErrConcurrencyConflict = errors.New("concurrency conflict")
	// ErrLockHeld means a distributed lock is held by another party.
	ErrLockHeld = errors.New("lock already held")

	// ErrRateLimited rejects a request that exceeded its rate budget.
	ErrRateLimited = errors.New("rate limited")
	// ErrUnauthorized rejects a request without a valid identity.
	ErrUnauthorized = errors.New("unauthorized")
)
