package erc20

import (
	"errors"

	"github.com/Mohsinsiddi/casper-erc20/internal/dispatch"
)

var (
	// ErrNotBound is returned by queries and calls made before
	// BindContract.
	ErrNotBound = errors.New("no contract hash bound")

	// ErrAlreadySubscribed is returned by Subscribe while a previous
	// subscription is still listening.
	ErrAlreadySubscribed = errors.New("an event subscription is already active")

	// ErrInvalidAccountIdentifier is returned when an account is not a
	// hex encoded ed25519 or secp256k1 public key.
	ErrInvalidAccountIdentifier = errors.New("invalid account identifier")

	// ErrSubmissionFailed is returned when a deploy produced no hash.
	ErrSubmissionFailed = dispatch.ErrSubmissionFailed

	// ErrDecodeFailed is returned when a stored value does not have the
	// expected shape.
	ErrDecodeFailed = errors.New("unexpected stored value")

	// ErrNoEventStream is returned by Subscribe when the client has no
	// event source.
	ErrNoEventStream = errors.New("no event stream address set")
)
