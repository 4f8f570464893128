package market

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by all layers of the client. Errors produced by the
// gateway, normalizer and lifecycle operations wrap one of these, so callers
// can dispatch on them with errors.Is.
var (
	// ErrConnection is returned when a signer-bound session can't be
	// established or isn't available for the requested action. It's
	// user-recoverable, retrying after fixing the session makes sense.
	ErrConnection = errors.New("connection error")
	// ErrRead is returned when a non-mutating contract call fails because of
	// network problems or contract revert.
	ErrRead = errors.New("read error")
	// ErrTransaction is returned when a mutating call is rejected by the
	// signer, reverted on chain or not confirmed in time. It's never retried
	// automatically.
	ErrTransaction = errors.New("transaction error")
	// ErrData is returned for malformed or missing off-chain metadata and for
	// contract data that can't be represented by the client.
	ErrData = errors.New("data error")
	// ErrUnknownStatus is returned for status codes outside of the known
	// vocabulary.
	ErrUnknownStatus = fmt.Errorf("%w: unknown status", ErrData)
	// ErrInvalidArgument is returned when the client-side precondition of an
	// operation doesn't hold, nothing is sent to the chain in this case.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrPostcondition is returned when the state read back after a confirmed
	// transaction doesn't match the expected outcome of the operation.
	ErrPostcondition = errors.New("unexpected state after confirmation")
	// ErrInFlight is returned when the same operation is already being
	// performed and hasn't resolved yet.
	ErrInFlight = errors.New("operation is already in progress")
)
