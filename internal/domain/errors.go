package domain

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// ErrNoProvider means no node provider is configured or reachable. The
	// user-facing remedy is to configure an RPC endpoint, so the message is
	// surfaced verbatim.
	ErrNoProvider = errors.New("no wallet provider available")

	// ErrConnectRejected means the authorization request was refused (bad
	// passphrase, locked key). Recoverable: the user may retry Connect.
	ErrConnectRejected = errors.New("wallet authorization rejected")

	// ErrNoSession means an operation requires a connected account.
	ErrNoSession = errors.New("no active wallet session")

	// ErrUnsupportedChain means the active chain has no deployed contract
	// address. Degraded mode, not a crash: reads and writes are disabled.
	ErrUnsupportedChain = errors.New("unsupported chain")

	// ErrInvalidInput is a local validation failure, rejected before any
	// chain interaction is attempted.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTxFailed covers wallet rejection, reverted execution, and network
	// errors on a submitted transaction. The underlying message is wrapped
	// and surfaced best-effort; the two causes are intentionally not
	// distinguished.
	ErrTxFailed = errors.New("transaction failed")

	// ErrNotOwner means the account is connected but is not the contract
	// owner.
	ErrNotOwner = errors.New("account is not the contract owner")

	// ErrStaleCycle means a refresh cycle finished after a later cycle had
	// already published its snapshot; its results were discarded.
	ErrStaleCycle = errors.New("refresh cycle superseded")
)
