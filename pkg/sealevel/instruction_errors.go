package sealevel

import "errors"

// instruction error values
var (
	InstrErrInvalidInstructionData      = errors.New("InstrErrInvalidInstructionData")
	InstrErrNotEnoughAccountKeys        = errors.New("InstrErrNotEnoughAccountKeys")
	InstrErrMissingAccount              = errors.New("InstrErrMissingAccount")
	InstrErrInvalidAccountOwner         = errors.New("InstrErrInvalidAccountOwner")
	InstrErrInvalidAccountData          = errors.New("InstrErrInvalidAccountData")
	InstrErrAccountDataTooSmall         = errors.New("InstrErrAccountDataTooSmall")
	InstrErrAccountAlreadyInitialized   = errors.New("InstrErrAccountAlreadyInitialized")
	InstrErrUninitializedAccount        = errors.New("InstrErrUninitializedAccount")
	InstrErrMissingRequiredSignature    = errors.New("InstrErrMissingRequiredSignature")
	InstrErrInvalidArgument             = errors.New("InstrErrInvalidArgument")
	InstrErrInvalidRealloc              = errors.New("InstrErrInvalidRealloc")
	InstrErrInsufficientFunds           = errors.New("InstrErrInsufficientFunds")
	InstrErrIncorrectProgramId          = errors.New("InstrErrIncorrectProgramId")
	InstrErrExecutableDataModified      = errors.New("InstrErrExecutableDataModified")
	InstrErrReadonlyDataModified        = errors.New("InstrErrReadonlyDataModified")
	InstrErrExternalAccountDataModified = errors.New("InstrErrExternalAccountDataModified")
	InstrErrExternalAccountLamportSpend = errors.New("InstrErrExternalAccountLamportSpend")
	InstrErrReadonlyLamportChange       = errors.New("InstrErrReadonlyLamportChange")
	InstrErrPrivilegeEscalation         = errors.New("InstrErrPrivilegeEscalation")
	InstrErrAccountNotExecutable        = errors.New("InstrErrAccountNotExecutable")
	InstrErrUnsupportedProgramId        = errors.New("InstrErrUnsupportedProgramId")
	InstrErrArithmeticOverflow          = errors.New("InstrErrArithmeticOverflow")
	InstrErrAccountBorrowOutstanding    = errors.New("InstrErrAccountBorrowOutstanding")
	InstrErrCallDepth                   = errors.New("InstrErrCallDepth")
	InstrErrModifiedProgramId           = errors.New("InstrErrModifiedProgramId")
)

// pubkey derivation errors
var (
	PubkeyErrMaxSeedLengthExceeded = errors.New("PubkeyErrMaxSeedLengthExceeded")
	PubkeyErrIllegalOwner          = errors.New("PubkeyErrIllegalOwner")
)
