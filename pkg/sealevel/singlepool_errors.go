package sealevel

import "errors"

// single pool errors
var (
	PoolErrInvalidPoolAccount           = errors.New("PoolErrInvalidPoolAccount")
	PoolErrInvalidPoolStakeAccount      = errors.New("PoolErrInvalidPoolStakeAccount")
	PoolErrInvalidPoolMint              = errors.New("PoolErrInvalidPoolMint")
	PoolErrInvalidPoolStakeAuthority    = errors.New("PoolErrInvalidPoolStakeAuthority")
	PoolErrInvalidPoolMintAuthority     = errors.New("PoolErrInvalidPoolMintAuthority")
	PoolErrInvalidPoolMplAuthority      = errors.New("PoolErrInvalidPoolMplAuthority")
	PoolErrInvalidMetadataAccount       = errors.New("PoolErrInvalidMetadataAccount")
	PoolErrInvalidMetadataSigner        = errors.New("PoolErrInvalidMetadataSigner")
	PoolErrDepositTooSmall              = errors.New("PoolErrDepositTooSmall")
	PoolErrWithdrawalTooSmall           = errors.New("PoolErrWithdrawalTooSmall")
	PoolErrWithdrawalTooLarge           = errors.New("PoolErrWithdrawalTooLarge")
	PoolErrSignatureMissing             = errors.New("PoolErrSignatureMissing")
	PoolErrWrongStakeState              = errors.New("PoolErrWrongStakeState")
	PoolErrArithmeticOverflow           = errors.New("PoolErrArithmeticOverflow")
	PoolErrUnexpectedMathError          = errors.New("PoolErrUnexpectedMathError")
	PoolErrLegacyVoteAccount            = errors.New("PoolErrLegacyVoteAccount")
	PoolErrUnparseableVoteAccount       = errors.New("PoolErrUnparseableVoteAccount")
	PoolErrWrongRentAmount              = errors.New("PoolErrWrongRentAmount")
	PoolErrInvalidPoolStakeAccountUsage = errors.New("PoolErrInvalidPoolStakeAccountUsage")
	PoolErrPoolAlreadyInitialized       = errors.New("PoolErrPoolAlreadyInitialized")
	PoolErrInvalidPoolOnRampAccount     = errors.New("PoolErrInvalidPoolOnRampAccount")
	PoolErrOnRampDoesntExist            = errors.New("PoolErrOnRampDoesntExist")
)
