package sealevel

import (
	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/svsp/pkg/base58"
)

const NativeLoaderAddrStr = "NativeLoader1111111111111111111111111111111"

var NativeLoaderAddr = solana.PublicKey(base58.MustDecodeFromString(NativeLoaderAddrStr))

const SystemProgramAddrStr = "11111111111111111111111111111111"

var SystemProgramAddr = solana.PublicKey(base58.MustDecodeFromString(SystemProgramAddrStr))

const StakeProgramAddrStr = "Stake11111111111111111111111111111111111111"

var StakeProgramAddr = solana.PublicKey(base58.MustDecodeFromString(StakeProgramAddrStr))

const StakeProgramConfigAddrStr = "StakeConfig11111111111111111111111111111111"

var StakeProgramConfigAddr = solana.PublicKey(base58.MustDecodeFromString(StakeProgramConfigAddrStr))

const VoteProgramAddrStr = "Vote111111111111111111111111111111111111111"

var VoteProgramAddr = solana.PublicKey(base58.MustDecodeFromString(VoteProgramAddrStr))

const TokenProgramAddrStr = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"

var TokenProgramAddr = solana.PublicKey(base58.MustDecodeFromString(TokenProgramAddrStr))

const MetadataProgramAddrStr = "metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s"

var MetadataProgramAddr = solana.PublicKey(base58.MustDecodeFromString(MetadataProgramAddrStr))

const SinglePoolProgramAddrStr = "SVSPxpvHdN29nkVg9rPapPNDddN5DipNLRUFhyjFThE"

var SinglePoolProgramAddr = solana.PublicKey(base58.MustDecodeFromString(SinglePoolProgramAddrStr))

const SysvarStakeHistoryAddrStr = "SysvarStakeHistory1111111111111111111111111"

var SysvarStakeHistoryAddr = solana.PublicKey(base58.MustDecodeFromString(SysvarStakeHistoryAddrStr))

func resolveNativeProgramById(programId solana.PublicKey) (func(ctx *ExecutionCtx) error, error) {
	switch programId {
	case SystemProgramAddr:
		return SystemProgramExecute, nil
	case StakeProgramAddr:
		return StakeProgramExecute, nil
	case TokenProgramAddr:
		return TokenProgramExecute, nil
	case MetadataProgramAddr:
		return MetadataProgramExecute, nil
	case SinglePoolProgramAddr:
		return SinglePoolProgramExecute, nil
	}

	return nil, InstrErrUnsupportedProgramId
}

func verifySigner(authorized solana.PublicKey, signers []solana.PublicKey) error {
	for _, signer := range signers {
		if signer == authorized {
			return nil
		}
	}
	return InstrErrMissingRequiredSignature
}

func checkAcctForRentSysvar(txCtx *TransactionCtx, instrCtx *InstructionCtx, instrAcctIdx uint64) error {
	idxInTx, err := instrCtx.IndexOfInstructionAccountInTransaction(instrAcctIdx)
	if err != nil {
		return err
	}
	pubkey, err := txCtx.KeyOfAccountAtIndex(idxInTx)
	if err != nil {
		return err
	}
	if pubkey != SysvarRentAddr {
		return InstrErrInvalidArgument
	}
	return nil
}

func checkAcctForClockSysvar(txCtx *TransactionCtx, instrCtx *InstructionCtx, instrAcctIdx uint64) error {
	idxInTx, err := instrCtx.IndexOfInstructionAccountInTransaction(instrAcctIdx)
	if err != nil {
		return err
	}
	pubkey, err := txCtx.KeyOfAccountAtIndex(idxInTx)
	if err != nil {
		return err
	}
	if pubkey != SysvarClockAddr {
		return InstrErrInvalidArgument
	}
	return nil
}
