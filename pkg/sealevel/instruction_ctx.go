package sealevel

import (
	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/svsp/pkg/safemath"
)

type InstructionCtx struct {
	ProgramAccounts     []uint64
	InstructionAccounts []InstructionAccount
	Data                []byte
}

func (instrCtx *InstructionCtx) Configure(programIndices []uint64, instructionAccts []InstructionAccount, data []byte) {
	instrCtx.ProgramAccounts = programIndices
	instrCtx.InstructionAccounts = instructionAccts
	instrCtx.Data = data
}

func (instrCtx *InstructionCtx) NumberOfProgramAccounts() uint64 {
	return uint64(len(instrCtx.ProgramAccounts))
}

func (instrCtx *InstructionCtx) NumberOfInstructionAccounts() uint64 {
	return uint64(len(instrCtx.InstructionAccounts))
}

func (instrCtx *InstructionCtx) CheckNumOfInstructionAccounts(num uint64) error {
	if instrCtx.NumberOfInstructionAccounts() < num {
		return InstrErrNotEnoughAccountKeys
	}
	return nil
}

func (instrCtx *InstructionCtx) IndexOfProgramAccountInTransaction(programAcctIdx uint64) (uint64, error) {
	if programAcctIdx >= instrCtx.NumberOfProgramAccounts() {
		return 0, InstrErrNotEnoughAccountKeys
	}
	return instrCtx.ProgramAccounts[programAcctIdx], nil
}

func (instrCtx *InstructionCtx) IndexOfInstructionAccountInTransaction(instrAcctIdx uint64) (uint64, error) {
	if instrAcctIdx >= instrCtx.NumberOfInstructionAccounts() {
		return 0, InstrErrNotEnoughAccountKeys
	}
	return instrCtx.InstructionAccounts[instrAcctIdx].IndexInTransaction, nil
}

func (instrCtx *InstructionCtx) IsInstructionAccountSigner(instrAcctIdx uint64) (bool, error) {
	if instrAcctIdx >= instrCtx.NumberOfInstructionAccounts() {
		return false, InstrErrNotEnoughAccountKeys
	}
	return instrCtx.InstructionAccounts[instrAcctIdx].IsSigner, nil
}

func (instrCtx *InstructionCtx) IsInstructionAccountWritable(instrAcctIdx uint64) (bool, error) {
	if instrAcctIdx >= instrCtx.NumberOfInstructionAccounts() {
		return false, InstrErrNotEnoughAccountKeys
	}
	return instrCtx.InstructionAccounts[instrAcctIdx].IsWritable, nil
}

func (instrCtx *InstructionCtx) IndexOfInstructionAccount(txCtx *TransactionCtx, pubkey solana.PublicKey) (uint64, error) {
	for idx, instrAcct := range instrCtx.InstructionAccounts {
		key, err := txCtx.KeyOfAccountAtIndex(instrAcct.IndexInTransaction)
		if err != nil {
			return 0, err
		}
		if key == pubkey {
			return uint64(idx), nil
		}
	}
	return 0, InstrErrMissingAccount
}

func (instrCtx *InstructionCtx) LastProgramKey(txCtx *TransactionCtx) (solana.PublicKey, error) {
	programAcctIdx := safemath.SaturatingSubU64(instrCtx.NumberOfProgramAccounts(), 1)

	idx, err := instrCtx.IndexOfProgramAccountInTransaction(programAcctIdx)
	if err != nil {
		return solana.PublicKey{}, err
	}

	return txCtx.KeyOfAccountAtIndex(idx)
}

func (instrCtx *InstructionCtx) BorrowInstructionAccount(txCtx *TransactionCtx, instrAcctIdx uint64) (*BorrowedAccount, error) {
	idxInTx, err := instrCtx.IndexOfInstructionAccountInTransaction(instrAcctIdx)
	if err != nil {
		return nil, err
	}

	err = txCtx.Accounts.Lock(idxInTx)
	if err != nil {
		return nil, err
	}

	acct, err := txCtx.Accounts.GetAccount(idxInTx)
	if err != nil {
		txCtx.Accounts.Unlock(idxInTx)
		return nil, err
	}

	return &BorrowedAccount{TxCtx: txCtx, InstrCtx: instrCtx, IndexInTransaction: idxInTx, IndexInInstruction: instrAcctIdx, Account: acct}, nil
}

func (instrCtx *InstructionCtx) BorrowProgramAccount(txCtx *TransactionCtx, programAcctIdx uint64) (*BorrowedAccount, error) {
	idxInTx, err := instrCtx.IndexOfProgramAccountInTransaction(programAcctIdx)
	if err != nil {
		return nil, err
	}

	err = txCtx.Accounts.Lock(idxInTx)
	if err != nil {
		return nil, err
	}

	acct, err := txCtx.Accounts.GetAccount(idxInTx)
	if err != nil {
		txCtx.Accounts.Unlock(idxInTx)
		return nil, err
	}

	return &BorrowedAccount{TxCtx: txCtx, InstrCtx: instrCtx, IndexInTransaction: idxInTx, IsProgramAcct: true, Account: acct}, nil
}

func (instrCtx *InstructionCtx) BorrowLastProgramAccount(txCtx *TransactionCtx) (*BorrowedAccount, error) {
	programAcctIdx := safemath.SaturatingSubU64(instrCtx.NumberOfProgramAccounts(), 1)
	return instrCtx.BorrowProgramAccount(txCtx, programAcctIdx)
}

func (instrCtx *InstructionCtx) Signers(txCtx *TransactionCtx) ([]solana.PublicKey, error) {
	var signers []solana.PublicKey
	for _, instrAcct := range instrCtx.InstructionAccounts {
		if instrAcct.IsSigner {
			key, err := txCtx.KeyOfAccountAtIndex(instrAcct.IndexInTransaction)
			if err != nil {
				return nil, err
			}
			signers = append(signers, key)
		}
	}
	return signers, nil
}
