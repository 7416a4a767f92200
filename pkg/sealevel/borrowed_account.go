package sealevel

import (
	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/svsp/pkg/accounts"
	"go.firedancer.io/svsp/pkg/features"
	"go.firedancer.io/svsp/pkg/safemath"
)

type BorrowedAccount struct {
	TxCtx              *TransactionCtx
	InstrCtx           *InstructionCtx
	IndexInTransaction uint64
	IndexInInstruction uint64
	IsProgramAcct      bool
	Account            *accounts.Account
}

func (acct *BorrowedAccount) Drop() {
	acct.TxCtx.Accounts.Unlock(acct.IndexInTransaction)
}

func (acct *BorrowedAccount) Key() solana.PublicKey {
	return acct.Account.Key
}

func (acct *BorrowedAccount) Owner() solana.PublicKey {
	return acct.Account.Owner
}

func (acct *BorrowedAccount) Lamports() uint64 {
	return acct.Account.Lamports
}

func (acct *BorrowedAccount) Data() []byte {
	return acct.Account.Data
}

func (acct *BorrowedAccount) Touch() error {
	return acct.TxCtx.Accounts.Touch(acct.IndexInTransaction)
}

func (acct *BorrowedAccount) IsSigner() bool {
	if acct.IsProgramAcct {
		return false
	}
	isSigner, err := acct.InstrCtx.IsInstructionAccountSigner(acct.IndexInInstruction)
	if err != nil {
		return false
	}
	return isSigner
}

func (acct *BorrowedAccount) IsWritable() bool {
	if acct.IsProgramAcct {
		return false
	}
	writable, err := acct.InstrCtx.IsInstructionAccountWritable(acct.IndexInInstruction)
	if err != nil {
		return false
	}
	return writable
}

func (acct *BorrowedAccount) IsExecutable() bool {
	return acct.Account.Executable
}

func (acct *BorrowedAccount) IsOwnedByCurrentProgram() bool {
	lastProgramKey, err := acct.InstrCtx.LastProgramKey(acct.TxCtx)
	if err != nil {
		return false
	}
	return lastProgramKey == acct.Owner()
}

func (acct *BorrowedAccount) DataCanBeChanged(f features.Features) error {
	if acct.IsExecutable() {
		return InstrErrExecutableDataModified
	}
	if !acct.IsWritable() {
		return InstrErrReadonlyDataModified
	}
	if !acct.IsOwnedByCurrentProgram() {
		return InstrErrExternalAccountDataModified
	}
	return nil
}

func (acct *BorrowedAccount) SetData(f features.Features, data []byte) error {
	err := acct.DataCanBeChanged(f)
	if err != nil {
		return err
	}
	err = acct.Touch()
	if err != nil {
		return err
	}

	acct.Account.SetData(data)
	return nil
}

func (acct *BorrowedAccount) SetDataLength(length uint64, f features.Features) error {
	err := acct.DataCanBeChanged(f)
	if err != nil {
		return err
	}

	if uint64(len(acct.Account.Data)) == length {
		return nil
	}

	err = acct.Touch()
	if err != nil {
		return err
	}

	acct.Account.Resize(length)
	return nil
}

func (acct *BorrowedAccount) SetLamports(lamports uint64, f features.Features) error {
	if !acct.IsOwnedByCurrentProgram() && lamports < acct.Lamports() {
		return InstrErrExternalAccountLamportSpend
	}
	if !acct.IsWritable() {
		return InstrErrReadonlyLamportChange
	}
	if acct.IsExecutable() {
		return InstrErrExecutableDataModified
	}
	err := acct.Touch()
	if err != nil {
		return err
	}

	acct.Account.Lamports = lamports
	return nil
}

func (acct *BorrowedAccount) CheckedAddLamports(lamports uint64, f features.Features) error {
	newLamports, err := safemath.CheckedAddU64(acct.Lamports(), lamports)
	if err != nil {
		return InstrErrArithmeticOverflow
	}
	return acct.SetLamports(newLamports, f)
}

func (acct *BorrowedAccount) CheckedSubLamports(lamports uint64, f features.Features) error {
	newLamports, err := safemath.CheckedSubU64(acct.Lamports(), lamports)
	if err != nil {
		return InstrErrArithmeticOverflow
	}
	return acct.SetLamports(newLamports, f)
}

func (acct *BorrowedAccount) SetOwner(f features.Features, owner solana.PublicKey) error {
	if !acct.IsOwnedByCurrentProgram() {
		return InstrErrModifiedProgramId
	}
	if !acct.IsWritable() {
		return InstrErrModifiedProgramId
	}
	if acct.IsExecutable() {
		return InstrErrModifiedProgramId
	}
	err := acct.Touch()
	if err != nil {
		return err
	}

	acct.Account.Owner = owner
	return nil
}
