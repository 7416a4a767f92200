package sealevel

import (
	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/svsp/pkg/accounts"
	"go.firedancer.io/svsp/pkg/cu"
	"go.firedancer.io/svsp/pkg/features"
	"k8s.io/klog/v2"
)

type ExecutionCtx struct {
	Accounts           accounts.Accounts
	TransactionContext *TransactionCtx
	Features           features.Features
	ComputeMeter       cu.ComputeMeter
}

func (execCtx *ExecutionCtx) ProcessInstruction(instrData []byte, instructionAccts []InstructionAccount, programIndices []uint64) error {
	nextInstrCtx := new(InstructionCtx)
	nextInstrCtx.Configure(programIndices, instructionAccts, instrData)

	err := execCtx.TransactionContext.Push(nextInstrCtx)
	if err != nil {
		return err
	}

	err1 := execCtx.ExecuteInstruction()
	err2 := execCtx.TransactionContext.Pop()

	if err1 != nil {
		return err1
	}
	return err2
}

func (execCtx *ExecutionCtx) ExecuteInstruction() error {
	txCtx := execCtx.TransactionContext
	instrCtx, err := txCtx.CurrentInstructionCtx()
	if err != nil {
		return err
	}

	borrowedRootAccount, err := instrCtx.BorrowLastProgramAccount(txCtx)
	if err != nil {
		klog.V(2).Infof("BorrowLastProgramAccount failed: %s", err)
		return InstrErrUnsupportedProgramId
	}

	if !borrowedRootAccount.IsExecutable() {
		borrowedRootAccount.Drop()
		return InstrErrAccountNotExecutable
	}

	ownerId := borrowedRootAccount.Owner()

	var builtinId solana.PublicKey
	if ownerId == NativeLoaderAddr {
		builtinId = borrowedRootAccount.Key()
	} else {
		builtinId = ownerId
	}
	borrowedRootAccount.Drop()

	nativeProgramFn, err := resolveNativeProgramById(builtinId)
	if err != nil {
		return err
	}

	klog.V(2).Infof("calling native program %s", builtinId)
	return nativeProgramFn(execCtx)
}

// PrepareInstruction maps the accounts named by a cross-program instruction
// onto the caller's instruction accounts, enforcing that no privilege is
// gained: writability must come from the caller, signatures from the caller
// or from the invoking program's derived signers.
func (execCtx *ExecutionCtx) PrepareInstruction(ix Instruction, signers []solana.PublicKey) ([]InstructionAccount, []uint64, error) {
	txCtx := execCtx.TransactionContext

	ixCtx, err := txCtx.CurrentInstructionCtx()
	if err != nil {
		return nil, nil, err
	}

	dedupInstructionAccounts := make([]InstructionAccount, 0)
	duplicateIndices := make([]uint64, 0)

	for instructionAcctIndex, accountMeta := range ix.Accounts {
		indexInTx, err := txCtx.IndexOfAccount(accountMeta.Pubkey)
		if err != nil {
			klog.Errorf("instruction references unknown account %s", accountMeta.Pubkey)
			return nil, nil, err
		}

		duplicateIndex := -1
		for index, instrAcct := range dedupInstructionAccounts {
			if instrAcct.IndexInTransaction == indexInTx {
				duplicateIndex = index
				break
			}
		}

		if duplicateIndex != -1 {
			duplicateIndices = append(duplicateIndices, uint64(duplicateIndex))
			dedupInstructionAccounts[duplicateIndex].IsSigner = dedupInstructionAccounts[duplicateIndex].IsSigner || accountMeta.IsSigner
			dedupInstructionAccounts[duplicateIndex].IsWritable = dedupInstructionAccounts[duplicateIndex].IsWritable || accountMeta.IsWritable
		} else {
			indexInCaller, err := ixCtx.IndexOfInstructionAccount(txCtx, accountMeta.Pubkey)
			if err != nil {
				return nil, nil, err
			}
			duplicateIndices = append(duplicateIndices, uint64(len(dedupInstructionAccounts)))

			instrAcct := InstructionAccount{IndexInTransaction: indexInTx,
				IndexInCaller: indexInCaller,
				IndexInCallee: uint64(instructionAcctIndex),
				IsSigner:      accountMeta.IsSigner,
				IsWritable:    accountMeta.IsWritable}

			dedupInstructionAccounts = append(dedupInstructionAccounts, instrAcct)
		}
	}

	for _, instructionAcct := range dedupInstructionAccounts {
		borrowedAcct, err := ixCtx.BorrowInstructionAccount(txCtx, instructionAcct.IndexInCaller)
		if err != nil {
			return nil, nil, err
		}

		if instructionAcct.IsWritable && !borrowedAcct.IsWritable() {
			borrowedAcct.Drop()
			return nil, nil, InstrErrPrivilegeEscalation
		}

		presentInSigners := false
		for _, addr := range signers {
			if addr == borrowedAcct.Key() {
				presentInSigners = true
				break
			}
		}
		if instructionAcct.IsSigner && !(borrowedAcct.IsSigner() || presentInSigners) {
			borrowedAcct.Drop()
			return nil, nil, InstrErrPrivilegeEscalation
		}
		borrowedAcct.Drop()
	}

	var instructionAccounts []InstructionAccount
	for _, duplicateIndex := range duplicateIndices {
		if duplicateIndex >= uint64(len(dedupInstructionAccounts)) {
			return nil, nil, InstrErrNotEnoughAccountKeys
		}
		instructionAccounts = append(instructionAccounts, dedupInstructionAccounts[duplicateIndex])
	}

	programIdxInTx, err := txCtx.IndexOfAccount(ix.ProgramId)
	if err != nil {
		klog.Errorf("unknown program %s", ix.ProgramId)
		return nil, nil, err
	}

	programAcct, err := txCtx.AccountAtIndex(programIdxInTx)
	if err != nil {
		return nil, nil, err
	}
	if !programAcct.Executable {
		klog.Errorf("account %s is not executable", ix.ProgramId)
		return nil, nil, InstrErrAccountNotExecutable
	}

	return instructionAccounts, []uint64{programIdxInTx}, nil
}

// NativeInvoke executes an inner instruction on behalf of the currently
// running program. The signers slice carries derived authorities the caller
// is entitled to sign for.
func (execCtx *ExecutionCtx) NativeInvoke(instruction Instruction, signers []solana.PublicKey) error {
	instrAccts, programIndices, err := execCtx.PrepareInstruction(instruction, signers)
	if err != nil {
		return err
	}

	return execCtx.ProcessInstruction(instruction.Data, instrAccts, programIndices)
}
