package sealevel

import (
	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/svsp/pkg/accounts"
)

type TransactionAccounts struct {
	Accounts []*accounts.Account
	Locked   []bool
	Touched  []bool
}

func NewTransactionAccounts(accts []accounts.Account) *TransactionAccounts {
	transactionAccts := new(TransactionAccounts)
	for idx := range accts {
		transactionAccts.Accounts = append(transactionAccts.Accounts, &accts[idx])
	}
	transactionAccts.Locked = make([]bool, len(accts))
	transactionAccts.Touched = make([]bool, len(accts))
	return transactionAccts
}

func (transactionAccts *TransactionAccounts) Len() uint64 {
	return uint64(len(transactionAccts.Accounts))
}

func (transactionAccts *TransactionAccounts) GetAccount(idx uint64) (*accounts.Account, error) {
	if idx >= transactionAccts.Len() {
		return nil, InstrErrNotEnoughAccountKeys
	}
	return transactionAccts.Accounts[idx], nil
}

func (transactionAccts *TransactionAccounts) Lock(idx uint64) error {
	if idx >= transactionAccts.Len() {
		return InstrErrNotEnoughAccountKeys
	}
	if transactionAccts.Locked[idx] {
		return InstrErrAccountBorrowOutstanding
	}
	transactionAccts.Locked[idx] = true
	return nil
}

func (transactionAccts *TransactionAccounts) Unlock(idx uint64) {
	if idx < transactionAccts.Len() {
		transactionAccts.Locked[idx] = false
	}
}

func (transactionAccts *TransactionAccounts) Touch(idx uint64) error {
	if idx >= transactionAccts.Len() {
		return InstrErrNotEnoughAccountKeys
	}
	transactionAccts.Touched[idx] = true
	return nil
}

type TxReturnData struct {
	programId solana.PublicKey
	data      []byte
}

type TransactionCtx struct {
	Accounts            TransactionAccounts
	instructionStack    []*InstructionCtx
	instructionTrace    []*InstructionCtx
	instructionStackCap uint64
	instructionTraceCap uint64
	returnData          TxReturnData
}

func NewTestTransactionCtx(transactionAccts TransactionAccounts, stackCapacity uint64, traceCapacity uint64) *TransactionCtx {
	return &TransactionCtx{Accounts: transactionAccts, instructionStackCap: stackCapacity, instructionTraceCap: traceCapacity}
}

func (txCtx *TransactionCtx) KeyOfAccountAtIndex(idx uint64) (solana.PublicKey, error) {
	acct, err := txCtx.Accounts.GetAccount(idx)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return acct.Key, nil
}

func (txCtx *TransactionCtx) AccountAtIndex(idx uint64) (*accounts.Account, error) {
	return txCtx.Accounts.GetAccount(idx)
}

func (txCtx *TransactionCtx) IndexOfAccount(pubkey solana.PublicKey) (uint64, error) {
	for idx, acct := range txCtx.Accounts.Accounts {
		if acct.Key == pubkey {
			return uint64(idx), nil
		}
	}
	return 0, InstrErrMissingAccount
}

func (txCtx *TransactionCtx) InstructionCtxStackHeight() uint64 {
	return uint64(len(txCtx.instructionStack))
}

func (txCtx *TransactionCtx) InstructionTraceLength() uint64 {
	return uint64(len(txCtx.instructionTrace))
}

func (txCtx *TransactionCtx) CurrentInstructionCtx() (*InstructionCtx, error) {
	height := txCtx.InstructionCtxStackHeight()
	if height == 0 {
		return nil, InstrErrCallDepth
	}
	return txCtx.instructionStack[height-1], nil
}

func (txCtx *TransactionCtx) Push(instrCtx *InstructionCtx) error {
	if txCtx.InstructionCtxStackHeight() >= txCtx.instructionStackCap {
		return InstrErrCallDepth
	}
	if txCtx.InstructionTraceLength() >= txCtx.instructionTraceCap {
		return InstrErrCallDepth
	}
	txCtx.instructionStack = append(txCtx.instructionStack, instrCtx)
	txCtx.instructionTrace = append(txCtx.instructionTrace, instrCtx)
	return nil
}

func (txCtx *TransactionCtx) Pop() error {
	height := txCtx.InstructionCtxStackHeight()
	if height == 0 {
		return InstrErrCallDepth
	}
	txCtx.instructionStack = txCtx.instructionStack[:height-1]
	return nil
}

func (txCtx *TransactionCtx) SetReturnData(programId solana.PublicKey, data []byte) {
	txCtx.returnData = TxReturnData{programId: programId, data: data}
}

func (txCtx *TransactionCtx) GetReturnData() (solana.PublicKey, []byte) {
	return txCtx.returnData.programId, txCtx.returnData.data
}
