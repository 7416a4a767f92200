package sealevel

import (
	"bytes"
	"errors"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/svsp/pkg/features"
	"go.firedancer.io/svsp/pkg/safemath"
	"k8s.io/klog/v2"
)

const (
	TokenProgramInstrTypeInitializeMint = iota
	TokenProgramInstrTypeInitializeAccount
	TokenProgramInstrTypeInitializeMultisig
	TokenProgramInstrTypeTransfer
	TokenProgramInstrTypeApprove
	TokenProgramInstrTypeRevoke
	TokenProgramInstrTypeSetAuthority
	TokenProgramInstrTypeMintTo
	TokenProgramInstrTypeBurn
)

// token errors
var (
	TokenErrNotRentExempt        = errors.New("TokenErrNotRentExempt")
	TokenErrInsufficientFunds    = errors.New("TokenErrInsufficientFunds")
	TokenErrMintMismatch         = errors.New("TokenErrMintMismatch")
	TokenErrOwnerMismatch        = errors.New("TokenErrOwnerMismatch")
	TokenErrAlreadyInUse         = errors.New("TokenErrAlreadyInUse")
	TokenErrUninitializedState   = errors.New("TokenErrUninitializedState")
	TokenErrAccountFrozen        = errors.New("TokenErrAccountFrozen")
	TokenErrFixedSupply          = errors.New("TokenErrFixedSupply")
	TokenErrInvalidState         = errors.New("TokenErrInvalidState")
	TokenErrMintDecimalsMismatch = errors.New("TokenErrMintDecimalsMismatch")
)

type TokenInstrInitializeMint struct {
	Decimals        byte
	MintAuthority   solana.PublicKey
	FreezeAuthority *solana.PublicKey
}

type TokenInstrAmount struct {
	Amount uint64
}

func (initMint *TokenInstrInitializeMint) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	var err error
	initMint.Decimals, err = decoder.ReadByte()
	if err != nil {
		return err
	}

	pk, err := decoder.ReadBytes(solana.PublicKeyLength)
	if err != nil {
		return err
	}
	copy(initMint.MintAuthority[:], pk)

	freezeAuthorityExists, err := decoder.ReadBool()
	if err != nil {
		return err
	}
	if freezeAuthorityExists {
		pk, err = decoder.ReadBytes(solana.PublicKeyLength)
		if err != nil {
			return err
		}
		freezeAuthority := solana.PublicKeyFromBytes(pk)
		initMint.FreezeAuthority = &freezeAuthority
	}

	return nil
}

func (initMint *TokenInstrInitializeMint) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteByte(initMint.Decimals)
	if err != nil {
		return err
	}

	err = encoder.WriteBytes(initMint.MintAuthority[:], false)
	if err != nil {
		return err
	}

	if initMint.FreezeAuthority != nil {
		err = encoder.WriteBool(true)
		if err != nil {
			return err
		}
		return encoder.WriteBytes(initMint.FreezeAuthority[:], false)
	}
	return encoder.WriteBool(false)
}

func (amount *TokenInstrAmount) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	var err error
	amount.Amount, err = decoder.ReadUint64(bin.LE)
	return err
}

func (amount *TokenInstrAmount) MarshalWithEncoder(encoder *bin.Encoder) error {
	return encoder.WriteUint64(amount.Amount, bin.LE)
}

func setTokenMintState(acct *BorrowedAccount, mint *TokenMint, f features.Features) error {
	buf := new(bytes.Buffer)
	encoder := bin.NewBinEncoder(buf)

	err := mint.MarshalWithEncoder(encoder)
	if err != nil {
		return err
	}

	return acct.SetData(f, buf.Bytes())
}

func setTokenAccountState(acct *BorrowedAccount, tokenAcct *TokenAccount, f features.Features) error {
	buf := new(bytes.Buffer)
	encoder := bin.NewBinEncoder(buf)

	err := tokenAcct.MarshalWithEncoder(encoder)
	if err != nil {
		return err
	}

	return acct.SetData(f, buf.Bytes())
}

// validateTokenOwner checks that the account owner, or an approved delegate
// spending within its allowance, has signed.
func validateTokenOwner(tokenAcct *TokenAccount, signers []solana.PublicKey, amount uint64) (bool, error) {
	if verifySigner(tokenAcct.Owner, signers) == nil {
		return false, nil
	}

	if tokenAcct.Delegate.IsSome && verifySigner(tokenAcct.Delegate.Pubkey, signers) == nil {
		if tokenAcct.DelegatedAmount < amount {
			return false, TokenErrInsufficientFunds
		}
		return true, nil
	}

	return false, TokenErrOwnerMismatch
}

func TokenProgramExecute(execCtx *ExecutionCtx) error {
	err := execCtx.ComputeMeter.Consume(CUTokenProgramDefaultComputeUnits)
	if err != nil {
		return err
	}

	txCtx := execCtx.TransactionContext
	instrCtx, err := txCtx.CurrentInstructionCtx()
	if err != nil {
		return err
	}

	decoder := bin.NewBinDecoder(instrCtx.Data)
	instructionType, err := decoder.ReadByte()
	if err != nil {
		return InstrErrInvalidInstructionData
	}

	signers, err := instrCtx.Signers(txCtx)
	if err != nil {
		return err
	}

	switch instructionType {
	case TokenProgramInstrTypeInitializeMint:
		{
			var initMint TokenInstrInitializeMint
			err = initMint.UnmarshalWithDecoder(decoder)
			if err != nil {
				return InstrErrInvalidInstructionData
			}

			err = instrCtx.CheckNumOfInstructionAccounts(2)
			if err != nil {
				return err
			}
			err = checkAcctForRentSysvar(txCtx, instrCtx, 1)
			if err != nil {
				return err
			}

			err = TokenProgramInitializeMint(execCtx, txCtx, instrCtx, initMint.Decimals, initMint.MintAuthority, initMint.FreezeAuthority)
		}

	case TokenProgramInstrTypeInitializeAccount:
		{
			err = instrCtx.CheckNumOfInstructionAccounts(4)
			if err != nil {
				return err
			}
			err = checkAcctForRentSysvar(txCtx, instrCtx, 3)
			if err != nil {
				return err
			}

			err = TokenProgramInitializeAccount(execCtx, txCtx, instrCtx)
		}

	case TokenProgramInstrTypeApprove:
		{
			var approve TokenInstrAmount
			err = approve.UnmarshalWithDecoder(decoder)
			if err != nil {
				return InstrErrInvalidInstructionData
			}

			err = instrCtx.CheckNumOfInstructionAccounts(3)
			if err != nil {
				return err
			}

			err = TokenProgramApprove(execCtx, txCtx, instrCtx, approve.Amount, signers)
		}

	case TokenProgramInstrTypeMintTo:
		{
			var mintTo TokenInstrAmount
			err = mintTo.UnmarshalWithDecoder(decoder)
			if err != nil {
				return InstrErrInvalidInstructionData
			}

			err = instrCtx.CheckNumOfInstructionAccounts(3)
			if err != nil {
				return err
			}

			err = TokenProgramMintTo(execCtx, txCtx, instrCtx, mintTo.Amount, signers)
		}

	case TokenProgramInstrTypeBurn:
		{
			var burn TokenInstrAmount
			err = burn.UnmarshalWithDecoder(decoder)
			if err != nil {
				return InstrErrInvalidInstructionData
			}

			err = instrCtx.CheckNumOfInstructionAccounts(3)
			if err != nil {
				return err
			}

			err = TokenProgramBurn(execCtx, txCtx, instrCtx, burn.Amount, signers)
		}

	default:
		return InstrErrInvalidInstructionData
	}

	return err
}

func TokenProgramInitializeMint(execCtx *ExecutionCtx, txCtx *TransactionCtx, instrCtx *InstructionCtx, decimals byte, mintAuthority solana.PublicKey, freezeAuthority *solana.PublicKey) error {
	mintAcct, err := instrCtx.BorrowInstructionAccount(txCtx, 0)
	if err != nil {
		return err
	}
	defer mintAcct.Drop()

	if mintAcct.Owner() != TokenProgramAddr {
		return InstrErrInvalidAccountOwner
	}
	if len(mintAcct.Data()) != TokenMintSize {
		return InstrErrInvalidAccountData
	}

	mint, err := unmarshalTokenMint(mintAcct.Data())
	if err != nil {
		return err
	}
	if mint.IsInitialized {
		return TokenErrAlreadyInUse
	}

	rent := ReadRentSysvar(&execCtx.Accounts)
	if !rent.IsExempt(mintAcct.Lamports(), TokenMintSize) {
		return TokenErrNotRentExempt
	}

	newMint := new(TokenMint)
	newMint.MintAuthority = COptionPubkey{IsSome: true, Pubkey: mintAuthority}
	newMint.Decimals = decimals
	newMint.IsInitialized = true
	if freezeAuthority != nil {
		newMint.FreezeAuthority = COptionPubkey{IsSome: true, Pubkey: *freezeAuthority}
	}

	return setTokenMintState(mintAcct, newMint, execCtx.Features)
}

func TokenProgramInitializeAccount(execCtx *ExecutionCtx, txCtx *TransactionCtx, instrCtx *InstructionCtx) error {
	newAcct, err := instrCtx.BorrowInstructionAccount(txCtx, 0)
	if err != nil {
		return err
	}
	defer newAcct.Drop()

	if newAcct.Owner() != TokenProgramAddr {
		return InstrErrInvalidAccountOwner
	}
	if len(newAcct.Data()) != TokenAccountSize {
		return InstrErrInvalidAccountData
	}

	tokenAcct, err := unmarshalTokenAccount(newAcct.Data())
	if err != nil {
		return err
	}
	if tokenAcct.State != TokenAccountStateUninitialized {
		return TokenErrAlreadyInUse
	}

	rent := ReadRentSysvar(&execCtx.Accounts)
	if !rent.IsExempt(newAcct.Lamports(), TokenAccountSize) {
		return TokenErrNotRentExempt
	}

	mintAddr, err := extractAddress(txCtx, instrCtx, 1)
	if err != nil {
		return err
	}
	ownerAddr, err := extractAddress(txCtx, instrCtx, 2)
	if err != nil {
		return err
	}

	mintAcct, err := instrCtx.BorrowInstructionAccount(txCtx, 1)
	if err != nil {
		return err
	}
	if mintAcct.Owner() != TokenProgramAddr {
		mintAcct.Drop()
		return InstrErrInvalidAccountOwner
	}
	mint, err := unmarshalTokenMint(mintAcct.Data())
	mintAcct.Drop()
	if err != nil {
		return err
	}
	if !mint.IsInitialized {
		return TokenErrUninitializedState
	}

	newState := new(TokenAccount)
	newState.Mint = mintAddr
	newState.Owner = ownerAddr
	newState.State = TokenAccountStateInitialized

	return setTokenAccountState(newAcct, newState, execCtx.Features)
}

func TokenProgramApprove(execCtx *ExecutionCtx, txCtx *TransactionCtx, instrCtx *InstructionCtx, amount uint64, signers []solana.PublicKey) error {
	sourceAcct, err := instrCtx.BorrowInstructionAccount(txCtx, 0)
	if err != nil {
		return err
	}
	defer sourceAcct.Drop()

	if sourceAcct.Owner() != TokenProgramAddr {
		return InstrErrInvalidAccountOwner
	}

	tokenAcct, err := unmarshalTokenAccount(sourceAcct.Data())
	if err != nil {
		return err
	}
	if tokenAcct.State == TokenAccountStateUninitialized {
		return TokenErrUninitializedState
	}
	if tokenAcct.State == TokenAccountStateFrozen {
		return TokenErrAccountFrozen
	}

	err = verifySigner(tokenAcct.Owner, signers)
	if err != nil {
		return TokenErrOwnerMismatch
	}

	delegateAddr, err := extractAddress(txCtx, instrCtx, 1)
	if err != nil {
		return err
	}

	tokenAcct.Delegate = COptionPubkey{IsSome: true, Pubkey: delegateAddr}
	tokenAcct.DelegatedAmount = amount

	return setTokenAccountState(sourceAcct, tokenAcct, execCtx.Features)
}

func TokenProgramMintTo(execCtx *ExecutionCtx, txCtx *TransactionCtx, instrCtx *InstructionCtx, amount uint64, signers []solana.PublicKey) error {
	mintAcct, err := instrCtx.BorrowInstructionAccount(txCtx, 0)
	if err != nil {
		return err
	}

	if mintAcct.Owner() != TokenProgramAddr {
		mintAcct.Drop()
		return InstrErrInvalidAccountOwner
	}

	mint, err := unmarshalTokenMint(mintAcct.Data())
	if err != nil {
		mintAcct.Drop()
		return err
	}
	if !mint.IsInitialized {
		mintAcct.Drop()
		return TokenErrUninitializedState
	}

	if !mint.MintAuthority.IsSome {
		mintAcct.Drop()
		return TokenErrFixedSupply
	}
	err = verifySigner(mint.MintAuthority.Pubkey, signers)
	if err != nil {
		mintAcct.Drop()
		return TokenErrOwnerMismatch
	}

	mintAddr := mintAcct.Key()

	newSupply, err := safemath.CheckedAddU64(mint.Supply, amount)
	if err != nil {
		mintAcct.Drop()
		return InstrErrArithmeticOverflow
	}
	mint.Supply = newSupply

	err = setTokenMintState(mintAcct, mint, execCtx.Features)
	mintAcct.Drop()
	if err != nil {
		return err
	}

	destAcct, err := instrCtx.BorrowInstructionAccount(txCtx, 1)
	if err != nil {
		return err
	}
	defer destAcct.Drop()

	if destAcct.Owner() != TokenProgramAddr {
		return InstrErrInvalidAccountOwner
	}

	tokenAcct, err := unmarshalTokenAccount(destAcct.Data())
	if err != nil {
		return err
	}
	if tokenAcct.State == TokenAccountStateUninitialized {
		return TokenErrUninitializedState
	}
	if tokenAcct.State == TokenAccountStateFrozen {
		return TokenErrAccountFrozen
	}
	if tokenAcct.Mint != mintAddr {
		return TokenErrMintMismatch
	}

	newAmount, err := safemath.CheckedAddU64(tokenAcct.Amount, amount)
	if err != nil {
		return InstrErrArithmeticOverflow
	}
	tokenAcct.Amount = newAmount

	klog.V(2).Infof("MintTo: minted %d to %s", amount, destAcct.Key())
	return setTokenAccountState(destAcct, tokenAcct, execCtx.Features)
}

func TokenProgramBurn(execCtx *ExecutionCtx, txCtx *TransactionCtx, instrCtx *InstructionCtx, amount uint64, signers []solana.PublicKey) error {
	sourceAcct, err := instrCtx.BorrowInstructionAccount(txCtx, 0)
	if err != nil {
		return err
	}

	if sourceAcct.Owner() != TokenProgramAddr {
		sourceAcct.Drop()
		return InstrErrInvalidAccountOwner
	}

	tokenAcct, err := unmarshalTokenAccount(sourceAcct.Data())
	if err != nil {
		sourceAcct.Drop()
		return err
	}
	if tokenAcct.State == TokenAccountStateUninitialized {
		sourceAcct.Drop()
		return TokenErrUninitializedState
	}
	if tokenAcct.State == TokenAccountStateFrozen {
		sourceAcct.Drop()
		return TokenErrAccountFrozen
	}

	mintAddr, err := extractAddress(txCtx, instrCtx, 1)
	if err != nil {
		sourceAcct.Drop()
		return err
	}
	if tokenAcct.Mint != mintAddr {
		sourceAcct.Drop()
		return TokenErrMintMismatch
	}

	if tokenAcct.Amount < amount {
		sourceAcct.Drop()
		return TokenErrInsufficientFunds
	}

	spentDelegation, err := validateTokenOwner(tokenAcct, signers, amount)
	if err != nil {
		sourceAcct.Drop()
		return err
	}

	tokenAcct.Amount -= amount
	if spentDelegation {
		tokenAcct.DelegatedAmount = safemath.SaturatingSubU64(tokenAcct.DelegatedAmount, amount)
		if tokenAcct.DelegatedAmount == 0 {
			tokenAcct.Delegate = COptionPubkey{}
		}
	}

	err = setTokenAccountState(sourceAcct, tokenAcct, execCtx.Features)
	sourceAcct.Drop()
	if err != nil {
		return err
	}

	mintAcct, err := instrCtx.BorrowInstructionAccount(txCtx, 1)
	if err != nil {
		return err
	}
	defer mintAcct.Drop()

	mint, err := unmarshalTokenMint(mintAcct.Data())
	if err != nil {
		return err
	}

	newSupply, err := safemath.CheckedSubU64(mint.Supply, amount)
	if err != nil {
		return InstrErrArithmeticOverflow
	}
	mint.Supply = newSupply

	return setTokenMintState(mintAcct, mint, execCtx.Features)
}
