package sealevel

import (
	"bytes"
	"errors"
	"math"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/svsp/pkg/features"
	"go.firedancer.io/svsp/pkg/safemath"
	"k8s.io/klog/v2"
)

const (
	StakeProgramInstrTypeInitialize = iota
	StakeProgramInstrTypeAuthorize
	StakeProgramInstrTypeDelegateStake
	StakeProgramInstrTypeSplit
	StakeProgramInstrTypeWithdraw
	StakeProgramInstrTypeDeactivate
	StakeprogramInstrTypeSetLockup
	StakeProgramInstrTypeMerge
	StakeProgramInstrTypeAuthorizeWithSeed
	StakeProgramInstrTypeInitializeChecked
	StakeProgramInstrTypeAuthorizeChecked
	StakeProgramInstrTypeAuthorizeCheckedWithSeed
	StakeProgramInstrTypeSetLockupChecked
	StakeProgramInstrTypeGetMinimumDelegation
)

const (
	StakeAuthorizeStaker = iota
	StakeAuthorizeWithdrawer
)

// stake errors
var (
	StakeErrCustodianMissing          = errors.New("StakeErrCustodianMissing")
	StakeErrCustodianSignatureMissing = errors.New("StakeErrCustodianSignatureMissing")
	StakeErrLockupInForce             = errors.New("StakeErrLockupInForce")
	StakeErrInsufficientDelegation    = errors.New("StakeErrInsufficientDelegation")
	StakeErrTooSoonToRedelegate       = errors.New("StakeErrTooSoonToRedelegate")
	StakeErrMergeMismatch             = errors.New("StakeErrMergeMismatch")
)

var invalidEnumValue = errors.New("invalid enum value")

type StakeInstrInitialize struct {
	Authorized Authorized
	Lockup     StakeLockup
}

type StakeInstrAuthorize struct {
	Pubkey         solana.PublicKey
	StakeAuthorize uint32
}

type StakeInstrSplit struct {
	Lamports uint64
}

type StakeInstrWithdraw struct {
	Lamports uint64
}

func (initialize *StakeInstrInitialize) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	var err error
	err = initialize.Authorized.UnmarshalWithDecoder(decoder)
	if err != nil {
		return err
	}

	err = initialize.Lockup.UnmarshalWithDecoder(decoder)
	return err
}

func (initialize *StakeInstrInitialize) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := initialize.Authorized.MarshalWithEncoder(encoder)
	if err != nil {
		return err
	}
	return initialize.Lockup.MarshalWithEncoder(encoder)
}

func (auth *StakeInstrAuthorize) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	pk, err := decoder.ReadBytes(solana.PublicKeyLength)
	if err != nil {
		return err
	}
	copy(auth.Pubkey[:], pk)

	auth.StakeAuthorize, err = decoder.ReadUint32(bin.LE)
	if err != nil {
		return err
	}

	if auth.StakeAuthorize != StakeAuthorizeStaker && auth.StakeAuthorize != StakeAuthorizeWithdrawer {
		return invalidEnumValue
	}

	return err
}

func (auth *StakeInstrAuthorize) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteBytes(auth.Pubkey[:], false)
	if err != nil {
		return err
	}
	return encoder.WriteUint32(auth.StakeAuthorize, bin.LE)
}

func (split *StakeInstrSplit) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	var err error
	split.Lamports, err = decoder.ReadUint64(bin.LE)
	return err
}

func (split *StakeInstrSplit) MarshalWithEncoder(encoder *bin.Encoder) error {
	return encoder.WriteUint64(split.Lamports, bin.LE)
}

func (withdraw *StakeInstrWithdraw) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	var err error
	withdraw.Lamports, err = decoder.ReadUint64(bin.LE)
	return err
}

func (withdraw *StakeInstrWithdraw) MarshalWithEncoder(encoder *bin.Encoder) error {
	return encoder.WriteUint64(withdraw.Lamports, bin.LE)
}

func (lockup *StakeLockup) IsInForce(clock *SysvarClock, custodian *solana.PublicKey) bool {
	if custodian != nil && *custodian == lockup.Custodian {
		return false
	}
	return lockup.UnixTimeStamp > uint64(clock.UnixTimestamp) || lockup.Epoch > clock.Epoch
}

func (authorized *Authorized) Check(signers []solana.PublicKey, stakeAuthorize uint32) error {
	switch stakeAuthorize {
	case StakeAuthorizeStaker:
		return verifySigner(authorized.Staker, signers)
	case StakeAuthorizeWithdrawer:
		return verifySigner(authorized.Withdrawer, signers)
	default:
		return InstrErrInvalidArgument
	}
}

func (authorized *Authorized) Authorize(signers []solana.PublicKey, newAuthorized solana.PublicKey, stakeAuthorize uint32, lockup StakeLockup, clock SysvarClock, custodian *solana.PublicKey) error {
	switch stakeAuthorize {
	case StakeAuthorizeStaker:
		// either authority may rotate the staker
		if verifySigner(authorized.Staker, signers) != nil && verifySigner(authorized.Withdrawer, signers) != nil {
			return InstrErrMissingRequiredSignature
		}
		authorized.Staker = newAuthorized

	case StakeAuthorizeWithdrawer:
		if lockup.IsInForce(&clock, nil) {
			if custodian == nil {
				return StakeErrCustodianMissing
			}
			if verifySigner(*custodian, signers) != nil {
				return StakeErrCustodianSignatureMissing
			}
			if lockup.IsInForce(&clock, custodian) {
				return StakeErrLockupInForce
			}
		}
		err := authorized.Check(signers, stakeAuthorize)
		if err != nil {
			return err
		}
		authorized.Withdrawer = newAuthorized

	default:
		return InstrErrInvalidArgument
	}

	return nil
}

func getOptionalPubkey(txCtx *TransactionCtx, instrCtx *InstructionCtx, instrAcctIdx uint64, mustBeSigner bool) (*solana.PublicKey, error) {
	if instrAcctIdx < instrCtx.NumberOfInstructionAccounts() {
		isSigner, err := instrCtx.IsInstructionAccountSigner(instrAcctIdx)
		if err != nil {
			return nil, err
		}

		if mustBeSigner && !isSigner {
			return nil, InstrErrMissingRequiredSignature
		}

		idxInTx, err := instrCtx.IndexOfInstructionAccountInTransaction(instrAcctIdx)
		if err != nil {
			return nil, err
		}

		pubkey, err := txCtx.KeyOfAccountAtIndex(idxInTx)
		if err != nil {
			return nil, err
		} else {
			return &pubkey, nil
		}
	} else { // no pubkey, not an error
		return nil, nil
	}
}

func StakeProgramExecute(execCtx *ExecutionCtx) error {
	err := execCtx.ComputeMeter.Consume(CUStakeProgramDefaultComputeUnits)
	if err != nil {
		return err
	}

	txCtx := execCtx.TransactionContext
	instrCtx, err := txCtx.CurrentInstructionCtx()
	if err != nil {
		return err
	}

	getStakeAccount := func() (*BorrowedAccount, error) {
		acct, err := instrCtx.BorrowInstructionAccount(txCtx, 0)
		if err != nil {
			return nil, err
		}
		if acct.Owner() != StakeProgramAddr {
			acct.Drop()
			return nil, InstrErrInvalidAccountOwner
		}
		return acct, nil
	}

	signers, err := instrCtx.Signers(txCtx)
	if err != nil {
		return err
	}

	decoder := bin.NewBinDecoder(instrCtx.Data)
	instructionType, err := decoder.ReadUint32(bin.LE)
	if err != nil {
		return InstrErrInvalidInstructionData
	}

	switch instructionType {
	case StakeProgramInstrTypeInitialize:
		{
			var initialize StakeInstrInitialize
			err = initialize.UnmarshalWithDecoder(decoder)
			if err != nil {
				return InstrErrInvalidInstructionData
			}

			me, err := getStakeAccount()
			if err != nil {
				return err
			}
			defer me.Drop()

			err = checkAcctForRentSysvar(txCtx, instrCtx, 1)
			if err != nil {
				return err
			}
			rent := ReadRentSysvar(&execCtx.Accounts)

			err = StakeProgramInitialize(me, initialize.Authorized, initialize.Lockup, rent, execCtx.Features)
		}

	case StakeProgramInstrTypeAuthorize:
		{
			var authorize StakeInstrAuthorize
			err = authorize.UnmarshalWithDecoder(decoder)
			if err != nil {
				return InstrErrInvalidInstructionData
			}

			me, err := getStakeAccount()
			if err != nil {
				return err
			}
			defer me.Drop()

			err = checkAcctForClockSysvar(txCtx, instrCtx, 1)
			if err != nil {
				return err
			}
			clock := ReadClockSysvar(&execCtx.Accounts)

			err = instrCtx.CheckNumOfInstructionAccounts(3)
			if err != nil {
				return err
			}

			custodianPubkey, err := getOptionalPubkey(txCtx, instrCtx, 3, false)
			if err != nil {
				return err
			}

			err = StakeProgramAuthorize(me, signers, authorize.Pubkey, authorize.StakeAuthorize, clock, custodianPubkey, execCtx.Features)
		}

	case StakeProgramInstrTypeDelegateStake:
		{
			me, err := getStakeAccount()
			if err != nil {
				return err
			}
			me.Drop()

			err = instrCtx.CheckNumOfInstructionAccounts(2)
			if err != nil {
				return err
			}

			err = checkAcctForClockSysvar(txCtx, instrCtx, 2)
			if err != nil {
				return err
			}
			clock := ReadClockSysvar(&execCtx.Accounts)

			err = StakeProgramDelegate(execCtx, txCtx, instrCtx, 0, 1, clock, signers, execCtx.Features)
		}

	case StakeProgramInstrTypeSplit:
		{
			var split StakeInstrSplit
			err = split.UnmarshalWithDecoder(decoder)
			if err != nil {
				return InstrErrInvalidInstructionData
			}

			err = instrCtx.CheckNumOfInstructionAccounts(2)
			if err != nil {
				return err
			}

			err = StakeProgramSplit(execCtx, txCtx, instrCtx, 0, 1, split.Lamports, signers)
		}

	case StakeProgramInstrTypeWithdraw:
		{
			var withdraw StakeInstrWithdraw
			err = withdraw.UnmarshalWithDecoder(decoder)
			if err != nil {
				return InstrErrInvalidInstructionData
			}

			err = instrCtx.CheckNumOfInstructionAccounts(2)
			if err != nil {
				return err
			}

			err = checkAcctForClockSysvar(txCtx, instrCtx, 2)
			if err != nil {
				return err
			}
			clock := ReadClockSysvar(&execCtx.Accounts)

			err = instrCtx.CheckNumOfInstructionAccounts(5)
			if err != nil {
				return err
			}

			err = StakeProgramWithdraw(execCtx, txCtx, instrCtx, 0, 1, withdraw.Lamports, clock, 4)
		}

	case StakeProgramInstrTypeMerge:
		{
			me, err := getStakeAccount()
			if err != nil {
				return err
			}
			me.Drop()

			err = instrCtx.CheckNumOfInstructionAccounts(2)
			if err != nil {
				return err
			}

			err = checkAcctForClockSysvar(txCtx, instrCtx, 2)
			if err != nil {
				return err
			}
			clock := ReadClockSysvar(&execCtx.Accounts)

			err = StakeProgramMerge(execCtx, txCtx, instrCtx, 0, 1, clock, signers)
		}

	case StakeProgramInstrTypeGetMinimumDelegation:
		{
			minimumDelegation := determineMinimumDelegation(execCtx.Features)

			buf := new(bytes.Buffer)
			encoder := bin.NewBinEncoder(buf)
			err = encoder.WriteUint64(minimumDelegation, bin.LE)
			if err != nil {
				return err
			}

			txCtx.SetReturnData(StakeProgramAddr, buf.Bytes())
		}

	default:
		return InstrErrInvalidInstructionData
	}

	return err
}

func StakeProgramInitialize(stakeAcct *BorrowedAccount, authorized Authorized, lockup StakeLockup, rent SysvarRent, f features.Features) error {
	if len(stakeAcct.Data()) != StakeStateV2Size {
		return InstrErrInvalidAccountData
	}

	state, err := unmarshalStakeState(stakeAcct.Data())
	if err != nil {
		return err
	}

	if state.Status == StakeStateV2StatusUninitialized {
		rentExemptReserve := rent.MinimumBalance(uint64(len(stakeAcct.Data())))
		if stakeAcct.Lamports() >= rentExemptReserve {
			newStakeState := new(StakeStateV2)
			newStakeState.Status = StakeStateV2StatusInitialized
			newStakeState.Initialized = StakeStateV2Initialized{Meta: Meta{RentExemptReserve: rentExemptReserve, Authorized: authorized, Lockup: lockup}}
			return setStakeAccountState(stakeAcct, newStakeState, f)
		} else {
			return InstrErrInsufficientFunds
		}
	} else {
		return InstrErrInvalidAccountData
	}
}

func determineMinimumDelegation(f features.Features) uint64 {
	if f.IsActive(features.StakeRaiseMinimumDelegationTo1Sol) {
		minimumDelegationSol := 1
		lamportsPerSol := 1000000000
		return uint64(minimumDelegationSol * lamportsPerSol)
	} else {
		return 1
	}
}

func validateAndReturnDelegatedAmount(stakeAcct *BorrowedAccount, meta Meta, f features.Features) (uint64, error) {
	stakeAmount := safemath.SaturatingSubU64(stakeAcct.Lamports(), meta.RentExemptReserve)
	minimumDelegation := determineMinimumDelegation(f)

	if stakeAmount < minimumDelegation {
		return 0, StakeErrInsufficientDelegation
	}

	return stakeAmount, nil
}

func StakeProgramAuthorize(stakeAcct *BorrowedAccount, signers []solana.PublicKey, newAuthority solana.PublicKey, stakeAuthorize uint32, clock SysvarClock, custodianPubkey *solana.PublicKey, f features.Features) error {
	state, err := unmarshalStakeState(stakeAcct.Data())
	if err != nil {
		return err
	}

	switch state.Status {
	case StakeStateV2StatusStake:
		{
			err = state.Stake.Meta.Authorized.Authorize(signers, newAuthority, stakeAuthorize, state.Stake.Meta.Lockup, clock, custodianPubkey)
			if err != nil {
				return err
			}

			err = setStakeAccountState(stakeAcct, state, f)
		}

	case StakeStateV2StatusInitialized:
		{
			err = state.Initialized.Meta.Authorized.Authorize(signers, newAuthority, stakeAuthorize, state.Initialized.Meta.Lockup, clock, custodianPubkey)
			if err != nil {
				return err
			}

			err = setStakeAccountState(stakeAcct, state, f)
		}

	default:
		{
			err = InstrErrInvalidAccountData
		}
	}

	return err
}

// StakeProgramDelegate delegates the account's free balance to the given vote
// account. Re-delegating an account that is still delegated is only permitted
// towards the same vote account, in which case the delegation amount is
// recomputed from the current balance.
func StakeProgramDelegate(execCtx *ExecutionCtx, txCtx *TransactionCtx, instrCtx *InstructionCtx, stakeAcctIdx uint64, voteAcctIdx uint64, clock SysvarClock, signers []solana.PublicKey, f features.Features) error {
	voteAcct, err := instrCtx.BorrowInstructionAccount(txCtx, voteAcctIdx)
	if err != nil {
		return err
	}

	if voteAcct.Owner() != VoteProgramAddr {
		voteAcct.Drop()
		return InstrErrIncorrectProgramId
	}

	votePubkey := voteAcct.Key()
	voteState, voteUnmarshalErr := unmarshalVoteAccount(voteAcct.Data())
	voteAcct.Drop()

	stakeAcct, err := instrCtx.BorrowInstructionAccount(txCtx, stakeAcctIdx)
	if err != nil {
		return err
	}
	defer stakeAcct.Drop()

	stakeState, err := unmarshalStakeState(stakeAcct.Data())
	if err != nil {
		return err
	}

	switch stakeState.Status {
	case StakeStateV2StatusInitialized:
		{
			err = stakeState.Initialized.Meta.Authorized.Check(signers, StakeAuthorizeStaker)
			if err != nil {
				return err
			}
			stakeAmount, err := validateAndReturnDelegatedAmount(stakeAcct, stakeState.Initialized.Meta, f)
			if err != nil {
				return err
			}

			if voteUnmarshalErr != nil {
				return voteUnmarshalErr
			}

			stake := Stake{Delegation: Delegation{VoterPubkey: votePubkey, Stake: stakeAmount, ActivationEpoch: clock.Epoch,
				DeactivationEpoch: math.MaxUint64, WarmupCooldownRate: DefaultWarmupCooldownRate},
				CreditsObserved: voteState.Credits}

			newState := new(StakeStateV2)
			newState.Status = StakeStateV2StatusStake
			newState.Stake = StakeStateV2Stake{Meta: stakeState.Initialized.Meta, Stake: stake}
			err = setStakeAccountState(stakeAcct, newState, f)
			if err != nil {
				return err
			}
		}

	case StakeStateV2StatusStake:
		{
			err = stakeState.Stake.Meta.Authorized.Check(signers, StakeAuthorizeStaker)
			if err != nil {
				return err
			}
			stakeAmount, err := validateAndReturnDelegatedAmount(stakeAcct, stakeState.Stake.Meta, f)
			if err != nil {
				return err
			}

			if voteUnmarshalErr != nil {
				return voteUnmarshalErr
			}

			if stakeState.Stake.Stake.Delegation.IsFullyActive(&clock) && stakeState.Stake.Stake.Delegation.VoterPubkey != votePubkey {
				klog.Errorf("Delegate: account is still delegated to %s", stakeState.Stake.Stake.Delegation.VoterPubkey)
				return StakeErrTooSoonToRedelegate
			}

			if stakeState.Stake.Stake.Delegation.VoterPubkey != votePubkey {
				stakeState.Stake.Stake.Delegation.ActivationEpoch = clock.Epoch
			}
			stakeState.Stake.Stake.Delegation.VoterPubkey = votePubkey
			stakeState.Stake.Stake.Delegation.Stake = stakeAmount
			stakeState.Stake.Stake.Delegation.DeactivationEpoch = math.MaxUint64
			stakeState.Stake.Stake.CreditsObserved = voteState.Credits

			err = setStakeAccountState(stakeAcct, stakeState, f)
			if err != nil {
				return err
			}
		}

	default:
		{
			return InstrErrInvalidAccountData
		}
	}

	return nil
}

func StakeProgramSplit(execCtx *ExecutionCtx, txCtx *TransactionCtx, instrCtx *InstructionCtx, sourceAcctIdx uint64, destAcctIdx uint64, lamports uint64, signers []solana.PublicKey) error {
	f := execCtx.Features

	destAcct, err := instrCtx.BorrowInstructionAccount(txCtx, destAcctIdx)
	if err != nil {
		return err
	}

	if destAcct.Owner() != StakeProgramAddr {
		destAcct.Drop()
		return InstrErrIncorrectProgramId
	}
	if len(destAcct.Data()) != StakeStateV2Size {
		destAcct.Drop()
		return InstrErrInvalidAccountData
	}

	destState, err := unmarshalStakeState(destAcct.Data())
	if err != nil {
		destAcct.Drop()
		return err
	}
	if destState.Status != StakeStateV2StatusUninitialized {
		destAcct.Drop()
		return InstrErrInvalidAccountData
	}
	destLamports := destAcct.Lamports()
	destAcct.Drop()

	sourceAcct, err := instrCtx.BorrowInstructionAccount(txCtx, sourceAcctIdx)
	if err != nil {
		return err
	}
	defer sourceAcct.Drop()

	if sourceAcct.Owner() != StakeProgramAddr {
		return InstrErrInvalidAccountOwner
	}
	if lamports > sourceAcct.Lamports() {
		return InstrErrInsufficientFunds
	}

	sourceState, err := unmarshalStakeState(sourceAcct.Data())
	if err != nil {
		return err
	}

	rent := ReadRentSysvar(&execCtx.Accounts)
	destRentExemptReserve := rent.MinimumBalance(StakeStateV2Size)

	switch sourceState.Status {
	case StakeStateV2StatusStake:
		{
			err = sourceState.Stake.Meta.Authorized.Check(signers, StakeAuthorizeStaker)
			if err != nil {
				return err
			}

			minimumDelegation := determineMinimumDelegation(f)
			if lamports < minimumDelegation {
				return StakeErrInsufficientDelegation
			}

			remainingStake, err := safemath.CheckedSubU64(sourceState.Stake.Stake.Delegation.Stake, lamports)
			if err != nil {
				return InstrErrInsufficientFunds
			}
			if remainingStake != 0 && remainingStake < minimumDelegation {
				return StakeErrInsufficientDelegation
			}

			remainingLamports, err := safemath.CheckedSubU64(sourceAcct.Lamports(), lamports)
			if err != nil {
				return InstrErrInsufficientFunds
			}
			if remainingLamports < sourceState.Stake.Meta.RentExemptReserve {
				return InstrErrInsufficientFunds
			}

			if destLamports < destRentExemptReserve {
				klog.Errorf("Split: destination underfunded, has %d, needs %d for rent exemption", destLamports, destRentExemptReserve)
				return InstrErrInsufficientFunds
			}

			destMeta := sourceState.Stake.Meta
			destMeta.RentExemptReserve = destRentExemptReserve

			newDestState := new(StakeStateV2)
			newDestState.Status = StakeStateV2StatusStake
			newDestState.Stake = StakeStateV2Stake{Meta: destMeta, Stake: sourceState.Stake.Stake, StakeFlags: sourceState.Stake.StakeFlags}
			newDestState.Stake.Stake.Delegation.Stake = lamports

			sourceState.Stake.Stake.Delegation.Stake = remainingStake
			err = setStakeAccountState(sourceAcct, sourceState, f)
			if err != nil {
				return err
			}

			destAcct, err = instrCtx.BorrowInstructionAccount(txCtx, destAcctIdx)
			if err != nil {
				return err
			}
			err = setStakeAccountState(destAcct, newDestState, f)
			destAcct.Drop()
			if err != nil {
				return err
			}
		}

	case StakeStateV2StatusInitialized:
		{
			err = sourceState.Initialized.Meta.Authorized.Check(signers, StakeAuthorizeStaker)
			if err != nil {
				return err
			}

			remainingLamports, err := safemath.CheckedSubU64(sourceAcct.Lamports(), lamports)
			if err != nil {
				return InstrErrInsufficientFunds
			}
			if remainingLamports != 0 && remainingLamports < sourceState.Initialized.Meta.RentExemptReserve {
				return InstrErrInsufficientFunds
			}

			destMeta := sourceState.Initialized.Meta
			destMeta.RentExemptReserve = destRentExemptReserve

			newDestState := new(StakeStateV2)
			newDestState.Status = StakeStateV2StatusInitialized
			newDestState.Initialized = StakeStateV2Initialized{Meta: destMeta}

			destAcct, err = instrCtx.BorrowInstructionAccount(txCtx, destAcctIdx)
			if err != nil {
				return err
			}
			err = setStakeAccountState(destAcct, newDestState, f)
			destAcct.Drop()
			if err != nil {
				return err
			}
		}

	case StakeStateV2StatusUninitialized:
		{
			sourceAddr, err := extractAddress(txCtx, instrCtx, sourceAcctIdx)
			if err != nil {
				return err
			}
			err = verifySigner(sourceAddr, signers)
			if err != nil {
				return err
			}
		}

	default:
		return InstrErrInvalidAccountData
	}

	err = sourceAcct.CheckedSubLamports(lamports, f)
	if err != nil {
		return err
	}

	destAcct, err = instrCtx.BorrowInstructionAccount(txCtx, destAcctIdx)
	if err != nil {
		return err
	}
	defer destAcct.Drop()

	return destAcct.CheckedAddLamports(lamports, f)
}

func StakeProgramWithdraw(execCtx *ExecutionCtx, txCtx *TransactionCtx, instrCtx *InstructionCtx, stakeAcctIdx uint64, recipientAcctIdx uint64, lamports uint64, clock SysvarClock, withdrawAuthorityIdx uint64) error {
	f := execCtx.Features

	isSigner, err := instrCtx.IsInstructionAccountSigner(withdrawAuthorityIdx)
	if err != nil {
		return err
	}
	if !isSigner {
		return InstrErrMissingRequiredSignature
	}

	withdrawAuthority, err := extractAddress(txCtx, instrCtx, withdrawAuthorityIdx)
	if err != nil {
		return err
	}
	signers := []solana.PublicKey{withdrawAuthority}

	stakeAcct, err := instrCtx.BorrowInstructionAccount(txCtx, stakeAcctIdx)
	if err != nil {
		return err
	}
	defer stakeAcct.Drop()

	if stakeAcct.Owner() != StakeProgramAddr {
		return InstrErrInvalidAccountOwner
	}

	state, err := unmarshalStakeState(stakeAcct.Data())
	if err != nil {
		return err
	}

	var reservedLamports uint64
	var lockup StakeLockup

	switch state.Status {
	case StakeStateV2StatusStake:
		{
			err = verifySigner(state.Stake.Meta.Authorized.Withdrawer, signers)
			if err != nil {
				return err
			}

			// delegated stake stays locked while the delegation has not
			// been fully deactivated
			var stakedLamports uint64
			if clock.Epoch >= state.Stake.Stake.Delegation.DeactivationEpoch {
				stakedLamports = 0
			} else {
				stakedLamports = state.Stake.Stake.Delegation.Stake
			}

			reservedLamports = safemath.SaturatingAddU64(stakedLamports, state.Stake.Meta.RentExemptReserve)
			lockup = state.Stake.Meta.Lockup
		}

	case StakeStateV2StatusInitialized:
		{
			err = verifySigner(state.Initialized.Meta.Authorized.Withdrawer, signers)
			if err != nil {
				return err
			}
			reservedLamports = state.Initialized.Meta.RentExemptReserve
			lockup = state.Initialized.Meta.Lockup
		}

	case StakeStateV2StatusUninitialized:
		{
			stakeAddr, err := extractAddress(txCtx, instrCtx, stakeAcctIdx)
			if err != nil {
				return err
			}
			err = verifySigner(stakeAddr, signers)
			if err != nil {
				return err
			}
		}

	default:
		return InstrErrInvalidAccountData
	}

	custodianPubkey, err := getOptionalPubkey(txCtx, instrCtx, 5, true)
	if err != nil {
		return err
	}
	if lockup.IsInForce(&clock, custodianPubkey) {
		return StakeErrLockupInForce
	}

	if lamports == stakeAcct.Lamports() {
		// full withdrawal is only possible once nothing is staked
		if state.Status == StakeStateV2StatusStake && state.Stake.Stake.Delegation.Stake != 0 && clock.Epoch < state.Stake.Stake.Delegation.DeactivationEpoch {
			return InstrErrInsufficientFunds
		}

		deinitState := new(StakeStateV2)
		deinitState.Status = StakeStateV2StatusUninitialized
		err = setStakeAccountState(stakeAcct, deinitState, f)
		if err != nil {
			return err
		}
	} else {
		total, err := safemath.CheckedAddU64(lamports, reservedLamports)
		if err != nil || total > stakeAcct.Lamports() {
			return InstrErrInsufficientFunds
		}
	}

	err = stakeAcct.CheckedSubLamports(lamports, f)
	if err != nil {
		return err
	}
	stakeAcct.Drop()

	recipientAcct, err := instrCtx.BorrowInstructionAccount(txCtx, recipientAcctIdx)
	if err != nil {
		return err
	}
	defer recipientAcct.Drop()

	return recipientAcct.CheckedAddLamports(lamports, f)
}

// StakeProgramMerge drains the source stake account into the destination.
// Fully active accounts merge their delegations when both point at the same
// vote account; an undelegated source only contributes its lamports.
func StakeProgramMerge(execCtx *ExecutionCtx, txCtx *TransactionCtx, instrCtx *InstructionCtx, destAcctIdx uint64, sourceAcctIdx uint64, clock SysvarClock, signers []solana.PublicKey) error {
	f := execCtx.Features

	destIdxInTx, err := instrCtx.IndexOfInstructionAccountInTransaction(destAcctIdx)
	if err != nil {
		return err
	}
	sourceIdxInTx, err := instrCtx.IndexOfInstructionAccountInTransaction(sourceAcctIdx)
	if err != nil {
		return err
	}
	if destIdxInTx == sourceIdxInTx {
		return InstrErrInvalidArgument
	}

	sourceAcct, err := instrCtx.BorrowInstructionAccount(txCtx, sourceAcctIdx)
	if err != nil {
		return err
	}

	if sourceAcct.Owner() != StakeProgramAddr {
		sourceAcct.Drop()
		return InstrErrIncorrectProgramId
	}

	sourceState, err := unmarshalStakeState(sourceAcct.Data())
	if err != nil {
		sourceAcct.Drop()
		return err
	}
	sourceLamports := sourceAcct.Lamports()
	sourceAcct.Drop()

	destAcct, err := instrCtx.BorrowInstructionAccount(txCtx, destAcctIdx)
	if err != nil {
		return err
	}
	defer destAcct.Drop()

	if destAcct.Owner() != StakeProgramAddr {
		return InstrErrInvalidAccountOwner
	}

	destState, err := unmarshalStakeState(destAcct.Data())
	if err != nil {
		return err
	}

	destMeta, err := mergeAuthorizedMeta(destState)
	if err != nil {
		return err
	}

	err = destMeta.Authorized.Check(signers, StakeAuthorizeStaker)
	if err != nil {
		return err
	}

	sourceMeta, err := mergeAuthorizedMeta(sourceState)
	if err != nil {
		return err
	}

	if destMeta.Authorized != sourceMeta.Authorized {
		return StakeErrMergeMismatch
	}
	if destMeta.Lockup != sourceMeta.Lockup {
		return StakeErrMergeMismatch
	}

	if destState.Status == StakeStateV2StatusStake && sourceState.Status == StakeStateV2StatusStake {
		destActive := destState.Stake.Stake.Delegation.IsFullyActive(&clock)
		sourceActive := sourceState.Stake.Stake.Delegation.IsFullyActive(&clock)

		if !destActive || !sourceActive {
			return StakeErrMergeMismatch
		}
		if destState.Stake.Stake.Delegation.VoterPubkey != sourceState.Stake.Stake.Delegation.VoterPubkey {
			return StakeErrMergeMismatch
		}

		// source rent reserve and any free lamports land in the destination
		// as undelegated balance; only the delegation itself carries over
		newDestStake, err := safemath.CheckedAddU64(destState.Stake.Stake.Delegation.Stake, sourceState.Stake.Stake.Delegation.Stake)
		if err != nil {
			return InstrErrArithmeticOverflow
		}
		destState.Stake.Stake.Delegation.Stake = newDestStake

		err = setStakeAccountState(destAcct, destState, f)
		if err != nil {
			return err
		}
	} else if sourceState.Status == StakeStateV2StatusStake && sourceState.Stake.Stake.Delegation.IsFullyActive(&clock) {
		// active source cannot merge into an undelegated destination
		return StakeErrMergeMismatch
	}

	err = destAcct.CheckedAddLamports(sourceLamports, f)
	if err != nil {
		return err
	}

	sourceAcct, err = instrCtx.BorrowInstructionAccount(txCtx, sourceAcctIdx)
	if err != nil {
		return err
	}
	defer sourceAcct.Drop()

	deinitState := new(StakeStateV2)
	deinitState.Status = StakeStateV2StatusUninitialized
	err = setStakeAccountState(sourceAcct, deinitState, f)
	if err != nil {
		return err
	}

	return sourceAcct.SetLamports(0, f)
}

func mergeAuthorizedMeta(state *StakeStateV2) (*Meta, error) {
	switch state.Status {
	case StakeStateV2StatusStake:
		return &state.Stake.Meta, nil
	case StakeStateV2StatusInitialized:
		return &state.Initialized.Meta, nil
	default:
		return nil, InstrErrInvalidAccountData
	}
}
