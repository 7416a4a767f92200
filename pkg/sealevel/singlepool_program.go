package sealevel

import (
	"errors"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/svsp/pkg/base58"
	"go.firedancer.io/svsp/pkg/features"
	"go.firedancer.io/svsp/pkg/safemath"
	"k8s.io/klog/v2"
)

const LamportsPerSol = 1000000000

// minimumPoolBalance is the delegation floor every pool stake account carries
// on top of rent exemption. Pinned to at least one sol so pools stay safely
// above the network minimum even if it is raised later.
func minimumPoolBalance(f features.Features) uint64 {
	minimumDelegation := determineMinimumDelegation(f)
	if minimumDelegation > LamportsPerSol {
		return minimumDelegation
	}
	return LamportsPerSol
}

func checkPoolDerivedAddress(txCtx *TransactionCtx, instrCtx *InstructionCtx, instrAcctIdx uint64, expected solana.PublicKey, mismatchErr error) (solana.PublicKey, error) {
	addr, err := extractAddress(txCtx, instrCtx, instrAcctIdx)
	if err != nil {
		return addr, err
	}
	if addr != expected {
		klog.Errorf("account %s does not match derived address %s", addr, expected)
		return addr, mismatchErr
	}
	return addr, nil
}

// unmarshalVoteAccountChecked parses a vote account, translating parse
// failures into pool level errors.
func unmarshalVoteAccountChecked(voteAcct *BorrowedAccount) (*VoteAccount, error) {
	if voteAcct.Owner() != VoteProgramAddr {
		return nil, InstrErrInvalidAccountOwner
	}

	voteState, err := unmarshalVoteAccount(voteAcct.Data())
	if err != nil {
		if errors.Is(err, VoteErrLegacyVoteAccount) {
			return nil, PoolErrLegacyVoteAccount
		}
		return nil, PoolErrUnparseableVoteAccount
	}
	return voteState, nil
}

func SinglePoolProgramExecute(execCtx *ExecutionCtx) error {
	err := execCtx.ComputeMeter.Consume(CUSinglePoolProgramDefaultComputeUnits)
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

	switch instructionType {
	case SinglePoolInstrTypeInitializePool:
		{
			err = instrCtx.CheckNumOfInstructionAccounts(13)
			if err != nil {
				return err
			}
			err = SinglePoolProgramInitializePool(execCtx, txCtx, instrCtx)
		}

	case SinglePoolInstrTypeReplenishPool:
		{
			err = instrCtx.CheckNumOfInstructionAccounts(9)
			if err != nil {
				return err
			}
			err = SinglePoolProgramReplenishPool(execCtx, txCtx, instrCtx)
		}

	case SinglePoolInstrTypeDepositStake:
		{
			err = instrCtx.CheckNumOfInstructionAccounts(12)
			if err != nil {
				return err
			}
			err = SinglePoolProgramDepositStake(execCtx, txCtx, instrCtx)
		}

	case SinglePoolInstrTypeWithdrawStake:
		{
			var withdraw SinglePoolInstrWithdrawStake
			err = withdraw.UnmarshalWithDecoder(decoder)
			if err != nil {
				return InstrErrInvalidInstructionData
			}

			err = instrCtx.CheckNumOfInstructionAccounts(10)
			if err != nil {
				return err
			}
			err = SinglePoolProgramWithdrawStake(execCtx, txCtx, instrCtx, withdraw.UserStakeAuthority, withdraw.TokenAmount)
		}

	case SinglePoolInstrTypeCreateTokenMetadata:
		{
			err = instrCtx.CheckNumOfInstructionAccounts(8)
			if err != nil {
				return err
			}
			err = SinglePoolProgramCreateTokenMetadata(execCtx, txCtx, instrCtx)
		}

	case SinglePoolInstrTypeUpdateTokenMetadata:
		{
			var update SinglePoolInstrUpdateTokenMetadata
			err = update.UnmarshalWithDecoder(decoder)
			if err != nil {
				return InstrErrInvalidInstructionData
			}

			err = instrCtx.CheckNumOfInstructionAccounts(6)
			if err != nil {
				return err
			}
			err = SinglePoolProgramUpdateTokenMetadata(execCtx, txCtx, instrCtx, update.Name, update.Symbol, update.Uri)
		}

	case SinglePoolInstrTypeInitializePoolOnRamp:
		{
			err = instrCtx.CheckNumOfInstructionAccounts(6)
			if err != nil {
				return err
			}
			err = SinglePoolProgramInitializePoolOnRamp(execCtx, txCtx, instrCtx)
		}

	default:
		return InstrErrInvalidInstructionData
	}

	return err
}

func SinglePoolProgramInitializePool(execCtx *ExecutionCtx, txCtx *TransactionCtx, instrCtx *InstructionCtx) error {
	f := execCtx.Features

	voteAcct, err := instrCtx.BorrowInstructionAccount(txCtx, 0)
	if err != nil {
		return err
	}
	voteAddr := voteAcct.Key()
	_, err = unmarshalVoteAccountChecked(voteAcct)
	voteAcct.Drop()
	if err != nil {
		return err
	}

	poolAddr, _ := FindPoolAddress(voteAddr)
	stakeAddr, _ := FindPoolStakeAddress(poolAddr)
	mintAddr, _ := FindPoolMintAddress(poolAddr)
	stakeAuthorityAddr, _ := FindPoolStakeAuthorityAddress(poolAddr)
	mintAuthorityAddr, _ := FindPoolMintAuthorityAddress(poolAddr)

	_, err = checkPoolDerivedAddress(txCtx, instrCtx, 1, poolAddr, PoolErrInvalidPoolAccount)
	if err != nil {
		return err
	}
	_, err = checkPoolDerivedAddress(txCtx, instrCtx, 2, stakeAddr, PoolErrInvalidPoolStakeAccount)
	if err != nil {
		return err
	}
	_, err = checkPoolDerivedAddress(txCtx, instrCtx, 3, mintAddr, PoolErrInvalidPoolMint)
	if err != nil {
		return err
	}
	_, err = checkPoolDerivedAddress(txCtx, instrCtx, 4, stakeAuthorityAddr, PoolErrInvalidPoolStakeAuthority)
	if err != nil {
		return err
	}
	_, err = checkPoolDerivedAddress(txCtx, instrCtx, 5, mintAuthorityAddr, PoolErrInvalidPoolMintAuthority)
	if err != nil {
		return err
	}

	err = checkAcctForRentSysvar(txCtx, instrCtx, 6)
	if err != nil {
		return err
	}
	err = checkAcctForClockSysvar(txCtx, instrCtx, 7)
	if err != nil {
		return err
	}
	rent := ReadRentSysvar(&execCtx.Accounts)

	poolAcct, err := instrCtx.BorrowInstructionAccount(txCtx, 1)
	if err != nil {
		return err
	}
	if poolAcct.Owner() == SinglePoolProgramAddr || len(poolAcct.Data()) != 0 {
		poolAcct.Drop()
		return PoolErrPoolAlreadyInitialized
	}
	poolLamports := poolAcct.Lamports()
	poolAcct.Drop()
	if poolLamports != rent.MinimumBalance(SinglePoolAccountSize) {
		klog.Errorf("InitializePool: pool account holds %d lamports, expected exactly its rent exemption", poolLamports)
		return PoolErrWrongRentAmount
	}

	mintAcct, err := instrCtx.BorrowInstructionAccount(txCtx, 3)
	if err != nil {
		return err
	}
	mintLamports := mintAcct.Lamports()
	mintAcct.Drop()
	if mintLamports != rent.MinimumBalance(TokenMintSize) {
		return PoolErrWrongRentAmount
	}

	stakeAcct, err := instrCtx.BorrowInstructionAccount(txCtx, 2)
	if err != nil {
		return err
	}
	stakeLamports := stakeAcct.Lamports()
	stakeAcct.Drop()

	stakeRent := rent.MinimumBalance(StakeStateV2Size)
	if stakeLamports < safemath.SaturatingAddU64(stakeRent, minimumPoolBalance(f)) {
		klog.Errorf("InitializePool: stake account holds %d lamports, needs rent exemption plus the pool minimum", stakeLamports)
		return PoolErrWrongRentAmount
	}

	// write the pool record
	allocInstr := newAllocateInstruction(poolAddr, SinglePoolAccountSize)
	err = execCtx.NativeInvoke(*allocInstr, []solana.PublicKey{poolAddr})
	if err != nil {
		return err
	}

	assignInstr := newAssignInstruction(poolAddr, SinglePoolProgramAddr)
	err = execCtx.NativeInvoke(*assignInstr, []solana.PublicKey{poolAddr})
	if err != nil {
		return err
	}

	poolAcct, err = instrCtx.BorrowInstructionAccount(txCtx, 1)
	if err != nil {
		return err
	}
	pool := &SinglePool{AccountType: SinglePoolAccountTypePool, VoteAccountAddress: voteAddr}
	err = setPoolState(poolAcct, pool, f)
	poolAcct.Drop()
	if err != nil {
		return err
	}

	// initialize the mint under the pool's derived mint authority
	allocInstr = newAllocateInstruction(mintAddr, TokenMintSize)
	err = execCtx.NativeInvoke(*allocInstr, []solana.PublicKey{mintAddr})
	if err != nil {
		return err
	}

	assignInstr = newAssignInstruction(mintAddr, TokenProgramAddr)
	err = execCtx.NativeInvoke(*assignInstr, []solana.PublicKey{mintAddr})
	if err != nil {
		return err
	}

	initMintInstr := newTokenInitializeMintInstruction(mintAddr, mintAuthorityAddr, PoolMintDecimals)
	err = execCtx.NativeInvoke(*initMintInstr, nil)
	if err != nil {
		return err
	}

	// stand up the stake account and delegate it to the validator
	allocInstr = newAllocateInstruction(stakeAddr, StakeStateV2Size)
	err = execCtx.NativeInvoke(*allocInstr, []solana.PublicKey{stakeAddr})
	if err != nil {
		return err
	}

	assignInstr = newAssignInstruction(stakeAddr, StakeProgramAddr)
	err = execCtx.NativeInvoke(*assignInstr, []solana.PublicKey{stakeAddr})
	if err != nil {
		return err
	}

	authorized := Authorized{Staker: stakeAuthorityAddr, Withdrawer: stakeAuthorityAddr}
	initStakeInstr := newStakeInitializeInstruction(stakeAddr, authorized, StakeLockup{})
	err = execCtx.NativeInvoke(*initStakeInstr, nil)
	if err != nil {
		return err
	}

	delegateInstr := newStakeDelegateInstruction(stakeAddr, voteAddr, stakeAuthorityAddr)
	err = execCtx.NativeInvoke(*delegateInstr, []solana.PublicKey{stakeAuthorityAddr})
	if err != nil {
		return err
	}

	klog.V(2).Infof("InitializePool: created pool %s for vote account %s", poolAddr, voteAddr)
	return nil
}

func SinglePoolProgramInitializePoolOnRamp(execCtx *ExecutionCtx, txCtx *TransactionCtx, instrCtx *InstructionCtx) error {
	poolAcct, err := instrCtx.BorrowInstructionAccount(txCtx, 0)
	if err != nil {
		return err
	}
	poolAddr := poolAcct.Key()
	_, err = unmarshalPoolFromAccount(poolAcct)
	poolAcct.Drop()
	if err != nil {
		return err
	}

	onRampAddr, _ := FindPoolOnRampAddress(poolAddr)
	stakeAuthorityAddr, _ := FindPoolStakeAuthorityAddress(poolAddr)

	_, err = checkPoolDerivedAddress(txCtx, instrCtx, 1, onRampAddr, PoolErrInvalidPoolOnRampAccount)
	if err != nil {
		return err
	}
	_, err = checkPoolDerivedAddress(txCtx, instrCtx, 2, stakeAuthorityAddr, PoolErrInvalidPoolStakeAuthority)
	if err != nil {
		return err
	}

	err = checkAcctForRentSysvar(txCtx, instrCtx, 3)
	if err != nil {
		return err
	}
	rent := ReadRentSysvar(&execCtx.Accounts)

	onRampAcct, err := instrCtx.BorrowInstructionAccount(txCtx, 1)
	if err != nil {
		return err
	}
	if onRampAcct.Owner() != SystemProgramAddr || len(onRampAcct.Data()) != 0 {
		onRampAcct.Drop()
		return PoolErrPoolAlreadyInitialized
	}
	onRampLamports := onRampAcct.Lamports()
	onRampAcct.Drop()

	if onRampLamports < rent.MinimumBalance(StakeStateV2Size) {
		return PoolErrWrongRentAmount
	}

	allocInstr := newAllocateInstruction(onRampAddr, StakeStateV2Size)
	err = execCtx.NativeInvoke(*allocInstr, []solana.PublicKey{onRampAddr})
	if err != nil {
		return err
	}

	assignInstr := newAssignInstruction(onRampAddr, StakeProgramAddr)
	err = execCtx.NativeInvoke(*assignInstr, []solana.PublicKey{onRampAddr})
	if err != nil {
		return err
	}

	authorized := Authorized{Staker: stakeAuthorityAddr, Withdrawer: stakeAuthorityAddr}
	initStakeInstr := newStakeInitializeInstruction(onRampAddr, authorized, StakeLockup{})
	return execCtx.NativeInvoke(*initStakeInstr, nil)
}

// SinglePoolProgramReplenishPool folds lamports that arrived on the on-ramp
// or as free balance on the pool stake account into the active delegation.
// Safe to call unconditionally: with nothing to sweep it is a no-op.
func SinglePoolProgramReplenishPool(execCtx *ExecutionCtx, txCtx *TransactionCtx, instrCtx *InstructionCtx) error {
	poolAcct, err := instrCtx.BorrowInstructionAccount(txCtx, 1)
	if err != nil {
		return err
	}
	poolAddr := poolAcct.Key()
	pool, err := unmarshalPoolFromAccount(poolAcct)
	poolAcct.Drop()
	if err != nil {
		return err
	}

	voteAddr, err := extractAddress(txCtx, instrCtx, 0)
	if err != nil {
		return err
	}
	if voteAddr != pool.VoteAccountAddress {
		return PoolErrInvalidPoolAccount
	}

	stakeAddr, _ := FindPoolStakeAddress(poolAddr)
	onRampAddr, _ := FindPoolOnRampAddress(poolAddr)
	stakeAuthorityAddr, _ := FindPoolStakeAuthorityAddress(poolAddr)

	_, err = checkPoolDerivedAddress(txCtx, instrCtx, 2, stakeAddr, PoolErrInvalidPoolStakeAccount)
	if err != nil {
		return err
	}
	_, err = checkPoolDerivedAddress(txCtx, instrCtx, 3, onRampAddr, PoolErrInvalidPoolOnRampAccount)
	if err != nil {
		return err
	}
	_, err = checkPoolDerivedAddress(txCtx, instrCtx, 4, stakeAuthorityAddr, PoolErrInvalidPoolStakeAuthority)
	if err != nil {
		return err
	}

	err = checkAcctForClockSysvar(txCtx, instrCtx, 5)
	if err != nil {
		return err
	}

	onRampAcct, err := instrCtx.BorrowInstructionAccount(txCtx, 3)
	if err != nil {
		return err
	}
	if onRampAcct.Owner() != StakeProgramAddr || len(onRampAcct.Data()) == 0 {
		onRampAcct.Drop()
		return PoolErrOnRampDoesntExist
	}
	onRampState, err := unmarshalStakeState(onRampAcct.Data())
	if err != nil {
		onRampAcct.Drop()
		return err
	}
	if onRampState.Status != StakeStateV2StatusInitialized {
		onRampAcct.Drop()
		return PoolErrOnRampDoesntExist
	}
	onRampExcess := safemath.SaturatingSubU64(onRampAcct.Lamports(), onRampState.Initialized.Meta.RentExemptReserve)
	onRampAcct.Drop()

	stakeAcct, err := instrCtx.BorrowInstructionAccount(txCtx, 2)
	if err != nil {
		return err
	}
	stakeState, err := unmarshalStakeState(stakeAcct.Data())
	if err != nil {
		stakeAcct.Drop()
		return err
	}
	if stakeState.Status != StakeStateV2StatusStake {
		stakeAcct.Drop()
		return PoolErrWrongStakeState
	}
	mainReserved := safemath.SaturatingAddU64(stakeState.Stake.Stake.Delegation.Stake, stakeState.Stake.Meta.RentExemptReserve)
	mainExcess := safemath.SaturatingSubU64(stakeAcct.Lamports(), mainReserved)
	stakeAcct.Drop()

	if onRampExcess == 0 && mainExcess == 0 {
		klog.V(2).Infof("ReplenishPool: nothing to sweep for pool %s", poolAddr)
		return nil
	}

	if onRampExcess > 0 {
		withdrawInstr := newStakeWithdrawInstruction(onRampAddr, stakeAddr, stakeAuthorityAddr, onRampExcess)
		err = execCtx.NativeInvoke(*withdrawInstr, []solana.PublicKey{stakeAuthorityAddr})
		if err != nil {
			return err
		}
	}

	// re-delegating towards the same vote account recomputes the delegation
	// from the current balance, picking up everything just swept in
	delegateInstr := newStakeDelegateInstruction(stakeAddr, voteAddr, stakeAuthorityAddr)
	return execCtx.NativeInvoke(*delegateInstr, []solana.PublicKey{stakeAuthorityAddr})
}

func SinglePoolProgramDepositStake(execCtx *ExecutionCtx, txCtx *TransactionCtx, instrCtx *InstructionCtx) error {
	f := execCtx.Features

	poolAcct, err := instrCtx.BorrowInstructionAccount(txCtx, 0)
	if err != nil {
		return err
	}
	poolAddr := poolAcct.Key()
	pool, err := unmarshalPoolFromAccount(poolAcct)
	poolAcct.Drop()
	if err != nil {
		return err
	}

	stakeAddr, _ := FindPoolStakeAddress(poolAddr)
	onRampAddr, _ := FindPoolOnRampAddress(poolAddr)
	mintAddr, _ := FindPoolMintAddress(poolAddr)
	stakeAuthorityAddr, _ := FindPoolStakeAuthorityAddress(poolAddr)
	mintAuthorityAddr, _ := FindPoolMintAuthorityAddress(poolAddr)

	_, err = checkPoolDerivedAddress(txCtx, instrCtx, 1, stakeAddr, PoolErrInvalidPoolStakeAccount)
	if err != nil {
		return err
	}
	_, err = checkPoolDerivedAddress(txCtx, instrCtx, 2, mintAddr, PoolErrInvalidPoolMint)
	if err != nil {
		return err
	}
	_, err = checkPoolDerivedAddress(txCtx, instrCtx, 3, stakeAuthorityAddr, PoolErrInvalidPoolStakeAuthority)
	if err != nil {
		return err
	}
	_, err = checkPoolDerivedAddress(txCtx, instrCtx, 4, mintAuthorityAddr, PoolErrInvalidPoolMintAuthority)
	if err != nil {
		return err
	}

	userStakeAddr, err := extractAddress(txCtx, instrCtx, 5)
	if err != nil {
		return err
	}
	if userStakeAddr == stakeAddr || userStakeAddr == onRampAddr {
		return PoolErrInvalidPoolStakeAccountUsage
	}

	userTokenAddr, err := extractAddress(txCtx, instrCtx, 6)
	if err != nil {
		return err
	}
	userLamportAddr, err := extractAddress(txCtx, instrCtx, 7)
	if err != nil {
		return err
	}

	err = checkAcctForClockSysvar(txCtx, instrCtx, 8)
	if err != nil {
		return err
	}
	clock := ReadClockSysvar(&execCtx.Accounts)

	stakeAcct, err := instrCtx.BorrowInstructionAccount(txCtx, 1)
	if err != nil {
		return err
	}
	stakeState, err := unmarshalStakeState(stakeAcct.Data())
	if err != nil {
		stakeAcct.Drop()
		return err
	}
	preLamports := stakeAcct.Lamports()
	stakeAcct.Drop()

	if stakeState.Status != StakeStateV2StatusStake || !stakeState.Stake.Stake.Delegation.IsFullyActive(&clock) {
		return PoolErrWrongStakeState
	}
	preStake := stakeState.Stake.Stake.Delegation.Stake
	// the permanent pool floor is never minted against; shares price only
	// against stake contributed on top of it
	accountedPreStake := safemath.SaturatingSubU64(preStake, minimumPoolBalance(f))

	userStakeAcct, err := instrCtx.BorrowInstructionAccount(txCtx, 5)
	if err != nil {
		return err
	}
	userStakeState, err := unmarshalStakeState(userStakeAcct.Data())
	userStakeAcct.Drop()
	if err != nil {
		return err
	}

	if userStakeState.Status != StakeStateV2StatusStake {
		return PoolErrWrongStakeState
	}
	if userStakeState.Stake.Stake.Delegation.VoterPubkey != pool.VoteAccountAddress {
		klog.Errorf("DepositStake: stake account %s is delegated to the wrong validator", userStakeAddr)
		return PoolErrWrongStakeState
	}
	if !userStakeState.Stake.Stake.Delegation.IsFullyActive(&clock) {
		return PoolErrWrongStakeState
	}

	mintAcct, err := instrCtx.BorrowInstructionAccount(txCtx, 2)
	if err != nil {
		return err
	}
	mint, err := unmarshalTokenMint(mintAcct.Data())
	mintAcct.Drop()
	if err != nil {
		return err
	}
	preSupply := mint.Supply

	mergeInstr := newStakeMergeInstruction(stakeAddr, userStakeAddr, stakeAuthorityAddr)
	err = execCtx.NativeInvoke(*mergeInstr, []solana.PublicKey{stakeAuthorityAddr})
	if err != nil {
		return err
	}

	stakeAcct, err = instrCtx.BorrowInstructionAccount(txCtx, 1)
	if err != nil {
		return err
	}
	postState, err := unmarshalStakeState(stakeAcct.Data())
	if err != nil {
		stakeAcct.Drop()
		return err
	}
	postLamports := stakeAcct.Lamports()
	stakeAcct.Drop()

	stakeAdded, err := safemath.CheckedSubU64(postState.Stake.Stake.Delegation.Stake, preStake)
	if err != nil {
		return PoolErrUnexpectedMathError
	}
	lamportsAdded, err := safemath.CheckedSubU64(postLamports, preLamports)
	if err != nil {
		return PoolErrUnexpectedMathError
	}
	// the merged account's rent reserve and any undelegated balance are not
	// part of the deposit and flow back to the user's wallet
	excessLamports := safemath.SaturatingSubU64(lamportsAdded, stakeAdded)

	tokens, err := calculateDepositAmount(stakeAdded, accountedPreStake, preSupply)
	if err != nil {
		return err
	}
	if tokens == 0 {
		return PoolErrDepositTooSmall
	}

	mintToInstr := newTokenMintToInstruction(mintAddr, userTokenAddr, mintAuthorityAddr, tokens)
	err = execCtx.NativeInvoke(*mintToInstr, []solana.PublicKey{mintAuthorityAddr})
	if err != nil {
		return err
	}

	if excessLamports > 0 {
		withdrawInstr := newStakeWithdrawInstruction(stakeAddr, userLamportAddr, stakeAuthorityAddr, excessLamports)
		err = execCtx.NativeInvoke(*withdrawInstr, []solana.PublicKey{stakeAuthorityAddr})
		if err != nil {
			return err
		}
	}

	klog.V(2).Infof("DepositStake: deposited %d lamports of stake for %d tokens", stakeAdded, tokens)
	return nil
}

func SinglePoolProgramWithdrawStake(execCtx *ExecutionCtx, txCtx *TransactionCtx, instrCtx *InstructionCtx, userStakeAuthority solana.PublicKey, tokenAmount uint64) error {
	f := execCtx.Features

	poolAcct, err := instrCtx.BorrowInstructionAccount(txCtx, 0)
	if err != nil {
		return err
	}
	poolAddr := poolAcct.Key()
	_, err = unmarshalPoolFromAccount(poolAcct)
	poolAcct.Drop()
	if err != nil {
		return err
	}

	stakeAddr, _ := FindPoolStakeAddress(poolAddr)
	onRampAddr, _ := FindPoolOnRampAddress(poolAddr)
	mintAddr, _ := FindPoolMintAddress(poolAddr)
	stakeAuthorityAddr, _ := FindPoolStakeAuthorityAddress(poolAddr)
	mintAuthorityAddr, _ := FindPoolMintAuthorityAddress(poolAddr)

	_, err = checkPoolDerivedAddress(txCtx, instrCtx, 1, stakeAddr, PoolErrInvalidPoolStakeAccount)
	if err != nil {
		return err
	}
	_, err = checkPoolDerivedAddress(txCtx, instrCtx, 2, mintAddr, PoolErrInvalidPoolMint)
	if err != nil {
		return err
	}
	_, err = checkPoolDerivedAddress(txCtx, instrCtx, 3, stakeAuthorityAddr, PoolErrInvalidPoolStakeAuthority)
	if err != nil {
		return err
	}
	_, err = checkPoolDerivedAddress(txCtx, instrCtx, 4, mintAuthorityAddr, PoolErrInvalidPoolMintAuthority)
	if err != nil {
		return err
	}

	userStakeAddr, err := extractAddress(txCtx, instrCtx, 5)
	if err != nil {
		return err
	}
	if userStakeAddr == stakeAddr || userStakeAddr == onRampAddr {
		return PoolErrInvalidPoolStakeAccountUsage
	}

	userTokenAddr, err := extractAddress(txCtx, instrCtx, 6)
	if err != nil {
		return err
	}

	err = checkAcctForClockSysvar(txCtx, instrCtx, 7)
	if err != nil {
		return err
	}

	stakeAcct, err := instrCtx.BorrowInstructionAccount(txCtx, 1)
	if err != nil {
		return err
	}
	stakeState, err := unmarshalStakeState(stakeAcct.Data())
	stakeAcct.Drop()
	if err != nil {
		return err
	}
	if stakeState.Status != StakeStateV2StatusStake {
		return PoolErrWrongStakeState
	}
	// only stake above the permanent pool floor is redeemable
	accountedStake := safemath.SaturatingSubU64(stakeState.Stake.Stake.Delegation.Stake, minimumPoolBalance(f))

	mintAcct, err := instrCtx.BorrowInstructionAccount(txCtx, 2)
	if err != nil {
		return err
	}
	mint, err := unmarshalTokenMint(mintAcct.Data())
	mintAcct.Drop()
	if err != nil {
		return err
	}

	lamports, err := calculateWithdrawAmount(tokenAmount, accountedStake, mint.Supply)
	if err != nil {
		return err
	}
	if lamports == 0 {
		return PoolErrWithdrawalTooSmall
	}

	if lamports > accountedStake {
		klog.Errorf("WithdrawStake: withdrawal of %d lamports would leave the pool below its minimum balance", lamports)
		return PoolErrWithdrawalTooLarge
	}

	// burn through the pool's mint authority, which the user has approved as
	// a delegate for the token amount
	burnInstr := newTokenBurnInstruction(userTokenAddr, mintAddr, mintAuthorityAddr, tokenAmount)
	err = execCtx.NativeInvoke(*burnInstr, []solana.PublicKey{mintAuthorityAddr})
	if err != nil {
		return err
	}

	splitInstr := newStakeSplitInstruction(stakeAddr, userStakeAddr, stakeAuthorityAddr, lamports)
	err = execCtx.NativeInvoke(*splitInstr, []solana.PublicKey{stakeAuthorityAddr})
	if err != nil {
		return err
	}

	authorizeStakerInstr := newStakeAuthorizeInstruction(userStakeAddr, stakeAuthorityAddr, userStakeAuthority, StakeAuthorizeStaker)
	err = execCtx.NativeInvoke(*authorizeStakerInstr, []solana.PublicKey{stakeAuthorityAddr})
	if err != nil {
		return err
	}

	authorizeWithdrawerInstr := newStakeAuthorizeInstruction(userStakeAddr, stakeAuthorityAddr, userStakeAuthority, StakeAuthorizeWithdrawer)
	err = execCtx.NativeInvoke(*authorizeWithdrawerInstr, []solana.PublicKey{stakeAuthorityAddr})
	if err != nil {
		return err
	}

	klog.V(2).Infof("WithdrawStake: burned %d tokens for %d lamports of stake", tokenAmount, lamports)
	return nil
}

func SinglePoolProgramCreateTokenMetadata(execCtx *ExecutionCtx, txCtx *TransactionCtx, instrCtx *InstructionCtx) error {
	poolAcct, err := instrCtx.BorrowInstructionAccount(txCtx, 0)
	if err != nil {
		return err
	}
	poolAddr := poolAcct.Key()
	pool, err := unmarshalPoolFromAccount(poolAcct)
	poolAcct.Drop()
	if err != nil {
		return err
	}

	mintAddr, _ := FindPoolMintAddress(poolAddr)
	mintAuthorityAddr, _ := FindPoolMintAuthorityAddress(poolAddr)
	mplAuthorityAddr, _ := FindPoolMplAuthorityAddress(poolAddr)

	_, err = checkPoolDerivedAddress(txCtx, instrCtx, 1, mintAddr, PoolErrInvalidPoolMint)
	if err != nil {
		return err
	}
	_, err = checkPoolDerivedAddress(txCtx, instrCtx, 2, mintAuthorityAddr, PoolErrInvalidPoolMintAuthority)
	if err != nil {
		return err
	}
	_, err = checkPoolDerivedAddress(txCtx, instrCtx, 3, mplAuthorityAddr, PoolErrInvalidPoolMplAuthority)
	if err != nil {
		return err
	}

	payerIsSigner, err := instrCtx.IsInstructionAccountSigner(4)
	if err != nil {
		return err
	}
	if !payerIsSigner {
		return PoolErrSignatureMissing
	}
	payerAddr, err := extractAddress(txCtx, instrCtx, 4)
	if err != nil {
		return err
	}

	metadataAddr, _ := FindMetadataAddress(mintAddr)
	_, err = checkPoolDerivedAddress(txCtx, instrCtx, 5, metadataAddr, PoolErrInvalidMetadataAccount)
	if err != nil {
		return err
	}

	voteAddrStr := base58.EncodeToString(pool.VoteAccountAddress)
	name := "SPL Single Pool " + voteAddrStr[:15]
	symbol := "st" + voteAddrStr[:7]

	createInstr := newCreateMetadataAccountInstruction(metadataAddr, mintAddr, mintAuthorityAddr, payerAddr, mplAuthorityAddr, name, symbol, "")
	return execCtx.NativeInvoke(*createInstr, []solana.PublicKey{mintAuthorityAddr})
}

func SinglePoolProgramUpdateTokenMetadata(execCtx *ExecutionCtx, txCtx *TransactionCtx, instrCtx *InstructionCtx, name string, symbol string, uri string) error {
	poolAcct, err := instrCtx.BorrowInstructionAccount(txCtx, 1)
	if err != nil {
		return err
	}
	poolAddr := poolAcct.Key()
	pool, err := unmarshalPoolFromAccount(poolAcct)
	poolAcct.Drop()
	if err != nil {
		return err
	}

	voteAcct, err := instrCtx.BorrowInstructionAccount(txCtx, 0)
	if err != nil {
		return err
	}
	voteAddr := voteAcct.Key()
	voteState, err := unmarshalVoteAccountChecked(voteAcct)
	voteAcct.Drop()
	if err != nil {
		return err
	}

	if voteAddr != pool.VoteAccountAddress {
		return PoolErrInvalidPoolAccount
	}

	mintAddr, _ := FindPoolMintAddress(poolAddr)
	mplAuthorityAddr, _ := FindPoolMplAuthorityAddress(poolAddr)

	_, err = checkPoolDerivedAddress(txCtx, instrCtx, 2, mplAuthorityAddr, PoolErrInvalidPoolMplAuthority)
	if err != nil {
		return err
	}

	// only the validator's own withdraw authority may retitle the token
	withdrawerIsSigner, err := instrCtx.IsInstructionAccountSigner(3)
	if err != nil {
		return err
	}
	if !withdrawerIsSigner {
		return PoolErrSignatureMissing
	}
	withdrawerAddr, err := extractAddress(txCtx, instrCtx, 3)
	if err != nil {
		return err
	}
	if withdrawerAddr != voteState.AuthorizedWithdrawer {
		return PoolErrInvalidMetadataSigner
	}

	metadataAddr, _ := FindMetadataAddress(mintAddr)
	_, err = checkPoolDerivedAddress(txCtx, instrCtx, 4, metadataAddr, PoolErrInvalidMetadataAccount)
	if err != nil {
		return err
	}

	updateInstr := newUpdateMetadataAccountInstruction(metadataAddr, mplAuthorityAddr, name, symbol, uri)
	return execCtx.NativeInvoke(*updateInstr, []solana.PublicKey{mplAuthorityAddr})
}
