package sealevel

import (
	"bytes"
	"math"
	"testing"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"go.firedancer.io/svsp/pkg/accounts"
	"go.firedancer.io/svsp/pkg/base58"
	"go.firedancer.io/svsp/pkg/cu"
)

// test rent parameters make MinimumBalance(n) = n + 128
const (
	testPoolRent     = SinglePoolAccountSize + 128
	testStakeRent    = StakeStateV2Size + 128
	testMintRent     = TokenMintSize + 128
	testMetadataRent = MetadataAccountSize + 128
)

type singlePoolTestEnv struct {
	txAccts *TransactionAccounts
	txCtx   *TransactionCtx
	execCtx *ExecutionCtx
	rent    SysvarRent

	voteAddr           solana.PublicKey
	withdrawerAddr     solana.PublicKey
	poolAddr           solana.PublicKey
	stakeAddr          solana.PublicKey
	onRampAddr         solana.PublicKey
	mintAddr           solana.PublicKey
	stakeAuthorityAddr solana.PublicKey
	mintAuthorityAddr  solana.PublicKey
	mplAuthorityAddr   solana.PublicKey
	metadataAddr       solana.PublicKey
	payerAddr          solana.PublicKey
	userWalletAddr     solana.PublicKey
	userStakeAddr      solana.PublicKey
	userStake2Addr     solana.PublicKey
	userTokenAddr      solana.PublicKey
	blankStakeAddr     solana.PublicKey
	defaultDepositAddr solana.PublicKey
}

func testRandomPubkey(t *testing.T) solana.PublicKey {
	privKey, err := solana.NewRandomPrivateKey()
	assert.NoError(t, err)
	return privKey.PublicKey()
}

func testVoteAccountData(t *testing.T, nodePubkey solana.PublicKey, withdrawer solana.PublicKey) []byte {
	buf := new(bytes.Buffer)
	encoder := bin.NewBinEncoder(buf)

	assert.NoError(t, encoder.WriteUint32(VoteStateVersionCurrent, bin.LE))
	assert.NoError(t, encoder.WriteBytes(nodePubkey[:], false))
	assert.NoError(t, encoder.WriteBytes(withdrawer[:], false))
	assert.NoError(t, encoder.WriteByte(0))           // commission
	assert.NoError(t, encoder.WriteUint64(0, bin.LE)) // votes deque
	assert.NoError(t, encoder.WriteBool(false))       // no root slot
	assert.NoError(t, encoder.WriteUint64(0, bin.LE)) // authorized voters
	assert.NoError(t, encoder.WriteBytes(make([]byte, 32*48+8+1), false))
	assert.NoError(t, encoder.WriteUint64(1, bin.LE)) // one epoch credits entry
	assert.NoError(t, encoder.WriteUint64(0, bin.LE))
	assert.NoError(t, encoder.WriteUint64(100, bin.LE))
	assert.NoError(t, encoder.WriteUint64(0, bin.LE))

	return buf.Bytes()
}

// testDelegatedStakeData builds a fully delegated stake account image with the
// same authority for staking and withdrawal.
func testDelegatedStakeData(t *testing.T, authority solana.PublicKey, voter solana.PublicKey, stake uint64) []byte {
	state := StakeStateV2{Status: StakeStateV2StatusStake,
		Stake: StakeStateV2Stake{
			Meta: Meta{RentExemptReserve: testStakeRent, Authorized: Authorized{Staker: authority, Withdrawer: authority}},
			Stake: Stake{Delegation: Delegation{VoterPubkey: voter, Stake: stake, ActivationEpoch: 0,
				DeactivationEpoch: math.MaxUint64, WarmupCooldownRate: DefaultWarmupCooldownRate},
				CreditsObserved: 100}}}

	buf := new(bytes.Buffer)
	encoder := bin.NewBinEncoder(buf)
	assert.NoError(t, state.MarshalWithEncoder(encoder))

	data := make([]byte, StakeStateV2Size)
	copy(data, buf.Bytes())
	return data
}

func testTokenAccountData(t *testing.T, mint solana.PublicKey, owner solana.PublicKey) []byte {
	tokenAcct := TokenAccount{Mint: mint, Owner: owner, State: TokenAccountStateInitialized}

	buf := new(bytes.Buffer)
	encoder := bin.NewBinEncoder(buf)
	assert.NoError(t, tokenAcct.MarshalWithEncoder(encoder))
	return buf.Bytes()
}

func newSinglePoolTestEnv(t *testing.T) *singlePoolTestEnv {
	env := new(singlePoolTestEnv)

	env.voteAddr = testRandomPubkey(t)
	env.withdrawerAddr = testRandomPubkey(t)
	env.payerAddr = testRandomPubkey(t)
	env.userWalletAddr = testRandomPubkey(t)
	env.userStakeAddr = testRandomPubkey(t)
	env.userStake2Addr = testRandomPubkey(t)
	env.userTokenAddr = testRandomPubkey(t)
	env.blankStakeAddr = testRandomPubkey(t)

	env.poolAddr, _ = FindPoolAddress(env.voteAddr)
	env.stakeAddr, _ = FindPoolStakeAddress(env.poolAddr)
	env.onRampAddr, _ = FindPoolOnRampAddress(env.poolAddr)
	env.mintAddr, _ = FindPoolMintAddress(env.poolAddr)
	env.stakeAuthorityAddr, _ = FindPoolStakeAuthorityAddress(env.poolAddr)
	env.mintAuthorityAddr, _ = FindPoolMintAuthorityAddress(env.poolAddr)
	env.mplAuthorityAddr, _ = FindPoolMplAuthorityAddress(env.poolAddr)
	env.metadataAddr, _ = FindMetadataAddress(env.mintAddr)

	var err error
	env.defaultDepositAddr, _, err = FindDefaultDepositAccountAddressAndSeed(env.poolAddr, env.userWalletAddr)
	assert.NoError(t, err)

	programAcct := func(key solana.PublicKey) accounts.Account {
		return accounts.Account{Key: key, Lamports: 1, Data: make([]byte, 0), Owner: NativeLoaderAddr, Executable: true}
	}
	systemAcct := func(key solana.PublicKey, lamports uint64, data []byte) accounts.Account {
		if data == nil {
			data = make([]byte, 0)
		}
		return accounts.Account{Key: key, Lamports: lamports, Data: data, Owner: SystemProgramAddr}
	}

	transactionAccts := NewTransactionAccounts([]accounts.Account{
		programAcct(SystemProgramAddr),
		programAcct(StakeProgramAddr),
		programAcct(TokenProgramAddr),
		programAcct(MetadataProgramAddr),
		programAcct(SinglePoolProgramAddr),
		systemAcct(SysvarClockAddr, 1, nil),
		systemAcct(SysvarRentAddr, 1, nil),
		systemAcct(SysvarStakeHistoryAddr, 1, nil),
		systemAcct(StakeProgramConfigAddr, 1, nil),
		{Key: env.voteAddr, Lamports: 5 * LamportsPerSol, Data: testVoteAccountData(t, testRandomPubkey(t), env.withdrawerAddr), Owner: VoteProgramAddr},
		systemAcct(env.withdrawerAddr, 1, nil),
		systemAcct(env.poolAddr, testPoolRent, nil),
		systemAcct(env.stakeAddr, testStakeRent+LamportsPerSol, nil),
		systemAcct(env.onRampAddr, testStakeRent, nil),
		systemAcct(env.mintAddr, testMintRent, nil),
		systemAcct(env.stakeAuthorityAddr, 0, nil),
		systemAcct(env.mintAuthorityAddr, 0, nil),
		systemAcct(env.mplAuthorityAddr, 0, nil),
		systemAcct(env.metadataAddr, 0, nil),
		systemAcct(env.payerAddr, 10*LamportsPerSol, nil),
		systemAcct(env.userWalletAddr, 2*LamportsPerSol, nil),
		{Key: env.userStakeAddr, Lamports: testStakeRent + 2*LamportsPerSol, Data: testDelegatedStakeData(t, env.userWalletAddr, env.voteAddr, 2*LamportsPerSol), Owner: StakeProgramAddr},
		{Key: env.userStake2Addr, Lamports: testStakeRent + 1500000000, Data: testDelegatedStakeData(t, env.stakeAuthorityAddr, env.voteAddr, 1500000000), Owner: StakeProgramAddr},
		{Key: env.userTokenAddr, Lamports: TokenAccountSize + 128, Data: testTokenAccountData(t, env.mintAddr, env.userWalletAddr), Owner: TokenProgramAddr},
		{Key: env.blankStakeAddr, Lamports: testStakeRent, Data: make([]byte, StakeStateV2Size), Owner: StakeProgramAddr},
		systemAcct(env.defaultDepositAddr, 0, nil),
	})

	env.txAccts = transactionAccts
	env.txCtx = NewTestTransactionCtx(*transactionAccts, 5, 256)
	env.execCtx = &ExecutionCtx{TransactionContext: env.txCtx, ComputeMeter: cu.NewComputeMeter(10000000000)}
	env.execCtx.Accounts = accounts.NewMemAccounts()

	clockAcct := accounts.Account{}
	env.execCtx.Accounts.SetAccount(&SysvarClockAddr, &clockAcct)
	env.setEpoch(0)

	env.rent = SysvarRent{LamportsPerUint8Year: 1, ExemptionThreshold: 1, BurnPercent: 0}
	rentAcct := accounts.Account{}
	env.execCtx.Accounts.SetAccount(&SysvarRentAddr, &rentAcct)
	WriteRentSysvar(&env.execCtx.Accounts, env.rent)

	return env
}

func (env *singlePoolTestEnv) setEpoch(epoch uint64) {
	WriteClockSysvar(&env.execCtx.Accounts, SysvarClock{Slot: 100 + epoch, Epoch: epoch})
}

func (env *singlePoolTestEnv) processInstruction(instr *Instruction) error {
	instructionAccts := instructionAcctsFromAccountMetas(instr.Accounts, *env.txAccts)
	programIdx, err := env.txCtx.IndexOfAccount(instr.ProgramId)
	if err != nil {
		return err
	}
	return env.execCtx.ProcessInstruction(instr.Data, instructionAccts, []uint64{programIdx})
}

func (env *singlePoolTestEnv) account(t *testing.T, key solana.PublicKey) *accounts.Account {
	idx, err := env.txCtx.IndexOfAccount(key)
	assert.NoError(t, err)
	acct, err := env.txCtx.Accounts.GetAccount(idx)
	assert.NoError(t, err)
	return acct
}

func (env *singlePoolTestEnv) stakeStateAt(t *testing.T, key solana.PublicKey) *StakeStateV2 {
	state, err := unmarshalStakeState(env.account(t, key).Data)
	assert.NoError(t, err)
	return state
}

func (env *singlePoolTestEnv) mintState(t *testing.T) *TokenMint {
	mint, err := unmarshalTokenMint(env.account(t, env.mintAddr).Data)
	assert.NoError(t, err)
	return mint
}

func (env *singlePoolTestEnv) userTokenState(t *testing.T) *TokenAccount {
	tokenAcct, err := unmarshalTokenAccount(env.account(t, env.userTokenAddr).Data)
	assert.NoError(t, err)
	return tokenAcct
}

func (env *singlePoolTestEnv) initializePoolAndOnRamp(t *testing.T) {
	err := env.processInstruction(NewInitializePoolInstruction(env.voteAddr))
	assert.NoError(t, err)

	err = env.processInstruction(NewInitializePoolOnRampInstruction(env.poolAddr))
	assert.NoError(t, err)
}

func TestExecute_Tx_SinglePool_Lifecycle(t *testing.T) {
	env := newSinglePoolTestEnv(t)

	// stand up the pool and its on-ramp
	env.initializePoolAndOnRamp(t)

	poolAcct := env.account(t, env.poolAddr)
	assert.Equal(t, SinglePoolProgramAddr, poolAcct.Owner)
	var pool SinglePool
	assert.NoError(t, pool.UnmarshalWithDecoder(bin.NewBinDecoder(poolAcct.Data)))
	assert.Equal(t, byte(SinglePoolAccountTypePool), pool.AccountType)
	assert.Equal(t, env.voteAddr, pool.VoteAccountAddress)

	poolStakeState := env.stakeStateAt(t, env.stakeAddr)
	assert.Equal(t, uint32(StakeStateV2StatusStake), poolStakeState.Status)
	assert.Equal(t, env.voteAddr, poolStakeState.Stake.Stake.Delegation.VoterPubkey)
	assert.Equal(t, uint64(LamportsPerSol), poolStakeState.Stake.Stake.Delegation.Stake)
	assert.Equal(t, env.stakeAuthorityAddr, poolStakeState.Stake.Meta.Authorized.Staker)
	assert.Equal(t, env.stakeAuthorityAddr, poolStakeState.Stake.Meta.Authorized.Withdrawer)

	mint := env.mintState(t)
	assert.True(t, mint.IsInitialized)
	assert.Equal(t, byte(PoolMintDecimals), mint.Decimals)
	assert.Equal(t, uint64(0), mint.Supply)
	assert.True(t, mint.MintAuthority.IsSome)
	assert.Equal(t, env.mintAuthorityAddr, mint.MintAuthority.Pubkey)

	onRampState := env.stakeStateAt(t, env.onRampAddr)
	assert.Equal(t, uint32(StakeStateV2StatusInitialized), onRampState.Status)
	assert.Equal(t, uint64(testStakeRent), onRampState.Initialized.Meta.RentExemptReserve)
	assert.Equal(t, env.stakeAuthorityAddr, onRampState.Initialized.Meta.Authorized.Staker)

	// both accounts refuse a second initialization
	err := env.processInstruction(NewInitializePoolInstruction(env.voteAddr))
	assert.Equal(t, PoolErrPoolAlreadyInitialized, err)
	err = env.processInstruction(NewInitializePoolOnRampInstruction(env.poolAddr))
	assert.Equal(t, PoolErrPoolAlreadyInitialized, err)

	// default token metadata
	err = env.processInstruction(NewCreateTokenMetadataInstruction(env.poolAddr, env.payerAddr))
	assert.NoError(t, err)

	metadataAcct := env.account(t, env.metadataAddr)
	assert.Equal(t, MetadataProgramAddr, metadataAcct.Owner)
	metadata, err := unmarshalMetadata(metadataAcct.Data)
	assert.NoError(t, err)
	voteStr := base58.EncodeToString(env.voteAddr)
	assert.Equal(t, "SPL Single Pool "+voteStr[:15], metadata.Data.Name)
	assert.Equal(t, "st"+voteStr[:7], metadata.Data.Symbol)
	assert.Equal(t, "", metadata.Data.Uri)
	assert.Equal(t, env.mplAuthorityAddr, metadata.UpdateAuthority)
	assert.Equal(t, uint64(10*LamportsPerSol-testMetadataRent), env.account(t, env.payerAddr).Lamports)

	// let the delegations activate
	env.setEpoch(1)

	// first deposit goes through the authorize-then-deposit sequence and
	// mints one token per lamport of stake
	for _, instr := range DepositStakeInstructions(env.poolAddr, env.userStakeAddr, env.userWalletAddr, env.userTokenAddr, env.userWalletAddr) {
		err = env.processInstruction(instr)
		assert.NoError(t, err)
	}

	assert.Equal(t, uint64(2*LamportsPerSol), env.mintState(t).Supply)
	assert.Equal(t, uint64(2*LamportsPerSol), env.userTokenState(t).Amount)

	poolStakeState = env.stakeStateAt(t, env.stakeAddr)
	assert.Equal(t, uint64(3*LamportsPerSol), poolStakeState.Stake.Stake.Delegation.Stake)
	assert.Equal(t, uint64(testStakeRent+3*LamportsPerSol), env.account(t, env.stakeAddr).Lamports)

	// the merged account is drained and its rent reserve went back to the
	// user's wallet
	assert.Equal(t, uint64(0), env.account(t, env.userStakeAddr).Lamports)
	assert.Equal(t, uint64(2*LamportsPerSol+testStakeRent), env.account(t, env.userWalletAddr).Lamports)

	// second deposit at an unchanged share price mints at par
	err = env.processInstruction(NewDepositStakeInstruction(env.poolAddr, env.userStake2Addr, env.userTokenAddr, env.userWalletAddr))
	assert.NoError(t, err)

	assert.Equal(t, uint64(3500000000), env.mintState(t).Supply)
	assert.Equal(t, uint64(3500000000), env.userTokenState(t).Amount)
	assert.Equal(t, uint64(4500000000), env.stakeStateAt(t, env.stakeAddr).Stake.Stake.Delegation.Stake)

	// nothing to sweep: replenish is a clean no-op
	err = env.processInstruction(NewReplenishPoolInstruction(env.voteAddr))
	assert.NoError(t, err)
	poolStakeState = env.stakeStateAt(t, env.stakeAddr)
	assert.Equal(t, uint64(4500000000), poolStakeState.Stake.Stake.Delegation.Stake)
	assert.Equal(t, uint64(0), poolStakeState.Stake.Stake.Delegation.ActivationEpoch)

	// rewards arrive on the on-ramp; replenish folds them into the
	// delegation without minting, raising the share price
	env.account(t, env.onRampAddr).Lamports += LamportsPerSol
	err = env.processInstruction(NewReplenishPoolInstruction(env.voteAddr))
	assert.NoError(t, err)

	assert.Equal(t, uint64(testStakeRent), env.account(t, env.onRampAddr).Lamports)
	poolStakeState = env.stakeStateAt(t, env.stakeAddr)
	assert.Equal(t, uint64(5500000000), poolStakeState.Stake.Stake.Delegation.Stake)
	assert.Equal(t, uint64(0), poolStakeState.Stake.Stake.Delegation.ActivationEpoch)
	assert.Equal(t, uint64(3500000000), env.mintState(t).Supply)

	// withdraw a third of the supply at the appreciated price:
	// floor(1e9 * 4.5e9 / 3.5e9)
	expectedLamports := uint64(1285714285)
	for _, instr := range WithdrawStakeInstructions(env.poolAddr, env.blankStakeAddr, env.userTokenAddr, env.userWalletAddr, env.userWalletAddr, LamportsPerSol) {
		err = env.processInstruction(instr)
		assert.NoError(t, err)
	}

	assert.Equal(t, uint64(2500000000), env.mintState(t).Supply)
	userToken := env.userTokenState(t)
	assert.Equal(t, uint64(2500000000), userToken.Amount)
	assert.False(t, userToken.Delegate.IsSome)
	assert.Equal(t, uint64(0), userToken.DelegatedAmount)

	splitState := env.stakeStateAt(t, env.blankStakeAddr)
	assert.Equal(t, uint32(StakeStateV2StatusStake), splitState.Status)
	assert.Equal(t, expectedLamports, splitState.Stake.Stake.Delegation.Stake)
	assert.Equal(t, env.voteAddr, splitState.Stake.Stake.Delegation.VoterPubkey)
	assert.Equal(t, env.userWalletAddr, splitState.Stake.Meta.Authorized.Staker)
	assert.Equal(t, env.userWalletAddr, splitState.Stake.Meta.Authorized.Withdrawer)
	assert.Equal(t, uint64(testStakeRent)+expectedLamports, env.account(t, env.blankStakeAddr).Lamports)

	assert.Equal(t, uint64(5500000000)-expectedLamports, env.stakeStateAt(t, env.stakeAddr).Stake.Stake.Delegation.Stake)

	// burning nothing redeems nothing
	err = env.processInstruction(NewWithdrawStakeInstruction(env.poolAddr, env.blankStakeAddr, env.userTokenAddr, env.userWalletAddr, 0))
	assert.Equal(t, PoolErrWithdrawalTooSmall, err)

	// redeeming more than the accounted stake would dig into the pool floor
	err = env.processInstruction(NewWithdrawStakeInstruction(env.poolAddr, env.blankStakeAddr, env.userTokenAddr, env.userWalletAddr, 5000000000))
	assert.Equal(t, PoolErrWithdrawalTooLarge, err)

	// the validator's withdraw authority may retitle the token
	err = env.processInstruction(NewUpdateTokenMetadataInstruction(env.voteAddr, env.withdrawerAddr, "Custom Pool Token", "CPT", "https://example.com/pool.json"))
	assert.NoError(t, err)

	metadata, err = unmarshalMetadata(env.account(t, env.metadataAddr).Data)
	assert.NoError(t, err)
	assert.Equal(t, "Custom Pool Token", metadata.Data.Name)
	assert.Equal(t, "CPT", metadata.Data.Symbol)
	assert.Equal(t, "https://example.com/pool.json", metadata.Data.Uri)

	// anyone else is turned away
	err = env.processInstruction(NewUpdateTokenMetadataInstruction(env.voteAddr, env.userWalletAddr, "Hijacked", "NO", ""))
	assert.Equal(t, PoolErrInvalidMetadataSigner, err)
}

func TestExecute_Tx_SinglePool_DefaultDepositAccountFlow(t *testing.T) {
	env := newSinglePoolTestEnv(t)
	env.initializePoolAndOnRamp(t)

	env.setEpoch(1)

	// stand up the wallet's default deposit account and delegate it
	instrs, err := CreateAndDelegateUserStakeInstructions(env.userWalletAddr, env.voteAddr, env.rent, LamportsPerSol)
	assert.NoError(t, err)
	for _, instr := range instrs {
		err = env.processInstruction(instr)
		assert.NoError(t, err)
	}

	depositState := env.stakeStateAt(t, env.defaultDepositAddr)
	assert.Equal(t, uint32(StakeStateV2StatusStake), depositState.Status)
	assert.Equal(t, uint64(LamportsPerSol), depositState.Stake.Stake.Delegation.Stake)
	assert.Equal(t, uint64(1), depositState.Stake.Stake.Delegation.ActivationEpoch)

	// once active, the account deposits like any other
	env.setEpoch(2)
	for _, instr := range DepositStakeInstructions(env.poolAddr, env.defaultDepositAddr, env.userWalletAddr, env.userTokenAddr, env.userWalletAddr) {
		err = env.processInstruction(instr)
		assert.NoError(t, err)
	}

	assert.Equal(t, uint64(LamportsPerSol), env.mintState(t).Supply)
	assert.Equal(t, uint64(LamportsPerSol), env.userTokenState(t).Amount)
	assert.Equal(t, uint64(0), env.account(t, env.defaultDepositAddr).Lamports)
	assert.Equal(t, uint64(2*LamportsPerSol), env.stakeStateAt(t, env.stakeAddr).Stake.Stake.Delegation.Stake)
}

func TestExecute_Tx_SinglePool_InitializePool_WrongRentAmount(t *testing.T) {
	env := newSinglePoolTestEnv(t)

	// pool account funded below its exact rent exemption
	env.account(t, env.poolAddr).Lamports = testPoolRent - 1
	err := env.processInstruction(NewInitializePoolInstruction(env.voteAddr))
	assert.Equal(t, PoolErrWrongRentAmount, err)

	// overfunding the pool account is rejected just the same
	env.account(t, env.poolAddr).Lamports = testPoolRent + 1
	err = env.processInstruction(NewInitializePoolInstruction(env.voteAddr))
	assert.Equal(t, PoolErrWrongRentAmount, err)

	// stake account short of rent plus the pool minimum
	env.account(t, env.poolAddr).Lamports = testPoolRent
	env.account(t, env.stakeAddr).Lamports = testStakeRent + LamportsPerSol - 1
	err = env.processInstruction(NewInitializePoolInstruction(env.voteAddr))
	assert.Equal(t, PoolErrWrongRentAmount, err)
}

func TestExecute_Tx_SinglePool_InitializePool_BadVoteAccount(t *testing.T) {
	env := newSinglePoolTestEnv(t)

	buf := new(bytes.Buffer)
	encoder := bin.NewBinEncoder(buf)
	assert.NoError(t, encoder.WriteUint32(VoteStateVersionV0_23_5, bin.LE))
	env.account(t, env.voteAddr).Data = buf.Bytes()

	err := env.processInstruction(NewInitializePoolInstruction(env.voteAddr))
	assert.Equal(t, PoolErrLegacyVoteAccount, err)

	env.account(t, env.voteAddr).Data = []byte{0xff}
	err = env.processInstruction(NewInitializePoolInstruction(env.voteAddr))
	assert.Equal(t, PoolErrUnparseableVoteAccount, err)
}

func TestExecute_Tx_SinglePool_Deposit_RequiresActiveStake(t *testing.T) {
	env := newSinglePoolTestEnv(t)
	env.initializePoolAndOnRamp(t)

	// still in the activation epoch: neither side of the merge is active
	err := env.processInstruction(NewDepositStakeInstruction(env.poolAddr, env.userStake2Addr, env.userTokenAddr, env.userWalletAddr))
	assert.Equal(t, PoolErrWrongStakeState, err)
}

func TestExecute_Tx_SinglePool_Deposit_RejectsWrongValidator(t *testing.T) {
	env := newSinglePoolTestEnv(t)
	env.initializePoolAndOnRamp(t)
	env.setEpoch(1)

	// the stake account is active but delegated to some other validator
	env.account(t, env.userStake2Addr).Data = testDelegatedStakeData(t, env.stakeAuthorityAddr, testRandomPubkey(t), 1500000000)

	err := env.processInstruction(NewDepositStakeInstruction(env.poolAddr, env.userStake2Addr, env.userTokenAddr, env.userWalletAddr))
	assert.Equal(t, PoolErrWrongStakeState, err)
	assert.Equal(t, uint64(0), env.mintState(t).Supply)
}

func TestExecute_Tx_SinglePool_Deposit_TooSmallAfterAppreciation(t *testing.T) {
	env := newSinglePoolTestEnv(t)
	env.initializePoolAndOnRamp(t)
	env.setEpoch(1)

	for _, instr := range DepositStakeInstructions(env.poolAddr, env.userStakeAddr, env.userWalletAddr, env.userTokenAddr, env.userWalletAddr) {
		assert.NoError(t, env.processInstruction(instr))
	}
	assert.Equal(t, uint64(2*LamportsPerSol), env.mintState(t).Supply)

	// 100 SOL of rewards drive the share price far above one lamport per token
	env.account(t, env.onRampAddr).Lamports += 100 * LamportsPerSol
	assert.NoError(t, env.processInstruction(NewReplenishPoolInstruction(env.voteAddr)))
	assert.Equal(t, uint64(103*LamportsPerSol), env.stakeStateAt(t, env.stakeAddr).Stake.Stake.Delegation.Stake)

	// a one lamport deposit floors to zero tokens and is turned away
	env.account(t, env.userStake2Addr).Data = testDelegatedStakeData(t, env.stakeAuthorityAddr, env.voteAddr, 1)
	env.account(t, env.userStake2Addr).Lamports = testStakeRent + 1

	err := env.processInstruction(NewDepositStakeInstruction(env.poolAddr, env.userStake2Addr, env.userTokenAddr, env.userWalletAddr))
	assert.Equal(t, PoolErrDepositTooSmall, err)
	assert.Equal(t, uint64(2*LamportsPerSol), env.mintState(t).Supply)
	assert.Equal(t, uint64(2*LamportsPerSol), env.userTokenState(t).Amount)
}

func TestExecute_Tx_SinglePool_Deposit_RejectsPoolOwnedStakeAccounts(t *testing.T) {
	env := newSinglePoolTestEnv(t)
	env.initializePoolAndOnRamp(t)
	env.setEpoch(1)

	err := env.processInstruction(NewDepositStakeInstruction(env.poolAddr, env.stakeAddr, env.userTokenAddr, env.userWalletAddr))
	assert.Equal(t, PoolErrInvalidPoolStakeAccountUsage, err)

	err = env.processInstruction(NewDepositStakeInstruction(env.poolAddr, env.onRampAddr, env.userTokenAddr, env.userWalletAddr))
	assert.Equal(t, PoolErrInvalidPoolStakeAccountUsage, err)
}

func TestExecute_Tx_SinglePool_Replenish_RequiresOnRamp(t *testing.T) {
	env := newSinglePoolTestEnv(t)

	err := env.processInstruction(NewInitializePoolInstruction(env.voteAddr))
	assert.NoError(t, err)

	// the on-ramp was never initialized
	err = env.processInstruction(NewReplenishPoolInstruction(env.voteAddr))
	assert.Equal(t, PoolErrOnRampDoesntExist, err)
}
