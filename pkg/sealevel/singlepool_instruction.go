package sealevel

import (
	"bytes"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

const (
	SinglePoolInstrTypeInitializePool = iota
	SinglePoolInstrTypeReplenishPool
	SinglePoolInstrTypeDepositStake
	SinglePoolInstrTypeWithdrawStake
	SinglePoolInstrTypeCreateTokenMetadata
	SinglePoolInstrTypeUpdateTokenMetadata
	SinglePoolInstrTypeInitializePoolOnRamp
)

const PoolMintDecimals = 9

type SinglePoolInstrWithdrawStake struct {
	UserStakeAuthority solana.PublicKey
	TokenAmount        uint64
}

type SinglePoolInstrUpdateTokenMetadata struct {
	Name   string
	Symbol string
	Uri    string
}

func (withdraw *SinglePoolInstrWithdrawStake) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	pk, err := decoder.ReadBytes(solana.PublicKeyLength)
	if err != nil {
		return err
	}
	copy(withdraw.UserStakeAuthority[:], pk)

	withdraw.TokenAmount, err = decoder.ReadUint64(bin.LE)
	return err
}

func (withdraw *SinglePoolInstrWithdrawStake) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteBytes(withdraw.UserStakeAuthority[:], false)
	if err != nil {
		return err
	}
	return encoder.WriteUint64(withdraw.TokenAmount, bin.LE)
}

func (update *SinglePoolInstrUpdateTokenMetadata) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	var err error
	update.Name, err = readBorshString(decoder)
	if err != nil {
		return err
	}
	update.Symbol, err = readBorshString(decoder)
	if err != nil {
		return err
	}
	update.Uri, err = readBorshString(decoder)
	return err
}

func (update *SinglePoolInstrUpdateTokenMetadata) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := writeBorshString(encoder, update.Name)
	if err != nil {
		return err
	}
	err = writeBorshString(encoder, update.Symbol)
	if err != nil {
		return err
	}
	return writeBorshString(encoder, update.Uri)
}

func singlePoolInstrData(instrType byte, payload func(encoder *bin.Encoder) error) []byte {
	buf := new(bytes.Buffer)
	encoder := bin.NewBinEncoder(buf)

	err := encoder.WriteByte(instrType)
	if err != nil {
		panic("shouldn't fail")
	}

	if payload != nil {
		err = payload(encoder)
		if err != nil {
			panic("shouldn't fail")
		}
	}

	return buf.Bytes()
}

// NewInitializePoolInstruction creates and delegates the full account family
// for a validator's pool. The funding transfers must have happened first; see
// InitializeInstructions for the complete sequence.
func NewInitializePoolInstruction(voteAccountAddr solana.PublicKey) *Instruction {
	poolAddr, _ := FindPoolAddress(voteAccountAddr)
	stakeAddr, _ := FindPoolStakeAddress(poolAddr)
	mintAddr, _ := FindPoolMintAddress(poolAddr)
	stakeAuthorityAddr, _ := FindPoolStakeAuthorityAddress(poolAddr)
	mintAuthorityAddr, _ := FindPoolMintAuthorityAddress(poolAddr)

	accountMetas := []AccountMeta{
		{Pubkey: voteAccountAddr},
		{Pubkey: poolAddr, IsWritable: true},
		{Pubkey: stakeAddr, IsWritable: true},
		{Pubkey: mintAddr, IsWritable: true},
		{Pubkey: stakeAuthorityAddr},
		{Pubkey: mintAuthorityAddr},
		{Pubkey: SysvarRentAddr},
		{Pubkey: SysvarClockAddr},
		{Pubkey: SysvarStakeHistoryAddr},
		{Pubkey: StakeProgramConfigAddr},
		{Pubkey: SystemProgramAddr},
		{Pubkey: TokenProgramAddr},
		{Pubkey: StakeProgramAddr},
	}

	data := singlePoolInstrData(SinglePoolInstrTypeInitializePool, nil)
	return &Instruction{Accounts: accountMetas, Data: data, ProgramId: SinglePoolProgramAddr}
}

// InitializeInstructions returns the full transaction body for standing up a
// new pool: rent funding for every derived account, pool initialization, the
// on-ramp, and default token metadata.
func InitializeInstructions(voteAccountAddr solana.PublicKey, payer solana.PublicKey, rent SysvarRent, minimumPoolBalance uint64) []*Instruction {
	poolAddr, _ := FindPoolAddress(voteAccountAddr)
	stakeAddr, _ := FindPoolStakeAddress(poolAddr)
	onRampAddr, _ := FindPoolOnRampAddress(poolAddr)
	mintAddr, _ := FindPoolMintAddress(poolAddr)

	poolRent := rent.MinimumBalance(SinglePoolAccountSize)
	stakeRent := rent.MinimumBalance(StakeStateV2Size)
	mintRent := rent.MinimumBalance(TokenMintSize)

	return []*Instruction{
		newTransferInstruction(payer, poolAddr, poolRent),
		newTransferInstruction(payer, stakeAddr, stakeRent+minimumPoolBalance),
		newTransferInstruction(payer, onRampAddr, stakeRent),
		newTransferInstruction(payer, mintAddr, mintRent),
		NewInitializePoolInstruction(voteAccountAddr),
		NewInitializePoolOnRampInstruction(poolAddr),
		NewCreateTokenMetadataInstruction(poolAddr, payer),
	}
}

// NewReplenishPoolInstruction sweeps free lamports on the pool's stake and
// on-ramp accounts into active delegation. Permissionless.
func NewReplenishPoolInstruction(voteAccountAddr solana.PublicKey) *Instruction {
	poolAddr, _ := FindPoolAddress(voteAccountAddr)
	stakeAddr, _ := FindPoolStakeAddress(poolAddr)
	onRampAddr, _ := FindPoolOnRampAddress(poolAddr)
	stakeAuthorityAddr, _ := FindPoolStakeAuthorityAddress(poolAddr)

	accountMetas := []AccountMeta{
		{Pubkey: voteAccountAddr},
		{Pubkey: poolAddr},
		{Pubkey: stakeAddr, IsWritable: true},
		{Pubkey: onRampAddr, IsWritable: true},
		{Pubkey: stakeAuthorityAddr},
		{Pubkey: SysvarClockAddr},
		{Pubkey: SysvarStakeHistoryAddr},
		{Pubkey: StakeProgramConfigAddr},
		{Pubkey: StakeProgramAddr},
	}

	data := singlePoolInstrData(SinglePoolInstrTypeReplenishPool, nil)
	return &Instruction{Accounts: accountMetas, Data: data, ProgramId: SinglePoolProgramAddr}
}

func NewDepositStakeInstruction(poolAddr solana.PublicKey, userStakeAccount solana.PublicKey, userTokenAccount solana.PublicKey, userLamportAccount solana.PublicKey) *Instruction {
	stakeAddr, _ := FindPoolStakeAddress(poolAddr)
	mintAddr, _ := FindPoolMintAddress(poolAddr)
	stakeAuthorityAddr, _ := FindPoolStakeAuthorityAddress(poolAddr)
	mintAuthorityAddr, _ := FindPoolMintAuthorityAddress(poolAddr)

	accountMetas := []AccountMeta{
		{Pubkey: poolAddr},
		{Pubkey: stakeAddr, IsWritable: true},
		{Pubkey: mintAddr, IsWritable: true},
		{Pubkey: stakeAuthorityAddr},
		{Pubkey: mintAuthorityAddr},
		{Pubkey: userStakeAccount, IsWritable: true},
		{Pubkey: userTokenAccount, IsWritable: true},
		{Pubkey: userLamportAccount, IsWritable: true},
		{Pubkey: SysvarClockAddr},
		{Pubkey: SysvarStakeHistoryAddr},
		{Pubkey: TokenProgramAddr},
		{Pubkey: StakeProgramAddr},
	}

	data := singlePoolInstrData(SinglePoolInstrTypeDepositStake, nil)
	return &Instruction{Accounts: accountMetas, Data: data, ProgramId: SinglePoolProgramAddr}
}

// DepositStakeInstructions hands the user's stake account over to the pool
// authority and then performs the deposit.
func DepositStakeInstructions(poolAddr solana.PublicKey, userStakeAccount solana.PublicKey, userStakeAuthority solana.PublicKey, userTokenAccount solana.PublicKey, userLamportAccount solana.PublicKey) []*Instruction {
	stakeAuthorityAddr, _ := FindPoolStakeAuthorityAddress(poolAddr)

	return []*Instruction{
		newStakeAuthorizeInstruction(userStakeAccount, userStakeAuthority, stakeAuthorityAddr, StakeAuthorizeStaker),
		newStakeAuthorizeInstruction(userStakeAccount, userStakeAuthority, stakeAuthorityAddr, StakeAuthorizeWithdrawer),
		NewDepositStakeInstruction(poolAddr, userStakeAccount, userTokenAccount, userLamportAccount),
	}
}

func NewWithdrawStakeInstruction(poolAddr solana.PublicKey, userStakeAccount solana.PublicKey, userTokenAccount solana.PublicKey, userStakeAuthority solana.PublicKey, tokenAmount uint64) *Instruction {
	stakeAddr, _ := FindPoolStakeAddress(poolAddr)
	mintAddr, _ := FindPoolMintAddress(poolAddr)
	stakeAuthorityAddr, _ := FindPoolStakeAuthorityAddress(poolAddr)
	mintAuthorityAddr, _ := FindPoolMintAuthorityAddress(poolAddr)

	accountMetas := []AccountMeta{
		{Pubkey: poolAddr},
		{Pubkey: stakeAddr, IsWritable: true},
		{Pubkey: mintAddr, IsWritable: true},
		{Pubkey: stakeAuthorityAddr},
		{Pubkey: mintAuthorityAddr},
		{Pubkey: userStakeAccount, IsWritable: true},
		{Pubkey: userTokenAccount, IsWritable: true},
		{Pubkey: SysvarClockAddr},
		{Pubkey: TokenProgramAddr},
		{Pubkey: StakeProgramAddr},
	}

	withdraw := SinglePoolInstrWithdrawStake{UserStakeAuthority: userStakeAuthority, TokenAmount: tokenAmount}
	data := singlePoolInstrData(SinglePoolInstrTypeWithdrawStake, withdraw.MarshalWithEncoder)
	return &Instruction{Accounts: accountMetas, Data: data, ProgramId: SinglePoolProgramAddr}
}

// WithdrawStakeInstructions approves the pool's mint authority to burn the
// user's tokens and then performs the withdrawal into userStakeAccount, which
// must be a blank rent-funded stake account.
func WithdrawStakeInstructions(poolAddr solana.PublicKey, userStakeAccount solana.PublicKey, userTokenAccount solana.PublicKey, userTokenAuthority solana.PublicKey, userStakeAuthority solana.PublicKey, tokenAmount uint64) []*Instruction {
	mintAuthorityAddr, _ := FindPoolMintAuthorityAddress(poolAddr)

	return []*Instruction{
		newTokenApproveInstruction(userTokenAccount, mintAuthorityAddr, userTokenAuthority, tokenAmount),
		NewWithdrawStakeInstruction(poolAddr, userStakeAccount, userTokenAccount, userStakeAuthority, tokenAmount),
	}
}

func NewCreateTokenMetadataInstruction(poolAddr solana.PublicKey, payer solana.PublicKey) *Instruction {
	mintAddr, _ := FindPoolMintAddress(poolAddr)
	mintAuthorityAddr, _ := FindPoolMintAuthorityAddress(poolAddr)
	mplAuthorityAddr, _ := FindPoolMplAuthorityAddress(poolAddr)
	metadataAddr, _ := FindMetadataAddress(mintAddr)

	accountMetas := []AccountMeta{
		{Pubkey: poolAddr},
		{Pubkey: mintAddr},
		{Pubkey: mintAuthorityAddr},
		{Pubkey: mplAuthorityAddr},
		{Pubkey: payer, IsSigner: true, IsWritable: true},
		{Pubkey: metadataAddr, IsWritable: true},
		{Pubkey: MetadataProgramAddr},
		{Pubkey: SystemProgramAddr},
	}

	data := singlePoolInstrData(SinglePoolInstrTypeCreateTokenMetadata, nil)
	return &Instruction{Accounts: accountMetas, Data: data, ProgramId: SinglePoolProgramAddr}
}

func NewUpdateTokenMetadataInstruction(voteAccountAddr solana.PublicKey, authorizedWithdrawer solana.PublicKey, name string, symbol string, uri string) *Instruction {
	poolAddr, _ := FindPoolAddress(voteAccountAddr)
	mintAddr, _ := FindPoolMintAddress(poolAddr)
	mplAuthorityAddr, _ := FindPoolMplAuthorityAddress(poolAddr)
	metadataAddr, _ := FindMetadataAddress(mintAddr)

	accountMetas := []AccountMeta{
		{Pubkey: voteAccountAddr},
		{Pubkey: poolAddr},
		{Pubkey: mplAuthorityAddr},
		{Pubkey: authorizedWithdrawer, IsSigner: true},
		{Pubkey: metadataAddr, IsWritable: true},
		{Pubkey: MetadataProgramAddr},
	}

	update := SinglePoolInstrUpdateTokenMetadata{Name: name, Symbol: symbol, Uri: uri}
	data := singlePoolInstrData(SinglePoolInstrTypeUpdateTokenMetadata, update.MarshalWithEncoder)
	return &Instruction{Accounts: accountMetas, Data: data, ProgramId: SinglePoolProgramAddr}
}

func NewInitializePoolOnRampInstruction(poolAddr solana.PublicKey) *Instruction {
	onRampAddr, _ := FindPoolOnRampAddress(poolAddr)
	stakeAuthorityAddr, _ := FindPoolStakeAuthorityAddress(poolAddr)

	accountMetas := []AccountMeta{
		{Pubkey: poolAddr},
		{Pubkey: onRampAddr, IsWritable: true},
		{Pubkey: stakeAuthorityAddr},
		{Pubkey: SysvarRentAddr},
		{Pubkey: SystemProgramAddr},
		{Pubkey: StakeProgramAddr},
	}

	data := singlePoolInstrData(SinglePoolInstrTypeInitializePoolOnRamp, nil)
	return &Instruction{Accounts: accountMetas, Data: data, ProgramId: SinglePoolProgramAddr}
}

// CreateAndDelegateUserStakeInstructions stands up the wallet's default
// deposit account for a pool and delegates it to the pool's validator. Once
// the delegation activates it can be deposited with DepositStakeInstructions.
func CreateAndDelegateUserStakeInstructions(userWallet solana.PublicKey, voteAccountAddr solana.PublicKey, rent SysvarRent, stakeAmount uint64) ([]*Instruction, error) {
	poolAddr, _ := FindPoolAddress(voteAccountAddr)
	stakeAccount, seed, err := FindDefaultDepositAccountAddressAndSeed(poolAddr, userWallet)
	if err != nil {
		return nil, err
	}

	stakeRent := rent.MinimumBalance(StakeStateV2Size)
	authorized := Authorized{Staker: userWallet, Withdrawer: userWallet}

	return []*Instruction{
		newCreateAccountWithSeedInstruction(userWallet, stakeAccount, userWallet, seed, stakeRent+stakeAmount, StakeStateV2Size, StakeProgramAddr),
		newStakeInitializeInstruction(stakeAccount, authorized, StakeLockup{}),
		newStakeDelegateInstruction(stakeAccount, voteAccountAddr, userWallet),
	}, nil
}

// stake program instruction builders

func stakeInstrData(instrType uint32, payload func(encoder *bin.Encoder) error) []byte {
	buf := new(bytes.Buffer)
	encoder := bin.NewBinEncoder(buf)

	err := encoder.WriteUint32(instrType, bin.LE)
	if err != nil {
		panic("shouldn't fail")
	}

	if payload != nil {
		err = payload(encoder)
		if err != nil {
			panic("shouldn't fail")
		}
	}

	return buf.Bytes()
}

func newStakeInitializeInstruction(stakeAccount solana.PublicKey, authorized Authorized, lockup StakeLockup) *Instruction {
	accountMetas := []AccountMeta{
		{Pubkey: stakeAccount, IsWritable: true},
		{Pubkey: SysvarRentAddr},
	}

	initialize := StakeInstrInitialize{Authorized: authorized, Lockup: lockup}
	data := stakeInstrData(StakeProgramInstrTypeInitialize, initialize.MarshalWithEncoder)
	return &Instruction{Accounts: accountMetas, Data: data, ProgramId: StakeProgramAddr}
}

func newStakeAuthorizeInstruction(stakeAccount solana.PublicKey, authority solana.PublicKey, newAuthority solana.PublicKey, stakeAuthorize uint32) *Instruction {
	accountMetas := []AccountMeta{
		{Pubkey: stakeAccount, IsWritable: true},
		{Pubkey: SysvarClockAddr},
		{Pubkey: authority, IsSigner: true},
	}

	authorize := StakeInstrAuthorize{Pubkey: newAuthority, StakeAuthorize: stakeAuthorize}
	data := stakeInstrData(StakeProgramInstrTypeAuthorize, authorize.MarshalWithEncoder)
	return &Instruction{Accounts: accountMetas, Data: data, ProgramId: StakeProgramAddr}
}

func newStakeDelegateInstruction(stakeAccount solana.PublicKey, voteAccount solana.PublicKey, authority solana.PublicKey) *Instruction {
	accountMetas := []AccountMeta{
		{Pubkey: stakeAccount, IsWritable: true},
		{Pubkey: voteAccount},
		{Pubkey: SysvarClockAddr},
		{Pubkey: SysvarStakeHistoryAddr},
		{Pubkey: StakeProgramConfigAddr},
		{Pubkey: authority, IsSigner: true},
	}

	data := stakeInstrData(StakeProgramInstrTypeDelegateStake, nil)
	return &Instruction{Accounts: accountMetas, Data: data, ProgramId: StakeProgramAddr}
}

func newStakeSplitInstruction(sourceAccount solana.PublicKey, destAccount solana.PublicKey, authority solana.PublicKey, lamports uint64) *Instruction {
	accountMetas := []AccountMeta{
		{Pubkey: sourceAccount, IsWritable: true},
		{Pubkey: destAccount, IsWritable: true},
		{Pubkey: authority, IsSigner: true},
	}

	split := StakeInstrSplit{Lamports: lamports}
	data := stakeInstrData(StakeProgramInstrTypeSplit, split.MarshalWithEncoder)
	return &Instruction{Accounts: accountMetas, Data: data, ProgramId: StakeProgramAddr}
}

func newStakeWithdrawInstruction(stakeAccount solana.PublicKey, recipient solana.PublicKey, withdrawAuthority solana.PublicKey, lamports uint64) *Instruction {
	accountMetas := []AccountMeta{
		{Pubkey: stakeAccount, IsWritable: true},
		{Pubkey: recipient, IsWritable: true},
		{Pubkey: SysvarClockAddr},
		{Pubkey: SysvarStakeHistoryAddr},
		{Pubkey: withdrawAuthority, IsSigner: true},
	}

	withdraw := StakeInstrWithdraw{Lamports: lamports}
	data := stakeInstrData(StakeProgramInstrTypeWithdraw, withdraw.MarshalWithEncoder)
	return &Instruction{Accounts: accountMetas, Data: data, ProgramId: StakeProgramAddr}
}

func newStakeMergeInstruction(destAccount solana.PublicKey, sourceAccount solana.PublicKey, authority solana.PublicKey) *Instruction {
	accountMetas := []AccountMeta{
		{Pubkey: destAccount, IsWritable: true},
		{Pubkey: sourceAccount, IsWritable: true},
		{Pubkey: SysvarClockAddr},
		{Pubkey: SysvarStakeHistoryAddr},
		{Pubkey: authority, IsSigner: true},
	}

	data := stakeInstrData(StakeProgramInstrTypeMerge, nil)
	return &Instruction{Accounts: accountMetas, Data: data, ProgramId: StakeProgramAddr}
}

// token program instruction builders

func tokenInstrData(instrType byte, payload func(encoder *bin.Encoder) error) []byte {
	buf := new(bytes.Buffer)
	encoder := bin.NewBinEncoder(buf)

	err := encoder.WriteByte(instrType)
	if err != nil {
		panic("shouldn't fail")
	}

	if payload != nil {
		err = payload(encoder)
		if err != nil {
			panic("shouldn't fail")
		}
	}

	return buf.Bytes()
}

func newTokenInitializeMintInstruction(mint solana.PublicKey, mintAuthority solana.PublicKey, decimals byte) *Instruction {
	accountMetas := []AccountMeta{
		{Pubkey: mint, IsWritable: true},
		{Pubkey: SysvarRentAddr},
	}

	initMint := TokenInstrInitializeMint{Decimals: decimals, MintAuthority: mintAuthority}
	data := tokenInstrData(TokenProgramInstrTypeInitializeMint, initMint.MarshalWithEncoder)
	return &Instruction{Accounts: accountMetas, Data: data, ProgramId: TokenProgramAddr}
}

func newTokenApproveInstruction(source solana.PublicKey, delegate solana.PublicKey, owner solana.PublicKey, amount uint64) *Instruction {
	accountMetas := []AccountMeta{
		{Pubkey: source, IsWritable: true},
		{Pubkey: delegate},
		{Pubkey: owner, IsSigner: true},
	}

	approve := TokenInstrAmount{Amount: amount}
	data := tokenInstrData(TokenProgramInstrTypeApprove, approve.MarshalWithEncoder)
	return &Instruction{Accounts: accountMetas, Data: data, ProgramId: TokenProgramAddr}
}

func newTokenMintToInstruction(mint solana.PublicKey, dest solana.PublicKey, mintAuthority solana.PublicKey, amount uint64) *Instruction {
	accountMetas := []AccountMeta{
		{Pubkey: mint, IsWritable: true},
		{Pubkey: dest, IsWritable: true},
		{Pubkey: mintAuthority, IsSigner: true},
	}

	mintTo := TokenInstrAmount{Amount: amount}
	data := tokenInstrData(TokenProgramInstrTypeMintTo, mintTo.MarshalWithEncoder)
	return &Instruction{Accounts: accountMetas, Data: data, ProgramId: TokenProgramAddr}
}

func newTokenBurnInstruction(source solana.PublicKey, mint solana.PublicKey, authority solana.PublicKey, amount uint64) *Instruction {
	accountMetas := []AccountMeta{
		{Pubkey: source, IsWritable: true},
		{Pubkey: mint, IsWritable: true},
		{Pubkey: authority, IsSigner: true},
	}

	burn := TokenInstrAmount{Amount: amount}
	data := tokenInstrData(TokenProgramInstrTypeBurn, burn.MarshalWithEncoder)
	return &Instruction{Accounts: accountMetas, Data: data, ProgramId: TokenProgramAddr}
}

// metadata program instruction builders

func newCreateMetadataAccountInstruction(metadata solana.PublicKey, mint solana.PublicKey, mintAuthority solana.PublicKey, payer solana.PublicKey, updateAuthority solana.PublicKey, name string, symbol string, uri string) *Instruction {
	accountMetas := []AccountMeta{
		{Pubkey: metadata, IsWritable: true},
		{Pubkey: mint},
		{Pubkey: mintAuthority, IsSigner: true},
		{Pubkey: payer, IsSigner: true, IsWritable: true},
		{Pubkey: updateAuthority},
		{Pubkey: SystemProgramAddr},
	}

	create := MetadataInstrCreateMetadataAccountV3{Data: MetadataData{Name: name, Symbol: symbol, Uri: uri}, IsMutable: true}
	data := tokenInstrData(MetadataProgramInstrTypeCreateMetadataAccountV3, create.MarshalWithEncoder)
	return &Instruction{Accounts: accountMetas, Data: data, ProgramId: MetadataProgramAddr}
}

func newUpdateMetadataAccountInstruction(metadata solana.PublicKey, updateAuthority solana.PublicKey, name string, symbol string, uri string) *Instruction {
	accountMetas := []AccountMeta{
		{Pubkey: metadata, IsWritable: true},
		{Pubkey: updateAuthority, IsSigner: true},
	}

	update := MetadataInstrUpdateMetadataAccountV2{Data: &MetadataData{Name: name, Symbol: symbol, Uri: uri}}
	data := tokenInstrData(MetadataProgramInstrTypeUpdateMetadataAccountV2, update.MarshalWithEncoder)
	return &Instruction{Accounts: accountMetas, Data: data, ProgramId: MetadataProgramAddr}
}

func newCreateAccountWithSeedInstruction(from solana.PublicKey, to solana.PublicKey, base solana.PublicKey, seed string, lamports uint64, space uint64, owner solana.PublicKey) *Instruction {
	accountMetas := []AccountMeta{
		{Pubkey: from, IsSigner: true, IsWritable: true},
		{Pubkey: to, IsWritable: true},
	}

	buf := new(bytes.Buffer)
	encoder := bin.NewBinEncoder(buf)

	err := encoder.WriteUint32(SystemProgramInstrTypeCreateAccountWithSeed, bin.LE)
	if err != nil {
		panic("shouldn't fail")
	}

	createInstr := SystemInstrCreateAccountWithSeed{Base: base, Seed: seed, Lamports: lamports, Space: space, Owner: owner}
	err = createInstr.MarshalWithEncoder(encoder)
	if err != nil {
		panic("shouldn't fail")
	}

	return &Instruction{Accounts: accountMetas, Data: buf.Bytes(), ProgramId: SystemProgramAddr}
}
