package sealevel

import (
	"bytes"
	"math"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/svsp/pkg/features"
)

const StakeStateV2Size = 200

const DefaultWarmupCooldownRate = 0.25

type Authorized struct {
	Staker     solana.PublicKey
	Withdrawer solana.PublicKey
}

type StakeLockup struct {
	UnixTimeStamp uint64
	Epoch         uint64
	Custodian     solana.PublicKey
}

type Meta struct {
	RentExemptReserve uint64
	Authorized        Authorized
	Lockup            StakeLockup
}

type Delegation struct {
	VoterPubkey        solana.PublicKey
	Stake              uint64
	ActivationEpoch    uint64
	DeactivationEpoch  uint64
	WarmupCooldownRate float64
}

type StakeFlags struct {
	Bits byte
}

type Stake struct {
	Delegation      Delegation
	CreditsObserved uint64
}

const (
	StakeStateV2StatusUninitialized = iota
	StakeStateV2StatusInitialized
	StakeStateV2StatusStake
	StakeStateV2StatusRewardsPool
)

type StakeStateV2Initialized struct {
	Meta Meta
}
type StakeStateV2Stake struct {
	Meta       Meta
	Stake      Stake
	StakeFlags StakeFlags
}

type StakeStateV2 struct {
	Status      uint32
	Initialized StakeStateV2Initialized
	Stake       StakeStateV2Stake
}

func (authorized *Authorized) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	pk, err := decoder.ReadBytes(solana.PublicKeyLength)
	if err != nil {
		return err
	}
	copy(authorized.Staker[:], pk)

	pk, err = decoder.ReadBytes(solana.PublicKeyLength)
	if err != nil {
		return err
	}
	copy(authorized.Withdrawer[:], pk)
	return nil
}

func (authorized *Authorized) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteBytes(authorized.Staker[:], false)
	if err != nil {
		return err
	}
	return encoder.WriteBytes(authorized.Withdrawer[:], false)
}

func (lockup *StakeLockup) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	var err error
	lockup.UnixTimeStamp, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return err
	}

	lockup.Epoch, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return err
	}

	pk, err := decoder.ReadBytes(solana.PublicKeyLength)
	if err != nil {
		return err
	}
	copy(lockup.Custodian[:], pk)

	return nil
}

func (lockup *StakeLockup) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteUint64(lockup.UnixTimeStamp, bin.LE)
	if err != nil {
		return err
	}
	err = encoder.WriteUint64(lockup.Epoch, bin.LE)
	if err != nil {
		return err
	}
	return encoder.WriteBytes(lockup.Custodian[:], false)
}

func (meta *Meta) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	var err error
	meta.RentExemptReserve, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return err
	}

	err = meta.Authorized.UnmarshalWithDecoder(decoder)
	if err != nil {
		return err
	}

	err = meta.Lockup.UnmarshalWithDecoder(decoder)
	return err
}

func (meta *Meta) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteUint64(meta.RentExemptReserve, bin.LE)
	if err != nil {
		return err
	}
	err = meta.Authorized.MarshalWithEncoder(encoder)
	if err != nil {
		return err
	}
	return meta.Lockup.MarshalWithEncoder(encoder)
}

func (delegation *Delegation) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	voterPubkey, err := decoder.ReadBytes(solana.PublicKeyLength)
	if err != nil {
		return err
	}
	copy(delegation.VoterPubkey[:], voterPubkey)

	delegation.Stake, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return err
	}

	delegation.ActivationEpoch, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return err
	}

	delegation.DeactivationEpoch, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return err
	}

	delegation.WarmupCooldownRate, err = decoder.ReadFloat64(bin.LE)
	return err
}

func (delegation *Delegation) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteBytes(delegation.VoterPubkey[:], false)
	if err != nil {
		return err
	}
	err = encoder.WriteUint64(delegation.Stake, bin.LE)
	if err != nil {
		return err
	}
	err = encoder.WriteUint64(delegation.ActivationEpoch, bin.LE)
	if err != nil {
		return err
	}
	err = encoder.WriteUint64(delegation.DeactivationEpoch, bin.LE)
	if err != nil {
		return err
	}
	return encoder.WriteFloat64(delegation.WarmupCooldownRate, bin.LE)
}

// IsFullyActive reports whether the delegation finished warming up and has
// not begun deactivating as of the given clock epoch.
func (delegation *Delegation) IsFullyActive(clock *SysvarClock) bool {
	return delegation.ActivationEpoch < clock.Epoch && delegation.DeactivationEpoch == math.MaxUint64
}

func (delegation *Delegation) IsBootstrap() bool {
	return delegation.ActivationEpoch == math.MaxUint64
}

func (stakeFlags *StakeFlags) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	var err error
	stakeFlags.Bits, err = decoder.ReadByte()
	return err
}

func (stakeFlags *StakeFlags) MarshalWithEncoder(encoder *bin.Encoder) error {
	return encoder.WriteByte(stakeFlags.Bits)
}

func (initialized *StakeStateV2Initialized) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	err := initialized.Meta.UnmarshalWithDecoder(decoder)
	return err
}

func (initialized *StakeStateV2Initialized) MarshalWithEncoder(encoder *bin.Encoder) error {
	return initialized.Meta.MarshalWithEncoder(encoder)
}

func (stake *Stake) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	err := stake.Delegation.UnmarshalWithDecoder(decoder)
	if err != nil {
		return err
	}

	stake.CreditsObserved, err = decoder.ReadUint64(bin.LE)
	return err
}

func (stake *Stake) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := stake.Delegation.MarshalWithEncoder(encoder)
	if err != nil {
		return err
	}
	return encoder.WriteUint64(stake.CreditsObserved, bin.LE)
}

func (stake *StakeStateV2Stake) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	err := stake.Meta.UnmarshalWithDecoder(decoder)
	if err != nil {
		return err
	}

	err = stake.Stake.UnmarshalWithDecoder(decoder)
	if err != nil {
		return err
	}

	err = stake.StakeFlags.UnmarshalWithDecoder(decoder)
	return err
}

func (stake *StakeStateV2Stake) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := stake.Meta.MarshalWithEncoder(encoder)
	if err != nil {
		return err
	}
	err = stake.Stake.MarshalWithEncoder(encoder)
	if err != nil {
		return err
	}
	return stake.StakeFlags.MarshalWithEncoder(encoder)
}

func (state *StakeStateV2) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	status, err := decoder.ReadUint32(bin.LE)
	if err != nil {
		return err
	}
	state.Status = status

	switch status {
	case StakeStateV2StatusUninitialized:
		{
			// nothing to deserialize
		}

	case StakeStateV2StatusInitialized:
		{
			err = state.Initialized.UnmarshalWithDecoder(decoder)
		}

	case StakeStateV2StatusStake:
		{
			err = state.Stake.UnmarshalWithDecoder(decoder)
		}

	case StakeStateV2StatusRewardsPool:
		{
			// nothing to deserialize
		}

	default:
		{
			err = InstrErrInvalidInstructionData
		}
	}

	return err
}

func (state *StakeStateV2) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteUint32(state.Status, bin.LE)
	if err != nil {
		return err
	}

	switch state.Status {
	case StakeStateV2StatusUninitialized:
		{
			// nothing to serialize
		}

	case StakeStateV2StatusInitialized:
		{
			err = state.Initialized.MarshalWithEncoder(encoder)
		}

	case StakeStateV2StatusStake:
		{
			err = state.Stake.MarshalWithEncoder(encoder)
		}

	case StakeStateV2StatusRewardsPool:
		{
			// nothing to serialize
		}

	default:
		{
			err = InstrErrInvalidInstructionData
		}
	}

	return err
}

func unmarshalStakeState(data []byte) (*StakeStateV2, error) {
	if len(data) != StakeStateV2Size {
		return nil, InstrErrInvalidAccountData
	}

	state := new(StakeStateV2)
	decoder := bin.NewBinDecoder(data)

	err := state.UnmarshalWithDecoder(decoder)
	if err != nil {
		return nil, InstrErrInvalidAccountData
	}
	return state, nil
}

// setStakeAccountState serializes into the account's fixed 200 byte buffer.
func setStakeAccountState(acct *BorrowedAccount, state *StakeStateV2, f features.Features) error {
	if len(acct.Data()) != StakeStateV2Size {
		return InstrErrAccountDataTooSmall
	}

	buf := new(bytes.Buffer)
	encoder := bin.NewBinEncoder(buf)

	err := state.MarshalWithEncoder(encoder)
	if err != nil {
		return err
	}

	stateBytes := make([]byte, StakeStateV2Size)
	copy(stateBytes, buf.Bytes())

	return acct.SetData(f, stateBytes)
}
