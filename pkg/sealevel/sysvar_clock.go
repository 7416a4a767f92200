package sealevel

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/svsp/pkg/accounts"
	"go.firedancer.io/svsp/pkg/base58"
)

const SysvarClockAddrStr = "SysvarC1ock11111111111111111111111111111111"

var SysvarClockAddr = solana.PublicKey(base58.MustDecodeFromString(SysvarClockAddrStr))

const SysvarClockStructLen = 40

type SysvarClock struct {
	Slot                uint64
	EpochStartTimestamp int64
	Epoch               uint64
	LeaderScheduleEpoch uint64
	UnixTimestamp       int64
}

func (sc *SysvarClock) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	slot, err := decoder.ReadUint64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read Slot when decoding SysvarClock: %w", err)
	}
	sc.Slot = slot

	epochStartTimestamp, err := decoder.ReadInt64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read EpochStartTimestamp when decoding SysvarClock: %w", err)
	}
	sc.EpochStartTimestamp = epochStartTimestamp

	epoch, err := decoder.ReadUint64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read Epoch when decoding SysvarClock: %w", err)
	}
	sc.Epoch = epoch

	leaderScheduleEpoch, err := decoder.ReadUint64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read LeaderScheduleEpoch when decoding SysvarClock: %w", err)
	}
	sc.LeaderScheduleEpoch = leaderScheduleEpoch

	unixTimestamp, err := decoder.ReadInt64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read UnixTimestamp when decoding SysvarClock: %w", err)
	}
	sc.UnixTimestamp = unixTimestamp
	return
}

func (sc *SysvarClock) MustUnmarshalWithDecoder(decoder *bin.Decoder) {
	err := sc.UnmarshalWithDecoder(decoder)
	if err != nil {
		panic(err.Error())
	}
}

func (sc *SysvarClock) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteUint64(sc.Slot, bin.LE)
	if err != nil {
		return err
	}
	err = encoder.WriteInt64(sc.EpochStartTimestamp, bin.LE)
	if err != nil {
		return err
	}
	err = encoder.WriteUint64(sc.Epoch, bin.LE)
	if err != nil {
		return err
	}
	err = encoder.WriteUint64(sc.LeaderScheduleEpoch, bin.LE)
	if err != nil {
		return err
	}
	return encoder.WriteInt64(sc.UnixTimestamp, bin.LE)
}

func WriteClockSysvar(accts *accounts.Accounts, clock SysvarClock) {
	clockAccount, err := (*accts).GetAccount(&SysvarClockAddr)
	if err != nil {
		panic("failed to read clock sysvar account")
	}

	buf := new(bytes.Buffer)
	enc := bin.NewBinEncoder(buf)

	err = clock.MarshalWithEncoder(enc)
	if err != nil {
		panic("failed to marshal clock sysvar")
	}

	clockAccount.SetData(buf.Bytes())
}

func ReadClockSysvar(accts *accounts.Accounts) SysvarClock {
	clockAccount, err := (*accts).GetAccount(&SysvarClockAddr)
	if err != nil {
		panic("failed to read clock sysvar account")
	}

	dec := bin.NewBinDecoder(clockAccount.Data)

	var clock SysvarClock
	clock.MustUnmarshalWithDecoder(dec)
	return clock
}
