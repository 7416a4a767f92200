package sealevel

import (
	"bytes"
	"fmt"
	"math"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/svsp/pkg/accounts"
	"go.firedancer.io/svsp/pkg/base58"
)

const SysvarRentAddrStr = "SysvarRent111111111111111111111111111111111"

var SysvarRentAddr = solana.PublicKey(base58.MustDecodeFromString(SysvarRentAddrStr))

const SysvarRentStructLen = 17

const rentAccountStorageOverhead = 128

type SysvarRent struct {
	LamportsPerUint8Year uint64
	ExemptionThreshold   float64
	BurnPercent          byte
}

func (sr *SysvarRent) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	lamportsPerUint8Year, err := decoder.ReadUint64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read LamportsPerUint8Year when decoding SysvarRent: %w", err)
	}
	sr.LamportsPerUint8Year = lamportsPerUint8Year

	exemptionThreshold, err := decoder.ReadFloat64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read ExemptionThreshold when decoding SysvarRent: %w", err)
	}
	sr.ExemptionThreshold = exemptionThreshold

	burnPercent, err := decoder.ReadByte()
	if err != nil {
		return fmt.Errorf("failed to read BurnPercent when decoding SysvarRent: %w", err)
	}
	sr.BurnPercent = burnPercent

	return
}

func (sr *SysvarRent) MustUnmarshalWithDecoder(decoder *bin.Decoder) {
	err := sr.UnmarshalWithDecoder(decoder)
	if err != nil {
		panic(err.Error())
	}
}

func (sr *SysvarRent) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteUint64(sr.LamportsPerUint8Year, bin.LE)
	if err != nil {
		return err
	}
	err = encoder.WriteFloat64(sr.ExemptionThreshold, bin.LE)
	if err != nil {
		return err
	}
	return encoder.WriteByte(sr.BurnPercent)
}

func (sr *SysvarRent) MinimumBalance(dataLen uint64) uint64 {
	bytes := dataLen + rentAccountStorageOverhead
	lamportsPerYear := float64(bytes * sr.LamportsPerUint8Year)
	return uint64(math.Round(lamportsPerYear * sr.ExemptionThreshold))
}

func (sr *SysvarRent) IsExempt(lamports uint64, dataLen uint64) bool {
	return lamports >= sr.MinimumBalance(dataLen)
}

func WriteRentSysvar(accts *accounts.Accounts, rent SysvarRent) {
	rentAcct, err := (*accts).GetAccount(&SysvarRentAddr)
	if err != nil {
		panic("failed to read rent sysvar account")
	}

	buf := new(bytes.Buffer)
	enc := bin.NewBinEncoder(buf)

	err = rent.MarshalWithEncoder(enc)
	if err != nil {
		panic("failed to marshal rent sysvar")
	}

	rentAcct.SetData(buf.Bytes())
}

func ReadRentSysvar(accts *accounts.Accounts) SysvarRent {
	rentAcct, err := (*accts).GetAccount(&SysvarRentAddr)
	if err != nil {
		panic("failed to read rent sysvar account")
	}

	dec := bin.NewBinDecoder(rentAcct.Data)

	var rent SysvarRent
	rent.MustUnmarshalWithDecoder(dec)

	return rent
}
