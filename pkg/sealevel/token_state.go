package sealevel

import (
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

const TokenMintSize = 82
const TokenAccountSize = 165

const (
	TokenAccountStateUninitialized = iota
	TokenAccountStateInitialized
	TokenAccountStateFrozen
)

// COptionPubkey is the 36 byte optional pubkey layout used inside token
// account state.
type COptionPubkey struct {
	IsSome bool
	Pubkey solana.PublicKey
}

type TokenMint struct {
	MintAuthority   COptionPubkey
	Supply          uint64
	Decimals        byte
	IsInitialized   bool
	FreezeAuthority COptionPubkey
}

type TokenAccount struct {
	Mint            solana.PublicKey
	Owner           solana.PublicKey
	Amount          uint64
	Delegate        COptionPubkey
	State           byte
	IsNative        bool
	NativeReserve   uint64
	DelegatedAmount uint64
	CloseAuthority  COptionPubkey
}

func (opt *COptionPubkey) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	tag, err := decoder.ReadUint32(bin.LE)
	if err != nil {
		return err
	}

	switch tag {
	case 0:
		opt.IsSome = false
	case 1:
		opt.IsSome = true
	default:
		return InstrErrInvalidAccountData
	}

	pk, err := decoder.ReadBytes(solana.PublicKeyLength)
	if err != nil {
		return err
	}
	if opt.IsSome {
		copy(opt.Pubkey[:], pk)
	}
	return nil
}

func (opt *COptionPubkey) MarshalWithEncoder(encoder *bin.Encoder) error {
	var tag uint32
	var pubkey solana.PublicKey
	if opt.IsSome {
		tag = 1
		pubkey = opt.Pubkey
	}

	err := encoder.WriteUint32(tag, bin.LE)
	if err != nil {
		return err
	}
	return encoder.WriteBytes(pubkey[:], false)
}

func (mint *TokenMint) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	err := mint.MintAuthority.UnmarshalWithDecoder(decoder)
	if err != nil {
		return err
	}

	mint.Supply, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return err
	}

	mint.Decimals, err = decoder.ReadByte()
	if err != nil {
		return err
	}

	mint.IsInitialized, err = decoder.ReadBool()
	if err != nil {
		return err
	}

	return mint.FreezeAuthority.UnmarshalWithDecoder(decoder)
}

func (mint *TokenMint) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := mint.MintAuthority.MarshalWithEncoder(encoder)
	if err != nil {
		return err
	}

	err = encoder.WriteUint64(mint.Supply, bin.LE)
	if err != nil {
		return err
	}

	err = encoder.WriteByte(mint.Decimals)
	if err != nil {
		return err
	}

	err = encoder.WriteBool(mint.IsInitialized)
	if err != nil {
		return err
	}

	return mint.FreezeAuthority.MarshalWithEncoder(encoder)
}

func (tokenAcct *TokenAccount) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	mint, err := decoder.ReadBytes(solana.PublicKeyLength)
	if err != nil {
		return err
	}
	copy(tokenAcct.Mint[:], mint)

	owner, err := decoder.ReadBytes(solana.PublicKeyLength)
	if err != nil {
		return err
	}
	copy(tokenAcct.Owner[:], owner)

	tokenAcct.Amount, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return err
	}

	err = tokenAcct.Delegate.UnmarshalWithDecoder(decoder)
	if err != nil {
		return err
	}

	tokenAcct.State, err = decoder.ReadByte()
	if err != nil {
		return err
	}

	isNativeTag, err := decoder.ReadUint32(bin.LE)
	if err != nil {
		return err
	}
	tokenAcct.IsNative = isNativeTag == 1

	tokenAcct.NativeReserve, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return err
	}

	tokenAcct.DelegatedAmount, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return err
	}

	return tokenAcct.CloseAuthority.UnmarshalWithDecoder(decoder)
}

func (tokenAcct *TokenAccount) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteBytes(tokenAcct.Mint[:], false)
	if err != nil {
		return err
	}

	err = encoder.WriteBytes(tokenAcct.Owner[:], false)
	if err != nil {
		return err
	}

	err = encoder.WriteUint64(tokenAcct.Amount, bin.LE)
	if err != nil {
		return err
	}

	err = tokenAcct.Delegate.MarshalWithEncoder(encoder)
	if err != nil {
		return err
	}

	err = encoder.WriteByte(tokenAcct.State)
	if err != nil {
		return err
	}

	var isNativeTag uint32
	if tokenAcct.IsNative {
		isNativeTag = 1
	}
	err = encoder.WriteUint32(isNativeTag, bin.LE)
	if err != nil {
		return err
	}

	err = encoder.WriteUint64(tokenAcct.NativeReserve, bin.LE)
	if err != nil {
		return err
	}

	err = encoder.WriteUint64(tokenAcct.DelegatedAmount, bin.LE)
	if err != nil {
		return err
	}

	return tokenAcct.CloseAuthority.MarshalWithEncoder(encoder)
}

func unmarshalTokenMint(data []byte) (*TokenMint, error) {
	if len(data) != TokenMintSize {
		return nil, InstrErrInvalidAccountData
	}

	mint := new(TokenMint)
	decoder := bin.NewBinDecoder(data)

	err := mint.UnmarshalWithDecoder(decoder)
	if err != nil {
		return nil, InstrErrInvalidAccountData
	}
	return mint, nil
}

func unmarshalTokenAccount(data []byte) (*TokenAccount, error) {
	if len(data) != TokenAccountSize {
		return nil, InstrErrInvalidAccountData
	}

	tokenAcct := new(TokenAccount)
	decoder := bin.NewBinDecoder(data)

	err := tokenAcct.UnmarshalWithDecoder(decoder)
	if err != nil {
		return nil, InstrErrInvalidAccountData
	}
	return tokenAcct, nil
}
