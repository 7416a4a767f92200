package sealevel

import (
	"bytes"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/svsp/pkg/features"
)

const SinglePoolAccountSize = 33

const (
	SinglePoolAccountTypeUninitialized = iota
	SinglePoolAccountTypePool
)

// SinglePool is the canonical record for one validator's pool: a type tag
// plus the vote account the pool is permanently bound to.
type SinglePool struct {
	AccountType        byte
	VoteAccountAddress solana.PublicKey
}

func (pool *SinglePool) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	var err error
	pool.AccountType, err = decoder.ReadByte()
	if err != nil {
		return err
	}

	voteAddr, err := decoder.ReadBytes(solana.PublicKeyLength)
	if err != nil {
		return err
	}
	copy(pool.VoteAccountAddress[:], voteAddr)

	return nil
}

func (pool *SinglePool) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteByte(pool.AccountType)
	if err != nil {
		return err
	}
	return encoder.WriteBytes(pool.VoteAccountAddress[:], false)
}

// unmarshalPoolFromAccount loads and fully validates a pool record: the
// account must be program owned, initialized, and sit at the address derived
// from its own recorded vote account.
func unmarshalPoolFromAccount(acct *BorrowedAccount) (*SinglePool, error) {
	if acct.Owner() != SinglePoolProgramAddr {
		return nil, PoolErrInvalidPoolAccount
	}
	if len(acct.Data()) != SinglePoolAccountSize {
		return nil, PoolErrInvalidPoolAccount
	}

	pool := new(SinglePool)
	decoder := bin.NewBinDecoder(acct.Data())
	err := pool.UnmarshalWithDecoder(decoder)
	if err != nil {
		return nil, PoolErrInvalidPoolAccount
	}

	if pool.AccountType != SinglePoolAccountTypePool {
		return nil, PoolErrInvalidPoolAccount
	}

	derivedAddr, _ := FindPoolAddress(pool.VoteAccountAddress)
	if acct.Key() != derivedAddr {
		return nil, PoolErrInvalidPoolAccount
	}

	return pool, nil
}

func setPoolState(acct *BorrowedAccount, pool *SinglePool, f features.Features) error {
	buf := new(bytes.Buffer)
	encoder := bin.NewBinEncoder(buf)

	err := pool.MarshalWithEncoder(encoder)
	if err != nil {
		return err
	}

	return acct.SetData(f, buf.Bytes())
}
