package sealevel

import (
	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/svsp/pkg/base58"
)

// seed prefixes for the pool's derived account family
const (
	PoolSeedPrefix               = "pool"
	PoolStakeSeedPrefix          = "stake"
	PoolOnRampSeedPrefix         = "onramp"
	PoolMintSeedPrefix           = "mint"
	PoolStakeAuthoritySeedPrefix = "stake_authority"
	PoolMintAuthoritySeedPrefix  = "mint_authority"
	PoolMplAuthoritySeedPrefix   = "mpl_authority"
	DefaultDepositSeedPrefix     = "svsp"
)

func findPoolDerivedAddress(prefix string, key solana.PublicKey) (solana.PublicKey, byte) {
	addr, bump, err := solana.FindProgramAddress([][]byte{[]byte(prefix), key[:]}, SinglePoolProgramAddr)
	if err != nil {
		panic("no viable program address bump")
	}
	return addr, bump
}

// FindPoolAddress derives the canonical pool account for a vote account. The
// derivation is the sole source of pool identity: one pool per validator.
func FindPoolAddress(voteAccountAddr solana.PublicKey) (solana.PublicKey, byte) {
	return findPoolDerivedAddress(PoolSeedPrefix, voteAccountAddr)
}

func FindPoolStakeAddress(poolAddr solana.PublicKey) (solana.PublicKey, byte) {
	return findPoolDerivedAddress(PoolStakeSeedPrefix, poolAddr)
}

func FindPoolOnRampAddress(poolAddr solana.PublicKey) (solana.PublicKey, byte) {
	return findPoolDerivedAddress(PoolOnRampSeedPrefix, poolAddr)
}

func FindPoolMintAddress(poolAddr solana.PublicKey) (solana.PublicKey, byte) {
	return findPoolDerivedAddress(PoolMintSeedPrefix, poolAddr)
}

func FindPoolStakeAuthorityAddress(poolAddr solana.PublicKey) (solana.PublicKey, byte) {
	return findPoolDerivedAddress(PoolStakeAuthoritySeedPrefix, poolAddr)
}

func FindPoolMintAuthorityAddress(poolAddr solana.PublicKey) (solana.PublicKey, byte) {
	return findPoolDerivedAddress(PoolMintAuthoritySeedPrefix, poolAddr)
}

func FindPoolMplAuthorityAddress(poolAddr solana.PublicKey) (solana.PublicKey, byte) {
	return findPoolDerivedAddress(PoolMplAuthoritySeedPrefix, poolAddr)
}

// FindDefaultDepositAccountAddressAndSeed derives the well-known stake account
// a wallet uses to stage a deposit for a given pool. The seed keeps within the
// 32 byte limit by truncating the pool address to its first 28 characters.
func FindDefaultDepositAccountAddressAndSeed(poolAddr solana.PublicKey, userWallet solana.PublicKey) (solana.PublicKey, string, error) {
	seed := DefaultDepositSeedPrefix + base58.EncodeToString(poolAddr)[:28]
	addr, err := solana.CreateWithSeed(userWallet, seed, StakeProgramAddr)
	if err != nil {
		return solana.PublicKey{}, "", err
	}
	return addr, seed, nil
}
