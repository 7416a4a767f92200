package sealevel

import (
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
)

func TestFindPoolAddresses_DeterministicAndDistinct(t *testing.T) {
	voteAddr := testRandomPubkey(t)

	poolAddr, _ := FindPoolAddress(voteAddr)
	poolAddrAgain, _ := FindPoolAddress(voteAddr)
	assert.Equal(t, poolAddr, poolAddrAgain)

	stakeAddr, _ := FindPoolStakeAddress(poolAddr)
	onRampAddr, _ := FindPoolOnRampAddress(poolAddr)
	mintAddr, _ := FindPoolMintAddress(poolAddr)
	stakeAuthorityAddr, _ := FindPoolStakeAuthorityAddress(poolAddr)
	mintAuthorityAddr, _ := FindPoolMintAuthorityAddress(poolAddr)
	mplAuthorityAddr, _ := FindPoolMplAuthorityAddress(poolAddr)

	family := []solana.PublicKey{poolAddr, stakeAddr, onRampAddr, mintAddr, stakeAuthorityAddr, mintAuthorityAddr, mplAuthorityAddr}
	seen := make(map[solana.PublicKey]bool)
	for _, addr := range family {
		assert.False(t, seen[addr], "derived address family must not collide")
		seen[addr] = true
	}

	// a different validator derives an entirely different family
	otherPoolAddr, _ := FindPoolAddress(testRandomPubkey(t))
	assert.NotEqual(t, poolAddr, otherPoolAddr)
}

func TestFindDefaultDepositAccountAddressAndSeed(t *testing.T) {
	voteAddr := testRandomPubkey(t)
	poolAddr, _ := FindPoolAddress(voteAddr)
	walletAddr := testRandomPubkey(t)

	depositAddr, seed, err := FindDefaultDepositAccountAddressAndSeed(poolAddr, walletAddr)
	assert.NoError(t, err)

	// the seed fills the 32 byte limit exactly
	assert.Equal(t, 32, len(seed))
	assert.True(t, strings.HasPrefix(seed, DefaultDepositSeedPrefix))

	// the address is the wallet's seed derivation under the stake program
	derivedAddr, err := solana.CreateWithSeed(walletAddr, seed, StakeProgramAddr)
	assert.NoError(t, err)
	assert.Equal(t, derivedAddr, depositAddr)

	// per wallet and per pool
	otherWalletAddr, _, err := FindDefaultDepositAccountAddressAndSeed(poolAddr, testRandomPubkey(t))
	assert.NoError(t, err)
	assert.NotEqual(t, depositAddr, otherWalletAddr)
}
