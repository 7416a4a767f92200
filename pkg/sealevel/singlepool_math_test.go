package sealevel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateDepositAmount_FirstDepositMintsOneToOne(t *testing.T) {
	tokens, err := calculateDepositAmount(2000000000, 0, 0)
	assert.NoError(t, err)
	assert.Equal(t, uint64(2000000000), tokens)
}

func TestCalculateDepositAmount_AtPar(t *testing.T) {
	// supply equals accounted stake, so the price is exactly one
	tokens, err := calculateDepositAmount(1500000000, 2000000000, 2000000000)
	assert.NoError(t, err)
	assert.Equal(t, uint64(1500000000), tokens)
}

func TestCalculateDepositAmount_AfterAppreciation(t *testing.T) {
	// stake doubled against the supply, so a deposit buys half as many tokens
	tokens, err := calculateDepositAmount(1000000000, 2000000000, 1000000000)
	assert.NoError(t, err)
	assert.Equal(t, uint64(500000000), tokens)
}

func TestCalculateDepositAmount_RoundsDown(t *testing.T) {
	tokens, err := calculateDepositAmount(7, 3, 10)
	assert.NoError(t, err)
	assert.Equal(t, uint64(23), tokens) // floor(70/3)
}

func TestCalculateDepositAmount_ZeroStakeWithSupply(t *testing.T) {
	_, err := calculateDepositAmount(1, 0, 1000)
	assert.Equal(t, PoolErrUnexpectedMathError, err)
}

func TestCalculateWithdrawAmount_FullSupplyRedeemsAllStake(t *testing.T) {
	lamports, err := calculateWithdrawAmount(2000000000, 3000000000, 2000000000)
	assert.NoError(t, err)
	assert.Equal(t, uint64(3000000000), lamports)
}

func TestCalculateWithdrawAmount_AfterAppreciation(t *testing.T) {
	// a deposit followed by a reward: burning the original tokens returns
	// the deposit plus its share of the reward
	deposit := uint64(2000000000)
	reward := uint64(1000000000)

	tokens, err := calculateDepositAmount(deposit, 0, 0)
	assert.NoError(t, err)
	assert.Equal(t, deposit, tokens)

	lamports, err := calculateWithdrawAmount(tokens, deposit+reward, tokens)
	assert.NoError(t, err)
	assert.Equal(t, deposit+reward, lamports)
}

func TestCalculateWithdrawAmount_RoundsDown(t *testing.T) {
	lamports, err := calculateWithdrawAmount(1000000000, 4500000000, 3500000000)
	assert.NoError(t, err)
	assert.Equal(t, uint64(1285714285), lamports)
}

func TestCalculateWithdrawAmount_ZeroSupply(t *testing.T) {
	_, err := calculateWithdrawAmount(1, 1000, 0)
	assert.Equal(t, PoolErrUnexpectedMathError, err)
}

func TestPoolShareMath_RoundTripNeverProfits(t *testing.T) {
	// depositing and immediately withdrawing can round down twice but never
	// return more than was put in
	stakes := []uint64{1, 999, 1000000007, 3333333333}
	supplies := []uint64{1, 1000, 999999937, 2222222221}

	for _, stake := range stakes {
		for _, supply := range supplies {
			deposit := uint64(1234567)

			tokens, err := calculateDepositAmount(deposit, stake, supply)
			assert.NoError(t, err)

			if tokens == 0 {
				continue
			}

			lamports, err := calculateWithdrawAmount(tokens, stake+deposit, supply+tokens)
			assert.NoError(t, err)
			assert.LessOrEqual(t, lamports, deposit)
		}
	}
}
