package sealevel

import (
	"github.com/ryanavella/wide"
	"go.firedancer.io/svsp/pkg/safemath"
)

// calculateDepositAmount converts newly contributed stake into pool tokens at
// the pre-deposit share price: floor(stakeAdded * supply / totalStake). The
// first deposit into an empty pool mints one token unit per lamport.
func calculateDepositAmount(stakeAdded uint64, preTotalStake uint64, preTokenSupply uint64) (uint64, error) {
	if preTokenSupply == 0 {
		return stakeAdded, nil
	}

	numerator := safemath.MulU128(stakeAdded, preTokenSupply)
	quotient, err := safemath.CheckedDivU128(numerator, wide.Uint128FromUint64(preTotalStake))
	if err != nil {
		return 0, PoolErrUnexpectedMathError
	}

	tokens, err := safemath.U128ToU64(quotient)
	if err != nil {
		return 0, PoolErrArithmeticOverflow
	}
	return tokens, nil
}

// calculateWithdrawAmount converts burned pool tokens back into lamports at
// the pre-withdraw share price: floor(tokens * totalStake / supply).
func calculateWithdrawAmount(tokens uint64, preTotalStake uint64, preTokenSupply uint64) (uint64, error) {
	numerator := safemath.MulU128(tokens, preTotalStake)
	quotient, err := safemath.CheckedDivU128(numerator, wide.Uint128FromUint64(preTokenSupply))
	if err != nil {
		return 0, PoolErrUnexpectedMathError
	}

	lamports, err := safemath.U128ToU64(quotient)
	if err != nil {
		return 0, PoolErrArithmeticOverflow
	}
	return lamports, nil
}
