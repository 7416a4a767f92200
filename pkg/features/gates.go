package features

import (
	"go.firedancer.io/svsp/pkg/base58"
)

type FeatureGate struct {
	Name    string
	Address [32]byte
}

var StakeRaiseMinimumDelegationTo1Sol = FeatureGate{Name: "StakeRaiseMinimumDelegationTo1Sol", Address: base58.MustDecodeFromString("9onWzzvCzNC2jfhxxeqRgs5q7nFAAKpCUvkj6T6GJK9i")}
var ReduceStakeWarmupCooldown = FeatureGate{Name: "ReduceStakeWarmupCooldown", Address: base58.MustDecodeFromString("GwtDQBghCTBgmX2cpEGNPxTEBUTQRaDMGTr5qychdGMj")}
var StakeAllowZeroUndelegatedAmount = FeatureGate{Name: "StakeAllowZeroUndelegatedAmount", Address: base58.MustDecodeFromString("sTKz343FM8mqtyGvYWvbLpTThw3ixRM4Xk8QvZ985mw")}

var AllFeatureGates = []FeatureGate{
	StakeRaiseMinimumDelegationTo1Sol,
	ReduceStakeWarmupCooldown,
	StakeAllowZeroUndelegatedAmount,
}
