package features

type Features struct {
	activeFeatures map[[32]byte]bool
}

func NewFeaturesDefault() Features {
	return Features{activeFeatures: make(map[[32]byte]bool)}
}

func (f *Features) EnableFeature(gate FeatureGate) {
	f.activeFeatures[gate.Address] = true
}

func (f *Features) DisableFeature(gate FeatureGate) {
	delete(f.activeFeatures, gate.Address)
}

func (f *Features) IsActive(gate FeatureGate) bool {
	return f.activeFeatures[gate.Address]
}
