package sealevel

const (
	CUSystemProgramDefaultComputeUnits     = 150
	CUStakeProgramDefaultComputeUnits      = 750
	CUTokenProgramDefaultComputeUnits      = 3000
	CUMetadataProgramDefaultComputeUnits   = 10000
	CUSinglePoolProgramDefaultComputeUnits = 15000
)
