package sealevel

import (
	"errors"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

const (
	VoteStateVersionV0_23_5 = iota
	VoteStateVersionV1_14_11
	VoteStateVersionCurrent
)

var VoteErrLegacyVoteAccount = errors.New("VoteErrLegacyVoteAccount")

// VoteAccount carries the subset of the vote state needed to validate and
// delegate stake: the validator identity, the withdraw authority and the
// running vote credits.
type VoteAccount struct {
	Version              uint32
	NodePubkey           solana.PublicKey
	AuthorizedWithdrawer solana.PublicKey
	Commission           byte
	Credits              uint64
}

type EpochCredits struct {
	Epoch       uint64
	Credits     uint64
	PrevCredits uint64
}

func (voteAcct *VoteAccount) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	version, err := decoder.ReadUint32(bin.LE)
	if err != nil {
		return err
	}
	voteAcct.Version = version

	if version != VoteStateVersionV1_14_11 && version != VoteStateVersionCurrent {
		// the pre-1.14 layout carries its withdrawer behind variable
		// length fields and is not produced by current validators
		return VoteErrLegacyVoteAccount
	}

	nodePubkey, err := decoder.ReadBytes(solana.PublicKeyLength)
	if err != nil {
		return err
	}
	copy(voteAcct.NodePubkey[:], nodePubkey)

	withdrawer, err := decoder.ReadBytes(solana.PublicKeyLength)
	if err != nil {
		return err
	}
	copy(voteAcct.AuthorizedWithdrawer[:], withdrawer)

	voteAcct.Commission, err = decoder.ReadByte()
	if err != nil {
		return err
	}

	// votes deque
	numVotes, err := decoder.ReadUint64(bin.LE)
	if err != nil {
		return err
	}
	voteEntrySize := 12 // lockout: slot + confirmation count
	if version == VoteStateVersionCurrent {
		voteEntrySize = 13 // landed vote adds a latency byte
	}
	err = decoder.SkipBytes(uint(numVotes) * uint(voteEntrySize))
	if err != nil {
		return err
	}

	// optional root slot
	rootSlotExists, err := decoder.ReadBool()
	if err != nil {
		return err
	}
	if rootSlotExists {
		err = decoder.SkipBytes(8)
		if err != nil {
			return err
		}
	}

	// authorized voters
	numAuthorizedVoters, err := decoder.ReadUint64(bin.LE)
	if err != nil {
		return err
	}
	err = decoder.SkipBytes(uint(numAuthorizedVoters) * 40)
	if err != nil {
		return err
	}

	// prior voters circular buffer: 32 entries plus index and empty flag
	err = decoder.SkipBytes(32*48 + 8 + 1)
	if err != nil {
		return err
	}

	numEpochCredits, err := decoder.ReadUint64(bin.LE)
	if err != nil {
		return err
	}
	var lastEpochCredits EpochCredits
	for i := uint64(0); i < numEpochCredits; i++ {
		lastEpochCredits.Epoch, err = decoder.ReadUint64(bin.LE)
		if err != nil {
			return err
		}
		lastEpochCredits.Credits, err = decoder.ReadUint64(bin.LE)
		if err != nil {
			return err
		}
		lastEpochCredits.PrevCredits, err = decoder.ReadUint64(bin.LE)
		if err != nil {
			return err
		}
	}
	voteAcct.Credits = lastEpochCredits.Credits

	return nil
}

func unmarshalVoteAccount(data []byte) (*VoteAccount, error) {
	decoder := bin.NewBinDecoder(data)

	voteAcct := new(VoteAccount)
	err := voteAcct.UnmarshalWithDecoder(decoder)
	if err != nil {
		return nil, err
	}
	return voteAcct, nil
}
