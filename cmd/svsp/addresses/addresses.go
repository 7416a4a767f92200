package addresses

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
	"go.firedancer.io/svsp/pkg/sealevel"
	"k8s.io/klog/v2"
)

var (
	Cmd = cobra.Command{
		Use:   "addresses",
		Short: "Derive the pool account family for a validator vote account",
		Run:   run,
	}

	voteAccount string
)

func init() {
	Cmd.Flags().StringVarP(&voteAccount, "vote-account", "v", "", "Validator vote account address")
}

func run(c *cobra.Command, args []string) {
	if voteAccount == "" {
		klog.Errorf("must specify a vote account address")
		return
	}

	voteAddr, err := solana.PublicKeyFromBase58(voteAccount)
	if err != nil {
		klog.Errorf("invalid vote account address %s: %s", voteAccount, err)
		return
	}

	poolAddr, _ := sealevel.FindPoolAddress(voteAddr)
	stakeAddr, _ := sealevel.FindPoolStakeAddress(poolAddr)
	onRampAddr, _ := sealevel.FindPoolOnRampAddress(poolAddr)
	mintAddr, _ := sealevel.FindPoolMintAddress(poolAddr)
	stakeAuthorityAddr, _ := sealevel.FindPoolStakeAuthorityAddress(poolAddr)
	mintAuthorityAddr, _ := sealevel.FindPoolMintAuthorityAddress(poolAddr)
	mplAuthorityAddr, _ := sealevel.FindPoolMplAuthorityAddress(poolAddr)
	metadataAddr, _ := sealevel.FindMetadataAddress(mintAddr)

	fmt.Printf("pool:            %s\n", poolAddr)
	fmt.Printf("stake:           %s\n", stakeAddr)
	fmt.Printf("onramp:          %s\n", onRampAddr)
	fmt.Printf("mint:            %s\n", mintAddr)
	fmt.Printf("stake authority: %s\n", stakeAuthorityAddr)
	fmt.Printf("mint authority:  %s\n", mintAuthorityAddr)
	fmt.Printf("mpl authority:   %s\n", mplAuthorityAddr)
	fmt.Printf("metadata:        %s\n", metadataAddr)
}
