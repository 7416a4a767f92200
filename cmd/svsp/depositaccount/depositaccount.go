package depositaccount

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
	"go.firedancer.io/svsp/pkg/sealevel"
	"k8s.io/klog/v2"
)

var (
	Cmd = cobra.Command{
		Use:   "deposit-account",
		Short: "Derive a wallet's default deposit stake account for a pool",
		Run:   run,
	}

	voteAccount string
	wallet      string
)

func init() {
	Cmd.Flags().StringVarP(&voteAccount, "vote-account", "v", "", "Validator vote account address")
	Cmd.Flags().StringVarP(&wallet, "wallet", "w", "", "Depositing wallet address")
}

func run(c *cobra.Command, args []string) {
	if voteAccount == "" || wallet == "" {
		klog.Errorf("must specify both a vote account and a wallet address")
		return
	}

	voteAddr, err := solana.PublicKeyFromBase58(voteAccount)
	if err != nil {
		klog.Errorf("invalid vote account address %s: %s", voteAccount, err)
		return
	}

	walletAddr, err := solana.PublicKeyFromBase58(wallet)
	if err != nil {
		klog.Errorf("invalid wallet address %s: %s", wallet, err)
		return
	}

	poolAddr, _ := sealevel.FindPoolAddress(voteAddr)
	depositAddr, seed, err := sealevel.FindDefaultDepositAccountAddressAndSeed(poolAddr, walletAddr)
	if err != nil {
		klog.Errorf("failed to derive deposit account: %s", err)
		return
	}

	fmt.Printf("deposit account: %s\n", depositAddr)
	fmt.Printf("seed:            %s\n", seed)
}
