package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.firedancer.io/svsp/cmd/svsp/addresses"
	"go.firedancer.io/svsp/cmd/svsp/depositaccount"
	"k8s.io/klog/v2"
)

var cmd = cobra.Command{
	Use:   "svsp",
	Short: "Single-validator stake pool tooling",
}

func init() {
	klogFlags := flag.NewFlagSet("klog", flag.ExitOnError)
	klog.InitFlags(klogFlags)
	cmd.PersistentFlags().AddGoFlagSet(klogFlags)

	cmd.AddCommand(
		&addresses.Cmd,
		&depositaccount.Cmd,
	)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	cobra.CheckErr(cmd.ExecuteContext(ctx))
}
