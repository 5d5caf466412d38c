package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	_ "github.com/mstgnz/paygate/provider/airwallex"
	_ "github.com/mstgnz/paygate/provider/chaabi"
	_ "github.com/mstgnz/paygate/provider/cod"
	_ "github.com/mstgnz/paygate/provider/paydunya"
	_ "github.com/mstgnz/paygate/provider/paytech"
)

var Version = "dev"

func main() {
	_ = godotenv.Load(".env")

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "paygatectl",
		Short:         "Inspect gateway routing and manage order validation tokens",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(gatewaysCmd())
	rootCmd.AddCommand(routeCmd())
	rootCmd.AddCommand(tokenCmd())

	return rootCmd
}
