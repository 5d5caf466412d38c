package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mstgnz/paygate/infra/config"
	"github.com/mstgnz/paygate/provider"
)

func gatewaysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gateways",
		Short: "Gateway configuration commands",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show which gateways have credentials",
		Args:  cobra.NoArgs,
		RunE:  runGatewaysStatus,
	})
	return cmd
}

func runGatewaysStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadPayments()
	if err != nil {
		return err
	}
	status := provider.NewFactory(cfg).GetConfigurationStatus()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "GATEWAY\tCONFIGURED")
	for _, g := range provider.AllGateways() {
		fmt.Fprintf(w, "%s\t%s\n", g, yesNo(status[g]))
	}
	return w.Flush()
}

func routeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "route <country>",
		Short: "Show the gateways offered for a country, preferred first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadPayments()
			if err != nil {
				return err
			}
			factory := provider.NewFactory(cfg)
			country := provider.NormalizeCountry(args[0])

			primary := "none"
			if p, err := factory.GetPrimaryProviderForCountry(country); err == nil {
				primary = p.Gateway().String()
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Country: %s\n", country)
			fmt.Fprintf(out, "Primary: %s\n", primary)

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "GATEWAY\tCONFIGURED")
			for _, g := range factory.GetProvidersForCountry(country) {
				p, err := factory.GetProvider(g)
				fmt.Fprintf(w, "%s\t%s\n", g, yesNo(err == nil && p.IsConfigured()))
			}
			return w.Flush()
		},
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
